package core

import "errors"

// Common errors.
var (
	ErrReadOnly    = errors.New("journal is in read-only mode")
	ErrInvalidDate = errors.New("invalid date")
	ErrPastEntry   = errors.New("past entries cannot be deleted")
	ErrClosed      = errors.New("journal is closed")
	ErrUnsaved     = errors.New("entry has unsaved edits")
)
