package fs

import (
	"errors"
	"fmt"
	"os"

	"github.com/aretw0/daybook/pkg/core"
)

const (
	// StagingSuffix is appended to a record name to build its staging file.
	StagingSuffix = ".tmp"
)

// renameFunc matches os.Rename. Tests replace it to force the fallback path.
type renameFunc func(oldpath, newpath string) error

// writeFileAtomic writes data to filename by writing a staging file next to it
// and renaming it over the target.
//
// When the rename fails the target is overwritten in place and the staging file
// removed. That path returns DurabilityDegraded: a crash during the overwrite
// could leave a truncated record behind.
func writeFileAtomic(filename string, data []byte, perm os.FileMode, rename renameFunc) (core.Durability, error) {
	staging := filename + StagingSuffix

	if err := writeSynced(staging, data, perm); err != nil {
		_ = os.Remove(staging)
		return core.DurabilityAtomic, fmt.Errorf("failed to write staging file: %w", err)
	}

	renameErr := rename(staging, filename)
	if renameErr == nil {
		return core.DurabilityAtomic, nil
	}

	writeErr := writeSynced(filename, data, perm)
	_ = os.Remove(staging)
	if writeErr != nil {
		return core.DurabilityDegraded, fmt.Errorf("failed to write %s: %w", filename, errors.Join(renameErr, writeErr))
	}

	return core.DurabilityDegraded, nil
}

// writeSynced truncates and writes filename, flushing it to disk before closing.
func writeSynced(filename string, data []byte, perm os.FileMode) error {
	f, err := os.OpenFile(filename, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, perm)
	if err != nil {
		return err
	}

	if _, err := f.Write(data); err != nil {
		f.Close()
		return err
	}

	if err := f.Sync(); err != nil {
		f.Close()
		return err
	}

	return f.Close()
}
