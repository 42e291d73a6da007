package daybook

import (
	"log/slog"
	"time"

	"github.com/aretw0/daybook/internal/platform"
	"github.com/aretw0/daybook/pkg/autosave"
	"github.com/aretw0/daybook/pkg/core"
)

// --- Types ---

// Date is a calendar day, written YYYY-MM-DD.
type Date = core.Date

// Entry is the text written for one date.
type Entry = core.Entry

// Durability reports how a save reached storage.
type Durability = core.Durability

// Session is an editor open on one date.
type Session = autosave.Session

// AutosaveKind names an autosave policy.
type AutosaveKind = autosave.Kind

const (
	DurabilityAtomic   = core.DurabilityAtomic
	DurabilityDegraded = core.DurabilityDegraded
	DurabilityRemoved  = core.DurabilityRemoved

	AutosaveImmediate = autosave.KindImmediate
	AutosaveDebounced = autosave.KindDebounced
	AutosaveExplicit  = autosave.KindExplicit
)

// Common errors.
var (
	ErrReadOnly    = core.ErrReadOnly
	ErrInvalidDate = core.ErrInvalidDate
	ErrPastEntry   = core.ErrPastEntry
	ErrClosed      = core.ErrClosed
	ErrUnsaved     = core.ErrUnsaved
)

// ParseDate parses a YYYY-MM-DD date.
func ParseDate(s string) (Date, error) {
	return core.ParseDate(s)
}

// --- Configuration ---

// Option defines a functional option for configuring a journal.
type Option = platform.Option

// WithLogger sets the logger shared by every component.
func WithLogger(logger *slog.Logger) Option {
	return platform.WithLogger(logger)
}

// WithRepository injects a custom storage adapter.
func WithRepository(repo core.Repository) Option {
	return platform.WithRepository(repo)
}

// WithAdapter selects the storage adapter by name ("fs" or "sqlite").
func WithAdapter(name string) Option {
	return platform.WithAdapter(name)
}

// WithSuffix sets the record file suffix (fs adapter).
func WithSuffix(suffix string) Option {
	return platform.WithSuffix(suffix)
}

// WithReadOnly opens the journal without ever writing to it.
func WithReadOnly(enabled bool) Option {
	return platform.WithReadOnly(enabled)
}

// WithMustExist ensures the journal directory must already exist.
func WithMustExist(must bool) Option {
	return platform.WithMustExist(must)
}

// WithWorkers sets the size of the background storage pool.
func WithWorkers(n int) Option {
	return platform.WithWorkers(n)
}

// WithAutosave sets the policy used by editing sessions.
func WithAutosave(kind AutosaveKind, debounce time.Duration) Option {
	return platform.WithAutosave(kind, debounce)
}

// WithDevSafety controls the `go run` sandbox.
func WithDevSafety(enabled bool) Option {
	return platform.WithDevSafety(enabled)
}

// WithForceTemp forces the use of a temporary directory (useful for testing).
func WithForceTemp(force bool) Option {
	return platform.WithForceTemp(force)
}

// WithClock sets the time source deciding which date is today.
func WithClock(clock func() time.Time) Option {
	return platform.WithClock(clock)
}

// WithLocation sets the time zone today is computed in.
func WithLocation(loc *time.Location) Option {
	return platform.WithLocation(loc)
}

// WithProtectPast refuses to delete entries older than today.
func WithProtectPast(enabled bool) Option {
	return platform.WithProtectPast(enabled)
}

// WithWatcherErrorHandler registers a callback for runtime watcher failures.
func WithWatcherErrorHandler(fn func(error)) Option {
	return platform.WithWatcherErrorHandler(fn)
}

// --- Safety & Utils ---

// ResolveJournalPath determines the actual directory based on safety rules.
func ResolveJournalPath(userPath string, forceTemp bool) string {
	return platform.ResolveJournalPath(userPath, forceTemp)
}

// IsDevRun checks if the current process is running via `go run` or `go test`.
func IsDevRun() bool {
	return platform.IsDevRun()
}

// JournalRoot is an enclosing journal and the adapter its marker implies.
type JournalRoot = platform.Root

// FindJournalRoot walks up from startDir to the nearest journal marker.
func FindJournalRoot(startDir string) (JournalRoot, error) {
	return platform.FindRoot(startDir)
}
