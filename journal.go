package daybook

import (
	"context"
	"fmt"
	"sync"

	"github.com/aretw0/introspection"

	"github.com/aretw0/daybook/internal/platform"
	"github.com/aretw0/daybook/pkg/autosave"
	"github.com/aretw0/daybook/pkg/core"
)

// Journal is what a presentation layer talks to. Every method that touches
// storage runs the I/O on the background pool; observers receive updates on
// channels they own through their context.
type Journal struct {
	rt *platform.Runtime

	mu       sync.Mutex
	closed   bool
	closeErr error
}

// Open opens the journal at path, creating it unless WithMustExist or
// WithReadOnly is set.
func Open(path string, opts ...Option) (*Journal, error) {
	rt, err := platform.New(path, opts...)
	if err != nil {
		return nil, err
	}
	return &Journal{rt: rt}, nil
}

// Today returns today's date in the journal's clock and location.
func (j *Journal) Today() Date {
	return j.rt.Cache.Today()
}

// ListDatesDescending rescans storage and returns every date with an entry,
// most recent first. Observers of the list are updated too.
func (j *Journal) ListDatesDescending(ctx context.Context) ([]Date, error) {
	return j.rt.Cache.RefreshList(ctx)
}

// ReadEntry returns the entry for d. The boolean is false when there is none.
func (j *Journal) ReadEntry(ctx context.Context, d Date) (Entry, bool, error) {
	return j.rt.Cache.Read(ctx, d)
}

// SaveEntry stores text for d. Blank text deletes the entry.
func (j *Journal) SaveEntry(ctx context.Context, d Date, text string) (Durability, error) {
	if j.rt.ReadOnly {
		return DurabilityAtomic, fmt.Errorf("save %s: %w", d, core.ErrReadOnly)
	}
	return j.rt.Cache.Save(ctx, d, text)
}

// DeleteEntry removes the entry for d. Deleting a missing entry succeeds.
// With WithProtectPast, entries before today are refused with ErrPastEntry.
// While d has edits not yet saved, typically by an open session, the delete
// is refused with ErrUnsaved: the session would write them back later.
func (j *Journal) DeleteEntry(ctx context.Context, d Date) error {
	if j.rt.ReadOnly {
		return fmt.Errorf("delete %s: %w", d, core.ErrReadOnly)
	}
	if j.rt.ProtectPast && d.Before(j.Today()) {
		return fmt.Errorf("delete %s: %w", d, core.ErrPastEntry)
	}
	if j.rt.Cache.Dirty(d) {
		return fmt.Errorf("delete %s: %w", d, core.ErrUnsaved)
	}
	return j.rt.Cache.Delete(ctx, d)
}

// ReadToday returns today's entry.
func (j *Journal) ReadToday(ctx context.Context) (Entry, bool, error) {
	return j.ReadEntry(ctx, j.Today())
}

// SaveToday stores text as today's entry.
func (j *Journal) SaveToday(ctx context.Context, text string) (Durability, error) {
	return j.SaveEntry(ctx, j.Today(), text)
}

// ObserveList streams the descending date list until ctx ends.
func (j *Journal) ObserveList(ctx context.Context) <-chan []Date {
	return j.rt.Cache.ObserveList(ctx)
}

// ObserveEntry streams the content of d until ctx ends. "" means no entry.
func (j *Journal) ObserveEntry(ctx context.Context, d Date) <-chan string {
	return j.rt.Cache.ObserveEntry(ctx, d)
}

// ObserveHasToday streams whether today has an entry.
func (j *Journal) ObserveHasToday(ctx context.Context) <-chan bool {
	return j.rt.Cache.ObserveHasToday(ctx)
}

// Previews returns the first lines of each date's entry.
func (j *Journal) Previews(ctx context.Context, dates []Date) (map[Date]string, error) {
	return j.rt.Cache.Previews(ctx, dates)
}

// OpenSession starts an editor on d with the configured autosave policy.
// The session must be closed; closing it saves pending text.
func (j *Journal) OpenSession(ctx context.Context, d Date) (*Session, error) {
	if j.rt.ReadOnly {
		return nil, fmt.Errorf("open session %s: %w", d, core.ErrReadOnly)
	}

	j.mu.Lock()
	closed := j.closed
	j.mu.Unlock()
	if closed {
		return nil, core.ErrClosed
	}

	s, err := autosave.Open(ctx, j.rt.Cache, d, j.rt.Autosave,
		autosave.WithDebounce(j.rt.Debounce),
		autosave.WithLogger(j.rt.Logger),
	)
	if err != nil {
		return nil, err
	}
	j.rt.Logger.Debug("session opened", "session", s.ID(), "date", d, "policy", s.Kind())
	return s, nil
}

// Follow keeps observers in step with changes made by other programs until
// ctx ends. It fails if the storage adapter cannot watch for changes.
func (j *Journal) Follow(ctx context.Context) error {
	return j.rt.Cache.Follow(ctx)
}

// Close ends every subscription, waits for queued writes and releases
// storage. Open sessions should be closed first so their text is flushed.
func (j *Journal) Close(ctx context.Context) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.closed {
		return j.closeErr
	}
	j.closed = true
	j.closeErr = j.rt.Close(ctx)
	return j.closeErr
}

// JournalState aggregates the state of every component.
type JournalState struct {
	Repository any  `json:"repository,omitempty"`
	Executor   any  `json:"executor"`
	Cache      any  `json:"cache"`
	ReadOnly   bool `json:"read_only"`
}

// State implements introspection.Introspectable.
func (j *Journal) State() any {
	s := JournalState{
		Executor: j.rt.Executor.State(),
		Cache:    j.rt.Cache.State(),
		ReadOnly: j.rt.ReadOnly,
	}
	if in, ok := j.rt.Repository.(introspection.Introspectable); ok {
		s.Repository = in.State()
	}
	return s
}

// ComponentType implements introspection.Component.
func (j *Journal) ComponentType() string {
	return "journal"
}

var _ introspection.Introspectable = (*Journal)(nil)
var _ introspection.Component = (*Journal)(nil)
