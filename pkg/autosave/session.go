package autosave

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/aretw0/daybook/pkg/core"
)

// Projection is the in-memory view a session edits through.
// *cache.Cache implements it.
type Projection interface {
	Sink
	// Update publishes content to observers and returns its revision.
	Update(d core.Date, content string) uint64
	ObserveEntry(ctx context.Context, d core.Date) <-chan string
}

// Session is one editor open on one date. It owns the autosave policy and
// must be closed; Close performs the final flush.
type Session struct {
	id     string
	date   core.Date
	kind   Kind
	proj   Projection
	policy Policy

	content <-chan string
	cancel  context.CancelFunc

	mu       sync.Mutex
	closed   bool
	closeErr error
}

// Open starts an editing session on d using the policy named by kind.
func Open(ctx context.Context, proj Projection, d core.Date, kind Kind, opts ...Option) (*Session, error) {
	if d.IsZero() {
		return nil, core.ErrInvalidDate
	}

	policy, err := New(kind, proj, d, opts...)
	if err != nil {
		return nil, err
	}
	if kind == "" {
		kind = KindDebounced
	}

	subCtx, cancel := context.WithCancel(ctx)
	return &Session{
		id:      uuid.NewString(),
		date:    d,
		kind:    kind,
		proj:    proj,
		policy:  policy,
		content: proj.ObserveEntry(subCtx, d),
		cancel:  cancel,
	}, nil
}

// ID identifies the session in logs.
func (s *Session) ID() string { return s.id }

// Date returns the date being edited.
func (s *Session) Date() core.Date { return s.date }

// Kind returns the autosave policy in use.
func (s *Session) Kind() Kind { return s.kind }

// Content streams the entry as observers see it, local edits included.
// The channel closes when the session closes.
func (s *Session) Content() <-chan string { return s.content }

// Mutate publishes text to observers at once, then hands it to the policy.
func (s *Session) Mutate(ctx context.Context, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return core.ErrClosed
	}
	rev := s.proj.Update(s.date, text)
	return s.policy.Mutate(ctx, text, rev)
}

// Flush saves pending text and waits for it.
func (s *Session) Flush(ctx context.Context) error {
	return s.policy.Flush(ctx)
}

// Pending reports whether typed text is not yet durable.
func (s *Session) Pending() bool {
	return s.policy.Pending()
}

// Close flushes pending text and ends the content stream. Calling Close
// again returns the first result.
func (s *Session) Close(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return s.closeErr
	}
	s.closed = true
	s.closeErr = s.policy.Close(ctx)
	s.cancel()
	return s.closeErr
}
