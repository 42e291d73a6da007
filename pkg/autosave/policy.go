// Package autosave decides when typed text becomes a durable write.
//
// A Policy sits between an editor and a Sink. Mutate is called for every
// change; the policy chooses when to call Sink.SaveRevision. Saves never block the
// caller of Mutate and are applied in the order they were issued. Close
// always flushes, so text typed just before teardown is never lost.
package autosave

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/aretw0/daybook/pkg/core"
)

// DefaultDebounce is the quiet period used by Debounced when none is set.
const DefaultDebounce = 500 * time.Millisecond

// ErrUnknownKind is returned by ParseKind for names it does not know.
var ErrUnknownKind = errors.New("unknown autosave policy")

// Sink persists the content of one date. rev is the revision the editor's
// projection gave the content when it was typed; the sink uses it to tell a
// save of older text from a save of what is on screen.
type Sink interface {
	SaveRevision(ctx context.Context, d core.Date, content string, rev uint64) (core.Durability, error)
}

// Policy turns mutations into saves.
type Policy interface {
	// Mutate records the latest content and its revision. It does not wait
	// for storage.
	Mutate(ctx context.Context, content string, rev uint64) error
	// Flush saves pending content now and waits for every issued save.
	// It returns the first save failure since the previous Flush.
	Flush(ctx context.Context) error
	// Close flushes and rejects further mutations. It is idempotent.
	Close(ctx context.Context) error
	// Pending reports whether content is waiting to be saved.
	Pending() bool
}

// Kind names a policy.
type Kind string

const (
	KindImmediate Kind = "immediate"
	KindDebounced Kind = "debounced"
	KindExplicit  Kind = "explicit"
)

// ParseKind parses a policy name, case-insensitively.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(s))); k {
	case KindImmediate, KindDebounced, KindExplicit:
		return k, nil
	case "":
		return KindDebounced, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
	}
}

type options struct {
	debounce time.Duration
	logger   *slog.Logger
	onError  func(error)
}

// Option configures a policy.
type Option func(*options)

// WithDebounce sets the quiet period of the Debounced policy.
func WithDebounce(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.debounce = d
		}
	}
}

// WithErrorHandler is called for every failed save, including saves started
// by a timer with nobody waiting on them.
func WithErrorHandler(fn func(error)) Option {
	return func(o *options) {
		o.onError = fn
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{
		debounce: DefaultDebounce,
		logger:   slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// New creates the policy named by kind for date d.
func New(kind Kind, sink Sink, d core.Date, opts ...Option) (Policy, error) {
	switch kind {
	case KindImmediate:
		return NewImmediate(sink, d, opts...), nil
	case KindDebounced, "":
		return NewDebounced(sink, d, opts...), nil
	case KindExplicit:
		return NewExplicit(sink, d, opts...), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
}

// Immediate saves on every mutation.
type Immediate struct {
	w *writer

	mu     sync.Mutex
	closed bool
}

// NewImmediate creates an Immediate policy.
func NewImmediate(sink Sink, d core.Date, opts ...Option) *Immediate {
	return &Immediate{w: newWriter(sink, d, buildOptions(opts))}
}

func (p *Immediate) Mutate(ctx context.Context, content string, rev uint64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return core.ErrClosed
	}
	p.w.issue(ctx, content, rev)
	return nil
}

func (p *Immediate) Flush(ctx context.Context) error { return p.w.wait(ctx) }

func (p *Immediate) Close(ctx context.Context) error {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
	return p.w.wait(ctx)
}

func (p *Immediate) Pending() bool { return p.w.busy() }

// Debounced saves once the content has been quiet for the debounce period.
//
// It is idle or pending. A mutation while idle starts the timer; a mutation
// while pending restarts it. When the timer fires, or on Flush, the latest
// content is saved and the policy goes back to idle.
type Debounced struct {
	w    *writer
	wait time.Duration

	mu      sync.Mutex
	pending bool
	content string
	rev     uint64
	timer   *time.Timer
	gen     uint64
	closed  bool
}

// NewDebounced creates a Debounced policy.
func NewDebounced(sink Sink, d core.Date, opts ...Option) *Debounced {
	o := buildOptions(opts)
	return &Debounced{w: newWriter(sink, d, o), wait: o.debounce}
}

func (p *Debounced) Mutate(ctx context.Context, content string, rev uint64) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return core.ErrClosed
	}

	p.content = content
	p.rev = rev
	p.pending = true
	p.gen++
	gen := p.gen

	if p.timer != nil {
		p.timer.Stop()
	}
	p.timer = time.AfterFunc(p.wait, func() { p.fire(gen) })
	return nil
}

// fire runs on the timer goroutine. A timer replaced by a later mutation or
// beaten by Flush finds a newer generation and does nothing.
func (p *Debounced) fire(gen uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.pending || gen != p.gen {
		return
	}
	p.saveLocked(context.Background())
}

func (p *Debounced) saveLocked(ctx context.Context) {
	if p.timer != nil {
		p.timer.Stop()
		p.timer = nil
	}
	p.pending = false
	p.gen++
	p.w.issue(ctx, p.content, p.rev)
}

func (p *Debounced) Flush(ctx context.Context) error {
	p.mu.Lock()
	if p.pending {
		p.saveLocked(ctx)
	}
	p.mu.Unlock()
	return p.w.wait(ctx)
}

func (p *Debounced) Close(ctx context.Context) error {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
	return p.Flush(ctx)
}

func (p *Debounced) Pending() bool {
	p.mu.Lock()
	pending := p.pending
	p.mu.Unlock()
	return pending || p.w.busy()
}

// Explicit saves only when Flush or Close is called.
type Explicit struct {
	w *writer

	mu      sync.Mutex
	pending bool
	content string
	rev     uint64
	closed  bool
}

// NewExplicit creates an Explicit policy.
func NewExplicit(sink Sink, d core.Date, opts ...Option) *Explicit {
	return &Explicit{w: newWriter(sink, d, buildOptions(opts))}
}

func (p *Explicit) Mutate(ctx context.Context, content string, rev uint64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return core.ErrClosed
	}
	p.content = content
	p.rev = rev
	p.pending = true
	return nil
}

func (p *Explicit) Flush(ctx context.Context) error {
	p.mu.Lock()
	if p.pending {
		p.pending = false
		p.w.issue(ctx, p.content, p.rev)
	}
	p.mu.Unlock()
	return p.w.wait(ctx)
}

func (p *Explicit) Close(ctx context.Context) error {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
	return p.Flush(ctx)
}

func (p *Explicit) Pending() bool {
	p.mu.Lock()
	pending := p.pending
	p.mu.Unlock()
	return pending || p.w.busy()
}

var (
	_ Policy = (*Immediate)(nil)
	_ Policy = (*Debounced)(nil)
	_ Policy = (*Explicit)(nil)
)
