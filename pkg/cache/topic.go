package cache

import (
	"context"
	"sync"
)

// Topic holds a current value and fans every change out to its subscribers.
//
// A subscriber first receives the value current at subscription time, then
// each distinct published value exactly once, in publish order. Each
// subscriber has its own queue, so a slow reader never blocks Publish.
// Published values are shared between subscribers and must be treated as
// read-only.
//
// A topic made with NewPendingTopic has no value until its first Publish;
// subscribers hear nothing before then.
type Topic[T any] struct {
	equal func(a, b T) bool

	mu     sync.Mutex
	value  T
	set    bool
	subs   map[*subscriber[T]]struct{}
	closed bool
}

// NewTopic creates a topic starting at initial. Publishing a value equal to
// the current one (per equal) is a no-op.
func NewTopic[T any](initial T, equal func(a, b T) bool) *Topic[T] {
	return &Topic[T]{
		equal: equal,
		value: initial,
		set:   true,
		subs:  make(map[*subscriber[T]]struct{}),
	}
}

// NewPendingTopic creates a topic without a value. Its first Publish is
// always delivered, even if it equals the zero value.
func NewPendingTopic[T any](equal func(a, b T) bool) *Topic[T] {
	return &Topic[T]{
		equal: equal,
		subs:  make(map[*subscriber[T]]struct{}),
	}
}

// Ready reports whether the topic holds a value.
func (t *Topic[T]) Ready() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.set
}

// Get returns the current value, or the zero value before the first Publish
// of a pending topic.
func (t *Topic[T]) Get() T {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.value
}

// Publish replaces the current value and notifies subscribers.
// It reports whether the value changed.
func (t *Topic[T]) Publish(v T) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed || (t.set && t.equal != nil && t.equal(t.value, v)) {
		return false
	}

	t.value = v
	t.set = true
	for s := range t.subs {
		s.push(v)
	}
	return true
}

// Subscribe streams the current value, if any, and later changes until ctx ends or
// the topic is closed; then the channel is closed.
func (t *Topic[T]) Subscribe(ctx context.Context) <-chan T {
	return t.subscribe(ctx, nil)
}

func (t *Topic[T]) subscribe(ctx context.Context, onDone func()) <-chan T {
	s := &subscriber[T]{
		out:    make(chan T),
		notify: make(chan struct{}, 1),
	}

	t.mu.Lock()
	if t.set {
		s.push(t.value)
	}
	if t.closed {
		s.stop()
	} else {
		t.subs[s] = struct{}{}
	}
	t.mu.Unlock()

	go func() {
		defer func() {
			t.remove(s)
			close(s.out)
			if onDone != nil {
				onDone()
			}
		}()
		s.pump(ctx)
	}()

	return s.out
}

// Subscribers returns the number of live subscriptions.
func (t *Topic[T]) Subscribers() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.subs)
}

// Close ends every subscription after its queued values are delivered.
// Later publishes are ignored.
func (t *Topic[T]) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return
	}
	t.closed = true
	for s := range t.subs {
		s.stop()
	}
}

func (t *Topic[T]) remove(s *subscriber[T]) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.subs, s)
}

type subscriber[T any] struct {
	out    chan T
	notify chan struct{}

	mu      sync.Mutex
	queue   []T
	stopped bool
}

func (s *subscriber[T]) push(v T) {
	s.mu.Lock()
	s.queue = append(s.queue, v)
	s.mu.Unlock()
	s.wake()
}

func (s *subscriber[T]) stop() {
	s.mu.Lock()
	s.stopped = true
	s.mu.Unlock()
	s.wake()
}

func (s *subscriber[T]) wake() {
	select {
	case s.notify <- struct{}{}:
	default:
	}
}

// pump delivers queued values in order until the subscriber stops with an
// empty queue or ctx ends.
func (s *subscriber[T]) pump(ctx context.Context) {
	for {
		s.mu.Lock()
		batch := s.queue
		s.queue = nil
		stopped := s.stopped
		s.mu.Unlock()

		if len(batch) == 0 {
			if stopped {
				return
			}
			select {
			case <-s.notify:
				continue
			case <-ctx.Done():
				return
			}
		}

		for _, v := range batch {
			select {
			case s.out <- v:
			case <-ctx.Done():
				return
			}
		}
	}
}
