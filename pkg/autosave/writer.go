package autosave

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/aretw0/daybook/pkg/core"
)

// writer issues saves for one date without blocking the caller. Saves run
// one after another in issue order; the first failure is kept until the next
// wait reports it.
type writer struct {
	sink    Sink
	date    core.Date
	logger  *slog.Logger
	onError func(error)

	mu       sync.Mutex
	tail     chan struct{}
	inFlight int
	err      error
	issued   int
}

func newWriter(sink Sink, date core.Date, o options) *writer {
	done := make(chan struct{})
	close(done)
	return &writer{
		sink:    sink,
		date:    date,
		logger:  o.logger,
		onError: o.onError,
		tail:    done,
	}
}

// issue schedules a save of content after every save issued before it.
// The save is never cancelled once issued.
func (w *writer) issue(ctx context.Context, content string, rev uint64) {
	ctx = context.WithoutCancel(ctx)

	w.mu.Lock()
	prev := w.tail
	done := make(chan struct{})
	w.tail = done
	w.inFlight++
	w.issued++
	w.mu.Unlock()

	go func() {
		defer close(done)
		<-prev

		durability, err := w.sink.SaveRevision(ctx, w.date, content, rev)

		w.mu.Lock()
		w.inFlight--
		if err != nil && w.err == nil {
			w.err = err
		}
		w.mu.Unlock()

		if err != nil {
			w.logger.Warn("autosave failed", "date", w.date, "error", err)
			if w.onError != nil {
				w.onError(err)
			}
			return
		}
		if durability == core.DurabilityDegraded {
			w.logger.Warn("autosave degraded durability", "date", w.date)
		}
	}()
}

// wait blocks until every issued save has finished, then returns and clears
// the retained failure.
func (w *writer) wait(ctx context.Context) error {
	w.mu.Lock()
	tail := w.tail
	w.mu.Unlock()

	select {
	case <-tail:
	case <-ctx.Done():
		return ctx.Err()
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	err := w.err
	w.err = nil
	if err != nil {
		return fmt.Errorf("autosave %s: %w", w.date, err)
	}
	return nil
}

func (w *writer) busy() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.inFlight > 0
}

func (w *writer) count() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.issued
}
