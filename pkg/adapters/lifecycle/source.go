// Package lifecycle exposes journal change events as a lifecycle.Source.
package lifecycle

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"

	"github.com/aretw0/lifecycle"

	"github.com/aretw0/daybook/pkg/core"
)

// ErrStarted is returned by Start on a source that is already running.
var ErrStarted = errors.New("change source already started")

// Changes is the set of dates changed outside the process since the consumer
// last received from the source. Each date appears once, with its latest
// event, in the order it first changed.
type Changes struct {
	Events []core.Event
}

// Dates returns the changed dates.
func (c Changes) Dates() []core.Date {
	dates := make([]core.Date, len(c.Events))
	for i, e := range c.Events {
		dates[i] = e.Date
	}
	return dates
}

// String implements lifecycle.Event.
func (c Changes) String() string {
	parts := make([]string, len(c.Events))
	for i, e := range c.Events {
		parts[i] = e.String()
	}
	return "CHANGES [" + strings.Join(parts, ", ") + "]"
}

type changeSource struct {
	events  <-chan core.Event
	out     chan lifecycle.Event
	started atomic.Bool
}

// NewSource wraps a repository's change stream. Events that arrive while the
// consumer is busy are merged into one Changes value per delivery.
func NewSource(events <-chan core.Event) lifecycle.Source {
	return &changeSource{
		events: events,
		out:    make(chan lifecycle.Event),
	}
}

func (s *changeSource) Events() <-chan lifecycle.Event {
	return s.out
}

// Start forwards changes on a tracked goroutine until ctx ends or the
// wrapped stream closes. Changes still pending when the stream closes are
// delivered before Events is closed.
func (s *changeSource) Start(ctx context.Context) error {
	if !s.started.CompareAndSwap(false, true) {
		return ErrStarted
	}

	lifecycle.Go(ctx, func(ctx context.Context) error {
		defer close(s.out)

		in := s.events
		var pending Changes
		index := make(map[core.Date]int)

		for in != nil || len(pending.Events) > 0 {
			// Only offer a delivery when something is pending.
			var out chan lifecycle.Event
			if len(pending.Events) > 0 {
				out = s.out
			}

			select {
			case <-ctx.Done():
				return nil
			case e, ok := <-in:
				if !ok {
					in = nil
					continue
				}
				if i, seen := index[e.Date]; seen {
					pending.Events[i] = e
				} else {
					index[e.Date] = len(pending.Events)
					pending.Events = append(pending.Events, e)
				}
			case out <- pending:
				pending = Changes{}
				clear(index)
			}
		}
		return nil
	})
	return nil
}
