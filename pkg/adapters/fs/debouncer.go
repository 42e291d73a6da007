package fs

import (
	"sync"
	"time"

	"github.com/aretw0/daybook/pkg/core"
)

// debouncer collapses bursts of filesystem events for the same date into one.
// A rename-based write shows up as several raw events; subscribers only need
// to hear about it once.
type debouncer struct {
	wait time.Duration

	mu      sync.Mutex
	pending map[core.Date]*pendingEvent
	stopped bool
	wg      sync.WaitGroup
}

type pendingEvent struct {
	event core.Event
	timer *time.Timer
	gen   uint64
}

func newDebouncer(wait time.Duration) *debouncer {
	return &debouncer{
		wait:    wait,
		pending: make(map[core.Date]*pendingEvent),
	}
}

// add schedules fire for the event, restarting the quiet period when an event
// for the same date is already waiting. A pending CREATE is kept as CREATE.
func (d *debouncer) add(event core.Event, fire func(core.Event)) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}

	p, ok := d.pending[event.Date]
	if !ok {
		p = &pendingEvent{event: event}
		d.pending[event.Date] = p
	} else {
		if p.timer.Stop() {
			d.wg.Done()
		}
		if p.event.Type != core.EventCreate {
			p.event.Type = event.Type
		}
		p.event.Timestamp = event.Timestamp
	}

	p.gen++
	gen := p.gen
	key := event.Date

	d.wg.Add(1)
	p.timer = time.AfterFunc(d.wait, func() {
		defer d.wg.Done()

		d.mu.Lock()
		current, ok := d.pending[key]
		if !ok || current.gen != gen || d.stopped {
			d.mu.Unlock()
			return
		}
		delete(d.pending, key)
		e := current.event
		d.mu.Unlock()

		fire(e)
	})
}

// stopAndWait cancels waiting events and blocks until running callbacks return
// or the timeout elapses.
func (d *debouncer) stopAndWait(timeout time.Duration) {
	d.mu.Lock()
	d.stopped = true
	for key, p := range d.pending {
		if p.timer.Stop() {
			d.wg.Done()
		}
		delete(d.pending, key)
	}
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(timeout):
	}
}
