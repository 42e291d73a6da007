package dispatch

import "github.com/aretw0/introspection"

// ExecutorState exposes internal state for observability.
type ExecutorState struct {
	Workers     int  `json:"workers"`
	ActiveLanes int  `json:"active_lanes"`
	Queued      int  `json:"queued"`
	InFlight    int  `json:"in_flight"`
	Closed      bool `json:"closed"`
}

// State implements introspection.Introspectable.
func (e *Executor) State() any {
	e.mu.Lock()
	defer e.mu.Unlock()

	queued := 0
	for _, l := range e.lanes {
		queued += len(l.queue)
	}

	return ExecutorState{
		Workers:     e.workers,
		ActiveLanes: len(e.lanes),
		Queued:      queued,
		InFlight:    e.inFlight,
		Closed:      e.closed,
	}
}

// ComponentType implements introspection.Component.
func (e *Executor) ComponentType() string {
	return "executor"
}

var _ introspection.Introspectable = (*Executor)(nil)
var _ introspection.Component = (*Executor)(nil)
