package fs

import (
	"time"

	"github.com/aretw0/introspection"
)

// RepositoryState exposes internal state for observability.
type RepositoryState struct {
	Path           string     `json:"path"`
	Suffix         string     `json:"suffix"`
	ReadOnly       bool       `json:"read_only"`
	WatcherActive  bool       `json:"watcher_active"`
	LockedDates    int        `json:"locked_dates"`
	DegradedWrites int        `json:"degraded_writes"`
	LastSweep      *time.Time `json:"last_sweep,omitempty"`
}

// State implements introspection.Introspectable.
func (r *Repository) State() any {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return RepositoryState{
		Path:           r.Path,
		Suffix:         r.config.Suffix,
		ReadOnly:       r.config.ReadOnly,
		WatcherActive:  r.watcherActive,
		LockedDates:    r.locks.Len(),
		DegradedWrites: r.degradedWrites,
		LastSweep:      r.lastSweep,
	}
}

// ComponentType implements introspection.Component.
func (r *Repository) ComponentType() string {
	return "fs-repository"
}

var _ introspection.Introspectable = (*Repository)(nil)
var _ introspection.Component = (*Repository)(nil)

func (r *Repository) setWatcherActive(active bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.watcherActive = active
}
