package cache

import (
	"time"

	"github.com/aretw0/introspection"
)

// CacheState exposes internal state for observability.
type CacheState struct {
	ListLoaded      bool      `json:"list_loaded"`
	ListSize        int       `json:"list_size"`
	HasToday        bool      `json:"has_today"`
	ListSubscribers int       `json:"list_subscribers"`
	Entries         int       `json:"entries"`
	DirtyEntries    int       `json:"dirty_entries"`
	LastRefresh     time.Time `json:"last_refresh"`
	Closed          bool      `json:"closed"`
}

// State implements introspection.Introspectable.
func (c *Cache) State() any {
	c.mu.Lock()
	defer c.mu.Unlock()

	dirty := 0
	for _, st := range c.entries {
		if st.dirty() {
			dirty++
		}
	}

	return CacheState{
		ListLoaded:      c.listLoaded,
		ListSize:        len(c.list.Get()),
		HasToday:        c.today.Get(),
		ListSubscribers: c.list.Subscribers() + c.today.Subscribers(),
		Entries:         len(c.entries),
		DirtyEntries:    dirty,
		LastRefresh:     c.lastRefresh,
		Closed:          c.closed,
	}
}

// ComponentType implements introspection.Component.
func (c *Cache) ComponentType() string {
	return "entry-cache"
}

var _ introspection.Introspectable = (*Cache)(nil)
var _ introspection.Component = (*Cache)(nil)
