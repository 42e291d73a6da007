package fs

import (
	"sync"

	"github.com/aretw0/daybook/pkg/core"
)

// keyLock hands out one mutex per date. Entries are reference counted so the
// map only holds dates with an operation in progress.
type keyLock struct {
	mu    sync.Mutex
	locks map[core.Date]*refMutex
}

type refMutex struct {
	sync.Mutex
	refs int
}

func newKeyLock() *keyLock {
	return &keyLock{locks: make(map[core.Date]*refMutex)}
}

// Lock blocks until the date is free and returns the matching unlock function.
func (k *keyLock) Lock(d core.Date) func() {
	k.mu.Lock()
	m, ok := k.locks[d]
	if !ok {
		m = &refMutex{}
		k.locks[d] = m
	}
	m.refs++
	k.mu.Unlock()

	m.Lock()
	return func() {
		m.Unlock()

		k.mu.Lock()
		m.refs--
		if m.refs == 0 {
			delete(k.locks, d)
		}
		k.mu.Unlock()
	}
}

// Len returns the number of dates currently locked or waited on.
func (k *keyLock) Len() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.locks)
}
