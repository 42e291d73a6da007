package core

import "context"

// Repository defines the contract for storing and retrieving entries.
// Adhering to this interface keeps the cache and the autosave policies
// independent of the storage mechanism (flat directory, SQLite, ...).
//
// Reads and deletes degrade instead of failing: a broken record must not break
// a listing or an editor. Writes report failures, because losing typed text
// silently is a correctness bug.
type Repository interface {
	// Initialize ensures the underlying storage is ready (directories, schema).
	Initialize(ctx context.Context) error

	// Get returns the entry for d. The boolean is false when the entry is
	// absent, empty or unreadable.
	Get(ctx context.Context, d Date) (Entry, bool)

	// Put persists an entry. Blank content deletes the record instead.
	Put(ctx context.Context, e Entry) (Durability, error)

	// Delete removes the record for d. Deleting an absent entry is a no-op.
	Delete(ctx context.Context, d Date)

	// ListKeys returns the dates of all persisted entries, most recent first.
	ListKeys(ctx context.Context) []Date
}

// Watchable defines an interface for repositories that can report changes
// made to storage by other processes or tools.
type Watchable interface {
	// Watch streams change events until ctx is cancelled.
	Watch(ctx context.Context) (<-chan Event, error)
}

// Closer is implemented by repositories holding resources (database handles).
type Closer interface {
	Close() error
}
