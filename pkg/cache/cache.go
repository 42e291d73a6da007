// Package cache keeps an in-memory, observable projection of the journal.
//
// The projection holds the descending date list, a flag telling whether
// today's entry exists, and the content of each date someone is observing or
// editing. Storage work goes through a dispatch.Executor, so every call that
// touches the repository runs off the caller's goroutine and puts to one date
// apply in the order they were issued.
package cache

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/aretw0/daybook/pkg/core"
	"github.com/aretw0/daybook/pkg/dispatch"
)

// Cache is the observable projection over a core.Repository.
type Cache struct {
	repo   core.Repository
	exec   *dispatch.Executor
	logger *slog.Logger
	clock  func() time.Time
	loc    *time.Location

	list  *Topic[[]core.Date]
	today *Topic[bool]

	loads singleflight.Group

	mu          sync.Mutex
	entries     map[core.Date]*entryState
	listLoaded  bool
	refreshSeq  uint64
	appliedSeq  uint64
	lastRefresh time.Time
	closed      bool
}

// entryState tracks one observed or edited date.
// localRev counts in-memory edits; savedRev is the newest edit known durable.
type entryState struct {
	topic     *Topic[string]
	observers int
	loaded    bool
	localRev  uint64
	savedRev  uint64
}

func (s *entryState) dirty() bool { return s.localRev > s.savedRev }

// Option configures a Cache.
type Option func(*Cache)

// WithClock sets the time source used to decide which date is today.
func WithClock(clock func() time.Time) Option {
	return func(c *Cache) {
		if clock != nil {
			c.clock = clock
		}
	}
}

// WithLocation sets the time zone today is computed in. Defaults to time.Local.
func WithLocation(loc *time.Location) Option {
	return func(c *Cache) {
		if loc != nil {
			c.loc = loc
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Cache) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New creates a cache over repo. All repository calls are scheduled on exec.
func New(repo core.Repository, exec *dispatch.Executor, opts ...Option) *Cache {
	c := &Cache{
		repo:    repo,
		exec:    exec,
		logger:  slog.New(slog.DiscardHandler),
		clock:   time.Now,
		loc:     time.Local,
		list:    NewPendingTopic(slices.Equal[[]core.Date]),
		today:   NewPendingTopic(func(a, b bool) bool { return a == b }),
		entries: make(map[core.Date]*entryState),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Today returns the current date in the cache's location.
func (c *Cache) Today() core.Date {
	return core.Today(c.clock(), c.loc)
}

// ObserveList streams the descending date list. Nothing is emitted before the
// first scan completes; the first subscription starts that scan.
func (c *Cache) ObserveList(ctx context.Context) <-chan []core.Date {
	ch := c.list.Subscribe(ctx)
	c.ensureListLoaded()
	return ch
}

// ObserveHasToday streams whether an entry for today is persisted, starting
// once the first scan completes.
func (c *Cache) ObserveHasToday(ctx context.Context) <-chan bool {
	ch := c.today.Subscribe(ctx)
	c.ensureListLoaded()
	return ch
}

func (c *Cache) ensureListLoaded() {
	c.mu.Lock()
	first := !c.listLoaded && !c.closed
	c.listLoaded = true
	c.mu.Unlock()

	if first {
		c.refreshAsync()
	}
}

// ObserveEntry streams the content of d, "" meaning absent. The value held in
// memory is emitted first. If d was never loaded, a load is started and the
// first emission is its result or a local edit, whichever comes first. The
// state for d is dropped once the last observer leaves and no local edit is
// pending.
func (c *Cache) ObserveEntry(ctx context.Context, d core.Date) <-chan string {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		ch := make(chan string)
		close(ch)
		return ch
	}
	st := c.stateLocked(d)
	st.observers++
	needsLoad := !st.loaded
	topic := st.topic
	c.mu.Unlock()

	ch := topic.subscribe(ctx, func() { c.release(d, st) })

	if needsLoad {
		go func() {
			if _, _, err := c.load(context.Background(), d); err != nil {
				c.logger.Debug("entry load failed", "date", d, "error", err)
			}
		}()
	}
	return ch
}

// Read returns the persisted entry for d. Concurrent reads of one date share
// a single repository call.
func (c *Cache) Read(ctx context.Context, d core.Date) (core.Entry, bool, error) {
	return c.load(ctx, d)
}

type loadResult struct {
	entry core.Entry
	found bool
}

func (c *Cache) load(ctx context.Context, d core.Date) (core.Entry, bool, error) {
	key := d.String()

	ch := c.loads.DoChan(key, func() (any, error) {
		var res loadResult
		// Applied inside the lane so a save queued after this load cannot be
		// overwritten by the older content read here.
		err := c.exec.Do(context.Background(), key, func(ctx context.Context) error {
			rev := c.revision(d)
			res.entry, res.found = c.repo.Get(ctx, d)
			c.applyLoad(d, rev, res)
			return nil
		})
		return res, err
	})

	select {
	case r := <-ch:
		if r.Err != nil {
			return core.Entry{Date: d}, false, r.Err
		}
		res := r.Val.(loadResult)
		return res.entry, res.found, nil
	case <-ctx.Done():
		return core.Entry{Date: d}, false, ctx.Err()
	}
}

// applyLoad publishes loaded content unless local edits are pending or one
// happened while the load ran.
func (c *Cache) applyLoad(d core.Date, rev uint64, res loadResult) {
	c.mu.Lock()
	defer c.mu.Unlock()

	st, ok := c.entries[d]
	if !ok {
		return
	}
	st.loaded = true
	if st.localRev != rev || st.dirty() {
		return
	}
	content := ""
	if res.found {
		content = res.entry.Content
	}
	st.topic.Publish(content)
}

// Update replaces the in-memory content of d and notifies observers at once.
// It returns the revision of this edit, to be passed to SaveRevision. The
// entry stays dirty until a save of that revision, or of the text currently
// shown, succeeds.
func (c *Cache) Update(d core.Date, content string) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return 0
	}
	st := c.stateLocked(d)
	st.localRev++
	st.loaded = true
	st.topic.Publish(content)
	return st.localRev
}

// Dirty reports whether d has local edits not yet known to be durable.
func (c *Cache) Dirty(d core.Date) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	st, ok := c.entries[d]
	return ok && st.dirty()
}

// SaveResult is the outcome of an asynchronous save.
type SaveResult struct {
	Durability core.Durability
	Err        error
}

// SaveAsync schedules a put of content for d behind any earlier work on d.
// The returned channel receives exactly one result. The put runs to
// completion even if ctx ends first.
//
// Observers see content once it is durable, unless local edits are pending
// for d; those win and stay dirty.
func (c *Cache) SaveAsync(ctx context.Context, d core.Date, content string) <-chan SaveResult {
	return c.saveAsync(ctx, d, content, c.revision(d), false)
}

// Save persists content for d and waits for the outcome. On failure the
// in-memory state is left as it was, including the dirty mark.
func (c *Cache) Save(ctx context.Context, d core.Date, content string) (core.Durability, error) {
	return wait(ctx, c.SaveAsync(ctx, d, content))
}

// SaveRevision persists content, the text of the edit Update numbered rev,
// and waits for the outcome. Success marks that edit and older ones durable;
// newer edits stay dirty and nothing is republished.
func (c *Cache) SaveRevision(ctx context.Context, d core.Date, content string, rev uint64) (core.Durability, error) {
	return wait(ctx, c.saveAsync(ctx, d, content, rev, true))
}

func wait(ctx context.Context, ch <-chan SaveResult) (core.Durability, error) {
	select {
	case r := <-ch:
		return r.Durability, r.Err
	case <-ctx.Done():
		return core.DurabilityAtomic, ctx.Err()
	}
}

func (c *Cache) saveAsync(ctx context.Context, d core.Date, content string, rev uint64, edit bool) <-chan SaveResult {
	out := make(chan SaveResult, 1)

	if d.IsZero() {
		out <- SaveResult{Err: fmt.Errorf("save: %w", core.ErrInvalidDate)}
		close(out)
		return out
	}

	var durability core.Durability

	done := c.exec.Submit(ctx, d.String(), func(ctx context.Context) error {
		var err error
		durability, err = c.repo.Put(ctx, core.Entry{Date: d, Content: content})
		if err != nil {
			c.logger.Warn("save failed", "date", d, "error", err)
			return err
		}
		c.commitSaved(d, rev, content, edit)
		if durability == core.DurabilityRemoved || !core.ContainsDate(c.list.Get(), d) {
			c.refresh(ctx)
		}
		return nil
	})

	go func() {
		err := <-done
		if err != nil {
			out <- SaveResult{Err: err}
		} else {
			out <- SaveResult{Durability: durability}
		}
		close(out)
	}()
	return out
}

// commitSaved records a successful put. For an edit save, rev is the edit the
// content came from. For a plain save, rev is the local revision when the
// save was issued.
func (c *Cache) commitSaved(d core.Date, rev uint64, content string, edit bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	st, ok := c.entries[d]
	if !ok {
		return
	}
	switch {
	case edit:
		if rev > st.savedRev {
			st.savedRev = rev
		}
	case st.topic.Get() == content:
		// What observers see is now on disk.
		st.savedRev = st.localRev
	case st.localRev == rev && !st.dirty():
		st.loaded = true
		st.topic.Publish(content)
	}
	c.evictLocked(d, st)
}

// Delete removes the entry for d. Pending local edits of d are discarded.
func (c *Cache) Delete(ctx context.Context, d core.Date) error {
	if d.IsZero() {
		return fmt.Errorf("delete: %w", core.ErrInvalidDate)
	}

	return c.exec.Do(ctx, d.String(), func(ctx context.Context) error {
		c.repo.Delete(ctx, d)

		c.mu.Lock()
		if st, ok := c.entries[d]; ok {
			st.savedRev = st.localRev
			st.loaded = true
			st.topic.Publish("")
			c.evictLocked(d, st)
		}
		c.mu.Unlock()

		if core.ContainsDate(c.list.Get(), d) {
			c.refresh(ctx)
		}
		return nil
	})
}

// RefreshList rescans storage, publishes the new list and today flag, and
// returns the list.
func (c *Cache) RefreshList(ctx context.Context) ([]core.Date, error) {
	var keys []core.Date
	done := c.exec.Go(ctx, func(ctx context.Context) error {
		keys = c.refresh(ctx)
		return nil
	})

	select {
	case err := <-done:
		if err != nil {
			return nil, err
		}
		return keys, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *Cache) refreshAsync() {
	c.exec.Go(context.Background(), func(ctx context.Context) error {
		c.refresh(ctx)
		return nil
	})
}

// refresh scans storage and publishes the result. A scan that finishes after
// a newer one is not published.
func (c *Cache) refresh(ctx context.Context) []core.Date {
	c.mu.Lock()
	c.refreshSeq++
	seq := c.refreshSeq
	c.mu.Unlock()

	keys := c.repo.ListKeys(ctx)
	if keys == nil {
		keys = []core.Date{}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if seq < c.appliedSeq {
		return keys
	}
	c.appliedSeq = seq
	c.lastRefresh = c.clock()
	c.listLoaded = true
	c.list.Publish(keys)
	c.today.Publish(core.ContainsDate(keys, c.Today()))
	return keys
}

// Close ends every subscription. Work already submitted to the executor is
// not affected.
func (c *Cache) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.closed = true
	c.list.Close()
	c.today.Close()
	for _, st := range c.entries {
		st.topic.Close()
	}
}

func (c *Cache) revision(d core.Date) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	if st, ok := c.entries[d]; ok {
		return st.localRev
	}
	return 0
}

func (c *Cache) stateLocked(d core.Date) *entryState {
	st, ok := c.entries[d]
	if !ok {
		st = &entryState{topic: NewPendingTopic(func(a, b string) bool { return a == b })}
		if c.closed {
			st.topic.Close()
		}
		c.entries[d] = st
	}
	return st
}

func (c *Cache) release(d core.Date, st *entryState) {
	c.mu.Lock()
	defer c.mu.Unlock()

	st.observers--
	c.evictLocked(d, st)
}

func (c *Cache) evictLocked(d core.Date, st *entryState) {
	if st.observers > 0 || st.dirty() {
		return
	}
	if cur, ok := c.entries[d]; ok && cur == st {
		delete(c.entries, d)
		st.topic.Close()
	}
}
