package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/aretw0/lifecycle"
	"golang.org/x/sync/errgroup"

	source "github.com/aretw0/daybook/pkg/adapters/lifecycle"
	"github.com/aretw0/daybook/pkg/core"
)

// ErrNotWatchable is returned by Follow when the repository cannot report
// external changes.
var ErrNotWatchable = errors.New("repository does not support watching")

// Follow keeps the projection in step with changes made outside this process
// until ctx ends. Each batch of changes refreshes the list once; changed
// entries that are observed and have no pending local edits are reloaded.
func (c *Cache) Follow(ctx context.Context) error {
	w, ok := c.repo.(core.Watchable)
	if !ok {
		return ErrNotWatchable
	}

	events, err := w.Watch(ctx)
	if err != nil {
		return fmt.Errorf("follow: %w", err)
	}

	src := source.NewSource(events)
	if err := src.Start(ctx); err != nil {
		return fmt.Errorf("follow: %w", err)
	}

	lifecycle.Go(ctx, func(ctx context.Context) error {
		for e := range src.Events() {
			if changes, ok := e.(source.Changes); ok {
				c.apply(ctx, changes)
			}
		}
		return nil
	}, lifecycle.WithErrorHandler(func(err error) {
		c.logger.Error("follow loop failed", "error", err)
	}))

	return nil
}

// apply rescans the list once per batch, then reloads the changed dates that
// are observed and have no pending local edits.
func (c *Cache) apply(ctx context.Context, changes source.Changes) {
	c.logger.Debug("external changes", "changes", changes.String())

	if _, err := c.RefreshList(ctx); err != nil {
		c.logger.Debug("refresh after external change failed", "error", err)
	}

	for _, d := range changes.Dates() {
		c.mu.Lock()
		st, ok := c.entries[d]
		reload := ok && st.observers > 0 && !st.dirty()
		c.mu.Unlock()

		if !reload {
			continue
		}
		if _, _, err := c.load(ctx, d); err != nil {
			c.logger.Debug("reload after external change failed", "date", d, "error", err)
		}
	}
}

// Previews returns the first core.PreviewLines lines of each listed date's
// content. Reads run concurrently; dates without content map to "".
func (c *Cache) Previews(ctx context.Context, dates []core.Date) (map[core.Date]string, error) {
	return c.PreviewsN(ctx, dates, core.PreviewLines)
}

// PreviewsN is Previews with an explicit line count.
func (c *Cache) PreviewsN(ctx context.Context, dates []core.Date, lines int) (map[core.Date]string, error) {
	var mu sync.Mutex
	out := make(map[core.Date]string, len(dates))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(previewConcurrency)

	for _, d := range dates {
		g.Go(func() error {
			e, found, err := c.Read(gctx, d)
			if err != nil {
				return err
			}
			preview := ""
			if found {
				preview = core.Preview(e.Content, lines)
			}
			mu.Lock()
			out[d] = preview
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("previews: %w", err)
	}
	return out, nil
}

const previewConcurrency = 8
