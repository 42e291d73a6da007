package fs_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/daybook/pkg/adapters/fs"
	"github.com/aretw0/daybook/pkg/core"
)

// nextEvent waits for an event about d, skipping others.
func nextEvent(t *testing.T, ctx context.Context, events <-chan core.Event, d core.Date) core.Event {
	t.Helper()
	for {
		select {
		case e, ok := <-events:
			require.True(t, ok, "events channel closed early")
			if e.Date == d {
				return e
			}
		case <-ctx.Done():
			t.Fatalf("timed out waiting for event on %s", d)
			return core.Event{}
		}
	}
}

func TestWatch_ExternalChanges(t *testing.T) {
	repo, dir := setupRepo(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	events, err := repo.Watch(ctx)
	require.NoError(t, err)

	// Wait a bit to ensure watcher is ready (naive)
	time.Sleep(100 * time.Millisecond)

	target := filepath.Join(dir, "2025-11-09.txt")
	require.NoError(t, os.WriteFile(target, []byte("written elsewhere"), 0644))

	e := nextEvent(t, ctx, events, nov09)
	assert.Equal(t, core.EventCreate, e.Type)

	require.NoError(t, os.Remove(target))

	e = nextEvent(t, ctx, events, nov09)
	assert.Equal(t, core.EventDelete, e.Type)
}

func TestWatch_IgnoresForeignFiles(t *testing.T) {
	repo, dir := setupRepo(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	events, err := repo.Watch(ctx)
	require.NoError(t, err)
	time.Sleep(100 * time.Millisecond)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "2025-11-09.txt.tmp"), []byte("x"), 0644))

	select {
	case e := <-events:
		t.Fatalf("unexpected event %v", e)
	case <-time.After(300 * time.Millisecond):
	}
}

func TestWatch_CollapsesBursts(t *testing.T) {
	repo, _ := setupRepo(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	events, err := repo.Watch(ctx)
	require.NoError(t, err)
	time.Sleep(100 * time.Millisecond)

	// Each put is staging write + rename; several puts in a row are one burst.
	for _, content := range []string{"a", "ab", "abc"} {
		_, err := repo.Put(ctx, core.Entry{Date: nov09, Content: content})
		require.NoError(t, err)
	}

	e := nextEvent(t, ctx, events, nov09)
	assert.NotEqual(t, core.EventDelete, e.Type)

	select {
	case extra := <-events:
		t.Fatalf("expected one event for the burst, also got %v", extra)
	case <-time.After(300 * time.Millisecond):
	}
}

func TestWatch_StopsWithContext(t *testing.T) {
	repo, _ := setupRepo(t)
	ctx, cancel := context.WithCancel(context.Background())

	events, err := repo.Watch(ctx)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return repo.State().(fs.RepositoryState).WatcherActive
	}, 2*time.Second, 10*time.Millisecond)

	cancel()

	select {
	case _, ok := <-events:
		assert.False(t, ok, "channel should close once the watcher stops")
	case <-time.After(2 * time.Second):
		t.Fatal("watcher did not stop")
	}

	require.Eventually(t, func() bool {
		return !repo.State().(fs.RepositoryState).WatcherActive
	}, 2*time.Second, 10*time.Millisecond)
}
