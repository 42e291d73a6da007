package daybook_test

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/daybook"
	"github.com/aretw0/daybook/pkg/cache"
	"github.com/aretw0/daybook/pkg/dispatch"
)

var (
	oct20 = mustDate("2025-10-20")
	nov01 = mustDate("2025-11-01")
	nov09 = mustDate("2025-11-09")
	nov11 = mustDate("2025-11-11")

	// Noon on 2025-11-11, UTC.
	fixedNow = func() time.Time { return time.Date(2025, 11, 11, 12, 0, 0, 0, time.UTC) }
)

func mustDate(s string) daybook.Date {
	d, err := daybook.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

func openJournal(t *testing.T, dir string, opts ...daybook.Option) *daybook.Journal {
	t.Helper()
	base := []daybook.Option{daybook.WithClock(fixedNow), daybook.WithLocation(time.UTC)}
	j, err := daybook.Open(dir, append(base, opts...)...)
	require.NoError(t, err)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		require.NoError(t, j.Close(ctx))
	})
	return j
}

func TestJournal_Scenario(t *testing.T) {
	j := openJournal(t, t.TempDir())
	ctx := context.Background()

	dates, err := j.ListDatesDescending(ctx)
	require.NoError(t, err)
	assert.Empty(t, dates)

	_, found, err := j.ReadEntry(ctx, nov09)
	require.NoError(t, err)
	assert.False(t, found)

	_, err = j.SaveEntry(ctx, nov01, "hello")
	require.NoError(t, err)
	_, err = j.SaveEntry(ctx, oct20, "world")
	require.NoError(t, err)

	dates, err = j.ListDatesDescending(ctx)
	require.NoError(t, err)
	if diff := cmp.Diff([]daybook.Date{nov01, oct20}, dates); diff != "" {
		t.Errorf("dates mismatch (-want +got):\n%s", diff)
	}

	e, found, err := j.ReadEntry(ctx, nov01)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "hello", e.Content)
}

func TestJournal_Today(t *testing.T) {
	dir := t.TempDir()
	j := openJournal(t, dir)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	assert.Equal(t, nov11, j.Today())

	hasToday := j.ObserveHasToday(ctx)
	assert.False(t, <-hasToday)

	durability, err := j.SaveToday(ctx, "first line\nsecond line")
	require.NoError(t, err)
	assert.Equal(t, daybook.DurabilityAtomic, durability)

	for v := range hasToday {
		if v {
			break
		}
	}

	e, found, err := j.ReadToday(ctx)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, nov11, e.Date)

	data, err := os.ReadFile(filepath.Join(dir, "2025-11-11.txt"))
	require.NoError(t, err)
	assert.Equal(t, "first line\nsecond line", string(data))
}

func TestJournal_DeleteEntry(t *testing.T) {
	j := openJournal(t, t.TempDir(), daybook.WithProtectPast(true))
	ctx := context.Background()

	_, err := j.SaveEntry(ctx, nov09, "yesterday-ish")
	require.NoError(t, err)
	_, err = j.SaveToday(ctx, "today")
	require.NoError(t, err)

	assert.ErrorIs(t, j.DeleteEntry(ctx, nov09), daybook.ErrPastEntry)
	require.NoError(t, j.DeleteEntry(ctx, nov11))
	require.NoError(t, j.DeleteEntry(ctx, nov11), "deleting twice is a no-op")
	require.NoError(t, j.DeleteEntry(ctx, nov11.AddDays(1)))

	dates, err := j.ListDatesDescending(ctx)
	require.NoError(t, err)
	assert.Equal(t, []daybook.Date{nov09}, dates)
}

func TestJournal_DeleteRefusedWhileSessionHasUnsavedText(t *testing.T) {
	j := openJournal(t, t.TempDir(), daybook.WithAutosave(daybook.AutosaveExplicit, 0))
	ctx := context.Background()

	s, err := j.OpenSession(ctx, nov11)
	require.NoError(t, err)
	require.NoError(t, s.Mutate(ctx, "not saved yet"))

	assert.ErrorIs(t, j.DeleteEntry(ctx, nov11), daybook.ErrUnsaved)

	require.NoError(t, s.Flush(ctx))
	require.NoError(t, j.DeleteEntry(ctx, nov11))
	require.NoError(t, s.Close(ctx))

	_, found, err := j.ReadEntry(ctx, nov11)
	require.NoError(t, err)
	assert.False(t, found, "closing a flushed session does not bring the entry back")
}

func TestJournal_ReadOnly(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "2025-11-09.txt"), []byte("original content"), 0644))

	j := openJournal(t, dir, daybook.WithReadOnly(true))
	ctx := context.Background()

	e, found, err := j.ReadEntry(ctx, nov09)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "original content", e.Content)

	_, err = j.SaveEntry(ctx, nov01, "forbidden content")
	assert.ErrorIs(t, err, daybook.ErrReadOnly)
	_, err = os.Stat(filepath.Join(dir, "2025-11-01.txt"))
	assert.True(t, os.IsNotExist(err), "file should not exist")

	assert.ErrorIs(t, j.DeleteEntry(ctx, nov09), daybook.ErrReadOnly)
	_, err = os.Stat(filepath.Join(dir, "2025-11-09.txt"))
	assert.NoError(t, err, "file should still exist")

	_, err = j.OpenSession(ctx, nov09)
	assert.ErrorIs(t, err, daybook.ErrReadOnly)
}

func TestJournal_SessionFlushesOnClose(t *testing.T) {
	dir := t.TempDir()
	j := openJournal(t, dir, daybook.WithAutosave(daybook.AutosaveDebounced, time.Hour))
	ctx := context.Background()

	s, err := j.OpenSession(ctx, j.Today())
	require.NoError(t, err)
	for _, text := range []string{"a", "ab", "abc"} {
		require.NoError(t, s.Mutate(ctx, text))
	}
	require.NoError(t, s.Close(ctx))

	e, found, err := j.ReadToday(ctx)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "abc", e.Content)
}

func TestJournal_Previews(t *testing.T) {
	j := openJournal(t, t.TempDir())
	ctx := context.Background()

	_, err := j.SaveEntry(ctx, nov01, "line one\n\nline two\nline three\nline four")
	require.NoError(t, err)

	dates, err := j.ListDatesDescending(ctx)
	require.NoError(t, err)
	previews, err := j.Previews(ctx, dates)
	require.NoError(t, err)
	assert.Equal(t, map[daybook.Date]string{nov01: "line one\nline two\nline three"}, previews)
}

func TestJournal_SQLiteAdapter(t *testing.T) {
	dir := t.TempDir()
	j := openJournal(t, dir, daybook.WithAdapter("sqlite"))
	ctx := context.Background()

	_, err := j.SaveEntry(ctx, nov01, "hello")
	require.NoError(t, err)
	_, err = j.SaveEntry(ctx, oct20, "world")
	require.NoError(t, err)

	dates, err := j.ListDatesDescending(ctx)
	require.NoError(t, err)
	assert.Equal(t, []daybook.Date{nov01, oct20}, dates)

	assert.ErrorIs(t, j.Follow(ctx), cache.ErrNotWatchable)
}

func TestJournal_FollowsExternalEdits(t *testing.T) {
	dir := t.TempDir()
	j := openJournal(t, dir)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, j.Follow(ctx))
	list := j.ObserveList(ctx)
	<-list
	time.Sleep(100 * time.Millisecond)

	// Another tool writes a record while the journal is open.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "2025-10-20.txt"), []byte("offline edit"), 0644))

	deadline := time.After(3 * time.Second)
	for {
		select {
		case dates := <-list:
			if cmp.Equal([]daybook.Date{oct20}, dates) {
				return
			}
		case <-deadline:
			t.Fatal("external edit never reached the list")
		}
	}
}

// Saves from many goroutines, with another program writing foreign files in
// the same directory, must neither corrupt records nor lose the last write.
func TestJournal_ConcurrentSaves(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping stress test in short mode")
	}

	dir := t.TempDir()
	j := openJournal(t, dir, daybook.WithWorkers(dispatch.DefaultWorkers))
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; ctx.Err() == nil; i++ {
			_ = os.WriteFile(filepath.Join(dir, fmt.Sprintf("noise-%d.txt", i%10)), []byte("noise"), 0644)
			time.Sleep(time.Duration(rand.Intn(5)) * time.Millisecond)
		}
	}()

	dates := []daybook.Date{oct20, nov01, nov09}
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 25; i++ {
				d := dates[(w+i)%len(dates)]
				_, err := j.SaveEntry(context.Background(), d, fmt.Sprintf("writer %d step %d", w, i))
				assert.NoError(t, err)
			}
		}()
	}

	wg.Wait()

	// A final write per date wins.
	for _, d := range dates {
		_, err := j.SaveEntry(context.Background(), d, "final "+d.String())
		require.NoError(t, err)
	}

	got, err := j.ListDatesDescending(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []daybook.Date{nov09, nov01, oct20}, got)

	for _, d := range dates {
		e, found, err := j.ReadEntry(context.Background(), d)
		require.NoError(t, err)
		require.True(t, found)
		assert.Equal(t, "final "+d.String(), e.Content)
	}

	matches, err := filepath.Glob(filepath.Join(dir, "*.tmp"))
	require.NoError(t, err)
	assert.Empty(t, matches, "no staging files left behind")
}

func TestJournal_CloseIsIdempotent(t *testing.T) {
	j, err := daybook.Open(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, j.Close(ctx))
	require.NoError(t, j.Close(ctx))

	_, err = j.SaveEntry(ctx, nov09, "too late")
	assert.ErrorIs(t, err, daybook.ErrClosed)
	_, err = j.OpenSession(ctx, nov09)
	assert.ErrorIs(t, err, daybook.ErrClosed)

	state := j.State().(daybook.JournalState)
	assert.NotNil(t, state.Repository)
}
