package fs

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime/debug"
	"time"

	"github.com/aretw0/lifecycle"
	"github.com/fsnotify/fsnotify"

	"github.com/aretw0/daybook/pkg/core"
)

const (
	watchDebounce = 50 * time.Millisecond
	eventBuffer   = 100
)

// Watch reports changes to record files until ctx is cancelled.
// Staging files and names that are not records are ignored. The returned
// channel is closed when the watcher stops.
func (r *Repository) Watch(ctx context.Context) (<-chan core.Event, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	if err := watcher.Add(r.Path); err != nil {
		_ = watcher.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", r.Path, err)
	}

	events := make(chan core.Event, eventBuffer)
	w := &watchWorker{
		repo:      r,
		events:    events,
		watcher:   watcher,
		debouncer: newDebouncer(watchDebounce),
	}

	r.setWatcherActive(true)

	lifecycle.Go(ctx, w.run, lifecycle.WithErrorHandler(func(err error) {
		r.reportWatchError(fmt.Errorf("watcher panic: %w", err))
	}))

	return events, nil
}

type watchWorker struct {
	repo      *Repository
	events    chan core.Event
	watcher   *fsnotify.Watcher
	debouncer *debouncer
}

// run is the main event loop for the watcher.
func (w *watchWorker) run(ctx context.Context) (err error) {
	logger := w.repo.config.Logger

	defer func() {
		if recovered := recover(); recovered != nil {
			err = fmt.Errorf("watcher panic: %v", recovered)
			if logger.Enabled(ctx, slog.LevelDebug) {
				logger.Error("watcher panic", "error", err, "stack", string(debug.Stack()))
			} else {
				logger.Error("watcher panic", "error", err)
			}
		}
	}()
	defer w.repo.setWatcherActive(false)
	defer close(w.events)
	defer w.watcher.Close()

	err = w.loop(ctx)

	// Drain timers before the deferred close of the events channel.
	w.debouncer.stopAndWait(5 * time.Second)
	return err
}

func (w *watchWorker) loop(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				if ctx.Err() != nil {
					return nil
				}
				return fmt.Errorf("watcher events channel closed")
			}
			w.process(ctx, event)

		case wErr, ok := <-w.watcher.Errors:
			if !ok {
				if ctx.Err() != nil {
					return nil
				}
				return fmt.Errorf("watcher errors channel closed")
			}
			w.repo.config.Logger.Error("fsnotify error", "error", wErr)
			w.repo.reportWatchError(wErr)
		}
	}
}

// process filters a raw event and hands it to the debouncer.
func (w *watchWorker) process(ctx context.Context, event fsnotify.Event) {
	d, ok := w.repo.recordDate(filepath.Base(event.Name))
	if !ok {
		return
	}

	var eType core.EventType
	switch {
	case event.Has(fsnotify.Create):
		eType = core.EventCreate
	case event.Has(fsnotify.Write):
		eType = core.EventModify
	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		eType = core.EventDelete
	default:
		return
	}

	w.repo.config.Logger.Debug("event received", "name", event.Name, "op", event.Op.String())

	w.debouncer.add(core.Event{
		Type:      eType,
		Date:      d,
		Timestamp: time.Now().Unix(),
	}, func(e core.Event) {
		defer func() {
			// The channel may already be closed if the loop died.
			_ = recover()
		}()
		e.Type = w.repo.settle(e)
		select {
		case w.events <- e:
		case <-ctx.Done():
		}
	})
}

// settle checks the record once the burst is over: a record that is gone or
// empty counts as deleted, whatever the raw events said.
func (r *Repository) settle(e core.Event) core.EventType {
	info, err := os.Stat(r.pathFor(e.Date))
	if err != nil || info.Size() == 0 {
		return core.EventDelete
	}
	if e.Type == core.EventDelete {
		return core.EventModify
	}
	return e.Type
}

func (r *Repository) reportWatchError(err error) {
	if r.config.ErrorHandler != nil {
		r.config.ErrorHandler(err)
	}
}
