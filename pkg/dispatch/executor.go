// Package dispatch runs storage work off the caller's goroutine.
//
// Work submitted under the same key runs one job at a time, in submission
// order. Work under different keys, and un-keyed work, runs concurrently up to
// the worker limit. Once submitted, a job is never cancelled: it runs to
// completion or failure even if the submitting context ends.
package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/semaphore"

	"github.com/aretw0/daybook/pkg/core"
)

// DefaultWorkers is the pool size used when none is configured.
const DefaultWorkers = 4

// Job is a unit of storage work.
type Job func(ctx context.Context) error

// Executor is a bounded worker pool with one FIFO lane per key.
type Executor struct {
	sem     *semaphore.Weighted
	workers int
	logger  *slog.Logger

	mu       sync.Mutex
	lanes    map[string]*lane
	closed   bool
	inFlight int
	wg       sync.WaitGroup
}

type lane struct {
	queue []task
}

type task struct {
	ctx  context.Context
	job  Job
	done chan error
}

// New creates an executor running at most workers jobs at once.
func New(workers int, logger *slog.Logger) *Executor {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Executor{
		sem:     semaphore.NewWeighted(int64(workers)),
		workers: workers,
		logger:  logger,
		lanes:   make(map[string]*lane),
	}
}

// Submit appends job to the lane for key. The returned channel receives the
// job's result exactly once and is then closed.
func (e *Executor) Submit(ctx context.Context, key string, job Job) <-chan error {
	done := make(chan error, 1)
	t := task{ctx: context.WithoutCancel(ctx), job: job, done: done}

	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		done <- core.ErrClosed
		close(done)
		return done
	}

	l, running := e.lanes[key]
	if !running {
		l = &lane{}
		e.lanes[key] = l
	}
	l.queue = append(l.queue, t)
	if !running {
		e.wg.Add(1)
		go e.drain(key, l)
	}
	e.mu.Unlock()

	return done
}

// Go runs job outside any lane.
func (e *Executor) Go(ctx context.Context, job Job) <-chan error {
	done := make(chan error, 1)

	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		done <- core.ErrClosed
		close(done)
		return done
	}
	e.wg.Add(1)
	e.mu.Unlock()

	go func() {
		defer e.wg.Done()
		e.run(task{ctx: context.WithoutCancel(ctx), job: job, done: done})
	}()

	return done
}

// Do submits job under key and waits for its result or for ctx to end.
// Giving up on the wait does not cancel the job.
func (e *Executor) Do(ctx context.Context, key string, job Job) error {
	select {
	case err := <-e.Submit(ctx, key, job):
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// drain runs the lane's queue until it is empty, then retires the lane.
func (e *Executor) drain(key string, l *lane) {
	defer e.wg.Done()

	for {
		e.mu.Lock()
		if len(l.queue) == 0 {
			delete(e.lanes, key)
			e.mu.Unlock()
			return
		}
		t := l.queue[0]
		l.queue = l.queue[1:]
		e.mu.Unlock()

		e.run(t)
	}
}

func (e *Executor) run(t task) {
	// Acquire cannot fail on a context without cancellation.
	_ = e.sem.Acquire(t.ctx, 1)

	e.mu.Lock()
	e.inFlight++
	e.mu.Unlock()

	err := e.safeCall(t)

	e.mu.Lock()
	e.inFlight--
	e.mu.Unlock()
	e.sem.Release(1)

	t.done <- err
	close(t.done)
}

func (e *Executor) safeCall(t task) (err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			err = fmt.Errorf("job panic: %v", recovered)
			e.logger.Error("job panic", "error", err)
		}
	}()
	return t.job(t.ctx)
}

// Close stops accepting work and waits for queued jobs to finish or for ctx
// to end.
func (e *Executor) Close(ctx context.Context) error {
	e.mu.Lock()
	e.closed = true
	e.mu.Unlock()

	done := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
