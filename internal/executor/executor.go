// Package executor provides the single-threaded UI executor: one goroutine
// that runs queued tasks in submission order. Everything that mutates the
// overlay tree runs here.
package executor

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
)

// ErrStopped is returned when work is submitted to a stopped executor.
var ErrStopped = errors.New("executor: stopped")

// Task is a unit of work. The context passed to a task identifies the
// executor loop, see OnLoop.
type Task func(ctx context.Context)

type loopKey struct{}

// Executor runs tasks one at a time on a dedicated goroutine.
// Post never blocks: the queue is unbounded.
type Executor struct {
	mu     sync.Mutex
	logger *slog.Logger

	queue []Task
	wake  chan struct{}

	stopCh chan struct{}
	doneCh chan struct{}

	running bool
	stopped bool

	processed atomic.Uint64
}

// New creates an executor. Call Start before posting work that must run.
func New(logger *slog.Logger) *Executor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Executor{
		logger: logger,
		wake:   make(chan struct{}, 1),
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}
}

// Start launches the executor goroutine. Tasks posted before Start are kept
// and run once the loop begins.
func (e *Executor) Start(ctx context.Context) error {
	e.mu.Lock()
	if e.stopped {
		e.mu.Unlock()
		return ErrStopped
	}
	if e.running {
		e.mu.Unlock()
		return nil
	}
	e.running = true
	e.mu.Unlock()

	loopCtx := context.WithValue(ctx, loopKey{}, e)
	go e.loop(loopCtx)

	e.logger.Debug("ui executor started")
	return nil
}

// Stop ends the loop after the current task and waits for it to exit.
// Tasks still queued are dropped.
func (e *Executor) Stop() {
	e.mu.Lock()
	if e.stopped {
		e.mu.Unlock()
		return
	}
	e.stopped = true
	wasRunning := e.running
	dropped := len(e.queue)
	e.queue = nil
	close(e.stopCh)
	e.mu.Unlock()

	if wasRunning {
		<-e.doneCh
	}
	e.logger.Debug("ui executor stopped", "dropped_tasks", dropped)
}

// Post queues task and returns immediately.
func (e *Executor) Post(task Task) error {
	e.mu.Lock()
	if e.stopped {
		e.mu.Unlock()
		e.logger.Debug("task dropped, executor stopped")
		return ErrStopped
	}
	e.queue = append(e.queue, task)
	e.mu.Unlock()

	select {
	case e.wake <- struct{}{}:
	default:
	}
	return nil
}

// OnLoop reports whether ctx was handed out by this executor to a running
// task, i.e. whether the caller is on the executor goroutine.
func (e *Executor) OnLoop(ctx context.Context) bool {
	if ctx == nil {
		return false
	}
	owner, _ := ctx.Value(loopKey{}).(*Executor)
	return owner == e
}

// Run executes task inline when ctx is the ctx of a running task, otherwise
// it queues task and returns without waiting. A different ctx is queued even
// on the executor goroutine.
func (e *Executor) Run(ctx context.Context, task Task) error {
	if e.OnLoop(ctx) {
		e.run(ctx, task)
		return nil
	}
	return e.Post(task)
}

// Invoke runs fn on the executor and blocks until it has finished or ctx is
// done. Called from the executor it runs fn inline.
func (e *Executor) Invoke(ctx context.Context, fn func(ctx context.Context) error) error {
	if e.OnLoop(ctx) {
		return fn(ctx)
	}

	done := make(chan error, 1)
	err := e.Post(func(loopCtx context.Context) {
		var ferr error
		defer func() {
			if r := recover(); r != nil {
				ferr = &PanicError{Value: r}
			}
			done <- ferr
		}()
		ferr = fn(loopCtx)
	})
	if err != nil {
		return err
	}

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-e.doneCh:
		return ErrStopped
	}
}

// Flush waits until every task posted before the call has run.
func (e *Executor) Flush(ctx context.Context) error {
	return e.Invoke(ctx, func(context.Context) error { return nil })
}

// Drain waits until the queue is empty, including tasks posted by tasks
// that ran while draining.
func (e *Executor) Drain(ctx context.Context) error {
	for {
		var empty bool
		err := e.Invoke(ctx, func(context.Context) error {
			empty = e.Pending() == 0
			return nil
		})
		if err != nil {
			return err
		}
		if empty {
			return nil
		}
	}
}

// Pending returns the number of queued tasks.
func (e *Executor) Pending() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.queue)
}

// Processed returns the number of tasks run so far.
func (e *Executor) Processed() uint64 {
	return e.processed.Load()
}

func (e *Executor) loop(ctx context.Context) {
	defer close(e.doneCh)

	for {
		task, ok := e.next(ctx)
		if !ok {
			return
		}
		e.run(ctx, task)
	}
}

// next blocks until a task is available or the executor stops.
func (e *Executor) next(ctx context.Context) (Task, bool) {
	for {
		e.mu.Lock()
		if e.stopped {
			e.mu.Unlock()
			return nil, false
		}
		if len(e.queue) > 0 {
			task := e.queue[0]
			e.queue[0] = nil
			e.queue = e.queue[1:]
			e.mu.Unlock()
			return task, true
		}
		e.mu.Unlock()

		select {
		case <-e.wake:
		case <-e.stopCh:
			return nil, false
		case <-ctx.Done():
			return nil, false
		}
	}
}

func (e *Executor) run(ctx context.Context, task Task) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("ui task panicked", "panic", r)
		}
	}()
	e.processed.Add(1)
	task(ctx)
}

// PanicError reports a panic raised by a function passed to Invoke.
type PanicError struct {
	Value any
}

func (p *PanicError) Error() string {
	return "executor: task panicked"
}
