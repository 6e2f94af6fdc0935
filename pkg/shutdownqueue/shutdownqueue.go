// Package shutdownqueue runs named cleanup tasks in LIFO order when the
// process stops.
//
// Components register their teardown as they are constructed, so the last
// thing started is the first thing stopped:
//
//	q := shutdownqueue.New()
//	q.Add("http server", srv.Shutdown)
//	q.Add("notifier", dispatcher.Close)
//
//	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
//	defer cancel()
//	err := q.Shutdown(ctx)
//
// Tasks run once. Panics are recovered. Shutdown is idempotent and returns an
// aggregated error via errors.Join. A process-wide Default queue backs the
// package-level Add and Shutdown.
package shutdownqueue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Task is a shutdown function. It should honor ctx and return an error
// if it can't finish (or ctx is canceled).
type Task func(ctx context.Context) error

type namedTask struct {
	name string
	run  Task
}

// Queue holds tasks until Shutdown drains them.
type Queue struct {
	mu     sync.Mutex
	tasks  []namedTask
	closed bool
	logger *slog.Logger
}

// Default is the process-wide queue used by Add and Shutdown.
var Default = New()

// New returns an empty queue that logs through slog.Default.
func New() *Queue {
	return &Queue{tasks: make([]namedTask, 0, 8)}
}

// WithLogger sets the logger used to report task progress.
func (q *Queue) WithLogger(logger *slog.Logger) *Queue {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.logger = logger

	return q
}

// Add registers a task to be run on Shutdown, in LIFO order.
// Safe to call from any goroutine.
// If t is nil or shutdown has already started, Add does nothing.
func (q *Queue) Add(name string, t Task) {
	if t == nil {
		return
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}

	q.tasks = append(q.tasks, namedTask{name: name, run: t})
}

// Len reports the number of tasks waiting to run.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	return len(q.tasks)
}

// Shutdown drains all registered tasks in LIFO order.
// It is safe to call multiple times; after the first complete (or partial) run,
// subsequent calls are no-ops.
//
// If ctx is canceled or times out mid-drain, Shutdown stops early and returns
// an error that includes both the context error and any task errors so far,
// joined with errors.Join.
func (q *Queue) Shutdown(ctx context.Context) error {
	q.mu.Lock()

	if q.closed && len(q.tasks) == 0 {
		q.mu.Unlock()

		return nil
	}

	q.closed = true

	tasks := q.tasks

	q.tasks = nil

	logger := q.logger

	q.mu.Unlock()

	if logger == nil {
		logger = slog.Default()
	}

	var errs []error

	for i := len(tasks) - 1; i >= 0; i-- {
		select {
		case <-ctx.Done():
			errs = append(errs, fmt.Errorf("shutdown canceled before %q: %w", tasks[i].name, ctx.Err()))

			return errors.Join(errs...)
		default:
		}

		err := runTask(ctx, tasks[i])
		if err != nil {
			logger.Error("shutdown task failed", "task", tasks[i].name, "error", err)
			errs = append(errs, err)

			continue
		}

		logger.Info("shutdown task done", "task", tasks[i].name)
	}

	return errors.Join(errs...)
}

func runTask(ctx context.Context, t namedTask) (err error) {
	start := time.Now()

	defer func() {
		r := recover()
		if r != nil {
			err = fmt.Errorf("panic in shutdown task %q: %v", t.name, r)
		}
	}()

	err = t.run(ctx)
	if err != nil {
		return fmt.Errorf("%s (after %s): %w", t.name, time.Since(start).Round(time.Millisecond), err)
	}

	return nil
}

// Add registers t on the Default queue.
func Add(name string, t Task) {
	Default.Add(name, t)
}

// Shutdown drains the Default queue.
func Shutdown(ctx context.Context) error {
	return Default.Shutdown(ctx)
}
