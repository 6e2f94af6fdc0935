// Package maintenance runs the periodic ledger jobs: the daily fraud digest
// and the weekly retention sweep.
package maintenance

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fastprodman/walletledger/internal/metrics"
)

type State string

const (
	StateIdle    State = "IDLE"
	StateRunning State = "RUNNING"
)

// Job is one periodic task owned by a Scheduler.
type Job struct {
	Name     string
	Interval time.Duration
	Run      func(ctx context.Context) error

	running atomic.Bool
}

func (j *Job) State() State {
	if j.running.Load() {
		return StateRunning
	}

	return StateIdle
}

// Scheduler drives its jobs from a single loop, so two jobs never run at the
// same time. A failed or panicking run is logged and the job simply runs
// again at its next tick.
type Scheduler struct {
	jobs       []*Job
	runOnStart bool
	logger     *slog.Logger

	stop     chan struct{}
	stopOnce sync.Once
	running  atomic.Bool
}

type Option func(*Scheduler)

// WithRunOnStart runs every job once, in registration order, when Start is called.
func WithRunOnStart(on bool) Option {
	return func(s *Scheduler) { s.runOnStart = on }
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Scheduler) { s.logger = logger }
}

func NewScheduler(jobs []*Job, opts ...Option) *Scheduler {
	s := &Scheduler{
		jobs:   jobs,
		logger: slog.Default(),
		stop:   make(chan struct{}),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Running reports whether the loop is active.
func (s *Scheduler) Running() bool {
	return s.running.Load()
}

// State returns the state of the named job, or false if it is unknown.
func (s *Scheduler) State(name string) (State, bool) {
	for _, j := range s.jobs {
		if j.Name == name {
			return j.State(), true
		}
	}

	return "", false
}

// Start blocks until ctx is done or Stop is called. A job that is running
// at that moment sees its context canceled.
func (s *Scheduler) Start(ctx context.Context) {
	s.running.Store(true)
	defer s.running.Store(false)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		select {
		case <-s.stop:
			cancel()
		case <-ctx.Done():
		}
	}()

	s.logger.Info("maintenance scheduler started", "jobs", len(s.jobs))
	defer s.logger.Info("maintenance scheduler stopped")

	if s.runOnStart {
		for _, j := range s.jobs {
			if ctx.Err() != nil {
				return
			}

			s.runJob(ctx, j)
		}
	}

	// One ticker per job, all drained by this goroutine.
	ticks := make(chan *Job)
	var wg sync.WaitGroup
	for _, j := range s.jobs {
		wg.Add(1)

		go func() {
			defer wg.Done()

			ticker := time.NewTicker(j.Interval)
			defer ticker.Stop()

			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					select {
					case ticks <- j:
					case <-ctx.Done():
						return
					}
				}
			}
		}()
	}
	defer func() {
		cancel()
		wg.Wait()
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case j := <-ticks:
			s.runJob(ctx, j)
		}
	}
}

// Stop signals the loop to exit. It is safe to call more than once.
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() { close(s.stop) })
}

// runJob is panic-safe and records the run outcome.
func (s *Scheduler) runJob(ctx context.Context, j *Job) {
	j.running.Store(true)
	defer j.running.Store(false)

	start := time.Now()
	logger := s.logger.With("job", j.Name)

	result := "success"
	defer func() {
		if r := recover(); r != nil {
			result = "panic"
			logger.Error("maintenance job panicked", "panic", fmt.Sprint(r))
		}

		metrics.MaintenanceRunsTotal.WithLabelValues(j.Name, result).Inc()
		metrics.MaintenanceRunDuration.WithLabelValues(j.Name).Observe(time.Since(start).Seconds())
	}()

	logger.Info("maintenance job started")

	err := j.Run(ctx)
	if err != nil {
		result = "error"
		logger.Error("maintenance job failed", "error", err, "duration", time.Since(start))

		return
	}

	logger.Info("maintenance job finished", "duration", time.Since(start))
}
