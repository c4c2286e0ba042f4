// Package scheduler drives the main loop: every tick it loads active
// tasks, selects the due subset, and runs them in bounded waves with
// staggered starts. A task never runs concurrently with itself.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/riguy5000/bravo-ebay-hunter-sub000/internal/model"
	"github.com/riguy5000/bravo-ebay-hunter-sub000/internal/store"
)

const (
	// cleanupEvery prunes expired cache and rejection rows once a minute
	// at the default one-second tick.
	cleanupEvery = 60
	// noTasksLogEvery and waitingLogEvery throttle the idle logs.
	noTasksLogEvery = 30
	waitingLogEvery = 10
)

// TaskRunner executes one task invocation. Implemented by the processor.
type TaskRunner interface {
	RunTask(ctx context.Context, task *model.Task) error
}

// TaskRunnerFunc adapts a function to the TaskRunner interface.
type TaskRunnerFunc func(ctx context.Context, task *model.Task) error

func (f TaskRunnerFunc) RunTask(ctx context.Context, task *model.Task) error {
	return f(ctx, task)
}

// Options configures a Scheduler. Zero values fall back to the defaults
// from the environment table.
type Options struct {
	Interval      time.Duration
	MaxConcurrent int
	Stagger       time.Duration
}

// Scheduler owns the tick loop and the running-set re-entry guard.
type Scheduler struct {
	store  *store.Store
	runner TaskRunner
	log    *slog.Logger

	interval      time.Duration
	maxConcurrent int
	stagger       time.Duration

	mu         sync.Mutex
	running    map[string]bool
	lastPoll   time.Time
	lastStatus string
	ticks      uint64

	now func() time.Time
}

func New(st *store.Store, runner TaskRunner, opts Options, log *slog.Logger) *Scheduler {
	if opts.Interval <= 0 {
		opts.Interval = time.Second
	}
	if opts.MaxConcurrent <= 0 {
		opts.MaxConcurrent = 3
	}
	if opts.Stagger < 0 {
		opts.Stagger = 0
	}
	return &Scheduler{
		store:         st,
		runner:        runner,
		log:           log.With("component", "scheduler"),
		interval:      opts.Interval,
		maxConcurrent: opts.MaxConcurrent,
		stagger:       opts.Stagger,
		running:       make(map[string]bool),
		lastStatus:    "starting",
		now:           time.Now,
	}
}

// Status reports the last tick's completion time and outcome for the
// health endpoint.
func (s *Scheduler) Status() (lastPoll time.Time, lastStatus string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastPoll, s.lastStatus
}

// Run ticks until the context is cancelled. A tick runs to completion
// before the next fires; slow ticks skip intermediate firings rather
// than overlapping.
func (s *Scheduler) Run(ctx context.Context) error {
	s.log.Info("scheduler started",
		"interval", s.interval,
		"max_concurrent", s.maxConcurrent,
		"stagger", s.stagger,
	)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			s.log.Info("scheduler stopped")
			return nil
		case <-ticker.C:
			s.Tick(ctx)
		}
	}
}

// Tick runs one scheduler iteration. Exposed for the -once mode.
func (s *Scheduler) Tick(ctx context.Context) {
	s.mu.Lock()
	s.ticks++
	tick := s.ticks
	s.lastStatus = "running"
	s.mu.Unlock()
	ticksTotal.Inc()

	err := s.tick(ctx, tick)

	s.mu.Lock()
	s.lastPoll = s.now().UTC()
	if err != nil {
		s.lastStatus = "error: " + err.Error()
	} else {
		s.lastStatus = "success"
	}
	s.mu.Unlock()
}

func (s *Scheduler) tick(ctx context.Context, tick uint64) error {
	if tick%cleanupEvery == 0 {
		s.cleanup(ctx)
	}

	tasks, err := s.store.LoadActiveTasks(ctx)
	if err != nil {
		return fmt.Errorf("load active tasks: %w", err)
	}
	if len(tasks) == 0 {
		if tick%noTasksLogEvery == 0 {
			s.log.Info("no active tasks")
		}
		return nil
	}

	due := s.dueTasks(tasks)
	if len(due) == 0 {
		if tick%waitingLogEvery == 0 {
			s.log.Debug("waiting", "active", len(tasks))
		}
		return nil
	}
	s.log.Info("tick", "active", len(tasks), "due", len(due))

	var firstErr error
	for start := 0; start < len(due); start += s.maxConcurrent {
		end := start + s.maxConcurrent
		if end > len(due) {
			end = len(due)
		}
		if err := s.runWave(ctx, due[start:end]); err != nil && firstErr == nil {
			firstErr = err
		}
		if ctx.Err() != nil {
			// Waves that never launched must not stay claimed.
			for _, t := range due[end:] {
				s.release(t.ID)
			}
			break
		}
	}
	return firstErr
}

// dueTasks filters to tasks past their poll interval and not already
// running, claiming each into the running set.
func (s *Scheduler) dueTasks(tasks []model.Task) []model.Task {
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()
	var due []model.Task
	for _, t := range tasks {
		if !t.Due(now) || s.running[t.ID] {
			continue
		}
		s.running[t.ID] = true
		due = append(due, t)
	}
	return due
}

// runWave starts each task after k x stagger and waits for the whole
// wave to return. One task's failure does not cancel its siblings.
func (s *Scheduler) runWave(ctx context.Context, wave []model.Task) error {
	var g errgroup.Group
	for k := range wave {
		task := wave[k]
		delay := time.Duration(k) * s.stagger
		g.Go(func() error {
			defer s.release(task.ID)
			if delay > 0 {
				select {
				case <-time.After(delay):
				case <-ctx.Done():
					return ctx.Err()
				}
			}
			taskRunsTotal.Inc()
			if err := s.runner.RunTask(ctx, &task); err != nil {
				taskErrorsTotal.Inc()
				s.log.Error("task run failed", "task", task.ID, "error", err)
				return fmt.Errorf("task %s: %w", task.ID, err)
			}
			return nil
		})
	}
	return g.Wait()
}

func (s *Scheduler) release(taskID string) {
	s.mu.Lock()
	delete(s.running, taskID)
	s.mu.Unlock()
}

// cleanup prunes expired item-cache and rejection rows. Failures are
// logged and retried on the next cleanup tick.
func (s *Scheduler) cleanup(ctx context.Context) {
	now := s.now().UTC()
	if n, err := s.store.DeleteExpiredItemCache(ctx, now); err != nil {
		s.log.Warn("prune item cache", "error", err)
	} else if n > 0 {
		s.log.Info("pruned item cache", "rows", n)
	}
	if n, err := s.store.DeleteExpiredRejections(ctx, now); err != nil {
		s.log.Warn("prune rejections", "error", err)
	} else if n > 0 {
		s.log.Info("pruned rejections", "rows", n)
	}
}
