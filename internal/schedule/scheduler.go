// Package schedule fires named tasks on standard five-field cron
// expressions evaluated in UTC.
package schedule

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// DefaultExpr fires once a day at midnight UTC.
const DefaultExpr = "0 0 * * *"

// Task is the unit of scheduled work. It must not panic; the scheduler
// recovers if it does.
type Task func(ctx context.Context)

// TaskInfo is a snapshot of one registered task.
type TaskInfo struct {
	Name    string
	Expr    string
	Running bool
	LastRun time.Time
	NextRun time.Time
}

type scheduledTask struct {
	name     string
	expr     string
	schedule cron.Schedule
	run      Task
	running  bool
	lastRun  time.Time
	nextRun  time.Time
}

type Config struct {
	Logger *slog.Logger
	// Now overrides the clock. Defaults to time.Now.
	Now func() time.Time
}

// Scheduler keeps a task table and checks it once per second.
type Scheduler struct {
	tasks    map[string]*scheduledTask
	logger   *slog.Logger
	now      func() time.Time
	mu       sync.RWMutex
	wg       sync.WaitGroup
	stopCh   chan struct{}
	stopOnce sync.Once
}

// New creates an empty scheduler.
func New(cfg Config) *Scheduler {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Scheduler{
		tasks:  make(map[string]*scheduledTask),
		logger: cfg.Logger,
		now:    cfg.Now,
		stopCh: make(chan struct{}),
	}
}

// Parse validates a cron expression.
func Parse(expr string) (cron.Schedule, error) {
	sched, err := cron.ParseStandard(expr)
	if err != nil {
		return nil, fmt.Errorf("invalid cron expression %q: %w", expr, err)
	}
	return sched, nil
}

// NextTimes returns the next n fire times of expr after from, in UTC.
func NextTimes(expr string, from time.Time, n int) ([]time.Time, error) {
	sched, err := Parse(expr)
	if err != nil {
		return nil, err
	}
	out := make([]time.Time, 0, n)
	t := from.UTC()
	for i := 0; i < n; i++ {
		t = sched.Next(t)
		out = append(out, t)
	}
	return out, nil
}

// RegisterPeriodic adds or replaces the task called name.
func (s *Scheduler) RegisterPeriodic(name, expr string, task Task) error {
	if name == "" {
		return fmt.Errorf("task name is required")
	}
	if task == nil {
		return fmt.Errorf("task %s: nil function", name)
	}
	sched, err := Parse(expr)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	next := sched.Next(s.now().UTC())
	s.tasks[name] = &scheduledTask{
		name:     name,
		expr:     expr,
		schedule: sched,
		run:      task,
		nextRun:  next,
	}
	s.logger.Info("scheduled task registered", "name", name, "cron", expr, "next_run", next.Format(time.RFC3339))
	return nil
}

// Remove unregisters a task. An in-flight run is not interrupted.
func (s *Scheduler) Remove(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tasks, name)
	s.logger.Info("scheduled task removed", "name", name)
}

// ListTasks returns the registered tasks sorted by name.
func (s *Scheduler) ListTasks() []TaskInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]TaskInfo, 0, len(s.tasks))
	for _, t := range s.tasks {
		out = append(out, TaskInfo{
			Name:    t.name,
			Expr:    t.expr,
			Running: t.running,
			LastRun: t.lastRun,
			NextRun: t.nextRun,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Start blocks, checking the task table every second until ctx is done or
// Stop is called. Tasks receive ctx.
func (s *Scheduler) Start(ctx context.Context) {
	s.logger.Info("scheduler started")
	ticker := time.NewTicker(1 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopping")
			return
		case <-s.stopCh:
			s.logger.Info("scheduler stopped")
			return
		case <-ticker.C:
			s.checkAndExecute(ctx, s.now())
		}
	}
}

// Stop halts the scheduler loop. Safe to call multiple times.
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopCh)
	})
}

// Wait blocks until every in-flight task has returned or ctx is done.
func (s *Scheduler) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RunNow starts the named task immediately without moving its next fire
// time. The run is tracked by Wait like a scheduled one.
func (s *Scheduler) RunNow(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[name]
	if !ok {
		return fmt.Errorf("task %s not found", name)
	}
	t.lastRun = s.now().UTC()
	t.running = true
	s.logger.Info("executing task on demand", "name", t.name)
	s.wg.Add(1)
	go s.execute(ctx, t)
	return nil
}

func (s *Scheduler) checkAndExecute(ctx context.Context, now time.Time) {
	now = now.UTC()

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, t := range s.tasks {
		if now.Before(t.nextRun) {
			continue
		}
		t.lastRun = now
		t.nextRun = t.schedule.Next(now)
		t.running = true

		s.logger.Info("executing scheduled task", "name", t.name, "next_run", t.nextRun.Format(time.RFC3339))
		s.wg.Add(1)
		go s.execute(ctx, t)
	}
}

func (s *Scheduler) execute(ctx context.Context, t *scheduledTask) {
	defer s.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("scheduled task panicked", "name", t.name, "panic", r)
		}
		s.mu.Lock()
		t.running = false
		s.mu.Unlock()
	}()
	t.run(ctx)
}
