package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/manthysbr/llmsender/internal/core/domain"
	"github.com/manthysbr/llmsender/internal/core/ports"
)

// FiringExecutor runs one firing of one task. Implemented by the pipeline
// executor; the returned error marks the task as unrunnable (resolution
// failure) and tells the scheduler to retire it.
type FiringExecutor interface {
	Execute(ctx context.Context, task domain.TaskDefinition, triggerData map[string]any) (domain.ExecutionResult, error)
}

// TriggerResolver instantiates a task's poll trigger.
type TriggerResolver interface {
	Trigger(ref domain.PluginRef) (ports.Trigger, error)
}

// SchedulerConfig tunes the scheduling loop.
type SchedulerConfig struct {
	Location             *time.Location // timezone cron fields are evaluated in
	Tick                 time.Duration  // due-check interval
	MaxConcurrentFirings int64
}

type scheduleEntry struct {
	task    domain.TaskDefinition
	next    time.Time
	retired bool
	trigger ports.Trigger
	polling bool // a trigger Check is in flight
}

// Scheduler maps each task's schedule to firing events: one shared loop
// checks due entries every tick and dispatches each firing as independent
// work, so a slow notifier in one task never delays another task's firing.
// Overlapping firings of the same task are allowed; isolation comes from the
// executor's per-firing context.
type Scheduler struct {
	logger   *slog.Logger
	exec     FiringExecutor
	triggers TriggerResolver
	loc      *time.Location
	tick     time.Duration
	sem      *semaphore.Weighted

	mu      sync.Mutex
	entries []*scheduleEntry
	wg      sync.WaitGroup
}

// NewScheduler creates a scheduler. triggers may be nil when no trigger
// plugins are registered.
func NewScheduler(logger *slog.Logger, exec FiringExecutor, triggers TriggerResolver, cfg SchedulerConfig) *Scheduler {
	loc := cfg.Location
	if loc == nil {
		loc = time.Local
	}
	tick := cfg.Tick
	if tick <= 0 {
		tick = 15 * time.Second
	}
	limit := cfg.MaxConcurrentFirings
	if limit <= 0 {
		limit = 10
	}
	return &Scheduler{
		logger:   logger,
		exec:     exec,
		triggers: triggers,
		loc:      loc,
		tick:     tick,
		sem:      semaphore.NewWeighted(limit),
	}
}

// Register adds a task to the schedule. For trigger-driven tasks the trigger
// plugin is instantiated here; a resolution failure excludes just this task
// and is returned to the caller, other tasks proceed.
func (s *Scheduler) Register(task domain.TaskDefinition) error {
	entry := &scheduleEntry{task: task}
	if task.Trigger != nil {
		if s.triggers == nil {
			return fmt.Errorf("task %q declares a trigger but no trigger resolver is configured", task.Name)
		}
		trigger, err := s.triggers.Trigger(*task.Trigger)
		if err != nil {
			return fmt.Errorf("task %q: %w", task.Name, err)
		}
		entry.trigger = trigger
	}
	s.mu.Lock()
	s.entries = append(s.entries, entry)
	s.mu.Unlock()
	s.logger.Info("task registered", "task", task.Name, "schedule", s.describe(entry))
	return nil
}

// Run arms every entry and drives the scheduling loop until ctx is
// cancelled. Once schedules fire immediately and retire; interval schedules
// fire one interval after startup, not immediately.
func (s *Scheduler) Run(ctx context.Context) error {
	now := time.Now().In(s.loc)
	s.mu.Lock()
	for _, entry := range s.entries {
		s.arm(ctx, entry, now)
	}
	s.mu.Unlock()

	s.logger.Info("scheduler started", "tick", s.tick, "timezone", s.loc.String())
	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopped")
			return nil
		case <-ticker.C:
			s.checkDue(ctx, time.Now().In(s.loc))
		}
	}
}

func (s *Scheduler) arm(ctx context.Context, entry *scheduleEntry, now time.Time) {
	if entry.trigger != nil {
		if err := entry.trigger.Setup(ctx); err != nil {
			s.logger.Warn("trigger setup failed, polling anyway", "task", entry.task.Name, "error", err)
		}
		entry.next = now.Add(entry.trigger.Interval())
		return
	}
	switch entry.task.Schedule.Kind {
	case domain.ScheduleOnce:
		s.dispatch(ctx, entry.task, nil)
		entry.retired = true
	case domain.ScheduleInterval:
		entry.next = now.Add(entry.task.Schedule.Interval.Duration())
	case domain.ScheduleCron:
		next, err := nextCronTime(entry.task.Schedule.Cron, now)
		if err != nil {
			s.logger.Warn("cron schedule never matches, retiring task", "task", entry.task.Name, "error", err)
			entry.retired = true
			return
		}
		entry.next = next
	}
}

func (s *Scheduler) checkDue(ctx context.Context, now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, entry := range s.entries {
		if entry.retired || entry.next.After(now) {
			continue
		}
		if entry.trigger != nil {
			s.pollTrigger(ctx, entry, now)
			continue
		}
		s.dispatch(ctx, entry.task, nil)
		switch entry.task.Schedule.Kind {
		case domain.ScheduleInterval:
			entry.next = now.Add(entry.task.Schedule.Interval.Duration())
		case domain.ScheduleCron:
			next, err := nextCronTime(entry.task.Schedule.Cron, now)
			if err != nil {
				s.logger.Warn("cron schedule never matches again, retiring task", "task", entry.task.Name, "error", err)
				entry.retired = true
				continue
			}
			entry.next = next
		}
	}
}

// pollTrigger runs one trigger check off the scheduling loop. At most one
// check per trigger is in flight; the loop skips a due entry whose previous
// poll has not returned yet. Caller holds s.mu.
func (s *Scheduler) pollTrigger(ctx context.Context, entry *scheduleEntry, now time.Time) {
	if entry.polling {
		return
	}
	entry.polling = true
	entry.next = now.Add(entry.trigger.Interval())

	task := entry.task
	trigger := entry.trigger
	go func() {
		fired, data, err := trigger.Check(ctx)
		s.mu.Lock()
		entry.polling = false
		s.mu.Unlock()
		if err != nil {
			s.logger.Error("trigger check failed", "task", task.Name, "error", err)
			return
		}
		if fired {
			s.dispatch(ctx, task, data)
		}
	}()
}

// dispatch launches one firing as independent work, bounded by the
// concurrency semaphore. The scheduling loop never blocks on a firing.
func (s *Scheduler) dispatch(ctx context.Context, task domain.TaskDefinition, triggerData map[string]any) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.sem.Acquire(ctx, 1); err != nil {
			return
		}
		defer s.sem.Release(1)

		if _, err := s.exec.Execute(ctx, task, triggerData); err != nil {
			s.logger.Warn("task is unrunnable and has been excluded from scheduling",
				"task", task.Name, "error", err)
			s.retire(task.Name)
		}
	}()
}

func (s *Scheduler) retire(taskName string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, entry := range s.entries {
		if entry.task.Name == taskName {
			entry.retired = true
		}
	}
}

// FireAll runs every registered task once, ignoring schedules, and waits for
// completion. Used by the one-shot test mode.
func (s *Scheduler) FireAll(ctx context.Context) {
	s.mu.Lock()
	tasks := make([]domain.TaskDefinition, 0, len(s.entries))
	for _, entry := range s.entries {
		tasks = append(tasks, entry.task)
	}
	s.mu.Unlock()

	for _, task := range tasks {
		s.dispatch(ctx, task, nil)
	}
	s.wg.Wait()
}

// Wait blocks until in-flight firings have finished. Shutdown lets a firing
// that is already running complete; partially sent notifications are never
// rolled back.
func (s *Scheduler) Wait() {
	s.wg.Wait()
}

// TaskStatus is one row of the scheduler snapshot served by the status API.
type TaskStatus struct {
	Name     string     `json:"name"`
	Title    string     `json:"title"`
	Schedule string     `json:"schedule"`
	NextRun  *time.Time `json:"next_run,omitempty"`
	Retired  bool       `json:"retired"`
}

// Snapshot reports every registered task with its next firing time.
func (s *Scheduler) Snapshot() []TaskStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]TaskStatus, 0, len(s.entries))
	for _, entry := range s.entries {
		status := TaskStatus{
			Name:     entry.task.Name,
			Title:    entry.task.Title,
			Schedule: s.describe(entry),
			Retired:  entry.retired,
		}
		if !entry.retired && !entry.next.IsZero() {
			next := entry.next
			status.NextRun = &next
		}
		out = append(out, status)
	}
	return out
}

func (s *Scheduler) describe(entry *scheduleEntry) string {
	if entry.task.Trigger != nil {
		return fmt.Sprintf("trigger %s", entry.task.Trigger.Name)
	}
	return entry.task.Schedule.String()
}

// nextCronTime scans forward minute by minute for the next time matching
// every set field. Brute force, but correct for minute-resolution schedules;
// the one-year bound catches specs that can never match (e.g. day 31 of
// month 2).
func nextCronTime(spec domain.CronSpec, from time.Time) (time.Time, error) {
	candidate := from.Truncate(time.Minute).Add(time.Minute)
	limit := from.AddDate(1, 0, 1)

	for candidate.Before(limit) {
		if spec.Matches(candidate) {
			return candidate, nil
		}
		candidate = candidate.Add(time.Minute)
	}
	return time.Time{}, fmt.Errorf("no matching time within a year")
}
