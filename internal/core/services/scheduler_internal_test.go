package services

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/manthysbr/llmsender/internal/core/domain"
	"github.com/manthysbr/llmsender/internal/core/ports"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type countingExecutor struct {
	mu    sync.Mutex
	err   error
	count int
	data  []map[string]any
}

func (c *countingExecutor) Execute(ctx context.Context, task domain.TaskDefinition, triggerData map[string]any) (domain.ExecutionResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.count++
	c.data = append(c.data, triggerData)
	if c.err != nil {
		return domain.ExecutionResult{Outcome: domain.OutcomeFailed}, c.err
	}
	return domain.ExecutionResult{Outcome: domain.OutcomeDone}, nil
}

func (c *countingExecutor) executions() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.count
}

func intPtr(v int) *int { return &v }

func TestNextCronTime_DailySchedule(t *testing.T) {
	spec := domain.CronSpec{Hour: intPtr(7), Minute: intPtr(30)}
	from := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)

	next, err := nextCronTime(spec, from)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 11, 7, 30, 0, 0, time.UTC), next)
}

func TestNextCronTime_WildcardMinuteIsNextMinute(t *testing.T) {
	from := time.Date(2026, 3, 10, 8, 0, 30, 0, time.UTC)

	next, err := nextCronTime(domain.CronSpec{}, from)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 10, 8, 1, 0, 0, time.UTC), next)
}

func TestNextCronTime_DayOfWeek(t *testing.T) {
	// from a Tuesday, next Monday 09:00
	spec := domain.CronSpec{DayOfWeek: intPtr(1), Hour: intPtr(9), Minute: intPtr(0)}
	from := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	next, err := nextCronTime(spec, from)
	require.NoError(t, err)
	assert.Equal(t, time.Weekday(1), next.Weekday())
	assert.Equal(t, time.Date(2026, 3, 16, 9, 0, 0, 0, time.UTC), next)
}

func TestNextCronTime_ImpossibleSpec(t *testing.T) {
	// February 31st never comes
	spec := domain.CronSpec{Day: intPtr(31), Month: intPtr(2)}
	_, err := nextCronTime(spec, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	assert.Error(t, err)
}

func onceTask(name string) domain.TaskDefinition {
	return domain.TaskDefinition{
		Name:     name,
		Schedule: domain.ScheduleSpec{Kind: domain.ScheduleOnce},
	}
}

func runBriefly(t *testing.T, s *Scheduler, d time.Duration) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), d)
	defer cancel()
	require.NoError(t, s.Run(ctx))
	s.Wait()
}

func TestScheduler_OnceFiresExactlyOnceThenRetires(t *testing.T) {
	exec := &countingExecutor{}
	s := NewScheduler(testLogger(), exec, nil, SchedulerConfig{Tick: 5 * time.Millisecond})
	require.NoError(t, s.Register(onceTask("one-shot")))

	runBriefly(t, s, 50*time.Millisecond)

	assert.Equal(t, 1, exec.executions())
	snapshot := s.Snapshot()
	require.Len(t, snapshot, 1)
	assert.True(t, snapshot[0].Retired)
}

func TestScheduler_IntervalDoesNotFireImmediately(t *testing.T) {
	exec := &countingExecutor{}
	s := NewScheduler(testLogger(), exec, nil, SchedulerConfig{Tick: 5 * time.Millisecond})
	require.NoError(t, s.Register(domain.TaskDefinition{
		Name: "hourly",
		Schedule: domain.ScheduleSpec{
			Kind:     domain.ScheduleInterval,
			Interval: domain.IntervalSpec{Hours: 1},
		},
	}))

	runBriefly(t, s, 40*time.Millisecond)

	assert.Equal(t, 0, exec.executions())
	snapshot := s.Snapshot()
	require.Len(t, snapshot, 1)
	require.NotNil(t, snapshot[0].NextRun)
	assert.WithinDuration(t, time.Now().Add(time.Hour), *snapshot[0].NextRun, time.Minute)
}

func TestScheduler_ResolutionFailureRetiresTask(t *testing.T) {
	exec := &countingExecutor{err: errors.New("unknown plugin")}
	s := NewScheduler(testLogger(), exec, nil, SchedulerConfig{Tick: 5 * time.Millisecond})
	require.NoError(t, s.Register(domain.TaskDefinition{
		Name: "broken",
		Schedule: domain.ScheduleSpec{
			Kind:     domain.ScheduleInterval,
			Interval: domain.IntervalSpec{Minutes: 30},
		},
	}))

	s.FireAll(context.Background())

	assert.Equal(t, 1, exec.executions())
	snapshot := s.Snapshot()
	require.Len(t, snapshot, 1)
	assert.True(t, snapshot[0].Retired)
}

func TestScheduler_FireAllIgnoresSchedules(t *testing.T) {
	exec := &countingExecutor{}
	s := NewScheduler(testLogger(), exec, nil, SchedulerConfig{})
	require.NoError(t, s.Register(domain.TaskDefinition{
		Name: "weekly",
		Schedule: domain.ScheduleSpec{
			Kind: domain.ScheduleCron,
			Cron: domain.CronSpec{DayOfWeek: intPtr(0), Hour: intPtr(3)},
		},
	}))
	require.NoError(t, s.Register(onceTask("other")))

	s.FireAll(context.Background())

	assert.Equal(t, 2, exec.executions())
}

type stubTrigger struct {
	mu    sync.Mutex
	fired bool
}

func (s *stubTrigger) Setup(ctx context.Context) error { return nil }

func (s *stubTrigger) Interval() time.Duration { return 5 * time.Millisecond }

// Check fires exactly once.
func (s *stubTrigger) Check(ctx context.Context) (bool, map[string]any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fired {
		return false, nil, nil
	}
	s.fired = true
	return true, map[string]any{"tweet_count": 2}, nil
}

type stubTriggerResolver struct {
	trigger ports.Trigger
	err     error
}

func (r *stubTriggerResolver) Trigger(ref domain.PluginRef) (ports.Trigger, error) {
	return r.trigger, r.err
}

func TestScheduler_TriggerFiringCarriesData(t *testing.T) {
	exec := &countingExecutor{}
	resolver := &stubTriggerResolver{trigger: &stubTrigger{}}
	s := NewScheduler(testLogger(), exec, resolver, SchedulerConfig{Tick: 5 * time.Millisecond})
	require.NoError(t, s.Register(domain.TaskDefinition{
		Name:    "watcher",
		Trigger: &domain.PluginRef{Role: domain.RoleTrigger, Name: "twitter.new_tweet"},
	}))

	runBriefly(t, s, 100*time.Millisecond)

	require.Equal(t, 1, exec.executions())
	exec.mu.Lock()
	defer exec.mu.Unlock()
	assert.Equal(t, map[string]any{"tweet_count": 2}, exec.data[0])
}

func TestScheduler_RegisterFailsWhenTriggerUnresolvable(t *testing.T) {
	resolver := &stubTriggerResolver{err: errors.New("no such trigger")}
	s := NewScheduler(testLogger(), &countingExecutor{}, resolver, SchedulerConfig{})

	err := s.Register(domain.TaskDefinition{
		Name:    "watcher",
		Trigger: &domain.PluginRef{Role: domain.RoleTrigger, Name: "ghost"},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "watcher")
}
