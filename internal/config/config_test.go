package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/manthysbr/llmsender/internal/config"
	"github.com/manthysbr/llmsender/internal/core/domain"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_ExpandsEnvPlaceholders(t *testing.T) {
	t.Setenv("TEST_CHAT_ID", "12345")

	path := writeConfig(t, `
timezone: UTC
tasks:
  - name: demo
    schedule:
      type: once
    content:
      plugin: weather
      city: Lisbon
    llm:
      plugin: openai
    notifiers:
      - plugin: telegram
        chat_id: "${TEST_CHAT_ID}"
`)

	cfg, err := config.Load(path)
	require.NoError(t, err)
	require.Len(t, cfg.Tasks, 1)
	assert.Equal(t, "12345", cfg.Tasks[0].Notifiers[0]["chat_id"])
}

func TestLoad_ReportsEveryMissingVariable(t *testing.T) {
	path := writeConfig(t, `
tasks:
  - name: demo
    content:
      plugin: weather
      api_key: "${LLMSENDER_TEST_MISSING_ONE}"
    llm:
      plugin: openai
      api_key: "${LLMSENDER_TEST_MISSING_TWO}"
`)

	_, err := config.Load(path)
	require.Error(t, err)

	var cfgErr *domain.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Len(t, cfgErr.Problems, 2)
	assert.Contains(t, err.Error(), "LLMSENDER_TEST_MISSING_ONE")
	assert.Contains(t, err.Error(), "LLMSENDER_TEST_MISSING_TWO")
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func validTask(name string) config.TaskConfig {
	return config.TaskConfig{
		Name:      name,
		Schedule:  &config.ScheduleConfig{Type: "once"},
		Content:   map[string]any{"plugin": "weather", "city": "Lisbon"},
		LLM:       map[string]any{"plugin": "openai"},
		Notifiers: []map[string]any{{"plugin": "telegram", "chat_id": "1"}},
	}
}

func TestBuildTasks_Valid(t *testing.T) {
	cfg := &config.Config{Tasks: []config.TaskConfig{validTask("demo")}}

	tasks, err := config.BuildTasks(cfg)
	require.NoError(t, err)
	require.Len(t, tasks, 1)

	task := tasks[0]
	assert.Equal(t, "demo", task.Name)
	assert.Equal(t, "demo", task.Title) // defaults to the name
	assert.Equal(t, domain.ScheduleOnce, task.Schedule.Kind)
	assert.Equal(t, domain.RoleContent, task.Content.Role)
	assert.Equal(t, "weather", task.Content.Name)
	// the plugin key is stripped from the config map
	assert.NotContains(t, task.Content.Config, "plugin")
	assert.Equal(t, "Lisbon", task.Content.Config["city"])
}

func TestBuildTasks_AggregatesEveryProblem(t *testing.T) {
	bad := config.TaskConfig{
		// missing name, content, llm, notifiers, schedule and trigger
	}
	dup := validTask("twin")
	cfg := &config.Config{Tasks: []config.TaskConfig{bad, dup, validTask("twin")}}

	_, err := config.BuildTasks(cfg)
	require.Error(t, err)

	var cfgErr *domain.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Contains(t, err.Error(), "name is required")
	assert.Contains(t, err.Error(), "content: block is required")
	assert.Contains(t, err.Error(), "llm: block is required")
	assert.Contains(t, err.Error(), "at least one notifier is required")
	assert.Contains(t, err.Error(), "a schedule or a trigger is required")
	assert.Contains(t, err.Error(), "duplicate task name")
	assert.GreaterOrEqual(t, len(cfgErr.Problems), 6)
}

func TestBuildTasks_ScheduleAndTriggerAreExclusive(t *testing.T) {
	task := validTask("demo")
	task.Trigger = map[string]any{"plugin": "twitter.new_tweet"}
	cfg := &config.Config{Tasks: []config.TaskConfig{task}}

	_, err := config.BuildTasks(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not both")
}

func TestBuildTasks_RejectsZeroInterval(t *testing.T) {
	task := validTask("demo")
	task.Schedule = &config.ScheduleConfig{Type: "interval"}
	cfg := &config.Config{Tasks: []config.TaskConfig{task}}

	_, err := config.BuildTasks(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "interval duration must be positive")
}

func TestBuildTasks_RejectsCronFieldOutOfRange(t *testing.T) {
	minute := 75
	task := validTask("demo")
	task.Schedule = &config.ScheduleConfig{Type: "cron", Minute: &minute}
	cfg := &config.Config{Tasks: []config.TaskConfig{task}}

	_, err := config.BuildTasks(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "minute must be at most 59")
}

func TestBuildTasks_TriggerDriven(t *testing.T) {
	task := validTask("demo")
	task.Schedule = nil
	task.Trigger = map[string]any{"plugin": "twitter.new_tweet", "username": "golang"}
	cfg := &config.Config{Tasks: []config.TaskConfig{task}}

	tasks, err := config.BuildTasks(cfg)
	require.NoError(t, err)
	require.NotNil(t, tasks[0].Trigger)
	assert.Equal(t, domain.RoleTrigger, tasks[0].Trigger.Role)
	assert.Equal(t, "twitter.new_tweet", tasks[0].Trigger.Name)
	assert.Equal(t, "golang", tasks[0].Trigger.Config["username"])
}

// Building a definition and mapping its schedule back to the on-disk form
// must reproduce the original block.
func TestScheduleRoundTrip(t *testing.T) {
	hour, minute, dow := 7, 30, 1
	cases := []config.ScheduleConfig{
		{Type: "once"},
		{Type: "interval", Hours: 6, Minutes: 15},
		{Type: "cron", Hour: &hour, Minute: &minute, DayOfWeek: &dow},
	}

	for _, sc := range cases {
		task := validTask("demo")
		schedule := sc
		task.Schedule = &schedule
		tasks, err := config.BuildTasks(&config.Config{Tasks: []config.TaskConfig{task}})
		require.NoError(t, err, "schedule %+v", sc)

		back := config.ScheduleConfigFromSpec(tasks[0].Schedule)
		assert.Equal(t, sc, back)
	}
}
