package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/manthysbr/llmsender/internal/core/domain"
)

var validSchedule = validator.New()

// BuildTasks converts the raw configuration into immutable task definitions.
// It fails with a single aggregated ConfigurationError listing every problem
// found across all tasks; on success the returned definitions are complete
// and ready to schedule.
func BuildTasks(cfg *Config) ([]domain.TaskDefinition, error) {
	var problems []string
	addf := func(format string, args ...any) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	if len(cfg.Tasks) == 0 {
		addf("no tasks configured")
	}

	seen := make(map[string]bool)
	tasks := make([]domain.TaskDefinition, 0, len(cfg.Tasks))

	for i, tc := range cfg.Tasks {
		label := tc.Name
		if label == "" {
			label = fmt.Sprintf("#%d", i+1)
			addf("task %s: name is required", label)
		} else if seen[label] {
			addf("task %q: duplicate task name", label)
		}
		seen[label] = true

		task := domain.TaskDefinition{
			Name:  tc.Name,
			Title: tc.Title,
		}
		if task.Title == "" {
			task.Title = tc.Name
		}

		if ref, err := pluginRef(domain.RoleContent, tc.Content); err != nil {
			addf("task %s: content: %v", label, err)
		} else {
			task.Content = ref
		}
		if ref, err := pluginRef(domain.RoleLLM, tc.LLM); err != nil {
			addf("task %s: llm: %v", label, err)
		} else {
			task.LLM = ref
		}

		for j, block := range tc.Actions {
			ref, err := pluginRef(domain.RoleAction, block)
			if err != nil {
				addf("task %s: actions[%d]: %v", label, j, err)
				continue
			}
			task.Actions = append(task.Actions, ref)
		}

		if len(tc.Notifiers) == 0 {
			addf("task %s: at least one notifier is required", label)
		}
		for j, block := range tc.Notifiers {
			ref, err := pluginRef(domain.RoleNotifier, block)
			if err != nil {
				addf("task %s: notifiers[%d]: %v", label, j, err)
				continue
			}
			task.Notifiers = append(task.Notifiers, ref)
		}
		for j, block := range tc.ErrorNotifiers {
			ref, err := pluginRef(domain.RoleNotifier, block)
			if err != nil {
				addf("task %s: error_notifiers[%d]: %v", label, j, err)
				continue
			}
			task.ErrorNotifiers = append(task.ErrorNotifiers, ref)
		}

		switch {
		case tc.Schedule != nil && tc.Trigger != nil:
			addf("task %s: declare either a schedule or a trigger, not both", label)
		case tc.Schedule != nil:
			spec, errs := buildSchedule(*tc.Schedule)
			for _, e := range errs {
				addf("task %s: schedule: %s", label, e)
			}
			task.Schedule = spec
		case tc.Trigger != nil:
			ref, err := pluginRef(domain.RoleTrigger, tc.Trigger)
			if err != nil {
				addf("task %s: trigger: %v", label, err)
			} else {
				task.Trigger = &ref
			}
		default:
			addf("task %s: a schedule or a trigger is required", label)
		}

		tasks = append(tasks, task)
	}

	if len(problems) > 0 {
		return nil, &domain.ConfigurationError{Problems: problems}
	}
	return tasks, nil
}

// pluginRef extracts the "plugin" key from a free-form block; the remaining
// keys become the plugin's configuration mapping.
func pluginRef(role domain.Role, block map[string]any) (domain.PluginRef, error) {
	if block == nil {
		return domain.PluginRef{}, errors.New("block is required")
	}
	name, _ := block["plugin"].(string)
	if name == "" {
		return domain.PluginRef{}, errors.New("plugin name is required")
	}
	config := make(map[string]any, len(block)-1)
	for k, v := range block {
		if k == "plugin" {
			continue
		}
		config[k] = v
	}
	return domain.PluginRef{Role: role, Name: name, Config: config}, nil
}

// buildSchedule validates one schedule block and maps it to the domain
// variant. Returns every problem found, not just the first.
func buildSchedule(sc ScheduleConfig) (domain.ScheduleSpec, []string) {
	var errs []string

	if err := validSchedule.Struct(sc); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			for _, fe := range fieldErrs {
				errs = append(errs, scheduleFieldProblem(fe))
			}
		} else {
			errs = append(errs, err.Error())
		}
	}

	switch sc.Type {
	case "cron":
		return domain.ScheduleSpec{
			Kind: domain.ScheduleCron,
			Cron: domain.CronSpec{
				Minute:    sc.Minute,
				Hour:      sc.Hour,
				Day:       sc.Day,
				Month:     sc.Month,
				DayOfWeek: sc.DayOfWeek,
			},
		}, errs
	case "interval":
		spec := domain.ScheduleSpec{
			Kind:     domain.ScheduleInterval,
			Interval: domain.IntervalSpec{Hours: sc.Hours, Minutes: sc.Minutes},
		}
		if spec.Interval.Duration() <= 0 {
			errs = append(errs, "interval duration must be positive")
		}
		return spec, errs
	case "once":
		return domain.ScheduleSpec{Kind: domain.ScheduleOnce}, errs
	case "":
		return domain.ScheduleSpec{}, append(errs, "schedule type is required (cron, interval or once)")
	default:
		return domain.ScheduleSpec{}, append(errs, fmt.Sprintf("unknown schedule type %q", sc.Type))
	}
}

func scheduleFieldProblem(fe validator.FieldError) string {
	field := strings.ToLower(fe.Field())
	switch fe.Tag() {
	case "min":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	default:
		return fmt.Sprintf("%s fails constraint %s", field, fe.Tag())
	}
}

// ScheduleConfigFromSpec maps a schedule variant back to its on-disk form,
// reproducing the original cron/interval/once parameters exactly.
func ScheduleConfigFromSpec(spec domain.ScheduleSpec) ScheduleConfig {
	switch spec.Kind {
	case domain.ScheduleCron:
		return ScheduleConfig{
			Type:      "cron",
			Minute:    spec.Cron.Minute,
			Hour:      spec.Cron.Hour,
			Day:       spec.Cron.Day,
			Month:     spec.Cron.Month,
			DayOfWeek: spec.Cron.DayOfWeek,
		}
	case domain.ScheduleInterval:
		return ScheduleConfig{
			Type:    "interval",
			Hours:   spec.Interval.Hours,
			Minutes: spec.Interval.Minutes,
		}
	default:
		return ScheduleConfig{Type: "once"}
	}
}
