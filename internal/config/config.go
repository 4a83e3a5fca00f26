// Package config loads the YAML task configuration and builds the immutable
// task definitions the scheduler runs. Validation is exhaustive and atomic:
// every problem across every task is collected into one aggregated error, so
// a misconfigured task is never silently skipped.
package config

import (
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"

	"github.com/manthysbr/llmsender/internal/core/domain"
)

// Config is the root of the YAML configuration file.
type Config struct {
	Timezone             string       `yaml:"timezone"`
	PacksDir             string       `yaml:"packs_dir"`
	DatabasePath         string       `yaml:"database_path"`
	HTTPAddr             string       `yaml:"http_addr"`
	MaxConcurrentFirings int64        `yaml:"max_concurrent_firings"`
	Tasks                []TaskConfig `yaml:"tasks"`
}

// TaskConfig is one task entry as written by the operator. Plugin blocks are
// free-form maps whose "plugin" key names the implementation; everything
// else is passed to the plugin as its configuration.
type TaskConfig struct {
	Name           string           `yaml:"name"`
	Title          string           `yaml:"title"`
	Schedule       *ScheduleConfig  `yaml:"schedule"`
	Trigger        map[string]any   `yaml:"trigger"`
	Content        map[string]any   `yaml:"content"`
	LLM            map[string]any   `yaml:"llm"`
	Actions        []map[string]any `yaml:"actions"`
	Notifiers      []map[string]any `yaml:"notifiers"`
	ErrorNotifiers []map[string]any `yaml:"error_notifiers"`
}

// ScheduleConfig is the on-disk schedule block. Type selects the variant;
// cron fields are optional (unset = any) and range-checked, interval fields
// must sum to a positive duration.
type ScheduleConfig struct {
	Type      string `yaml:"type"`
	Minute    *int   `yaml:"minute,omitempty" validate:"omitempty,min=0,max=59"`
	Hour      *int   `yaml:"hour,omitempty" validate:"omitempty,min=0,max=23"`
	Day       *int   `yaml:"day,omitempty" validate:"omitempty,min=1,max=31"`
	Month     *int   `yaml:"month,omitempty" validate:"omitempty,min=1,max=12"`
	DayOfWeek *int   `yaml:"day_of_week,omitempty" validate:"omitempty,min=0,max=6"`
	Hours     int    `yaml:"hours,omitempty" validate:"min=0"`
	Minutes   int    `yaml:"minutes,omitempty" validate:"min=0"`
}

var envPlaceholder = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// Load reads and parses the configuration file. ${VAR} placeholders are
// replaced from the environment before parsing; every missing variable is a
// configuration problem, aggregated into one error.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	expanded, missing := expandEnv(data)
	if len(missing) > 0 {
		problems := make([]string, 0, len(missing))
		for _, name := range missing {
			problems = append(problems, fmt.Sprintf("required environment variable %q is not set", name))
		}
		return nil, &domain.ConfigurationError{Problems: problems}
	}

	var cfg Config
	if err := yaml.Unmarshal(expanded, &cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return &cfg, nil
}

// expandEnv substitutes ${VAR} placeholders and reports the distinct names
// of variables that are unset.
func expandEnv(data []byte) ([]byte, []string) {
	seen := make(map[string]bool)
	var missing []string
	out := envPlaceholder.ReplaceAllFunc(data, func(match []byte) []byte {
		name := string(envPlaceholder.FindSubmatch(match)[1])
		value, ok := os.LookupEnv(name)
		if !ok {
			if !seen[name] {
				seen[name] = true
				missing = append(missing, name)
			}
			return match
		}
		return []byte(value)
	})
	return out, missing
}
