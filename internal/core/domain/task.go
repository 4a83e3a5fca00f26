package domain

import (
	"fmt"
	"time"
)

// ScheduleKind discriminates the schedule variants a task can declare.
type ScheduleKind string

const (
	ScheduleCron     ScheduleKind = "cron"     // fire when wall-clock fields match
	ScheduleInterval ScheduleKind = "interval" // fire every fixed duration
	ScheduleOnce     ScheduleKind = "once"     // fire once at startup, then retire
)

// CronSpec holds the wall-clock fields of a cron schedule. A nil field is a
// wildcard ("any"). Evaluated in the application's configured timezone.
type CronSpec struct {
	Minute    *int `json:"minute,omitempty"`
	Hour      *int `json:"hour,omitempty"`
	Day       *int `json:"day,omitempty"`
	Month     *int `json:"month,omitempty"`
	DayOfWeek *int `json:"day_of_week,omitempty"` // 0 = Sunday
}

// Matches reports whether t satisfies every set field of the spec.
func (c CronSpec) Matches(t time.Time) bool {
	if c.Minute != nil && t.Minute() != *c.Minute {
		return false
	}
	if c.Hour != nil && t.Hour() != *c.Hour {
		return false
	}
	if c.Day != nil && t.Day() != *c.Day {
		return false
	}
	if c.Month != nil && int(t.Month()) != *c.Month {
		return false
	}
	if c.DayOfWeek != nil && int(t.Weekday()) != *c.DayOfWeek {
		return false
	}
	return true
}

// IntervalSpec holds the components of an interval schedule. The total
// duration must be positive; the builder rejects all-zero intervals.
type IntervalSpec struct {
	Hours   int `json:"hours"`
	Minutes int `json:"minutes"`
}

// Duration returns the interval as a single duration.
func (i IntervalSpec) Duration() time.Duration {
	return time.Duration(i.Hours)*time.Hour + time.Duration(i.Minutes)*time.Minute
}

// ScheduleSpec is a tagged variant over cron, interval and once schedules.
// Exactly one variant is active, selected by Kind.
type ScheduleSpec struct {
	Kind     ScheduleKind `json:"kind"`
	Cron     CronSpec     `json:"cron,omitempty"`
	Interval IntervalSpec `json:"interval,omitempty"`
}

// String renders a short human-readable description for logs and the status API.
func (s ScheduleSpec) String() string {
	switch s.Kind {
	case ScheduleCron:
		field := func(p *int) string {
			if p == nil {
				return "*"
			}
			return fmt.Sprintf("%d", *p)
		}
		return fmt.Sprintf("cron %s %s %s %s %s",
			field(s.Cron.Minute), field(s.Cron.Hour), field(s.Cron.Day),
			field(s.Cron.Month), field(s.Cron.DayOfWeek))
	case ScheduleInterval:
		return fmt.Sprintf("every %s", s.Interval.Duration())
	case ScheduleOnce:
		return "once at startup"
	default:
		return string(s.Kind)
	}
}

// TaskDefinition is the declarative unit the scheduler and executor operate
// on: one content source, one summarizer, an ordered action chain, at least
// one notifier, an optional error-notifier set, and either a schedule or a
// poll trigger. Built once at startup and never mutated.
type TaskDefinition struct {
	Name           string
	Title          string
	Content        PluginRef
	LLM            PluginRef
	Actions        []PluginRef
	Notifiers      []PluginRef
	ErrorNotifiers []PluginRef
	Trigger        *PluginRef // set instead of Schedule for trigger-driven tasks
	Schedule       ScheduleSpec
}
