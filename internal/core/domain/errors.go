package domain

import (
	"fmt"
	"strings"
)

// ConfigurationError aggregates every problem found while building task
// definitions. Startup validation is exhaustive: the operator gets one
// complete report instead of fixing problems one restart at a time.
type ConfigurationError struct {
	Problems []string
}

func (e *ConfigurationError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "invalid configuration (%d problem(s)):", len(e.Problems))
	for _, p := range e.Problems {
		b.WriteString("\n  - ")
		b.WriteString(p)
	}
	return b.String()
}

// PluginNotFoundError reports a failed registry resolution. Reason
// distinguishes an unknown flat plugin, an unknown pack, and an unknown
// component inside a known pack.
type PluginNotFoundError struct {
	Role   Role
	Name   string // the exact identifier searched
	Reason string
}

func (e *PluginNotFoundError) Error() string {
	return fmt.Sprintf("plugin not found: role=%s name=%q: %s", e.Role, e.Name, e.Reason)
}

// MissingDependencyError is raised by the dependency guard before plugin
// instantiation, carrying an actionable remediation instead of letting a
// credential-less client fail deep inside a network call.
type MissingDependencyError struct {
	Plugin      string
	Remediation string
}

func (e *MissingDependencyError) Error() string {
	return fmt.Sprintf("plugin %q has unsatisfied dependencies: %s", e.Plugin, e.Remediation)
}

// StageError wraps a per-firing failure with the pipeline stage it occurred
// in. Content fetch, summarization, action and notification failures all
// surface through this type.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("stage %s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }
