package services

import (
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/manthysbr/llmsender/internal/core/domain"
	"github.com/manthysbr/llmsender/internal/core/ports"
)

// DependencyGuard checks, before a plugin is first instantiated, whether its
// declared optional dependencies are satisfiable in the current environment.
// The point is to fail fast with an actionable message ("set X to enable Y")
// instead of a generic failure from deep inside an HTTP client. A plugin is
// never re-checked after it has been instantiated successfully once; the
// environment is assumed stable for the process lifetime.
type DependencyGuard struct {
	logger *slog.Logger

	mu        sync.Mutex
	satisfied map[string]bool
}

// NewDependencyGuard creates an empty guard.
func NewDependencyGuard(logger *slog.Logger) *DependencyGuard {
	return &DependencyGuard{
		logger:    logger,
		satisfied: make(map[string]bool),
	}
}

// Check verifies every requirement of the identified plugin against the
// environment and the plugin's configuration mapping. A requirement is
// satisfied when its environment variable is set or its config key carries a
// non-empty value. Returns a MissingDependencyError on the first unmet
// requirement.
func (g *DependencyGuard) Check(identity string, requires []ports.Requirement, config map[string]any) error {
	g.mu.Lock()
	done := g.satisfied[identity]
	g.mu.Unlock()
	if done {
		return nil
	}

	for _, req := range requires {
		if req.EnvVar != "" && os.Getenv(req.EnvVar) != "" {
			continue
		}
		if req.ConfigKey != "" {
			if v, ok := config[req.ConfigKey].(string); ok && v != "" {
				continue
			}
		}
		remediation := req.Hint
		if remediation == "" {
			remediation = describeRequirement(identity, req)
		}
		return &domain.MissingDependencyError{Plugin: identity, Remediation: remediation}
	}
	return nil
}

// MarkSatisfied records that the plugin was instantiated successfully, so
// later firings skip the check.
func (g *DependencyGuard) MarkSatisfied(identity string) {
	g.mu.Lock()
	g.satisfied[identity] = true
	g.mu.Unlock()
}

func describeRequirement(identity string, req ports.Requirement) string {
	switch {
	case req.EnvVar != "" && req.ConfigKey != "":
		return fmt.Sprintf("set %s or provide %q in the task config to enable %s", req.EnvVar, req.ConfigKey, identity)
	case req.EnvVar != "":
		return fmt.Sprintf("set %s to enable %s", req.EnvVar, identity)
	case req.ConfigKey != "":
		return fmt.Sprintf("provide %q in the task config to enable %s", req.ConfigKey, identity)
	default:
		return fmt.Sprintf("unsatisfiable requirement declared by %s", identity)
	}
}
