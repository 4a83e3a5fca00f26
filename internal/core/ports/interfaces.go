package ports

import (
	"context"
	"time"

	"github.com/manthysbr/llmsender/internal/core/domain"
)

// ContentProvider fetches the raw content for a task firing and supplies the
// prompt the summarizer should apply to it.
type ContentProvider interface {
	// Fetch retrieves the raw content. Configuration was supplied at
	// construction time.
	Fetch(ctx context.Context) (string, error)

	// Prompt returns the summarization prompt for this content type.
	Prompt() string
}

// Summarizer turns fetched content into a summary via a language-model
// backend.
type Summarizer interface {
	Summarize(ctx context.Context, prompt, content string) (string, error)
}

// ActionResult is what one action in the chain hands back: a possibly
// modified summary and an explicit continue/stop signal. Stopping is not an
// error; it is how filters veto a notification.
type ActionResult struct {
	Output   string
	Continue bool
	Metadata map[string]any
}

// Action post-processes a summary. side is the firing-scoped scratch map
// shared along the chain (it carries the raw content, the prompt and any
// trigger data).
type Action interface {
	Process(ctx context.Context, summary string, side map[string]any) (ActionResult, error)
}

// ToolProvider is optionally implemented by actions that expose themselves
// as an LLM-callable tool. Collected specs are injected into the summarizer
// configuration under "tools".
type ToolProvider interface {
	ToolSpec() map[string]any
}

// Notifier delivers the final summary through one transport.
type Notifier interface {
	Send(ctx context.Context, message, title string) error
}

// Trigger is a poll-based firing source for tasks that react to external
// events instead of the wall clock. A trigger is the one sanctioned stateful
// plugin: it may remember the last seen item across polls, and it alone is
// responsible for guarding that state.
type Trigger interface {
	// Setup primes the trigger (e.g. records the current newest item).
	Setup(ctx context.Context) error

	// Check polls once. fired is true when the task pipeline should run;
	// data is seeded into the firing's pipeline context.
	Check(ctx context.Context) (fired bool, data map[string]any, err error)

	// Interval is how often the scheduler should poll Check.
	Interval() time.Duration
}

// Factory constructs a plugin instance from its configuration mapping.
type Factory func(config map[string]any) (any, error)

// Requirement declares an optional dependency a plugin needs before it can
// be instantiated: a credential that must arrive either through the named
// environment variable or the named config key.
type Requirement struct {
	EnvVar    string
	ConfigKey string
	Hint      string // human-readable remediation
}

// Registration binds a plugin name and role to its factory and declared
// requirements.
type Registration struct {
	Role     domain.Role
	Name     string
	Requires []Requirement
	New      Factory
}

// RunRepository persists firing outcomes for the status API.
type RunRepository interface {
	SaveRun(ctx context.Context, run domain.ExecutionResult) error

	// ListRuns returns the most recent runs, newest first, optionally
	// filtered by task name. limit <= 0 means a server-chosen default.
	ListRuns(ctx context.Context, taskName string, limit int) ([]domain.ExecutionResult, error)
}
