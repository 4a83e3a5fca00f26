package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/manthysbr/llmsender/internal/core/domain"
	"github.com/manthysbr/llmsender/internal/core/ports"
)

// taskPlugins is the cached set of live plugin instances for one task.
// Resolved lazily on the first firing and reused for every later firing;
// only the PipelineContext is fresh per firing.
type taskPlugins struct {
	once sync.Once
	err  error

	content        ports.ContentProvider
	summarizer     ports.Summarizer
	actions        []ports.Action
	actionNames    []string
	notifiers      []ports.Notifier
	notifierNames  []string
	errorNotifiers []ports.Notifier
}

// PipelineExecutor runs the five-stage pipeline for one task firing:
// fetch content, summarize, run the action chain, notify, record the result.
// One attempt per stage per firing; the next scheduled firing is the retry.
type PipelineExecutor struct {
	logger   *slog.Logger
	registry *PluginRegistry
	runs     ports.RunRepository // optional
	bus      *EventBus           // optional

	mu    sync.Mutex
	cache map[string]*taskPlugins
}

// NewPipelineExecutor creates an executor. runs and bus may be nil.
func NewPipelineExecutor(logger *slog.Logger, registry *PluginRegistry, runs ports.RunRepository, bus *EventBus) *PipelineExecutor {
	return &PipelineExecutor{
		logger:   logger,
		registry: registry,
		runs:     runs,
		bus:      bus,
		cache:    make(map[string]*taskPlugins),
	}
}

// Execute runs one firing of the task. The returned error is non-nil only
// for resolution failures (unknown plugin, unsatisfied dependency), which
// make the task unrunnable; the caller should retire it. Per-firing stage
// failures are reported inside the ExecutionResult and routed to the task's
// error notifiers, and the task stays scheduled.
func (e *PipelineExecutor) Execute(ctx context.Context, task domain.TaskDefinition, triggerData map[string]any) (domain.ExecutionResult, error) {
	firingID := domain.FiringID(uuid.NewString())
	pc := domain.NewPipelineContext(task.Name, firingID, triggerData)
	log := e.logger.With("task", task.Name, "firing", firingID)

	log.Info("task firing started")
	e.publish(task.Name, EventTypeFiringStarted, map[string]any{
		"task": task.Name, "firing_id": firingID,
	})

	plugins, err := e.plugins(task)
	if err != nil {
		result := e.finish(ctx, log, pc, domain.ExecutionResult{
			TaskName: task.Name,
			FiringID: firingID,
			Outcome:  domain.OutcomeFailed,
			Error:    err.Error(),
		}, nil, task)
		return result, err
	}

	result := e.run(ctx, log, task, plugins, pc)
	result = e.finish(ctx, log, pc, result, plugins, task)
	return result, nil
}

// run drives the state machine: Fetching -> Summarizing -> Acting ->
// Notifying -> Done, with Failed absorbing from the first three and
// PartiallyNotified reachable from Notifying.
func (e *PipelineExecutor) run(ctx context.Context, log *slog.Logger, task domain.TaskDefinition, p *taskPlugins, pc *domain.PipelineContext) domain.ExecutionResult {
	result := domain.ExecutionResult{
		TaskName: task.Name,
		FiringID: pc.FiringID,
	}
	fail := func(stage domain.Stage, err error) domain.ExecutionResult {
		result.Outcome = domain.OutcomeFailed
		result.Stage = stage
		result.Error = (&domain.StageError{Stage: stage, Err: err}).Error()
		return result
	}

	// Fetching
	content, err := p.content.Fetch(ctx)
	if err != nil {
		return fail(domain.StageContent, err)
	}
	pc.Content = content
	pc.Prompt = p.content.Prompt()
	pc.SideData["content"] = content
	pc.SideData["prompt"] = pc.Prompt

	// Summarizing. An empty or whitespace-only summary is a failure, not a
	// valid empty result: blank notifications must never go out.
	summary, err := p.summarizer.Summarize(ctx, pc.Prompt, content)
	if err != nil {
		return fail(domain.StageLLM, err)
	}
	if strings.TrimSpace(summary) == "" {
		return fail(domain.StageLLM, errors.New("summarizer returned an empty summary"))
	}
	pc.Summary = summary

	// Acting. The chain short-circuits on the first stop signal; stopping is
	// a deliberate veto, reported as Done with zero notifications attempted.
	for i, action := range p.actions {
		res, err := action.Process(ctx, pc.Summary, pc.SideData)
		if err != nil {
			return fail(domain.StageAction, fmt.Errorf("action %q (#%d): %w", p.actionNames[i], i, err))
		}
		pc.Summary = res.Output
		if !res.Continue {
			pc.Proceed = false
			log.Info("notification stopped by action", "action", p.actionNames[i])
			result.Outcome = domain.OutcomeDone
			return result
		}
	}

	// Notifying. Every notifier is attempted independently; one failure must
	// not prevent the others.
	title := task.Title
	var sendErrs []string
	for i, notifier := range p.notifiers {
		result.NotificationsAttempted++
		if err := notifier.Send(ctx, pc.Summary, title); err != nil {
			log.Error("notifier failed", "notifier", p.notifierNames[i], "error", err)
			sendErrs = append(sendErrs, fmt.Sprintf("%s: %v", p.notifierNames[i], err))
			continue
		}
		result.NotificationsSucceeded++
	}

	switch {
	case result.NotificationsSucceeded == result.NotificationsAttempted:
		result.Outcome = domain.OutcomeDone
	case result.NotificationsSucceeded > 0:
		result.Outcome = domain.OutcomePartiallyNotified
		result.Error = strings.Join(sendErrs, "; ")
	default:
		return fail(domain.StageNotify, fmt.Errorf("all notifiers failed: %s", strings.Join(sendErrs, "; ")))
	}
	return result
}

// finish stamps timings, dispatches error notifiers on failure, persists the
// result and publishes the firing event.
func (e *PipelineExecutor) finish(ctx context.Context, log *slog.Logger, pc *domain.PipelineContext, result domain.ExecutionResult, p *taskPlugins, task domain.TaskDefinition) domain.ExecutionResult {
	result.StartedAt = pc.StartedAt
	result.Duration = time.Since(pc.StartedAt)

	if result.Outcome == domain.OutcomeFailed {
		log.Error("task firing failed",
			"stage", result.Stage, "error", result.Error, "duration", result.Duration)
		if p != nil {
			e.notifyError(ctx, log, task, p, result)
		}
	} else {
		log.Info("task firing completed",
			"outcome", result.Outcome,
			"notified", result.NotificationsSucceeded,
			"attempted", result.NotificationsAttempted,
			"duration", result.Duration)
	}

	if e.runs != nil {
		if err := e.runs.SaveRun(ctx, result); err != nil {
			log.Error("failed to save run", "error", err)
		}
	}
	e.publish(task.Name, EventTypeFiringFinished, result)
	return result
}

// notifyError dispatches every configured error notifier with the failing
// stage and error detail. Error-notifier failures are logged only; they
// never recurse into another error path.
func (e *PipelineExecutor) notifyError(ctx context.Context, log *slog.Logger, task domain.TaskDefinition, p *taskPlugins, result domain.ExecutionResult) {
	if len(p.errorNotifiers) == 0 {
		return
	}
	message := fmt.Sprintf("Task %q failed at stage %s: %s", task.Name, result.Stage, result.Error)
	title := "Error: " + task.Title
	for _, notifier := range p.errorNotifiers {
		if err := notifier.Send(ctx, message, title); err != nil {
			log.Error("error notifier failed", "error", err)
		}
	}
}

// plugins returns the task's cached plugin set, resolving it on first use.
// A failed resolution is cached too: a task with a broken descriptor stays
// broken until the configuration is reloaded.
func (e *PipelineExecutor) plugins(task domain.TaskDefinition) (*taskPlugins, error) {
	e.mu.Lock()
	entry, ok := e.cache[task.Name]
	if !ok {
		entry = &taskPlugins{}
		e.cache[task.Name] = entry
	}
	e.mu.Unlock()

	entry.once.Do(func() {
		entry.err = e.resolve(task, entry)
	})
	return entry, entry.err
}

func (e *PipelineExecutor) resolve(task domain.TaskDefinition, p *taskPlugins) error {
	content, err := e.registry.Content(task.Content)
	if err != nil {
		return err
	}
	p.content = content

	var toolSpecs []map[string]any
	for _, ref := range task.Actions {
		action, err := e.registry.Action(ref)
		if err != nil {
			return err
		}
		p.actions = append(p.actions, action)
		p.actionNames = append(p.actionNames, ref.Name)
		if tp, ok := action.(ports.ToolProvider); ok {
			if spec := tp.ToolSpec(); spec != nil {
				toolSpecs = append(toolSpecs, spec)
			}
		}
	}

	// Actions that expose LLM tool specs hand them to the summarizer via its
	// configuration, without mutating the task's own descriptor.
	llmRef := task.LLM
	if len(toolSpecs) > 0 {
		cfg := llmRef.CloneConfig()
		cfg["tools"] = toolSpecs
		llmRef = domain.PluginRef{Role: llmRef.Role, Name: llmRef.Name, Config: cfg}
	}
	summarizer, err := e.registry.Summarizer(llmRef)
	if err != nil {
		return err
	}
	p.summarizer = summarizer

	for _, ref := range task.Notifiers {
		notifier, err := e.registry.Notifier(ref)
		if err != nil {
			return err
		}
		p.notifiers = append(p.notifiers, notifier)
		p.notifierNames = append(p.notifierNames, ref.Name)
	}

	// Error notifiers are resolved eagerly with the rest so a broken error
	// path surfaces before the first failure needs it.
	for _, ref := range task.ErrorNotifiers {
		notifier, err := e.registry.Notifier(ref)
		if err != nil {
			return err
		}
		p.errorNotifiers = append(p.errorNotifiers, notifier)
	}
	return nil
}

func (e *PipelineExecutor) publish(task string, typ EventType, payload any) {
	if e.bus == nil {
		return
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	e.bus.Publish(Event{
		Task:      task,
		Type:      typ,
		Data:      string(data),
		Timestamp: time.Now().UnixMilli(),
	})
}
