package domain

import "time"

// FiringID uniquely identifies one scheduled activation of one task.
type FiringID string

// Stage names the pipeline stage a failure occurred in.
type Stage string

const (
	StageContent Stage = "content"
	StageLLM     Stage = "llm"
	StageAction  Stage = "action"
	StageNotify  Stage = "notify"
)

// Outcome is the terminal state of one firing.
type Outcome string

const (
	OutcomeDone              Outcome = "done"
	OutcomePartiallyNotified Outcome = "partially_notified"
	OutcomeFailed            Outcome = "failed"
)

// PipelineContext is the mutable record threaded through the five stages of
// a single firing. Each firing gets a fresh context; overlapping firings of
// the same task never share one.
type PipelineContext struct {
	TaskName    string
	FiringID    FiringID
	TriggerData map[string]any
	Content     string
	Prompt      string
	Summary     string
	SideData    map[string]any // shared scratch space for the action chain
	Proceed     bool
	StartedAt   time.Time
}

// NewPipelineContext builds a fresh context for one firing. Proceed defaults
// to true; an action flips it to stop the pipeline without failing it.
func NewPipelineContext(taskName string, id FiringID, triggerData map[string]any) *PipelineContext {
	pc := &PipelineContext{
		TaskName:    taskName,
		FiringID:    id,
		TriggerData: triggerData,
		SideData:    make(map[string]any),
		Proceed:     true,
		StartedAt:   time.Now(),
	}
	pc.SideData["task_name"] = taskName
	for k, v := range triggerData {
		pc.SideData[k] = v
	}
	return pc
}

// ExecutionResult records what happened during one firing. Produced once,
// consumed by logging, the run repository and error notification.
type ExecutionResult struct {
	TaskName               string        `json:"task_name"`
	FiringID               FiringID      `json:"firing_id"`
	Outcome                Outcome       `json:"outcome"`
	Stage                  Stage         `json:"stage,omitempty"` // set when Outcome is failed
	Error                  string        `json:"error,omitempty"`
	NotificationsAttempted int           `json:"notifications_attempted"`
	NotificationsSucceeded int           `json:"notifications_succeeded"`
	StartedAt              time.Time     `json:"started_at"`
	Duration               time.Duration `json:"duration"`
}

// Succeeded reports whether the firing ended without a stage failure.
func (r ExecutionResult) Succeeded() bool {
	return r.Outcome != OutcomeFailed
}
