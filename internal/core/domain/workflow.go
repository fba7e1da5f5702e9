package domain

import (
	"encoding/json"
	"strings"
	"time"
)

// StepName identifies one of the fixed workflow steps.
type StepName string

// Workflow steps in execution order.
const (
	StepIntentDetection       StepName = "intent_detection"
	StepSemanticSearch        StepName = "semantic_search"
	StepClassificationRanking StepName = "classification_ranking"
	StepAnswerGeneration      StepName = "answer_generation"
)

// WorkflowSteps returns the fixed step order.
func WorkflowSteps() []StepName {
	return []StepName{
		StepIntentDetection,
		StepSemanticSearch,
		StepClassificationRanking,
		StepAnswerGeneration,
	}
}

// String returns the string representation.
func (s StepName) String() string {
	return string(s)
}

// Description returns a human-readable description of the step.
func (s StepName) Description() string {
	switch s {
	case StepIntentDetection:
		return "Intent Detection"
	case StepSemanticSearch:
		return "Semantic Search"
	case StepClassificationRanking:
		return "Classification and Ranking"
	case StepAnswerGeneration:
		return "Answer Generation"
	default:
		return string(s)
	}
}

// StepStatus is the lifecycle state of a single step.
type StepStatus string

// Step states. A step moves pending → running → completed | error | skipped.
const (
	StepPending   StepStatus = "pending"
	StepRunning   StepStatus = "running"
	StepCompleted StepStatus = "completed"
	StepError     StepStatus = "error"
	StepSkipped   StepStatus = "skipped"
)

// IsTerminal returns true once the step can no longer change.
func (s StepStatus) IsTerminal() bool {
	return s == StepCompleted || s == StepError || s == StepSkipped
}

// ExecutionStatus is the overall state of a workflow execution.
type ExecutionStatus string

// Execution states.
const (
	ExecutionRunning   ExecutionStatus = "running"
	ExecutionCompleted ExecutionStatus = "completed"
	ExecutionPartial   ExecutionStatus = "partial"
	ExecutionError     ExecutionStatus = "error"
)

// Fixed answer texts.
const (
	// NoEvidenceAnswer is returned when there are no candidate messages.
	NoEvidenceAnswer = "I couldn't find any relevant emails to answer your question."

	// AnswerUnavailable marks an execution whose answer step did not produce text.
	AnswerUnavailable = "[answer unavailable: answer generation did not complete]"
)

// Input bounds for Invoke.
const (
	DefaultTopK = 5
	MaxTopK     = 100
)

// StepResult records the outcome of one workflow step.
// It is immutable once Status is terminal.
type StepResult struct {
	Name        StepName        `json:"name"`
	Status      StepStatus      `json:"status"`
	StartedAt   *time.Time      `json:"started_at,omitempty"`
	CompletedAt *time.Time      `json:"completed_at,omitempty"`
	Output      json.RawMessage `json:"output,omitempty"`
	Error       string          `json:"error,omitempty"`
}

// Citation links part of an answer to a source message.
type Citation struct {
	MessageID string `json:"message_id"`
	Subject   string `json:"subject,omitempty"`
	Snippet   string `json:"snippet"`
}

// Answer is the output of the answer generator.
type Answer struct {
	Text        string     `json:"answer"`
	Citations   []Citation `json:"citations"`
	Fingerprint string     `json:"fingerprint,omitempty"`
	Cached      bool       `json:"cached"`
	Attempts    int        `json:"attempts"`
}

// WorkflowExecution is the durable record of one orchestrator run.
type WorkflowExecution struct {
	ID          string          `json:"execution_id"`
	Question    string          `json:"question"`
	TopK        int             `json:"top_k"`
	Intent      Intent          `json:"intent,omitempty"`
	Steps       []StepResult    `json:"steps"`
	Status      ExecutionStatus `json:"status"`
	Answer      string          `json:"answer"`
	Citations   []Citation      `json:"citations"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
	CompletedAt *time.Time      `json:"completed_at,omitempty"`
}

// NewWorkflowExecution creates a running execution with every step pending.
func NewWorkflowExecution(id, question string, topK int, now time.Time) *WorkflowExecution {
	steps := WorkflowSteps()
	results := make([]StepResult, len(steps))
	for i, name := range steps {
		results[i] = StepResult{Name: name, Status: StepPending}
	}
	return &WorkflowExecution{
		ID:        id,
		Question:  question,
		TopK:      topK,
		Steps:     results,
		Status:    ExecutionRunning,
		Citations: []Citation{},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Step returns the step record with the given name, or nil.
func (e *WorkflowExecution) Step(name StepName) *StepResult {
	for i := range e.Steps {
		if e.Steps[i].Name == name {
			return &e.Steps[i]
		}
	}
	return nil
}

// Clone returns a deep copy so stores never share memory with callers.
func (e *WorkflowExecution) Clone() *WorkflowExecution {
	if e == nil {
		return nil
	}
	out := *e
	out.Steps = make([]StepResult, len(e.Steps))
	for i, s := range e.Steps {
		cp := s
		if s.StartedAt != nil {
			t := *s.StartedAt
			cp.StartedAt = &t
		}
		if s.CompletedAt != nil {
			t := *s.CompletedAt
			cp.CompletedAt = &t
		}
		if s.Output != nil {
			cp.Output = append(json.RawMessage(nil), s.Output...)
		}
		out.Steps[i] = cp
	}
	out.Citations = append([]Citation{}, e.Citations...)
	if e.CompletedAt != nil {
		t := *e.CompletedAt
		out.CompletedAt = &t
	}
	return &out
}

// Summary returns the listing view of the execution.
func (e *WorkflowExecution) Summary() ExecutionSummary {
	return ExecutionSummary{
		ID:          e.ID,
		Question:    e.Question,
		Status:      e.Status,
		Intent:      e.Intent,
		Citations:   len(e.Citations),
		CreatedAt:   e.CreatedAt,
		CompletedAt: e.CompletedAt,
	}
}

// ExecutionSummary is a compact listing view of a WorkflowExecution.
type ExecutionSummary struct {
	ID          string          `json:"execution_id"`
	Question    string          `json:"question"`
	Status      ExecutionStatus `json:"status"`
	Intent      Intent          `json:"intent,omitempty"`
	Citations   int             `json:"citations"`
	CreatedAt   time.Time       `json:"created_at"`
	CompletedAt *time.Time      `json:"completed_at,omitempty"`
}

// InvokeRequest is the input of a workflow invocation.
type InvokeRequest struct {
	Question string `json:"question"`
	TopK     int    `json:"top_k"`
}

// Validate rejects malformed input before any execution record exists.
func (r InvokeRequest) Validate() error {
	if strings.TrimSpace(r.Question) == "" {
		return &ValidationError{Field: "question", Reason: "must not be empty"}
	}
	if r.TopK <= 0 {
		return &ValidationError{Field: "top_k", Reason: "must be a positive integer"}
	}
	if r.TopK > MaxTopK {
		return &ValidationError{Field: "top_k", Reason: "must not exceed 100"}
	}
	return nil
}
