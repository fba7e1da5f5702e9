package domain

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorkflowSteps_FixedOrder(t *testing.T) {
	assert.Equal(t, []StepName{
		StepIntentDetection,
		StepSemanticSearch,
		StepClassificationRanking,
		StepAnswerGeneration,
	}, WorkflowSteps())
}

func TestStepStatus_IsTerminal(t *testing.T) {
	assert.False(t, StepPending.IsTerminal())
	assert.False(t, StepRunning.IsTerminal())
	assert.True(t, StepCompleted.IsTerminal())
	assert.True(t, StepError.IsTerminal())
	assert.True(t, StepSkipped.IsTerminal())
}

func TestNewWorkflowExecution(t *testing.T) {
	now := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	exec := NewWorkflowExecution("exec-1", "any invoices?", 3, now)

	assert.Equal(t, "exec-1", exec.ID)
	assert.Equal(t, ExecutionRunning, exec.Status)
	assert.Equal(t, now, exec.CreatedAt)
	assert.NotNil(t, exec.Citations)
	require.Len(t, exec.Steps, 4)
	for i, name := range WorkflowSteps() {
		assert.Equal(t, name, exec.Steps[i].Name)
		assert.Equal(t, StepPending, exec.Steps[i].Status)
	}
}

func TestWorkflowExecution_Step(t *testing.T) {
	exec := NewWorkflowExecution("exec-1", "q", 1, time.Now())

	step := exec.Step(StepSemanticSearch)
	require.NotNil(t, step)
	step.Status = StepRunning
	assert.Equal(t, StepRunning, exec.Steps[1].Status)

	assert.Nil(t, exec.Step("unknown"))
}

func TestWorkflowExecution_CloneIsDeep(t *testing.T) {
	now := time.Now()
	exec := NewWorkflowExecution("exec-1", "q", 1, now)
	exec.Steps[0].StartedAt = &now
	exec.Steps[0].Output = json.RawMessage(`{"intent":"search"}`)
	exec.Citations = append(exec.Citations, Citation{MessageID: "m1"})

	clone := exec.Clone()
	clone.Steps[0].Status = StepError
	clone.Steps[0].Output[2] = 'X'
	*clone.Steps[0].StartedAt = now.Add(time.Hour)
	clone.Citations[0].MessageID = "m2"

	assert.Equal(t, StepPending, exec.Steps[0].Status)
	assert.Equal(t, `{"intent":"search"}`, string(exec.Steps[0].Output))
	assert.Equal(t, now, *exec.Steps[0].StartedAt)
	assert.Equal(t, "m1", exec.Citations[0].MessageID)

	var nilExec *WorkflowExecution
	assert.Nil(t, nilExec.Clone())
}

func TestWorkflowExecution_Summary(t *testing.T) {
	exec := NewWorkflowExecution("exec-1", "q", 1, time.Now())
	exec.Status = ExecutionPartial
	exec.Intent = IntentAnalysis
	exec.Citations = []Citation{{MessageID: "a"}, {MessageID: "b"}}

	summary := exec.Summary()
	assert.Equal(t, "exec-1", summary.ID)
	assert.Equal(t, ExecutionPartial, summary.Status)
	assert.Equal(t, IntentAnalysis, summary.Intent)
	assert.Equal(t, 2, summary.Citations)
}

func TestInvokeRequest_Validate(t *testing.T) {
	tests := []struct {
		name    string
		req     InvokeRequest
		field   string
		wantErr bool
	}{
		{name: "valid", req: InvokeRequest{Question: "urgent deadlines", TopK: 3}},
		{name: "upper bound", req: InvokeRequest{Question: "q", TopK: MaxTopK}},
		{name: "empty question", req: InvokeRequest{Question: "  ", TopK: 3}, field: "question", wantErr: true},
		{name: "zero top_k", req: InvokeRequest{Question: "q", TopK: 0}, field: "top_k", wantErr: true},
		{name: "negative top_k", req: InvokeRequest{Question: "q", TopK: -2}, field: "top_k", wantErr: true},
		{name: "top_k too large", req: InvokeRequest{Question: "q", TopK: MaxTopK + 1}, field: "top_k", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			var ve *ValidationError
			require.True(t, errors.As(err, &ve))
			assert.Equal(t, tt.field, ve.Field)
			assert.ErrorIs(t, err, ErrInvalidInput)
		})
	}
}

func TestPriority_Boost(t *testing.T) {
	assert.Equal(t, 1.0, PriorityHigh.Boost())
	assert.Equal(t, 0.5, PriorityMedium.Boost())
	assert.Equal(t, 0.0, PriorityLow.Boost())
	assert.Equal(t, 0.0, Priority("").Boost())
}
