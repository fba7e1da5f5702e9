package driving

import (
	"context"

	"github.com/custodia-labs/mailbrain/internal/core/domain"
)

// WorkflowService runs and records question-answering workflows.
type WorkflowService interface {
	// Invoke runs the four workflow steps for a question.
	// Invalid input returns a *domain.ValidationError and nothing is persisted.
	// Valid input always returns the execution record, even when partial.
	Invoke(ctx context.Context, req domain.InvokeRequest) (*domain.WorkflowExecution, error)

	// Get returns a stored execution or a *domain.NotFoundError.
	Get(ctx context.Context, id string) (*domain.WorkflowExecution, error)

	// ListRecent returns execution summaries, newest first.
	// A non-positive limit uses the default of 20.
	ListRecent(ctx context.Context, limit int) ([]domain.ExecutionSummary, error)
}
