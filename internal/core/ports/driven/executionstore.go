package driven

import (
	"context"

	"github.com/custodia-labs/mailbrain/internal/core/domain"
)

// ExecutionStore persists workflow execution records.
// Writes to one execution id are serialised; writes to different ids are
// independent. Implementations retain a bounded number of records and evict
// the oldest by creation time once capacity is exceeded.
type ExecutionStore interface {
	// Save inserts or replaces the execution with the same ID.
	Save(ctx context.Context, exec *domain.WorkflowExecution) error

	// Get returns the execution, or a *domain.NotFoundError.
	Get(ctx context.Context, id string) (*domain.WorkflowExecution, error)

	// ListRecent returns up to limit executions, newest first.
	ListRecent(ctx context.Context, limit int) ([]domain.WorkflowExecution, error)

	// Prune keeps the newest keep executions and returns how many were removed.
	Prune(ctx context.Context, keep int) (int, error)
}
