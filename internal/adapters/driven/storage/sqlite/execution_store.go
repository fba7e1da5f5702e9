package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/custodia-labs/mailbrain/internal/core/domain"
	"github.com/custodia-labs/mailbrain/internal/core/ports/driven"
)

// executionStore implements driven.ExecutionStore.
// The full record is kept as JSON; listing columns are denormalised.
type executionStore struct {
	store    *Store
	capacity int
}

var _ driven.ExecutionStore = (*executionStore)(nil)

// Save inserts or replaces the execution and evicts the oldest records
// beyond capacity in the same transaction.
func (s *executionStore) Save(ctx context.Context, exec *domain.WorkflowExecution) error {
	if exec == nil || exec.ID == "" {
		return domain.ErrInvalidInput
	}

	record, err := json.Marshal(exec)
	if err != nil {
		return fmt.Errorf("marshaling execution: %w", err)
	}

	s.store.writeMu.Lock()
	defer s.store.writeMu.Unlock()

	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	_, err = tx.ExecContext(ctx, `
		INSERT INTO executions (id, question, status, intent, created_at, updated_at, completed_at, record)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			question = excluded.question,
			status = excluded.status,
			intent = excluded.intent,
			updated_at = excluded.updated_at,
			completed_at = excluded.completed_at,
			record = excluded.record
	`, exec.ID, exec.Question, string(exec.Status), nullString(string(exec.Intent)),
		formatSortable(exec.CreatedAt), formatSortable(exec.UpdatedAt),
		nullTimePtr(exec.CompletedAt), string(record))
	if err != nil {
		return fmt.Errorf("saving execution: %w", err)
	}

	if s.capacity > 0 {
		if _, err := evict(ctx, tx, s.capacity); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing execution: %w", err)
	}
	return nil
}

// Get retrieves an execution by ID.
func (s *executionStore) Get(ctx context.Context, id string) (*domain.WorkflowExecution, error) {
	var record string
	err := s.store.db.QueryRowContext(ctx, "SELECT record FROM executions WHERE id = ?", id).Scan(&record)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &domain.NotFoundError{Kind: "execution", ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("querying execution: %w", err)
	}
	return decodeExecution(record)
}

// ListRecent returns up to limit executions, newest first.
func (s *executionStore) ListRecent(ctx context.Context, limit int) ([]domain.WorkflowExecution, error) {
	return queryAll(ctx, s.store.db, "executions", scanExecution, `
		SELECT record FROM executions
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`, sqlLimit(limit))
}

// Prune keeps the newest keep executions and returns how many were removed.
func (s *executionStore) Prune(ctx context.Context, keep int) (int, error) {
	if keep < 0 {
		keep = 0
	}

	s.store.writeMu.Lock()
	defer s.store.writeMu.Unlock()

	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	removed, err := evict(ctx, tx, keep)
	if err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing prune: %w", err)
	}
	return removed, nil
}

// evict deletes every execution outside the newest keep.
func evict(ctx context.Context, tx *sql.Tx, keep int) (int, error) {
	res, err := tx.ExecContext(ctx, `
		DELETE FROM executions
		WHERE id NOT IN (
			SELECT id FROM executions
			ORDER BY created_at DESC, id DESC
			LIMIT ?
		)
	`, keep)
	if err != nil {
		return 0, fmt.Errorf("evicting executions: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("counting evicted executions: %w", err)
	}
	return int(n), nil
}

func decodeExecution(record string) (*domain.WorkflowExecution, error) {
	var exec domain.WorkflowExecution
	if err := json.Unmarshal([]byte(record), &exec); err != nil {
		return nil, fmt.Errorf("decoding execution: %w", err)
	}
	if exec.Citations == nil {
		exec.Citations = []domain.Citation{}
	}
	return &exec, nil
}

func scanExecution(row rowScanner) (domain.WorkflowExecution, error) {
	var record string
	if err := row.Scan(&record); err != nil {
		return domain.WorkflowExecution{}, fmt.Errorf("scanning execution: %w", err)
	}
	exec, err := decodeExecution(record)
	if err != nil {
		return domain.WorkflowExecution{}, err
	}
	return *exec, nil
}

func nullTimePtr(t *time.Time) any {
	if t == nil {
		return nil
	}
	return nullTime(*t)
}
