package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/custodia-labs/mailbrain/internal/core/domain"
	"github.com/custodia-labs/mailbrain/internal/core/ports/driven"
)

// Ensure ExecutionStore implements the interface.
var _ driven.ExecutionStore = (*ExecutionStore)(nil)

// DefaultExecutionCapacity is used when NewExecutionStore gets a non-positive capacity.
const DefaultExecutionCapacity = 500

// ExecutionStore is an in-memory implementation of driven.ExecutionStore.
// Records are deep-copied on the way in and out. Writes to one id are
// serialised by a per-id mutex that lives while any Save for the id holds
// or waits on it.
type ExecutionStore struct {
	mu       sync.RWMutex
	records  map[string]*domain.WorkflowExecution
	capacity int

	locksMu sync.Mutex
	locks   map[string]*idLock
}

type idLock struct {
	mu   sync.Mutex
	refs int
}

// NewExecutionStore creates a store that retains at most capacity records.
func NewExecutionStore(capacity int) *ExecutionStore {
	if capacity <= 0 {
		capacity = DefaultExecutionCapacity
	}
	return &ExecutionStore{
		records:  make(map[string]*domain.WorkflowExecution),
		capacity: capacity,
		locks:    make(map[string]*idLock),
	}
}

// lock blocks until the caller holds the write lock for id.
func (s *ExecutionStore) lock(id string) *idLock {
	s.locksMu.Lock()
	l, ok := s.locks[id]
	if !ok {
		l = &idLock{}
		s.locks[id] = l
	}
	l.refs++
	s.locksMu.Unlock()

	l.mu.Lock()
	return l
}

// unlock releases l and forgets it once no writer references it.
func (s *ExecutionStore) unlock(id string, l *idLock) {
	l.mu.Unlock()

	s.locksMu.Lock()
	l.refs--
	if l.refs == 0 {
		delete(s.locks, id)
	}
	s.locksMu.Unlock()
}

// Save inserts or replaces the execution with the same ID.
func (s *ExecutionStore) Save(_ context.Context, exec *domain.WorkflowExecution) error {
	if exec == nil || exec.ID == "" {
		return domain.ErrInvalidInput
	}

	l := s.lock(exec.ID)
	defer s.unlock(exec.ID, l)

	record := exec.Clone()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[exec.ID] = record
	s.evictLocked(s.capacity)
	return nil
}

// Get retrieves an execution by ID.
func (s *ExecutionStore) Get(_ context.Context, id string) (*domain.WorkflowExecution, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.records[id]
	if !ok {
		return nil, &domain.NotFoundError{Kind: "execution", ID: id}
	}
	return record.Clone(), nil
}

// ListRecent returns up to limit executions, newest first.
func (s *ExecutionStore) ListRecent(_ context.Context, limit int) ([]domain.WorkflowExecution, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ordered := s.orderedLocked()
	if limit > 0 && len(ordered) > limit {
		ordered = ordered[:limit]
	}

	result := make([]domain.WorkflowExecution, len(ordered))
	for i, record := range ordered {
		result[i] = *record.Clone()
	}
	return result, nil
}

// Prune keeps the newest keep executions and returns how many were removed.
func (s *ExecutionStore) Prune(_ context.Context, keep int) (int, error) {
	if keep < 0 {
		keep = 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.evictLocked(keep), nil
}

// Len returns the number of stored executions.
func (s *ExecutionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// orderedLocked returns records by creation time descending, ties by id descending.
func (s *ExecutionStore) orderedLocked() []*domain.WorkflowExecution {
	ordered := make([]*domain.WorkflowExecution, 0, len(s.records))
	for _, record := range s.records {
		ordered = append(ordered, record)
	}
	sort.Slice(ordered, func(i, j int) bool {
		a, b := ordered[i], ordered[j]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID > b.ID
	})
	return ordered
}

// evictLocked removes the oldest records until at most keep remain.
func (s *ExecutionStore) evictLocked(keep int) int {
	if len(s.records) <= keep {
		return 0
	}
	ordered := s.orderedLocked()
	evicted := 0
	for _, record := range ordered[keep:] {
		delete(s.records, record.ID)
		evicted++
	}
	return evicted
}
