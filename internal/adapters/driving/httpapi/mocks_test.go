package httpapi

import (
	"context"
	"sync"

	"github.com/custodia-labs/mailbrain/internal/core/domain"
)

// mockWorkflowService is a mock implementation of driving.WorkflowService.
type mockWorkflowService struct {
	mu        sync.Mutex
	requests  []domain.InvokeRequest
	exec      *domain.WorkflowExecution
	execs     map[string]*domain.WorkflowExecution
	summaries []domain.ExecutionSummary
	lastLimit int
	err       error
}

func (m *mockWorkflowService) Invoke(_ context.Context, req domain.InvokeRequest) (*domain.WorkflowExecution, error) {
	m.mu.Lock()
	m.requests = append(m.requests, req)
	m.mu.Unlock()

	if err := req.Validate(); err != nil {
		return nil, err
	}
	if m.err != nil {
		return nil, m.err
	}
	return m.exec, nil
}

func (m *mockWorkflowService) Get(_ context.Context, id string) (*domain.WorkflowExecution, error) {
	if m.err != nil {
		return nil, m.err
	}
	exec, ok := m.execs[id]
	if !ok {
		return nil, &domain.NotFoundError{Kind: "execution", ID: id}
	}
	return exec, nil
}

func (m *mockWorkflowService) ListRecent(_ context.Context, limit int) ([]domain.ExecutionSummary, error) {
	m.mu.Lock()
	m.lastLimit = limit
	m.mu.Unlock()
	return m.summaries, m.err
}

// mockIndexService is a mock implementation of driving.IndexService.
type mockIndexService struct {
	results   []domain.SearchResult
	stats     domain.IndexStats
	lastQuery string
	lastTopK  int
	err       error
}

func (m *mockIndexService) Build(_ context.Context, messages []domain.Message) (domain.IndexStats, error) {
	return domain.IndexStats{Messages: len(messages)}, m.err
}

func (m *mockIndexService) Refresh(_ context.Context) (domain.IndexStats, error) {
	if m.err != nil {
		return domain.IndexStats{}, m.err
	}
	return m.stats, nil
}

func (m *mockIndexService) Search(_ context.Context, query string, topK int) ([]domain.SearchResult, error) {
	m.lastQuery = query
	m.lastTopK = topK
	return m.results, m.err
}

func (m *mockIndexService) Stats() domain.IndexStats {
	return m.stats
}

// mockInsightService is a mock implementation of driving.InsightService.
type mockInsightService struct {
	analytics domain.CorpusAnalytics
	report    *domain.ThreatReport
	lastQuery string
	lastLimit int
	err       error
}

func (m *mockInsightService) Analytics() domain.CorpusAnalytics {
	return m.analytics
}

func (m *mockInsightService) ScanThreats(_ context.Context, query string, limit int) (*domain.ThreatReport, error) {
	m.lastQuery = query
	m.lastLimit = limit
	if limit > domain.MaxThreatScanLimit {
		return nil, &domain.ValidationError{Field: "limit", Reason: "too large"}
	}
	return m.report, m.err
}
