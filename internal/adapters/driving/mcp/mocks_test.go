package mcp

import (
	"context"

	"github.com/custodia-labs/mailbrain/internal/core/domain"
)

// mockWorkflowService is a mock implementation of driving.WorkflowService.
type mockWorkflowService struct {
	lastRequest domain.InvokeRequest
	lastLimit   int
	exec        *domain.WorkflowExecution
	execs       map[string]*domain.WorkflowExecution
	summaries   []domain.ExecutionSummary
	err         error
}

func (m *mockWorkflowService) Invoke(_ context.Context, req domain.InvokeRequest) (*domain.WorkflowExecution, error) {
	m.lastRequest = req
	if err := req.Validate(); err != nil {
		return nil, err
	}
	return m.exec, m.err
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
	m.lastLimit = limit
	return m.summaries, m.err
}

// mockIndexService is a mock implementation of driving.IndexService.
type mockIndexService struct {
	results  []domain.SearchResult
	stats    domain.IndexStats
	lastTopK int
	err      error
}

func (m *mockIndexService) Build(_ context.Context, _ []domain.Message) (domain.IndexStats, error) {
	return m.stats, m.err
}

func (m *mockIndexService) Refresh(_ context.Context) (domain.IndexStats, error) {
	return m.stats, m.err
}

func (m *mockIndexService) Search(_ context.Context, _ string, topK int) ([]domain.SearchResult, error) {
	m.lastTopK = topK
	return m.results, m.err
}

func (m *mockIndexService) Stats() domain.IndexStats {
	return m.stats
}

// mockMessages is a map-backed MessageLookup.
type mockMessages map[string]domain.Message

func (m mockMessages) Message(id string) (domain.Message, bool) {
	msg, ok := m[id]
	return msg, ok
}

func validPorts() *Ports {
	return &Ports{
		Workflow: &mockWorkflowService{},
		Index:    &mockIndexService{},
	}
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
	return m.report, m.err
}
