package mcp

import (
	"context"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/mailbrain/internal/core/domain"
)

// AskInput is the input schema for the ask tool.
type AskInput struct {
	Question string `json:"question" jsonschema:"the question to answer from the mail corpus"`
	TopK     int    `json:"top_k,omitempty" jsonschema:"number of messages to retrieve (default 5, maximum 100)"`
}

// ExecutionOutput is the output schema for tools returning an execution.
type ExecutionOutput struct {
	ExecutionID string           `json:"execution_id"`
	Question    string           `json:"question"`
	Status      string           `json:"status"`
	Intent      string           `json:"intent,omitempty"`
	Answer      string           `json:"answer"`
	Citations   []CitationOutput `json:"citations"`
	Steps       []StepOutput     `json:"steps"`
	CreatedAt   string           `json:"created_at"`
	CompletedAt string           `json:"completed_at,omitempty"`
}

// CitationOutput is a message cited by an answer.
type CitationOutput struct {
	MessageID string `json:"message_id"`
	Subject   string `json:"subject,omitempty"`
	Snippet   string `json:"snippet"`
}

// StepOutput is the state of one workflow step.
type StepOutput struct {
	Name   string `json:"name"`
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// GetExecutionInput is the input schema for the get_execution tool.
type GetExecutionInput struct {
	ExecutionID string `json:"execution_id" jsonschema:"the id returned by ask"`
}

// ListExecutionsInput is the input schema for the list_executions tool.
type ListExecutionsInput struct {
	Limit int `json:"limit,omitempty" jsonschema:"maximum number of executions to return (default 20)"`
}

// ListExecutionsOutput is the output schema for the list_executions tool.
type ListExecutionsOutput struct {
	Executions []ExecutionSummaryOutput `json:"executions"`
	Count      int                      `json:"count"`
}

// ExecutionSummaryOutput is a condensed execution record.
type ExecutionSummaryOutput struct {
	ExecutionID string `json:"execution_id"`
	Question    string `json:"question"`
	Status      string `json:"status"`
	Citations   int    `json:"citations"`
	CreatedAt   string `json:"created_at"`
}

// SearchInput is the input schema for the search_messages tool.
type SearchInput struct {
	Query string `json:"query" jsonschema:"the text to search the mail corpus for"`
	TopK  int    `json:"top_k,omitempty" jsonschema:"maximum number of messages to return (default 5)"`
}

// SearchOutput is the output schema for the search_messages tool.
type SearchOutput struct {
	Results []SearchResultOutput `json:"results"`
	Count   int                  `json:"count"`
}

// SearchResultOutput represents a single search result.
type SearchResultOutput struct {
	MessageID string  `json:"message_id"`
	Subject   string  `json:"subject"`
	From      string  `json:"from"`
	Date      string  `json:"date,omitempty"`
	Score     float64 `json:"score"`
	Snippet   string  `json:"snippet"`
}

// ScanThreatsInput is the input schema for the scan_threats tool.
type ScanThreatsInput struct {
	Query string `json:"query,omitempty" jsonschema:"only scan messages similar to this text; empty scans the index"`
	Limit int    `json:"limit,omitempty" jsonschema:"maximum number of messages to scan (default 50, maximum 500)"`
}

// ScanThreatsOutput is the output schema for the scan_threats tool.
type ScanThreatsOutput struct {
	Analyzed        int                    `json:"analyzed"`
	Counts          map[string]int         `json:"counts"`
	Threats         []ThreatAnalysisOutput `json:"threats"`
	Recommendations []string               `json:"recommendations"`
}

// ThreatAnalysisOutput is the assessment of one flagged message.
type ThreatAnalysisOutput struct {
	MessageID      string   `json:"message_id"`
	Subject        string   `json:"subject"`
	From           string   `json:"from"`
	Level          string   `json:"level"`
	Score          float64  `json:"score"`
	Indicators     []string `json:"indicators"`
	Recommendation string   `json:"recommendation"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "ask",
		Description: "Answer a question from the mail corpus with cited messages",
	}, s.handleAsk)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "get_execution",
		Description: "Fetch a recorded workflow execution by id",
	}, s.handleGetExecution)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "list_executions",
		Description: "List recent workflow executions, newest first",
	}, s.handleListExecutions)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "search_messages",
		Description: "Semantic search across indexed mail messages",
	}, s.handleSearch)

	if s.ports.Insights != nil {
		mcp.AddTool(s.server, &mcp.Tool{
			Name:        "scan_threats",
			Description: "Scan indexed messages for phishing, spoofing and suspicious links",
		}, s.handleScanThreats)
	}
}

// handleAsk runs the workflow. Partial executions are returned, not errors.
func (s *Server) handleAsk(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input AskInput,
) (*mcp.CallToolResult, ExecutionOutput, error) {
	exec, err := s.ports.Workflow.Invoke(ctx, domain.InvokeRequest{
		Question: input.Question,
		TopK:     s.ports.topK(input.TopK),
	})
	if err != nil {
		return nil, ExecutionOutput{}, err
	}
	return nil, toExecutionOutput(exec), nil
}

// handleGetExecution returns a stored execution.
func (s *Server) handleGetExecution(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input GetExecutionInput,
) (*mcp.CallToolResult, ExecutionOutput, error) {
	exec, err := s.ports.Workflow.Get(ctx, input.ExecutionID)
	if err != nil {
		return nil, ExecutionOutput{}, err
	}
	return nil, toExecutionOutput(exec), nil
}

// handleListExecutions returns recent execution summaries.
func (s *Server) handleListExecutions(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input ListExecutionsInput,
) (*mcp.CallToolResult, ListExecutionsOutput, error) {
	summaries, err := s.ports.Workflow.ListRecent(ctx, input.Limit)
	if err != nil {
		return nil, ListExecutionsOutput{}, err
	}

	output := ListExecutionsOutput{
		Executions: make([]ExecutionSummaryOutput, len(summaries)),
		Count:      len(summaries),
	}
	for i := range summaries {
		output.Executions[i] = ExecutionSummaryOutput{
			ExecutionID: summaries[i].ID,
			Question:    summaries[i].Question,
			Status:      string(summaries[i].Status),
			Citations:   summaries[i].Citations,
			CreatedAt:   formatTime(summaries[i].CreatedAt),
		}
	}
	return nil, output, nil
}

// handleSearch handles the search_messages tool invocation.
func (s *Server) handleSearch(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input SearchInput,
) (*mcp.CallToolResult, SearchOutput, error) {
	results, err := s.ports.Index.Search(ctx, input.Query, s.ports.topK(input.TopK))
	if err != nil {
		return nil, SearchOutput{}, err
	}

	output := SearchOutput{
		Results: make([]SearchResultOutput, len(results)),
		Count:   len(results),
	}

	for i := range results {
		output.Results[i] = SearchResultOutput{
			MessageID: results[i].MessageID,
			Subject:   results[i].Subject,
			From:      results[i].Sender,
			Date:      formatTime(results[i].Timestamp),
			Score:     results[i].Score,
			Snippet:   results[i].Snippet,
		}
	}

	return nil, output, nil
}

func toExecutionOutput(exec *domain.WorkflowExecution) ExecutionOutput {
	out := ExecutionOutput{
		ExecutionID: exec.ID,
		Question:    exec.Question,
		Status:      string(exec.Status),
		Intent:      string(exec.Intent),
		Answer:      exec.Answer,
		Citations:   make([]CitationOutput, len(exec.Citations)),
		Steps:       make([]StepOutput, len(exec.Steps)),
		CreatedAt:   formatTime(exec.CreatedAt),
	}
	if exec.CompletedAt != nil {
		out.CompletedAt = formatTime(*exec.CompletedAt)
	}
	for i, c := range exec.Citations {
		out.Citations[i] = CitationOutput{MessageID: c.MessageID, Subject: c.Subject, Snippet: c.Snippet}
	}
	for i, step := range exec.Steps {
		out.Steps[i] = StepOutput{Name: string(step.Name), Status: string(step.Status), Error: step.Error}
	}
	return out
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

// handleScanThreats reports the flagged messages. Safe messages are counted
// but not listed.
func (s *Server) handleScanThreats(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input ScanThreatsInput,
) (*mcp.CallToolResult, ScanThreatsOutput, error) {
	report, err := s.ports.Insights.ScanThreats(ctx, input.Query, input.Limit)
	if err != nil {
		return nil, ScanThreatsOutput{}, err
	}

	output := ScanThreatsOutput{
		Analyzed:        report.Analyzed,
		Counts:          make(map[string]int, len(report.Counts)),
		Threats:         []ThreatAnalysisOutput{},
		Recommendations: report.Recommendations,
	}
	for level, n := range report.Counts {
		output.Counts[string(level)] = n
	}
	for i := range report.Threats {
		a := &report.Threats[i]
		if a.Level == domain.ThreatSafe {
			continue
		}
		indicators := make([]string, len(a.Indicators))
		for j, ind := range a.Indicators {
			indicators[j] = string(ind.Type) + ": " + ind.Description
		}
		output.Threats = append(output.Threats, ThreatAnalysisOutput{
			MessageID:      a.MessageID,
			Subject:        a.Subject,
			From:           a.Sender,
			Level:          string(a.Level),
			Score:          a.Score,
			Indicators:     indicators,
			Recommendation: a.Recommendation,
		})
	}
	return nil, output, nil
}
