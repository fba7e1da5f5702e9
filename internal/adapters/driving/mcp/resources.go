package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/mailbrain/internal/core/domain"
)

const (
	// uriScheme is the custom URI scheme for mailbrain resources.
	uriScheme = "mailbrain://"
)

// registerResources registers all resource handlers with the MCP server.
func (s *Server) registerResources() {
	// Static resource for index statistics.
	s.server.AddResource(&mcp.Resource{
		URI:         uriScheme + "index/stats",
		Name:        "index-stats",
		Description: "Statistics of the semantic index and the mail corpus",
		MIMEType:    "application/json",
	}, s.handleIndexStatsResource)

	if s.ports.Insights != nil {
		s.server.AddResource(&mcp.Resource{
			URI:         uriScheme + "index/analytics",
			Name:        "index-analytics",
			Description: "Senders, categories, timeline and keywords of the mail corpus",
			MIMEType:    "application/json",
		}, s.handleAnalyticsResource)
	}

	// Template for message content.
	s.server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: uriScheme + "messages/{messageId}",
		Name:        "message",
		Description: "Headers and body of an indexed message",
		MIMEType:    "text/plain",
	}, s.handleMessageResource)

	// Template for execution records.
	s.server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: uriScheme + "executions/{executionId}",
		Name:        "execution",
		Description: "Full record of a workflow execution, including step outputs",
		MIMEType:    "application/json",
	}, s.handleExecutionResource)
}

// handleIndexStatsResource returns the published index statistics.
func (s *Server) handleIndexStatsResource(
	_ context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	data, err := json.MarshalIndent(s.ports.Index.Stats(), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling index stats: %w", err)
	}
	return jsonResult(req.Params.URI, data), nil
}

// handleAnalyticsResource returns the corpus analytics.
func (s *Server) handleAnalyticsResource(
	_ context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	data, err := json.MarshalIndent(s.ports.Insights.Analytics(), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling analytics: %w", err)
	}
	return jsonResult(req.Params.URI, data), nil
}

// handleMessageResource returns the content of a specific message.
func (s *Server) handleMessageResource(
	_ context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	if s.ports.Messages == nil {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	// Extract messageId from URI: mailbrain://messages/{messageId}
	id := extractID(req.Params.URI, "messages/")
	if id == "" {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	msg, ok := s.ports.Messages.Message(id)
	if !ok {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      req.Params.URI,
			MIMEType: "text/plain",
			Text:     formatMessage(&msg),
		}},
	}, nil
}

// handleExecutionResource returns the full record of an execution.
func (s *Server) handleExecutionResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	// Extract executionId from URI: mailbrain://executions/{executionId}
	id := extractID(req.Params.URI, "executions/")
	if id == "" {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	exec, err := s.ports.Workflow.Get(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}
	if err != nil {
		return nil, fmt.Errorf("getting execution: %w", err)
	}

	data, err := json.MarshalIndent(exec, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling execution: %w", err)
	}
	return jsonResult(req.Params.URI, data), nil
}

func jsonResult(uri string, data []byte) *mcp.ReadResourceResult {
	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}
}

// extractID extracts the trailing id from a URI like mailbrain://{kind}/{id}.
// Nested paths are rejected.
func extractID(uri, kind string) string {
	prefix := uriScheme + kind
	if !strings.HasPrefix(uri, prefix) {
		return ""
	}
	id := strings.TrimPrefix(uri, prefix)
	if strings.Contains(id, "/") {
		return ""
	}
	return id
}

func formatMessage(msg *domain.Message) string {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\n", msg.Sender)
	if len(msg.Recipients) > 0 {
		fmt.Fprintf(&b, "To: %s\n", strings.Join(msg.Recipients, ", "))
	}
	fmt.Fprintf(&b, "Subject: %s\n", msg.Subject)
	if !msg.Timestamp.IsZero() {
		fmt.Fprintf(&b, "Date: %s\n", formatTime(msg.Timestamp))
	}
	b.WriteString("\n")
	b.WriteString(msg.Body)
	return b.String()
}
