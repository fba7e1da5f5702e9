package mcp

import (
	"github.com/custodia-labs/mailbrain/internal/core/domain"
	"github.com/custodia-labs/mailbrain/internal/core/ports/driving"
)

// MessageLookup resolves indexed messages by id.
type MessageLookup interface {
	Message(id string) (domain.Message, bool)
}

// Ports aggregates all driving port interfaces required by the MCP server.
// This provides a single injection point for dependency injection.
type Ports struct {
	// Workflow runs and records question-answering workflows.
	Workflow driving.WorkflowService

	// Index searches the semantic index.
	Index driving.IndexService

	// Messages backs the message resources. Optional.
	Messages MessageLookup

	// Insights backs the scan_threats tool and the analytics resource.
	// Optional; both are only registered when set.
	Insights driving.InsightService

	// DefaultTopK is used when a tool call omits top_k.
	DefaultTopK int
}

// Validate ensures all required ports are set.
// Returns an error if any required port is nil.
func (p *Ports) Validate() error {
	if p.Workflow == nil {
		return ErrMissingWorkflowService
	}
	if p.Index == nil {
		return ErrMissingIndexService
	}
	return nil
}

func (p *Ports) topK(requested int) int {
	if requested > 0 {
		return requested
	}
	if p.DefaultTopK > 0 {
		return p.DefaultTopK
	}
	return domain.DefaultTopK
}
