// Package mcp provides an MCP (Model Context Protocol) server adapter for mailbrain.
// It lets AI assistants ask questions about the mail corpus and inspect
// recorded workflow executions.
package mcp

import "errors"

// ErrMissingWorkflowService is returned when the workflow service is not provided.
var ErrMissingWorkflowService = errors.New("mcp: workflow service is required")

// ErrMissingIndexService is returned when the index service is not provided.
var ErrMissingIndexService = errors.New("mcp: index service is required")
