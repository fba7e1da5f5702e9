// Package services holds mailbrain's core logic: the question-answering
// workflow, the semantic index, classification, settings and the background
// scheduler. Services depend only on domain types and driven ports, and
// Runtime wires them together for the CLI, HTTP and MCP surfaces.
package services
