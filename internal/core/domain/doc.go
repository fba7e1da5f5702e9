// Package domain defines the core business entities for mailbrain.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Message: A normalised mail message, read-only to the core
//   - Chunk: An embedded span of a message body
//   - Classification: Category, priority and sentiment of a message
//   - WorkflowExecution: The durable record of one question-answering run
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
