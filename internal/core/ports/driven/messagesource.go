package driven

import (
	"context"

	"github.com/custodia-labs/mailbrain/internal/core/domain"
)

// MessageSource produces normalised messages for the semantic index.
// Ingestion from mail providers is outside the core; sources read corpora
// that were already exported to disk.
type MessageSource interface {
	// Name identifies the source in logs, e.g. "json:/data/emails.json".
	Name() string

	// Load returns every message currently in the source.
	Load(ctx context.Context) ([]domain.Message, error)
}

// WatchableSource is an optional interface for sources that can report changes.
type WatchableSource interface {
	MessageSource

	// Watch calls onChange after the source changes on disk.
	// Blocks until ctx is cancelled.
	Watch(ctx context.Context, onChange func()) error
}
