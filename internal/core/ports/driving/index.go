package driving

import (
	"context"

	"github.com/custodia-labs/mailbrain/internal/core/domain"
)

// IndexService maintains the semantic index over the message corpus.
type IndexService interface {
	// Build chunks and embeds messages and atomically replaces the index.
	Build(ctx context.Context, messages []domain.Message) (domain.IndexStats, error)

	// Refresh reloads the configured message source and rebuilds.
	Refresh(ctx context.Context) (domain.IndexStats, error)

	// Search returns up to topK messages ordered by similarity.
	// An empty index yields an empty slice, not an error.
	Search(ctx context.Context, query string, topK int) ([]domain.SearchResult, error)

	// Stats describes the currently published index.
	Stats() domain.IndexStats
}
