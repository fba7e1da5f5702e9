package driven

import "context"

// EmbeddingService turns chunk and query text into vectors. Every vector
// a service returns has Dimensions() entries.
type EmbeddingService interface {
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch returns one vector per input, in input order.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	Dimensions() int
	ModelName() string

	// Ping makes the cheapest request the provider allows.
	Ping(ctx context.Context) error
	Close() error
}
