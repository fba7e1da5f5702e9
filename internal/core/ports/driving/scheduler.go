package driving

import "context"

// Scheduler runs the periodic index refresh, execution prune and cache
// sweep tasks.
type Scheduler interface {
	// Start runs due tasks until ctx ends or Stop is called. A second call
	// while running returns immediately.
	Start(ctx context.Context) error

	// Stop ends the loop and waits for in-flight tasks.
	Stop() error
}
