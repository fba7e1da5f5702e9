package driven

import (
	"context"
	"time"
)

// Cache is a best-effort key/value store with per-entry expiry.
// Callers must treat every error, including domain.ErrCacheMiss, as a miss.
type Cache interface {
	// Get returns the value stored under key, or domain.ErrCacheMiss.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores value under key for ttl. A non-positive ttl never expires.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}
