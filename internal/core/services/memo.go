package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"
	"time"

	"github.com/custodia-labs/mailbrain/internal/core/ports/driven"
	"github.com/custodia-labs/mailbrain/internal/logger"
)

// Fingerprint identifies a question asked over an ordered candidate set.
// Reordering the candidates produces a different fingerprint.
func Fingerprint(question string, ids []string) string {
	sum := sha256.Sum256([]byte(question + "\x00" + strings.Join(ids, ",")))
	return hex.EncodeToString(sum[:])
}

// Memoize returns the cached value for key or computes and stores it.
// The cache is best-effort: a read waits at most timeout and any cache error
// is treated as a miss. The write runs in the background after compute
// returns, so a slow cache never delays the result. The boolean reports a
// cache hit. A nil cache always computes.
func Memoize[T any](
	ctx context.Context,
	cache driven.Cache,
	key string,
	ttl, timeout time.Duration,
	compute func(ctx context.Context) (T, error),
) (T, bool, error) {
	if cache != nil {
		if v, ok := cacheGet[T](ctx, cache, key, timeout); ok {
			return v, true, nil
		}
	}

	v, err := compute(ctx)
	if err != nil {
		return v, false, err
	}

	if cache != nil {
		cacheSet(ctx, cache, key, v, ttl, timeout)
	}
	return v, false, nil
}

type cacheRead struct {
	data []byte
	err  error
}

// cacheGet reads key without trusting the adapter to honour its context.
func cacheGet[T any](ctx context.Context, cache driven.Cache, key string, timeout time.Duration) (T, bool) {
	var v T

	cctx, cancel := withOptionalTimeout(ctx, timeout)
	defer cancel()

	done := make(chan cacheRead, 1)
	go func() {
		data, err := cache.Get(cctx, key)
		done <- cacheRead{data: data, err: err}
	}()

	var r cacheRead
	select {
	case r = <-done:
	case <-cctx.Done():
		logger.Debug("Cache read for %s abandoned: %v", shortKey(key), cctx.Err())
		return v, false
	}
	if r.err != nil {
		return v, false
	}
	if err := json.Unmarshal(r.data, &v); err != nil {
		logger.Debug("Discarding undecodable cache entry %s: %v", shortKey(key), err)
		return v, false
	}
	return v, true
}

// cacheSet stores v in the background. The write outlives ctx's
// cancellation but not timeout.
func cacheSet[T any](ctx context.Context, cache driven.Cache, key string, v T, ttl, timeout time.Duration) {
	data, err := json.Marshal(v)
	if err != nil {
		return
	}

	go func() {
		cctx, cancel := withOptionalTimeout(context.WithoutCancel(ctx), timeout)
		defer cancel()

		if err := cache.Set(cctx, key, data, ttl); err != nil {
			logger.Debug("Cache write for %s failed: %v", shortKey(key), err)
		}
	}()
}

// withOptionalTimeout applies timeout when it is positive.
func withOptionalTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}

func shortKey(key string) string {
	if len(key) > 12 {
		return key[:12]
	}
	return key
}
