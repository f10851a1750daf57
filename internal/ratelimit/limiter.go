// Package ratelimit applies a fixed-window request limit per client.
package ratelimit

import (
	"context"
	"time"
)

// Store counts hits per key within a window. Implementations must be safe
// for concurrent use.
type Store interface {
	// Incr bumps the counter for key, starting a fresh window when none is
	// active, and returns the count including this hit.
	Incr(ctx context.Context, key string, window time.Duration) (int64, error)
}

// Limiter enforces a maximum number of hits per key per window.
type Limiter struct {
	store  Store
	limit  int64
	window time.Duration
}

// New builds a Limiter.
func New(store Store, limit int, window time.Duration) *Limiter {
	return &Limiter{store: store, limit: int64(limit), window: window}
}

// Allow reports whether the key may proceed. Store failures propagate so the
// caller decides whether to fail open.
func (l *Limiter) Allow(ctx context.Context, key string) (bool, error) {
	count, err := l.store.Incr(ctx, key, l.window)
	if err != nil {
		return false, err
	}
	return count <= l.limit, nil
}
