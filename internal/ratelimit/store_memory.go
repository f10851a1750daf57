package ratelimit

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is the in-process fallback counter used when Redis is not
// configured. Windows are pruned lazily on access.
type MemoryStore struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	now     func() time.Time
}

type bucket struct {
	count   int64
	started time.Time
}

// NewMemoryStore builds an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		buckets: make(map[string]*bucket),
		now:     time.Now,
	}
}

// Incr implements Store.
func (s *MemoryStore) Incr(_ context.Context, key string, window time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	b, ok := s.buckets[key]
	if !ok || now.Sub(b.started) >= window {
		b = &bucket{started: now}
		s.buckets[key] = b
	}
	b.count++
	return b.count, nil
}
