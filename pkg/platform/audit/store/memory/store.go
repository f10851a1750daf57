// Package memory is the in-memory audit store used in tests and local dev.
package memory

import (
	"context"
	"sync"

	"stampd/pkg/platform/audit"
)

// Store keeps events in memory.
type Store struct {
	mu     sync.Mutex
	events []audit.Event
}

// New builds an empty Store.
func New() *Store {
	return &Store{}
}

// Append implements audit.Store.
func (s *Store) Append(_ context.Context, event audit.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

// Events returns a snapshot of everything appended so far.
func (s *Store) Events() []audit.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]audit.Event, len(s.events))
	copy(out, s.events)
	return out
}
