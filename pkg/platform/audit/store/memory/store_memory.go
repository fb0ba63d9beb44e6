package memory

import (
	"context"
	"sync"

	id "verdeck/pkg/domain"
	audit "verdeck/pkg/platform/audit"
)

// InMemoryStore keeps audit entries per entity in append order. Used by unit
// tests and single-process deployments.
type InMemoryStore struct {
	mu      sync.RWMutex
	entries map[id.EntityID][]audit.Entry
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{entries: make(map[id.EntityID][]audit.Entry)}
}

func (s *InMemoryStore) Append(_ context.Context, entry audit.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[entry.EntityID] = append(s.entries[entry.EntityID], entry)
	return nil
}

// ListByEntity returns a copy, oldest first.
func (s *InMemoryStore) ListByEntity(_ context.Context, entityID id.EntityID) ([]audit.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]audit.Entry{}, s.entries[entityID]...), nil
}

func (s *InMemoryStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = make(map[id.EntityID][]audit.Entry)
}
