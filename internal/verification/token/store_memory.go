package token

import (
	"context"
	"sync"
	"time"

	id "verdeck/pkg/domain"
	"verdeck/pkg/platform/sentinel"
)

type memoryRecord struct {
	hash      string
	expiresAt time.Time
}

// InMemoryStore holds token hashes with passive expiry. Expired records are
// removed lazily on read.
type InMemoryStore struct {
	mu     sync.Mutex
	tokens map[id.EntityID]memoryRecord
	now    func() time.Time
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{tokens: make(map[id.EntityID]memoryRecord), now: time.Now}
}

// WithClock swaps the time source for expiry tests.
func (s *InMemoryStore) WithClock(now func() time.Time) *InMemoryStore {
	s.now = now
	return s
}

func (s *InMemoryStore) Put(_ context.Context, entityID id.EntityID, hash string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[entityID] = memoryRecord{hash: hash, expiresAt: s.now().Add(ttl)}
	return nil
}

func (s *InMemoryStore) Get(_ context.Context, entityID id.EntityID) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.tokens[entityID]
	if !ok {
		return "", sentinel.ErrNotFound
	}
	if s.now().After(record.expiresAt) {
		delete(s.tokens, entityID)
		return "", sentinel.ErrExpired
	}
	return record.hash, nil
}

func (s *InMemoryStore) Delete(_ context.Context, entityID id.EntityID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tokens[entityID]; !ok {
		return sentinel.ErrNotFound
	}
	delete(s.tokens, entityID)
	return nil
}
