package document

import (
	"context"
	"sync"

	id "verdeck/pkg/domain"
)

// RecordStore persists document metadata. ListByEntity returns records in
// upload order.
type RecordStore interface {
	Create(ctx context.Context, record Record) error
	ListByEntity(ctx context.Context, entityID id.EntityID) ([]Record, error)
}

// InMemoryRecordStore keeps metadata per entity; favors clarity over
// performance, same as the other memory stores.
type InMemoryRecordStore struct {
	mu      sync.RWMutex
	records map[id.EntityID][]Record
}

func NewInMemoryRecordStore() *InMemoryRecordStore {
	return &InMemoryRecordStore{records: make(map[id.EntityID][]Record)}
}

func (s *InMemoryRecordStore) Create(_ context.Context, record Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[record.EntityID] = append(s.records[record.EntityID], record)
	return nil
}

func (s *InMemoryRecordStore) ListByEntity(_ context.Context, entityID id.EntityID) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Record{}, s.records[entityID]...), nil
}
