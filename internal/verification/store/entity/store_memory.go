// Package entity persists verification entities. Both implementations share
// the Execute contract: validate and mutate run atomically under a
// per-entity lock, which is what upholds the check-then-act invariants
// around submission and decision.
package entity

import (
	"context"
	"sort"
	"sync"

	"verdeck/internal/verification/models"
	id "verdeck/pkg/domain"
	"verdeck/pkg/platform/sentinel"
)

// InMemory keeps entities in a map guarded by per-entity mutexes. Mutations
// on different entities proceed fully in parallel; mutations on the same
// entity serialize.
type InMemory struct {
	mu       sync.RWMutex
	entities map[id.EntityID]*models.Entity
	locks    sync.Map // id.EntityID -> *sync.Mutex
}

func NewInMemory() *InMemory {
	return &InMemory{entities: make(map[id.EntityID]*models.Entity)}
}

func (s *InMemory) entityLock(entityID id.EntityID) *sync.Mutex {
	lock, _ := s.locks.LoadOrStore(entityID, &sync.Mutex{})
	return lock.(*sync.Mutex)
}

func (s *InMemory) Create(_ context.Context, entity *models.Entity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.entities[entity.ID]; exists {
		return sentinel.ErrConflict
	}
	s.entities[entity.ID] = entity.Clone()
	return nil
}

func (s *InMemory) FindByID(_ context.Context, entityID id.EntityID) (*models.Entity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entity, ok := s.entities[entityID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return entity.Clone(), nil
}

// Execute runs validate then mutate on the entity while holding its lock.
// The mutated copy replaces the stored one only when validate passes; the
// returned entity is a private clone.
func (s *InMemory) Execute(ctx context.Context, entityID id.EntityID, validate func(*models.Entity) error, mutate func(*models.Entity)) (*models.Entity, error) {
	lock := s.entityLock(entityID)
	lock.Lock()
	defer lock.Unlock()

	s.mu.RLock()
	stored, ok := s.entities[entityID]
	s.mu.RUnlock()
	if !ok {
		return nil, sentinel.ErrNotFound
	}

	working := stored.Clone()
	if err := validate(working); err != nil {
		return nil, err
	}
	mutate(working)

	s.mu.Lock()
	s.entities[entityID] = working
	s.mu.Unlock()
	return working.Clone(), nil
}

// ListSubmitted returns entities awaiting review, oldest submission first.
// Kind filters when non-empty.
func (s *InMemory) ListSubmitted(_ context.Context, kind id.EntityKind) ([]*models.Entity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var pending []*models.Entity
	for _, entity := range s.entities {
		if entity.Status != models.StatusSubmitted {
			continue
		}
		if kind != "" && entity.Kind != kind {
			continue
		}
		pending = append(pending, entity.Clone())
	}
	sort.Slice(pending, func(i, j int) bool {
		return pending[i].SubmittedAt.Before(*pending[j].SubmittedAt)
	})
	return pending, nil
}
