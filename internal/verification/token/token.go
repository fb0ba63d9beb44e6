// Package token manages single-use, time-bounded email verification tokens.
//
// At most one live token exists per entity: issuing a new one replaces the
// previous. Expiry is passive; a token simply fails validation after its
// deadline. No background sweep is required for correctness, only for
// storage hygiene, which the Redis implementation gets for free from TTLs.
package token

import (
	"context"
	"errors"
	"fmt"
	"time"

	"verdeck/internal/verification/secrets"
	id "verdeck/pkg/domain"
	"verdeck/pkg/platform/sentinel"
)

// Store persists token hashes keyed by entity. Put replaces any previous
// hash for the entity.
type Store interface {
	Put(ctx context.Context, entityID id.EntityID, hash string, ttl time.Duration) error
	// Get returns the live hash, sentinel.ErrNotFound when none exists, or
	// sentinel.ErrExpired when the deadline has passed.
	Get(ctx context.Context, entityID id.EntityID) (string, error)
	Delete(ctx context.Context, entityID id.EntityID) error
}

// Manager issues and consumes verification tokens against a Store.
type Manager struct {
	store Store
	ttl   time.Duration
}

func NewManager(store Store, ttl time.Duration) (*Manager, error) {
	if ttl <= 0 {
		return nil, fmt.Errorf("token ttl must be positive: %w", sentinel.ErrInvalidState)
	}
	return &Manager{store: store, ttl: ttl}, nil
}

// Issue creates a fresh token for the entity, invalidating any previous one,
// and returns the plaintext. The plaintext exists only in the return value
// and the notification payload; the store holds the bcrypt hash.
func (m *Manager) Issue(ctx context.Context, entityID id.EntityID) (string, error) {
	plaintext, err := secrets.Generate()
	if err != nil {
		return "", err
	}
	hash, err := secrets.Hash(plaintext)
	if err != nil {
		return "", err
	}
	if err := m.store.Put(ctx, entityID, hash, m.ttl); err != nil {
		return "", fmt.Errorf("store verification token: %w", err)
	}
	return plaintext, nil
}

// Consume validates and invalidates the entity's live token. Returns
// sentinel.ErrNotFound when no live token exists, sentinel.ErrExpired past
// the deadline, and sentinel.ErrAlreadyUsed on hash mismatch is deliberately
// NOT distinguished: a wrong token reports ErrNotFound so callers cannot
// probe whether a live token exists.
func (m *Manager) Consume(ctx context.Context, entityID id.EntityID, plaintext string) error {
	hash, err := m.store.Get(ctx, entityID)
	if err != nil {
		return err
	}
	if !secrets.Compare(hash, plaintext) {
		return sentinel.ErrNotFound
	}
	if err := m.store.Delete(ctx, entityID); err != nil && !errors.Is(err, sentinel.ErrNotFound) {
		return fmt.Errorf("consume verification token: %w", err)
	}
	return nil
}

// TTL exposes the configured token lifetime for notification payloads.
func (m *Manager) TTL() time.Duration { return m.ttl }
