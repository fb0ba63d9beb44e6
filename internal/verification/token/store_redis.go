package token

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	id "verdeck/pkg/domain"
	"verdeck/pkg/platform/sentinel"
)

// Redis key prefix for live verification tokens.
const tokenKeyPrefix = "evt:entity:"

// RedisStore is the production token store for multi-instance deployments.
// SET with TTL gives atomic replace-on-reissue and passive expiry; Redis
// evicting the key is exactly the token failing validation after deadline.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func key(entityID id.EntityID) string {
	return tokenKeyPrefix + entityID.String()
}

func (s *RedisStore) Put(ctx context.Context, entityID id.EntityID, hash string, ttl time.Duration) error {
	if err := s.client.Set(ctx, key(entityID), hash, ttl).Err(); err != nil {
		return fmt.Errorf("%w: set token: %v", sentinel.ErrUnavailable, err)
	}
	return nil
}

// Get cannot distinguish never-issued from expired once Redis evicts the
// key, so both report ErrNotFound. Callers treat the two identically.
func (s *RedisStore) Get(ctx context.Context, entityID id.EntityID) (string, error) {
	hash, err := s.client.Get(ctx, key(entityID)).Result()
	if errors.Is(err, redis.Nil) {
		return "", sentinel.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("%w: get token: %v", sentinel.ErrUnavailable, err)
	}
	return hash, nil
}

func (s *RedisStore) Delete(ctx context.Context, entityID id.EntityID) error {
	deleted, err := s.client.Del(ctx, key(entityID)).Result()
	if err != nil {
		return fmt.Errorf("%w: delete token: %v", sentinel.ErrUnavailable, err)
	}
	if deleted == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}
