package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultKeyPrefix = "directory:revalidate:"

// RedisStoreConfig contains configuration for RedisStore.
type RedisStoreConfig struct {
	Client    *redis.Client
	KeyPrefix string
}

// RedisStore implements Store on Redis so several instances share one revalidation window.
type RedisStore struct {
	client    *redis.Client
	keyPrefix string
}

// NewRedisStore creates a new Redis-based store.
func NewRedisStore(cfg RedisStoreConfig) *RedisStore {
	keyPrefix := cfg.KeyPrefix
	if keyPrefix == "" {
		keyPrefix = defaultKeyPrefix
	}

	return &RedisStore{
		client:    cfg.Client,
		keyPrefix: keyPrefix,
	}
}

func (s *RedisStore) key(k string) string {
	return s.keyPrefix + k
}

// Get returns the stored value or ErrMiss.
func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := s.client.Get(ctx, s.key(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrMiss
		}
		return nil, fmt.Errorf("failed to get cache entry: %w", err)
	}
	return val, nil
}

// Set stores value with the given TTL.
func (s *RedisStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := s.client.Set(ctx, s.key(key), value, ttl).Err(); err != nil {
		return fmt.Errorf("failed to set cache entry: %w", err)
	}
	return nil
}

// Delete removes key.
func (s *RedisStore) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.key(key)).Err(); err != nil {
		return fmt.Errorf("failed to delete cache entry: %w", err)
	}
	return nil
}
