// Package flags implements the feature gate: a short-TTL in-memory cache over
// a persisted flag store. Reads fail closed. Any store error or timeout makes
// the gate report the flag as disabled, and the error is logged rather than
// returned.
package flags

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"

	"github.com/tbourn/go-delay-guarantee/internal/repo"
)

// Store is the persisted source of truth for flags. Get returns false with no
// error for flags that were never written.
type Store interface {
	Get(ctx context.Context, key string) (bool, error)
	Set(ctx context.Context, key string, enabled bool, actor string) error
}

// SQLStore keeps flags in the feature_flags table.
type SQLStore struct {
	DB *gorm.DB
}

// Get implements Store.
func (s *SQLStore) Get(ctx context.Context, key string) (bool, error) {
	f, err := repo.GetFlag(ctx, s.DB, key)
	if errors.Is(err, repo.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return f.Enabled, nil
}

// Set implements Store.
func (s *SQLStore) Set(ctx context.Context, key string, enabled bool, actor string) error {
	_, err := repo.UpsertFlag(ctx, s.DB, key, enabled, actor)
	return err
}

const redisFlagPrefix = "flags:"

// RedisStore keeps flags as "true"/"false" strings under flags:<key>.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore wraps an existing client.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

// Get implements Store.
func (s *RedisStore) Get(ctx context.Context, key string) (bool, error) {
	raw, err := s.client.Get(ctx, redisFlagPrefix+key).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("flag %q holds non-boolean value %q", key, raw)
	}
	return v, nil
}

// Set implements Store. Actor is not stored; Redis keeps only the value.
func (s *RedisStore) Set(ctx context.Context, key string, enabled bool, _ string) error {
	return s.client.Set(ctx, redisFlagPrefix+key, strconv.FormatBool(enabled), 0).Err()
}
