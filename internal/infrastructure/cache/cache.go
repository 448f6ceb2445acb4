package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/zapsales/supervision-api/internal/domain/liveupdate"
)

// ErrCacheMiss is returned by Get when the key is absent or expired.
var ErrCacheMiss = errors.New("cache miss")

// Cache is a string cache that supports exact and prefix invalidation.
type Cache interface {
	liveupdate.Invalidator
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value string, expiration time.Duration) error
}

// GetJSON reads key and decodes it into T.
func GetJSON[T any](ctx context.Context, c Cache, key string) (*T, error) {
	val, err := c.Get(ctx, key)
	if err != nil {
		return nil, err
	}

	var obj T
	if err := json.Unmarshal([]byte(val), &obj); err != nil {
		return nil, fmt.Errorf("failed to unmarshal JSON from cache: %w", err)
	}
	return &obj, nil
}

// SetJSON encodes value and stores it under key.
func SetJSON(ctx context.Context, c Cache, key string, value any, expiration time.Duration) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal JSON for cache: %w", err)
	}
	return c.Set(ctx, key, string(payload), expiration)
}

// ReadThrough returns the cached value for key, or calls load and caches
// its result. Cache failures never fail the read; load errors are returned as is.
func ReadThrough[T any](ctx context.Context, c Cache, key string, expiration time.Duration, load func(ctx context.Context) (*T, error)) (*T, error) {
	if c != nil {
		if cached, err := GetJSON[T](ctx, c, key); err == nil {
			return cached, nil
		}
	}

	value, err := load(ctx)
	if err != nil {
		return nil, err
	}

	if c != nil {
		_ = SetJSON(ctx, c, key, value, expiration)
	}
	return value, nil
}
