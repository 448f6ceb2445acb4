package cache

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-redsync/redsync/v4"
	"github.com/go-redsync/redsync/v4/redis/goredis/v9"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// RedisCache is the shared read cache. Every key is stored under keyPrefix
// so several services can share one Redis.
type RedisCache struct {
	client    redis.UniversalClient
	rs        *redsync.Redsync
	keyPrefix string
	log       zerolog.Logger
}

// NewRedisCache connects to redisURL (a URL or a comma separated list of
// cluster addresses) and verifies the connection.
func NewRedisCache(ctx context.Context, redisURL, keyPrefix string, log zerolog.Logger) (*RedisCache, error) {
	client, err := NewRedisClient(ctx, redisURL, log)
	if err != nil {
		return nil, err
	}
	return NewRedisCacheFromClient(client, keyPrefix, log), nil
}

// NewRedisCacheFromClient wraps an existing client.
func NewRedisCacheFromClient(client redis.UniversalClient, keyPrefix string, log zerolog.Logger) *RedisCache {
	return &RedisCache{
		client:    client,
		rs:        redsync.New(goredis.NewPool(client)),
		keyPrefix: keyPrefix,
		log:       log.With().Str("component", "redis-cache").Logger(),
	}
}

// NewRedisClient builds a universal client and pings it.
func NewRedisClient(ctx context.Context, redisURL string, log zerolog.Logger) (redis.UniversalClient, error) {
	if redisURL == "" {
		return nil, fmt.Errorf("Redis URL must be provided")
	}

	opts, err := buildUniversalOptions(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	if len(opts.Addrs) > 1 && opts.DB != 0 {
		log.Warn().Msg("ignoring non-zero DB when using Redis Cluster configuration")
		opts.DB = 0
	}

	client := redis.NewUniversalClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	log.Info().Msg("successfully connected to Redis")
	return client, nil
}

func buildUniversalOptions(raw string) (*redis.UniversalOptions, error) {
	opts := &redis.UniversalOptions{}

	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		if !strings.Contains(part, "://") {
			opts.Addrs = append(opts.Addrs, part)
			continue
		}

		parsed, err := redis.ParseURL(part)
		if err != nil {
			return nil, err
		}

		opts.Addrs = append(opts.Addrs, parsed.Addr)
		if opts.Username == "" {
			opts.Username = parsed.Username
		}
		if opts.Password == "" {
			opts.Password = parsed.Password
		}
		if opts.DB == 0 {
			opts.DB = parsed.DB
		}
		if opts.TLSConfig == nil {
			opts.TLSConfig = parsed.TLSConfig
		}
		if opts.ReadTimeout == 0 {
			opts.ReadTimeout = parsed.ReadTimeout
		}
		if opts.WriteTimeout == 0 {
			opts.WriteTimeout = parsed.WriteTimeout
		}
		if opts.DialTimeout == 0 {
			opts.DialTimeout = parsed.DialTimeout
		}
		if opts.PoolSize == 0 {
			opts.PoolSize = parsed.PoolSize
		}
	}

	if len(opts.Addrs) == 0 {
		return nil, fmt.Errorf("no Redis addresses provided")
	}

	return opts, nil
}

func (r *RedisCache) key(key string) string {
	return r.keyPrefix + key
}

// Client exposes the underlying client for components sharing the connection.
func (r *RedisCache) Client() redis.UniversalClient {
	return r.client
}

func (r *RedisCache) Get(ctx context.Context, key string) (string, error) {
	val, err := r.client.Get(ctx, r.key(key)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrCacheMiss
		}
		return "", fmt.Errorf("failed to get value from cache: %w", err)
	}
	return val, nil
}

func (r *RedisCache) Set(ctx context.Context, key string, value string, expiration time.Duration) error {
	return r.client.Set(ctx, r.key(key), value, expiration).Err()
}

// Invalidate unlinks one key.
func (r *RedisCache) Invalidate(ctx context.Context, key string) error {
	return r.client.Unlink(ctx, r.key(key)).Err()
}

// InvalidatePrefix unlinks every key starting with prefix.
func (r *RedisCache) InvalidatePrefix(ctx context.Context, prefix string) error {
	return r.DeletePattern(ctx, escapeGlob(r.key(prefix))+"*")
}

// DeletePattern scans for pattern and unlinks matches in batches.
func (r *RedisCache) DeletePattern(ctx context.Context, pattern string) error {
	var cursor uint64
	for {
		keys, next, err := r.client.Scan(ctx, cursor, pattern, 1000).Result()
		if err != nil {
			return fmt.Errorf("failed to scan keys: %w", err)
		}
		if len(keys) > 0 {
			pipe := r.client.Pipeline()
			for _, k := range keys {
				pipe.Unlink(ctx, k)
			}
			if _, err := pipe.Exec(ctx); err != nil {
				return fmt.Errorf("failed to unlink keys: %w", err)
			}
		}
		if next == 0 {
			return nil
		}
		cursor = next
	}
}

func (r *RedisCache) HealthCheck(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *RedisCache) Close() error {
	return r.client.Close()
}

// WithLock runs fn while holding a redsync mutex named lockName.
func WithLock(cache *RedisCache, lockName string, ttl time.Duration, fn func() error) error {
	mutex := cache.rs.NewMutex(cache.key(lockName), redsync.WithExpiry(ttl))

	if err := mutex.Lock(); err != nil {
		return fmt.Errorf("acquire lock %s: %w", lockName, err)
	}

	defer func() {
		if _, err := mutex.Unlock(); err != nil {
			cache.log.Error().Err(err).Str("lock", lockName).Msg("failed to unlock mutex")
		}
	}()

	return fn()
}

// escapeGlob quotes the characters SCAN MATCH treats as wildcards.
func escapeGlob(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch r {
		case '*', '?', '[', ']', '\\':
			b.WriteRune('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
