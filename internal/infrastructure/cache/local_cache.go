package cache

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru"
)

type localEntry struct {
	value     string
	expiresAt time.Time
}

// LocalCache is an in-process LRU used where no shared Redis is configured.
type LocalCache struct {
	mu    sync.Mutex
	items *lru.Cache
	now   func() time.Time
}

// NewLocalCache holds at most size entries.
func NewLocalCache(size int) (*LocalCache, error) {
	items, err := lru.New(size)
	if err != nil {
		return nil, fmt.Errorf("create local cache: %w", err)
	}
	return &LocalCache{items: items, now: time.Now}, nil
}

func (l *LocalCache) Get(_ context.Context, key string) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	raw, ok := l.items.Get(key)
	if !ok {
		return "", ErrCacheMiss
	}
	entry := raw.(localEntry)
	if !entry.expiresAt.IsZero() && !l.now().Before(entry.expiresAt) {
		l.items.Remove(key)
		return "", ErrCacheMiss
	}
	return entry.value, nil
}

// Set stores value; expiration <= 0 keeps it until evicted.
func (l *LocalCache) Set(_ context.Context, key string, value string, expiration time.Duration) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry := localEntry{value: value}
	if expiration > 0 {
		entry.expiresAt = l.now().Add(expiration)
	}
	l.items.Add(key, entry)
	return nil
}

func (l *LocalCache) Invalidate(_ context.Context, key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.items.Remove(key)
	return nil
}

func (l *LocalCache) InvalidatePrefix(_ context.Context, prefix string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, k := range l.items.Keys() {
		if key, ok := k.(string); ok && strings.HasPrefix(key, prefix) {
			l.items.Remove(key)
		}
	}
	return nil
}

// Len returns the number of entries, expired ones included.
func (l *LocalCache) Len() int {
	return l.items.Len()
}
