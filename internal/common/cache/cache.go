// Package cache provides the in-process cache used for short-lived derived
// tokens. Entries never leave the process.
package cache

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// Cache defines the interface for cache operations
type Cache interface {
	Get(ctx context.Context, key string) (interface{}, bool)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Clear(ctx context.Context) error
	Len() int
}

// LocalCache wraps patrickmn/go-cache for in-memory caching
type LocalCache struct {
	cache *gocache.Cache
}

// NewLocalCache creates a new local cache instance
func NewLocalCache(defaultTTL, cleanupInterval time.Duration) *LocalCache {
	return &LocalCache{
		cache: gocache.New(defaultTTL, cleanupInterval),
	}
}

// Get retrieves a value from the local cache
func (l *LocalCache) Get(ctx context.Context, key string) (interface{}, bool) {
	return l.cache.Get(key)
}

// GetWithExpiration returns the value and the time it expires (zero when it never does)
func (l *LocalCache) GetWithExpiration(key string) (interface{}, time.Time, bool) {
	return l.cache.GetWithExpiration(key)
}

// Set stores a value. A ttl <= 0 stores nothing: the value is already stale.
func (l *LocalCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if ttl <= 0 {
		l.cache.Delete(key)
		return nil
	}
	l.cache.Set(key, value, ttl)
	return nil
}

// Delete removes a value from the local cache
func (l *LocalCache) Delete(ctx context.Context, key string) error {
	l.cache.Delete(key)
	return nil
}

// Clear removes all items from the local cache
func (l *LocalCache) Clear(ctx context.Context) error {
	l.cache.Flush()
	return nil
}

// Len returns the number of cached items, including expired ones not yet evicted
func (l *LocalCache) Len() int {
	return l.cache.ItemCount()
}

var _ Cache = (*LocalCache)(nil)
