// Package ratelimit limits inbound requests per client key. A local limiter
// uses golang.org/x/time/rate; with Redis configured a distributed limiter
// shares the window across replicas.
package ratelimit

import (
	"context"
	"time"
)

// Limiter defines the rate limiting interface used by the HTTP middleware
type Limiter interface {
	// TryAcquireForKey reports whether one more request for key is allowed
	TryAcquireForKey(key string) bool
	// Limit is the number of requests allowed per window
	Limit() int
	Stats() map[string]interface{}
	Health() error
}

// RedisInterface defines the minimal Redis interface needed for rate limiting
type RedisInterface interface {
	CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, int, error)
	Health() error
}
