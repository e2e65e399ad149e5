package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// localLimiter keeps one token bucket per key
type localLimiter struct {
	mu       sync.Mutex
	config   Config
	limit    rate.Limit
	limiters map[string]*limiterEntry

	lastCleanup time.Time
}

type limiterEntry struct {
	limiter  *rate.Limiter
	lastUsed time.Time
}

// NewLocalLimiter creates a new in-memory limiter. Each key may burst up to
// MaxRequests and refills at MaxRequests per Window.
func NewLocalLimiter(config Config) (Limiter, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	var limit rate.Limit
	if config.Enabled {
		limit = rate.Every(config.Window / time.Duration(config.MaxRequests))
	}

	return &localLimiter{
		config:      config,
		limit:       limit,
		limiters:    make(map[string]*limiterEntry),
		lastCleanup: time.Now(),
	}, nil
}

// TryAcquireForKey attempts to acquire a token for a specific key
func (rl *localLimiter) TryAcquireForKey(key string) bool {
	if !rl.config.Enabled {
		return true
	}
	return rl.getLimiterForKey(key).Allow()
}

func (rl *localLimiter) Limit() int {
	return rl.config.MaxRequests
}

func (rl *localLimiter) getLimiterForKey(key string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	if now.Sub(rl.lastCleanup) > rl.config.CleanupPeriod {
		rl.cleanup(now)
	}

	entry, exists := rl.limiters[key]
	if !exists {
		entry = &limiterEntry{limiter: rate.NewLimiter(rl.limit, rl.config.MaxRequests)}
		rl.limiters[key] = entry
		if len(rl.limiters) > rl.config.MaxKeys {
			rl.cleanup(now)
		}
	}
	entry.lastUsed = now
	return entry.limiter
}

// cleanup drops buckets idle for a full cleanup period
func (rl *localLimiter) cleanup(now time.Time) {
	cutoff := now.Add(-rl.config.CleanupPeriod)
	for key, entry := range rl.limiters {
		if entry.lastUsed.Before(cutoff) {
			delete(rl.limiters, key)
		}
	}
	rl.lastCleanup = now
}

// Stats returns rate limiter statistics
func (rl *localLimiter) Stats() map[string]interface{} {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	return map[string]interface{}{
		"type":         string(BackendLocal),
		"enabled":      rl.config.Enabled,
		"max_requests": rl.config.MaxRequests,
		"window":       rl.config.Window.String(),
		"active_keys":  len(rl.limiters),
		"max_keys":     rl.config.MaxKeys,
	}
}

// Health always succeeds for the in-memory backend
func (rl *localLimiter) Health() error {
	return nil
}

var _ Limiter = (*localLimiter)(nil)
