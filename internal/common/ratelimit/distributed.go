package ratelimit

import (
	"context"
	"fmt"
	"time"

	"ghl-oauth-manager/internal/common/logging"
)

// distributedLimiter implements a Redis sliding window shared by all replicas
type distributedLimiter struct {
	config      Config
	redisClient RedisInterface
	logger      logging.Logger
}

// NewDistributedLimiter creates a new Redis-backed limiter
func NewDistributedLimiter(config Config, redisClient RedisInterface) (Limiter, error) {
	config.Type = BackendDistributed
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if redisClient == nil {
		return nil, fmt.Errorf("redis client is required for distributed rate limiter")
	}

	return &distributedLimiter{
		config:      config,
		redisClient: redisClient,
		logger:      logging.GetGlobalLogger().WithFields(logging.Field{Key: "component", Value: "ratelimit"}),
	}, nil
}

// TryAcquireForKey checks the shared window. Redis errors fail open.
func (rl *distributedLimiter) TryAcquireForKey(key string) bool {
	if !rl.config.Enabled {
		return true
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	allowed, _, err := rl.redisClient.CheckRateLimit(ctx, rl.config.KeyPrefix+key, rl.config.MaxRequests, rl.config.Window)
	if err != nil {
		rl.logger.Warn("Rate limit check failed, allowing request", logging.Field{Key: "error", Value: err.Error()})
		return true
	}
	return allowed
}

func (rl *distributedLimiter) Limit() int {
	return rl.config.MaxRequests
}

// Stats returns rate limiter statistics
func (rl *distributedLimiter) Stats() map[string]interface{} {
	return map[string]interface{}{
		"type":         string(BackendDistributed),
		"enabled":      rl.config.Enabled,
		"max_requests": rl.config.MaxRequests,
		"window":       rl.config.Window.String(),
		"key_prefix":   rl.config.KeyPrefix,
	}
}

// Health checks the Redis connection
func (rl *distributedLimiter) Health() error {
	return rl.redisClient.Health()
}

var _ Limiter = (*distributedLimiter)(nil)
