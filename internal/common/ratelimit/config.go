package ratelimit

import (
	"fmt"
	"time"
)

// BackendType defines the rate limiter backend
type BackendType string

const (
	BackendLocal       BackendType = "local"
	BackendDistributed BackendType = "distributed"
)

// Config represents rate limiter configuration: MaxRequests per Window per key.
type Config struct {
	MaxRequests int           `json:"max_requests"`
	Window      time.Duration `json:"window"`
	Enabled     bool          `json:"enabled"`
	Type        BackendType   `json:"type"`

	// KeyPrefix namespaces Redis keys of the distributed backend
	KeyPrefix string `json:"key_prefix,omitempty"`

	// Idle key eviction for the local backend
	MaxKeys       int           `json:"max_keys,omitempty"`
	CleanupPeriod time.Duration `json:"cleanup_period,omitempty"`
}

// DefaultConfig returns a default rate limiter configuration
func DefaultConfig() Config {
	return Config{
		MaxRequests:   60,
		Window:        time.Minute,
		Enabled:       true,
		Type:          BackendLocal,
		KeyPrefix:     "ghl:ratelimit:",
		MaxKeys:       10000,
		CleanupPeriod: 5 * time.Minute,
	}
}

// Validate fills defaults and rejects unusable values
func (c *Config) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.MaxRequests <= 0 {
		return fmt.Errorf("rate limit max requests must be positive, got %d", c.MaxRequests)
	}
	if c.Window <= 0 {
		return fmt.Errorf("rate limit window must be positive, got %v", c.Window)
	}

	if c.Type == "" {
		c.Type = BackendLocal
	}
	switch c.Type {
	case BackendLocal:
		if c.MaxKeys <= 0 {
			c.MaxKeys = 10000
		}
		if c.CleanupPeriod <= 0 {
			c.CleanupPeriod = 5 * time.Minute
		}
	case BackendDistributed:
		if c.KeyPrefix == "" {
			c.KeyPrefix = "ghl:ratelimit:"
		}
	default:
		return fmt.Errorf("unsupported rate limiter backend type: %s", c.Type)
	}
	return nil
}

// New creates the limiter for config.Type. The distributed backend needs a Redis client.
func New(config Config, redisClient RedisInterface) (Limiter, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if config.Type == BackendDistributed {
		return NewDistributedLimiter(config, redisClient)
	}
	return NewLocalLimiter(config)
}
