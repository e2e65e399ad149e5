package app

import (
	"strconv"
	"time"

	"ghl-oauth-manager/internal/common/logging"
	"ghl-oauth-manager/internal/common/ratelimit"
)

// InitializeRateLimiter creates the limiter for the callback and bulk
// refresh endpoints. Limits are shared across replicas when Redis is
// available. Returns nil when rate limiting is disabled.
func (app *App) InitializeRateLimiter() ratelimit.Limiter {
	if !app.Config.RateLimitEnabled {
		app.Logger.Info("Rate Limiting: Disabled")
		return nil
	}

	// Parse rate limit configuration
	defaultLimit, _ := strconv.Atoi(app.Config.RateLimitDefault)
	if defaultLimit <= 0 {
		defaultLimit = 60
	}
	window, _ := time.ParseDuration(app.Config.RateLimitWindow)
	if window <= 0 {
		window = time.Minute
	}

	rateLimitConfig := ratelimit.DefaultConfig()
	rateLimitConfig.MaxRequests = defaultLimit
	rateLimitConfig.Window = window

	var redisBackend ratelimit.RedisInterface
	if app.RedisClient != nil {
		rateLimitConfig.Type = ratelimit.BackendDistributed
		redisBackend = app.RedisClient
	}

	limiter, err := ratelimit.New(rateLimitConfig, redisBackend)
	if err != nil {
		app.Logger.Warn("Distributed rate limiter unavailable, falling back to local",
			logging.Field{Key: "error", Value: err.Error()})
		rateLimitConfig.Type = ratelimit.BackendLocal
		limiter, err = ratelimit.NewLocalLimiter(rateLimitConfig)
		if err != nil {
			app.Logger.Error("Rate limiter disabled", err)
			return nil
		}
	}

	app.Logger.Info("Rate Limiting: Enabled",
		logging.Field{Key: "limit", Value: defaultLimit},
		logging.Field{Key: "window", Value: window.String()},
		logging.Field{Key: "backend", Value: string(rateLimitConfig.Type)},
	)
	return limiter
}
