package app

import (
	"strconv"

	"ghl-oauth-manager/internal/common/logging"
	"ghl-oauth-manager/internal/config"
	"ghl-oauth-manager/internal/redis"
)

func (app *App) initializeRedis() error {
	if !app.Config.RedisEnabled() {
		app.Logger.Info("Redis: Not configured (distributed locks and shared rate limits disabled)")
		return nil
	}

	// Convert config values
	redisDB, _ := strconv.Atoi(app.Config.RedisDB)
	redisPoolSize, _ := strconv.Atoi(app.Config.RedisPoolSize)

	redisConfig := &redis.Config{
		Address:  app.Config.RedisAddress,
		Password: app.Config.RedisPassword,
		DB:       redisDB,
		PoolSize: redisPoolSize,
	}

	redisClient, err := redis.NewClient(redisConfig)
	if err != nil {
		return err
	}

	app.RedisClient = redisClient
	app.Logger.Info("Redis: Connected", logging.Field{Key: "address", Value: app.Config.RedisAddress})
	return nil
}

// redisRequired reports whether a component cannot run without Redis
func (app *App) redisRequired() bool {
	return app.Config.StoreType == config.StoreRedis || app.Config.EventsBackend == config.EventsRedis
}
