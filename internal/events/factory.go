package events

import (
	"fmt"

	"ghl-oauth-manager/internal/config"
	"ghl-oauth-manager/internal/redis"
)

// NewPublisher builds the publisher selected by EVENTS_BACKEND.
func NewPublisher(cfg *config.Config, redisClient *redis.Client) (Publisher, error) {
	switch cfg.EventsBackend {
	case "", config.EventsNone:
		return NoopPublisher{}, nil
	case config.EventsRedis:
		return NewRedisPublisher(redisClient, cfg.EventsChannel)
	case config.EventsRabbitMQ:
		return NewRabbitMQPublisher(cfg.RabbitMQURL, cfg.EventsExchange, nil)
	default:
		return nil, fmt.Errorf("unsupported events backend: %s", cfg.EventsBackend)
	}
}
