package events

import (
	"context"

	"ghl-oauth-manager/internal/common/errors"
	"ghl-oauth-manager/internal/redis"
)

// RedisPublisher sends events with Redis PUBLISH on a single channel.
type RedisPublisher struct {
	client  *redis.Client
	channel string
}

// NewRedisPublisher creates a publisher on an already connected client.
// The client is owned by the caller and not closed by Close.
func NewRedisPublisher(client *redis.Client, channel string) (*RedisPublisher, error) {
	if client == nil {
		return nil, errors.ConfigError("redis client is required for redis events")
	}
	if channel == "" {
		return nil, errors.ConfigError("events channel is required")
	}
	return &RedisPublisher{client: client, channel: channel}, nil
}

func (p *RedisPublisher) Publish(ctx context.Context, event Event) error {
	data, err := event.Marshal()
	if err != nil {
		return errors.InternalError("failed to encode event", err)
	}
	if err := p.client.Publish(ctx, p.channel, data); err != nil {
		return errors.ConnectionError("failed to publish event to redis", err)
	}
	return nil
}

func (p *RedisPublisher) Close() error { return nil }
