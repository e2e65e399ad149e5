package events

import (
	"context"
	"sync"

	"ghl-oauth-manager/internal/common/errors"
	"ghl-oauth-manager/internal/common/logging"

	"github.com/streadway/amqp"
)

// Channel is the part of *amqp.Channel the publisher needs
type Channel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	Publish(exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// Dialer opens a channel to the broker
type Dialer func(url string) (Channel, func() error, error)

// RabbitMQPublisher publishes events to a durable fanout exchange. The
// channel is opened lazily and reopened after a publish failure.
type RabbitMQPublisher struct {
	url      string
	exchange string
	dial     Dialer
	logger   logging.Logger

	mu        sync.Mutex
	ch        Channel
	closeConn func() error
	closed    bool
}

// DialAMQP connects with streadway/amqp and opens one channel.
func DialAMQP(url string) (Channel, func() error, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, nil, err
	}
	return ch, conn.Close, nil
}

// NewRabbitMQPublisher validates the settings and connects once so that a
// bad URL is reported at startup.
func NewRabbitMQPublisher(url, exchange string, dial Dialer) (*RabbitMQPublisher, error) {
	if url == "" {
		return nil, errors.ConfigError("RABBITMQ_URL is required for rabbitmq events")
	}
	if exchange == "" {
		return nil, errors.ConfigError("events exchange is required")
	}
	if dial == nil {
		dial = DialAMQP
	}

	p := &RabbitMQPublisher{
		url:      url,
		exchange: exchange,
		dial:     dial,
		logger: logging.GetGlobalLogger().WithFields(
			logging.Field{Key: "component", Value: "events_rabbitmq"},
			logging.Field{Key: "exchange", Value: exchange},
		),
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.connectLocked(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *RabbitMQPublisher) connectLocked() error {
	ch, closeConn, err := p.dial(p.url)
	if err != nil {
		return errors.ConnectionError("failed to connect to RabbitMQ", err)
	}
	if err := ch.ExchangeDeclare(p.exchange, "fanout", true, false, false, false, nil); err != nil {
		ch.Close()
		if closeConn != nil {
			closeConn()
		}
		return errors.ConnectionError("failed to declare events exchange", err)
	}
	p.ch = ch
	p.closeConn = closeConn
	return nil
}

func (p *RabbitMQPublisher) resetLocked() {
	if p.ch != nil {
		p.ch.Close()
		p.ch = nil
	}
	if p.closeConn != nil {
		p.closeConn()
		p.closeConn = nil
	}
}

func (p *RabbitMQPublisher) Publish(ctx context.Context, event Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	body, err := event.Marshal()
	if err != nil {
		return errors.InternalError("failed to encode event", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return errors.ConnectionError("events publisher is closed", nil)
	}
	if p.ch == nil {
		if err := p.connectLocked(); err != nil {
			return err
		}
	}

	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    event.Timestamp,
		Type:         string(event.Type),
		Body:         body,
	}
	if err := p.ch.Publish(p.exchange, string(event.Type), false, false, msg); err != nil {
		p.logger.Warn("RabbitMQ publish failed, channel will be reopened",
			logging.Field{Key: "error", Value: err.Error()},
		)
		p.resetLocked()
		return errors.ConnectionError("failed to publish event to RabbitMQ", err)
	}
	return nil
}

func (p *RabbitMQPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	p.resetLocked()
	return nil
}
