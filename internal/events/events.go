// Package events publishes installation lifecycle notifications to other
// services. Events carry ids and statuses only, never tokens.
package events

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"ghl-oauth-manager/internal/common/logging"
)

// Type names a lifecycle event
type Type string

const (
	InstallationCreated Type = "installation.created"
	TokenRefreshed      Type = "token.refreshed"
	TokenRefreshFailed  Type = "token.refresh_failed"
	// TokenRefreshRetrying reports a transient failure; the refresh is retried.
	TokenRefreshRetrying Type = "token.refresh_retrying"
	LocationConverted    Type = "location_token.converted"
	InstallationDeleted  Type = "installation.deleted"
)

// Event is a lifecycle notification
type Event struct {
	Type           Type      `json:"type"`
	InstallationID string    `json:"installation_id"`
	LocationID     string    `json:"location_id,omitempty"`
	Status         string    `json:"status,omitempty"`
	Error          string    `json:"error,omitempty"`
	Timestamp      time.Time `json:"timestamp"`
}

// Publisher sends events to a backend
type Publisher interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}

// Marshal encodes the event, stamping Timestamp when unset.
func (e Event) Marshal() ([]byte, error) {
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}
	return json.Marshal(e)
}

// NoopPublisher drops every event
type NoopPublisher struct{}

func (NoopPublisher) Publish(ctx context.Context, event Event) error { return nil }
func (NoopPublisher) Close() error                                   { return nil }

// Emitter wraps a Publisher so that failures are logged and swallowed.
// Lifecycle operations never fail because a notification could not be sent.
type Emitter struct {
	publisher Publisher
	logger    logging.Logger

	mu       sync.Mutex
	closed   bool
	inflight sync.WaitGroup
}

// NewEmitter wraps publisher. A nil publisher drops events.
func NewEmitter(publisher Publisher) *Emitter {
	if publisher == nil {
		publisher = NoopPublisher{}
	}
	return &Emitter{
		publisher: publisher,
		logger:    logging.GetGlobalLogger().WithFields(logging.Field{Key: "component", Value: "events"}),
	}
}

// Emit publishes event in the background with a short deadline. Events
// emitted after Close are dropped.
func (e *Emitter) Emit(event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		e.logger.Debug("Dropping lifecycle event after close",
			logging.Field{Key: "event_type", Value: string(event.Type)})
		return
	}
	e.inflight.Add(1)
	e.mu.Unlock()

	go func() {
		defer e.inflight.Done()
		e.send(event)
	}()
}

// EmitSync publishes event and waits for the outcome.
func (e *Emitter) EmitSync(ctx context.Context, event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	e.sendWithContext(ctx, event)
}

func (e *Emitter) send(event Event) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	e.sendWithContext(ctx, event)
}

func (e *Emitter) sendWithContext(ctx context.Context, event Event) {
	if err := e.publisher.Publish(ctx, event); err != nil {
		e.logger.Warn("Failed to publish lifecycle event",
			logging.Field{Key: "event_type", Value: string(event.Type)},
			logging.Field{Key: "installation_id", Value: event.InstallationID},
			logging.Field{Key: "error", Value: err.Error()},
		)
	}
}

// Close waits for in-flight publishes, then closes the underlying publisher
func (e *Emitter) Close() error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	e.closed = true
	e.mu.Unlock()

	e.inflight.Wait()
	return e.publisher.Close()
}
