package app

import (
	"fmt"

	"ghl-oauth-manager/internal/common/logging"
	"ghl-oauth-manager/internal/events"
)

func (app *App) initializeEvents() error {
	publisher, err := events.NewPublisher(app.Config, app.RedisClient)
	if err != nil {
		return fmt.Errorf("failed to initialize event publisher: %w", err)
	}

	app.Events = events.NewEmitter(publisher)
	app.Logger.Info("Lifecycle events", logging.Field{Key: "backend", Value: app.Config.EventsBackend})
	return nil
}
