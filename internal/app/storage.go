package app

import (
	"fmt"

	"ghl-oauth-manager/internal/common/logging"
	"ghl-oauth-manager/internal/config"
	"ghl-oauth-manager/internal/installations"
	"ghl-oauth-manager/internal/locks"
)

func (app *App) initializeStorage() error {
	cfg := app.Config

	switch cfg.StoreType {
	case config.StorePostgres, "postgresql":
		app.Logger.Info("Store: PostgreSQL",
			logging.Field{Key: "host", Value: cfg.PostgresHost},
			logging.Field{Key: "port", Value: cfg.PostgresPort},
			logging.Field{Key: "database", Value: cfg.PostgresDB},
		)
	case config.StoreSQLite:
		app.Logger.Info("Store: SQLite", logging.Field{Key: "path", Value: cfg.DatabasePath})
	case config.StoreRedis:
		app.Logger.Info("Store: Redis", logging.Field{Key: "address", Value: cfg.RedisAddress})
	default:
		app.Logger.Warn("Store: in-memory, installations are lost on restart")
	}

	store, err := installations.Open(cfg, app.RedisClient)
	if err != nil {
		return fmt.Errorf("failed to initialize installation store: %w", err)
	}
	if cfg.EncryptionKey == "" && cfg.StoreType != "" && cfg.StoreType != config.StoreMemory {
		app.Logger.Warn("CONFIG_ENCRYPTION_KEY not set, tokens are stored unencrypted")
	}

	app.Store = store
	return nil
}

func (app *App) initializeLocks() {
	if app.RedisClient == nil {
		// Processes sharing one database coordinate through row leases.
		if sqlStore, ok := app.Store.(*installations.SQLStore); ok {
			app.Locker = sqlStore.Locker()
			app.Logger.Info("Distributed Locks: SQL leases")
			return
		}
		app.Locker = locks.NoopLocker{}
		return
	}

	locker, err := locks.NewRedsyncManager(app.RedisClient)
	if err != nil {
		app.Logger.Warn("Distributed locks unavailable, refreshes are serialized per process only",
			logging.Field{Key: "error", Value: err.Error()})
		app.Locker = locks.NoopLocker{}
		return
	}
	app.Locker = locker
	app.Logger.Info("Distributed Locks: Enabled")
}
