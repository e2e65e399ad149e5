package app

import (
	"context"
	"fmt"

	"ghl-oauth-manager/internal/common/logging"
	"ghl-oauth-manager/internal/config"
	"ghl-oauth-manager/internal/events"
	"ghl-oauth-manager/internal/installations"
	"ghl-oauth-manager/internal/locks"
	"ghl-oauth-manager/internal/oauth2"
	"ghl-oauth-manager/internal/provider"
	"ghl-oauth-manager/internal/redis"
)

// App holds all the application dependencies
type App struct {
	Config      *config.Config
	Version     string
	Store       installations.Store
	RedisClient *redis.Client
	Locker      locks.Locker
	Events      *events.Emitter
	Provider    *provider.Client
	Manager     *oauth2.Manager
	Logger      logging.Logger
}

// New creates a new application instance with all dependencies
func New(cfg *config.Config, version string) (*App, error) {
	app := &App{
		Config:  cfg,
		Version: version,
		Logger:  logging.GetGlobalLogger().WithFields(logging.Field{Key: "component", Value: "app"}),
	}

	// Initialize components in order of dependency
	if err := app.initializeRedis(); err != nil {
		if app.redisRequired() {
			return nil, err
		}
		app.Logger.Warn("Redis initialization failed, continuing without Redis",
			logging.Field{Key: "error", Value: err.Error()})
	}

	if err := app.initializeStorage(); err != nil {
		app.Cleanup()
		return nil, err
	}

	app.initializeLocks()

	if err := app.initializeEvents(); err != nil {
		app.Cleanup()
		return nil, err
	}

	if err := app.initializeManager(); err != nil {
		app.Cleanup()
		return nil, err
	}

	return app, nil
}

func (app *App) initializeManager() error {
	cfg := app.Config

	app.Provider = provider.NewClient(provider.Config{
		BaseURL:        cfg.ProviderBaseURL,
		MarketplaceURL: cfg.MarketplaceURL,
		Scopes:         cfg.OAuthScopes,
		Timeout:        cfg.ProviderTimeout,
	})

	creds := oauth2.NewCredentialResolver(provider.Credentials{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		RedirectURI:  cfg.RedirectURI,
	})
	if !creds.Configured() {
		app.Logger.Warn("OAuth client credentials not configured; callbacks must supply oauth_credentials")
	}

	manager, err := oauth2.NewManager(oauth2.Options{
		Store:             app.Store,
		Provider:          app.Provider,
		Credentials:       creds,
		Directory:         app.Provider,
		EnableDiscovery:   cfg.EnableLocationDiscovery,
		Locker:            app.Locker,
		Events:            app.Events,
		RefreshPadding:    cfg.RefreshPadding,
		StatusBuffer:      cfg.StatusBuffer,
		RefreshBuffer:     cfg.RefreshBuffer,
		BulkConcurrency:   cfg.BulkRefreshConcurrency,
		AutoRefresh:       cfg.EnableAutoRefresh,
		ReconcileInterval: cfg.AutoRefreshInterval(),
		Retention:         cfg.Retention(),
	})
	if err != nil {
		return fmt.Errorf("failed to create lifecycle manager: %w", err)
	}
	app.Manager = manager

	app.Logger.Info("Token lifecycle manager ready",
		logging.Field{Key: "auto_refresh", Value: cfg.EnableAutoRefresh},
		logging.Field{Key: "reconcile_interval", Value: cfg.AutoRefreshInterval().String()},
		logging.Field{Key: "location_discovery", Value: cfg.EnableLocationDiscovery},
	)
	return nil
}

// Start arms refresh timers for stored installations
func (app *App) Start(ctx context.Context) error {
	return app.Manager.Start(ctx)
}

// Cleanup releases all resources. The manager goes first so no refresh
// writes to a closed store.
func (app *App) Cleanup() {
	if app.Manager != nil {
		if err := app.Manager.Close(); err != nil {
			app.Logger.Warn("Error stopping lifecycle manager", logging.Field{Key: "error", Value: err.Error()})
		}
	}
	if app.Events != nil {
		app.Events.Close()
	}
	if app.Locker != nil {
		app.Locker.Close()
	}
	if app.Store != nil {
		if err := app.Store.Close(); err != nil {
			app.Logger.Warn("Error closing installation store", logging.Field{Key: "error", Value: err.Error()})
		}
	}
	if app.RedisClient != nil {
		app.RedisClient.Close()
	}
}
