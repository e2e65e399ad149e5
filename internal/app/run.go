package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"ghl-oauth-manager/internal/common/logging"
	"ghl-oauth-manager/internal/config"

	"github.com/joho/godotenv"
)

// ShutdownTimeout bounds the graceful HTTP shutdown
const ShutdownTimeout = 30 * time.Second

// Bootstrap loads env files (.env when none are given), initializes logging
// and returns the validated config. The caller owns logging.MustSync.
func Bootstrap(envFiles ...string) (*config.Config, error) {
	// Load environment variables. A missing default .env is fine.
	if err := godotenv.Load(envFiles...); err != nil && len(envFiles) > 0 {
		return nil, fmt.Errorf("failed to load env file: %w", err)
	}

	if err := logging.InitGlobalLogger(); err != nil {
		return nil, err
	}

	// Load and validate configuration
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logging.Error("Configuration validation failed", err)
		return nil, err
	}
	return cfg, nil
}

// Run is the main entry point for the service
func Run(version string) error {
	cfg, err := Bootstrap()
	if err != nil {
		return err
	}
	defer logging.MustSync()

	logging.Info("Starting GHL OAuth manager",
		logging.Field{Key: "cpus", Value: runtime.NumCPU()},
		logging.Field{Key: "version", Value: version},
		logging.Field{Key: "store", Value: cfg.StoreType},
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return Serve(ctx, cfg, version)
}

// Serve runs the service until ctx is cancelled or the listener fails,
// then shuts down the HTTP server before the manager and the stores.
func Serve(ctx context.Context, cfg *config.Config, version string) error {
	app, err := New(cfg, version)
	if err != nil {
		logging.Error("Failed to initialize application", err)
		return err
	}
	defer app.Cleanup()

	if err := app.Start(ctx); err != nil {
		logging.Error("Failed to start lifecycle manager", err)
		return err
	}

	srv, _ := app.RunServer()
	if err := srv.Start(); err != nil {
		logging.Error("Server failed to start", err)
		return err
	}

	var serveErr error
	select {
	case <-ctx.Done():
		logging.Info("Shutting down server...")
	case serveErr = <-srv.Errors():
		logging.Error("Server stopped unexpectedly", serveErr)
	}

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logging.Error("Server forced to shutdown", err)
		return err
	}

	logging.Info("Server exited")
	return serveErr
}
