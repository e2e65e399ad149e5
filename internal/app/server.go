package app

import (
	"net/http"

	"ghl-oauth-manager/internal/handlers"
	"ghl-oauth-manager/internal/server"

	"github.com/gorilla/mux"
)

// RunServer builds the router and the HTTP server. The server is not started.
func (app *App) RunServer() (*server.Server, http.Handler) {
	h := handlers.New(app.Manager, app.Config, app.Version)

	router := mux.NewRouter()
	SetupRoutes(router, h, app.InitializeRateLimiter())

	srv := server.New(router, app.Config.Port, app.Config.TLSCertFile, app.Config.TLSKeyFile)
	return srv, router
}
