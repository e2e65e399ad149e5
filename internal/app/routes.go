package app

import (
	"net/http"

	"ghl-oauth-manager/internal/common/ratelimit"
	"ghl-oauth-manager/internal/handlers"
	"ghl-oauth-manager/internal/middleware"

	"github.com/gorilla/mux"
	httpSwagger "github.com/swaggo/http-swagger"
)

// SetupRoutes configures all HTTP routes for the application. The callback
// and bulk refresh endpoints are rate limited when rateLimiter is non-nil.
func SetupRoutes(router *mux.Router, h *handlers.Handlers, rateLimiter ratelimit.Limiter) {
	router.Use(middleware.RequestID)
	router.Use(middleware.LoggingMiddleware)

	limited := func(fn http.HandlerFunc) http.Handler {
		if rateLimiter == nil {
			return fn
		}
		return ratelimit.HTTPMiddleware(rateLimiter, ratelimit.EndpointKey)(fn)
	}

	// Health check
	router.HandleFunc("/health", h.HealthCheck).Methods("GET")

	// Swagger UI
	router.PathPrefix("/swagger/").Handler(httpSwagger.WrapHandler)

	// OAuth install flow. The /api alias serves marketplace apps configured
	// with the older redirect URI.
	router.Handle("/oauth/callback", limited(h.OAuthCallback)).Methods("GET", "POST")
	router.Handle("/api/oauth/callback", limited(h.OAuthCallback)).Methods("GET", "POST")
	router.HandleFunc("/oauth/install-url", h.InstallURL).Methods("GET")
	router.HandleFunc("/api/oauth/status", h.OAuthStatus).Methods("GET")

	// Token lifecycle
	router.HandleFunc("/token/status/{id}", h.TokenStatus).Methods("GET")
	router.HandleFunc("/token/refresh/{id}", h.RefreshToken).Methods("POST")
	router.Handle("/tokens/bulk-refresh", limited(h.BulkRefresh)).Methods("POST")
	router.HandleFunc("/tokens/expiring", h.ExpiringTokens).Methods("GET")
	router.HandleFunc("/tokens/expired", h.ExpiredTokens).Methods("GET")

	// Token access for internal callers
	router.HandleFunc("/api/token-access/{id}", h.TokenAccess).Methods("GET")
	router.HandleFunc("/api/location-token/{id}", h.LocationToken).Methods("GET")
	router.HandleFunc("/api/convert-to-location/{id}", h.ConvertToLocation).Methods("POST")
	router.HandleFunc("/api/token-health/{id}", h.TokenHealth).Methods("GET")

	// Installations
	router.HandleFunc("/installations", h.Installations).Methods("GET")
	router.HandleFunc("/installations/{id}", h.DeleteInstallation).Methods("DELETE")
}
