package handlers

import (
	"context"
	"net/http"
	"time"

	"ghl-oauth-manager/internal/circuitbreaker"
)

// HealthResponse is the body of GET /health
type HealthResponse struct {
	Status         string                `json:"status"`
	Service        string                `json:"service"`
	Version        string                `json:"version"`
	Timestamp      time.Time             `json:"timestamp"`
	UptimeSeconds  int64                 `json:"uptime_seconds"`
	Store          string                `json:"store"`
	CircuitBreaker *circuitbreaker.Stats `json:"circuit_breaker,omitempty"`
	ArmedRefreshes int                   `json:"armed_refreshes"`
}

// HealthCheck returns the service health
// @Summary Health check
// @Tags system
// @Produce json
// @Success 200 {object} HealthResponse
// @Failure 503 {object} HealthResponse "Store unreachable"
// @Router /health [get]
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	resp := HealthResponse{
		Status:         "healthy",
		Service:        ServiceName,
		Version:        h.version,
		Timestamp:      time.Now().UTC(),
		UptimeSeconds:  int64(time.Since(h.startedAt).Seconds()),
		Store:          "ok",
		ArmedRefreshes: h.manager.Scheduler().Pending(),
	}
	if stats, ok := h.manager.BreakerStats(); ok {
		resp.CircuitBreaker = &stats
	}

	status := http.StatusOK
	if err := h.manager.Health(ctx); err != nil {
		resp.Status = "unhealthy"
		resp.Store = "unreachable"
		status = http.StatusServiceUnavailable
	} else if resp.CircuitBreaker != nil && resp.CircuitBreaker.State == "open" {
		resp.Status = "degraded"
	}

	h.sendJSON(w, status, resp)
}
