// Package handlers implements the HTTP surface of the installation service:
// the OAuth callback, token status and refresh endpoints, location token
// conversion and the health check.
//
// Error responses share one shape:
//
//	{"success": false, "error": "<kind>", "message": "<safe message>"}
//
// Provider response bodies and tokens never appear in error responses.
package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"ghl-oauth-manager/internal/common/errors"
	"ghl-oauth-manager/internal/common/logging"
	"ghl-oauth-manager/internal/common/pagination"
	"ghl-oauth-manager/internal/common/validation"
	"ghl-oauth-manager/internal/config"
	"ghl-oauth-manager/internal/installations"
	"ghl-oauth-manager/internal/oauth2"

	"github.com/gorilla/mux"
)

// ServiceName is reported by the health endpoint
const ServiceName = "ghl-oauth-manager"

// Handlers serves the HTTP API on top of the lifecycle manager
type Handlers struct {
	manager   *oauth2.Manager
	config    *config.Config
	validator *validation.CentralizedValidator
	version   string
	startedAt time.Time
}

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Message string `json:"message"`
}

func New(manager *oauth2.Manager, cfg *config.Config, version string) *Handlers {
	return &Handlers{
		manager:   manager,
		config:    cfg,
		validator: validation.NewCentralizedValidator(),
		version:   version,
		startedAt: time.Now(),
	}
}

func (h *Handlers) sendJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logging.Error("Failed to encode response", err)
	}
}

func (h *Handlers) sendJSONResponse(w http.ResponseWriter, data interface{}) {
	h.sendJSON(w, http.StatusOK, data)
}

// sendJSONError writes the error body with the status mapped from the error kind.
func (h *Handlers) sendJSONError(w http.ResponseWriter, r *http.Request, err error) {
	status := errors.HTTPStatus(err)
	kind := string(errors.GetType(err))

	logger := logging.WithContext(r.Context())
	fields := []logging.Field{
		{Key: "path", Value: r.URL.Path},
		{Key: "error_kind", Value: kind},
	}
	if status >= http.StatusInternalServerError && status != http.StatusBadGateway {
		logger.Error("Request failed", err, fields...)
	} else {
		logger.Warn("Request failed", fields...)
	}

	h.sendJSON(w, status, ErrorResponse{
		Success: false,
		Error:   kind,
		Message: errors.SafeMessage(err),
	})
}

// installationID reads the {id} path variable
func installationID(r *http.Request) (string, error) {
	id := mux.Vars(r)["id"]
	if id == "" {
		return "", errors.ValidationError("installation id is required")
	}
	return id, nil
}

// InstallationSummary is the token-free view of an installation
type InstallationSummary struct {
	ID               string                    `json:"id"`
	LocationID       string                    `json:"locationId"`
	CompanyID        string                    `json:"companyId,omitempty"`
	AuthClass        string                    `json:"authClass"`
	Status           installations.TokenStatus `json:"status"`
	ExpiresAt        time.Time                 `json:"expiresAt"`
	ExpiresInMinutes int                       `json:"expiresInMinutes"`
	HasRefreshToken  bool                      `json:"hasRefreshToken"`
	Scopes           []string                  `json:"scopes,omitempty"`
	LastRefresh      *time.Time                `json:"lastRefresh,omitempty"`
	CreatedAt        time.Time                 `json:"createdAt"`
}

func (h *Handlers) summarize(list []*installations.Installation) []InstallationSummary {
	now := h.manager.Now()
	out := make([]InstallationSummary, 0, len(list))
	for _, inst := range list {
		report := installations.Describe(inst, now, h.manager.StatusBuffer())
		out = append(out, InstallationSummary{
			ID:               inst.ID,
			LocationID:       inst.LocationID,
			CompanyID:        inst.CompanyID,
			AuthClass:        inst.AuthClass,
			Status:           report.Status,
			ExpiresAt:        inst.ExpiresAt,
			ExpiresInMinutes: report.ExpiresInMinutes,
			HasRefreshToken:  report.HasRefreshToken,
			Scopes:           inst.Scopes,
			LastRefresh:      inst.LastRefresh,
			CreatedAt:        inst.CreatedAt,
		})
	}
	return out
}

// ListResponse wraps installation listings
type ListResponse struct {
	Count         int                   `json:"count"`
	Installations []InstallationSummary `json:"installations"`
	Pagination    *pagination.Meta      `json:"pagination,omitempty"`
}
