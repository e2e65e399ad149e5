package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"time"

	"ghl-oauth-manager/internal/common/errors"
	"ghl-oauth-manager/internal/common/pagination"
	"ghl-oauth-manager/internal/installations"
)

const (
	defaultExpiringMinutes = 60
	maxBulkBody            = 64 << 10

	// one minute up to seven days
	expiringMinutesRule = "min=1,max=10080"
)

// TokenStatus reports the health of an installation's access token
// @Summary Token status
// @Tags tokens
// @Produce json
// @Param id path string true "Installation ID"
// @Success 200 {object} installations.Report
// @Failure 404 {object} ErrorResponse
// @Router /token/status/{id} [get]
func (h *Handlers) TokenStatus(w http.ResponseWriter, r *http.Request) {
	id, err := installationID(r)
	if err != nil {
		h.sendJSONError(w, r, err)
		return
	}

	report, err := h.manager.Status(r.Context(), id)
	if err != nil {
		h.sendJSONError(w, r, err)
		return
	}
	h.sendJSONResponse(w, report)
}

// RefreshResponse is the metadata of a refreshed token. Tokens are not echoed.
type RefreshResponse struct {
	Success        bool                      `json:"success"`
	InstallationID string                    `json:"installation_id"`
	ExpiresAt      time.Time                 `json:"expires_at"`
	ExpiresIn      int                       `json:"expires_in"`
	Scope          string                    `json:"scope"`
	LocationID     string                    `json:"location_id"`
	Status         installations.TokenStatus `json:"status"`
	RefreshedAt    time.Time                 `json:"refreshed_at"`
}

// RefreshToken forces a refresh of one installation
// @Summary Refresh token
// @Tags tokens
// @Produce json
// @Param id path string true "Installation ID"
// @Success 200 {object} RefreshResponse
// @Failure 400 {object} ErrorResponse "No refresh token"
// @Failure 404 {object} ErrorResponse
// @Failure 502 {object} ErrorResponse "Provider rejected or unavailable"
// @Router /token/refresh/{id} [post]
func (h *Handlers) RefreshToken(w http.ResponseWriter, r *http.Request) {
	id, err := installationID(r)
	if err != nil {
		h.sendJSONError(w, r, err)
		return
	}

	inst, err := h.manager.Refresh(r.Context(), id)
	if err != nil {
		h.sendJSONError(w, r, err)
		return
	}

	now := h.manager.Now()
	refreshedAt := now
	if inst.LastRefresh != nil {
		refreshedAt = *inst.LastRefresh
	}
	h.sendJSONResponse(w, RefreshResponse{
		Success:        true,
		InstallationID: inst.ID,
		ExpiresAt:      inst.ExpiresAt,
		ExpiresIn:      installations.ExpiresInSeconds(inst.ExpiresAt, now),
		Scope:          inst.ScopeString(),
		LocationID:     inst.LocationID,
		Status:         inst.TokenStatus,
		RefreshedAt:    refreshedAt,
	})
}

// BulkRefreshRequest lists the installations to refresh
type BulkRefreshRequest struct {
	InstallationIDs []string `json:"installation_ids" validate:"required,min=1,max=100,dive,required"`
}

// BulkRefresh refreshes several installations with bounded concurrency
// @Summary Bulk refresh
// @Tags tokens
// @Accept json
// @Produce json
// @Param body body BulkRefreshRequest true "Installations to refresh"
// @Success 200 {object} oauth2.BulkSummary
// @Failure 400 {object} ErrorResponse
// @Router /tokens/bulk-refresh [post]
func (h *Handlers) BulkRefresh(w http.ResponseWriter, r *http.Request) {
	var req BulkRefreshRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBulkBody)).Decode(&req); err != nil {
		h.sendJSONError(w, r, errors.ValidationError("request body must be JSON with installation_ids"))
		return
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		h.sendJSONError(w, r, err)
		return
	}

	h.sendJSONResponse(w, h.manager.BulkRefresh(r.Context(), req.InstallationIDs))
}

// ExpiringTokens lists installations whose token expires soon
// @Summary Expiring tokens
// @Tags tokens
// @Produce json
// @Param minutes query int false "Window in minutes (1-10080)" default(60)
// @Success 200 {object} ListResponse
// @Failure 400 {object} ErrorResponse
// @Router /tokens/expiring [get]
func (h *Handlers) ExpiringTokens(w http.ResponseWriter, r *http.Request) {
	minutes := defaultExpiringMinutes
	if raw := r.URL.Query().Get("minutes"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err == nil {
			err = h.validator.ValidateVar(parsed, expiringMinutesRule)
		}
		if err != nil {
			h.sendJSONError(w, r, errors.ValidationError("minutes must be an integer between 1 and 10080").
				WithContext("field", "minutes"))
			return
		}
		minutes = parsed
	}

	list, err := h.manager.Expiring(r.Context(), time.Duration(minutes)*time.Minute)
	if err != nil {
		h.sendJSONError(w, r, err)
		return
	}
	h.sendJSONResponse(w, ListResponse{Count: len(list), Installations: h.summarize(list)})
}

// ExpiredTokens lists installations whose token has expired
// @Summary Expired tokens
// @Tags tokens
// @Produce json
// @Success 200 {object} ListResponse
// @Router /tokens/expired [get]
func (h *Handlers) ExpiredTokens(w http.ResponseWriter, r *http.Request) {
	list, err := h.manager.Expired(r.Context())
	if err != nil {
		h.sendJSONError(w, r, err)
		return
	}
	h.sendJSONResponse(w, ListResponse{Count: len(list), Installations: h.summarize(list)})
}

// TokenAccessResponse hands a usable access token to internal callers
type TokenAccessResponse struct {
	Success     bool   `json:"success"`
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
	Scope       string `json:"scope"`
	LocationID  string `json:"location_id"`
	AuthClass   string `json:"auth_class"`
}

// TokenAccess returns a fresh access token, refreshing it first when needed
// @Summary Token access
// @Tags tokens
// @Produce json
// @Param id path string true "Installation ID"
// @Success 200 {object} TokenAccessResponse
// @Failure 404 {object} ErrorResponse
// @Failure 502 {object} ErrorResponse
// @Router /api/token-access/{id} [get]
func (h *Handlers) TokenAccess(w http.ResponseWriter, r *http.Request) {
	id, err := installationID(r)
	if err != nil {
		h.sendJSONError(w, r, err)
		return
	}

	inst, err := h.manager.EnsureFresh(r.Context(), id)
	if err != nil {
		h.sendJSONError(w, r, err)
		return
	}

	tokenType := inst.TokenType
	if tokenType == "" {
		tokenType = "Bearer"
	}
	h.sendJSONResponse(w, TokenAccessResponse{
		Success:     true,
		AccessToken: inst.AccessToken,
		TokenType:   tokenType,
		ExpiresIn:   installations.ExpiresInSeconds(inst.ExpiresAt, h.manager.Now()),
		Scope:       inst.ScopeString(),
		LocationID:  inst.LocationID,
		AuthClass:   inst.AuthClass,
	})
}

// Installations lists every installation without tokens
// @Summary List installations
// @Tags installations
// @Produce json
// @Param page query int false "Page number, starting at 1"
// @Param per_page query int false "Items per page (1-500)"
// @Success 200 {object} ListResponse
// @Failure 400 {object} ErrorResponse
// @Router /installations [get]
func (h *Handlers) Installations(w http.ResponseWriter, r *http.Request) {
	params, paged, err := pagination.ParseParams(r)
	if err != nil {
		h.sendJSONError(w, r, err)
		return
	}

	list, err := h.manager.List(r.Context())
	if err != nil {
		h.sendJSONError(w, r, err)
		return
	}

	summaries := h.summarize(list)
	if !paged {
		h.sendJSONResponse(w, ListResponse{Count: len(summaries), Installations: summaries})
		return
	}

	page, meta := pagination.Paginate(summaries, params)
	h.sendJSONResponse(w, ListResponse{Count: len(page), Installations: page, Pagination: &meta})
}

// DeleteInstallation removes an installation
// @Summary Delete installation
// @Tags installations
// @Produce json
// @Param id path string true "Installation ID"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} ErrorResponse
// @Router /installations/{id} [delete]
func (h *Handlers) DeleteInstallation(w http.ResponseWriter, r *http.Request) {
	id, err := installationID(r)
	if err != nil {
		h.sendJSONError(w, r, err)
		return
	}
	if err := h.manager.Delete(r.Context(), id); err != nil {
		h.sendJSONError(w, r, err)
		return
	}
	h.sendJSONResponse(w, map[string]interface{}{"success": true, "installation_id": id})
}
