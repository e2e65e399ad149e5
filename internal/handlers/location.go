package handlers

import (
	"net/http"
	"time"

	"ghl-oauth-manager/internal/installations"
)

// LocationTokenResponse carries a Location token for API calls
type LocationTokenResponse struct {
	Success     bool   `json:"success"`
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
	LocationID  string `json:"location_id"`
	AuthClass   string `json:"auth_class"`
}

// LocationToken returns a Location token, converting the Company token when needed
// @Summary Location token
// @Tags location
// @Produce json
// @Param id path string true "Installation ID"
// @Success 200 {object} LocationTokenResponse
// @Failure 404 {object} ErrorResponse
// @Failure 502 {object} ErrorResponse "Conversion failed"
// @Router /api/location-token/{id} [get]
func (h *Handlers) LocationToken(w http.ResponseWriter, r *http.Request) {
	id, err := installationID(r)
	if err != nil {
		h.sendJSONError(w, r, err)
		return
	}

	bundle, err := h.manager.Converter().Convert(r.Context(), id)
	if err != nil {
		h.sendJSONError(w, r, err)
		return
	}

	h.sendJSONResponse(w, LocationTokenResponse{
		Success:     true,
		AccessToken: bundle.AccessToken,
		TokenType:   "Bearer",
		ExpiresIn:   installations.ExpiresInSeconds(bundle.ExpiresAt, h.manager.Now()),
		LocationID:  bundle.LocationID,
		AuthClass:   installations.AuthClassLocation,
	})
}

// ConversionResponse describes a conversion without the token itself
type ConversionResponse struct {
	Success        bool      `json:"success"`
	InstallationID string    `json:"installation_id"`
	LocationID     string    `json:"location_id"`
	CompanyID      string    `json:"company_id,omitempty"`
	ExpiresAt      time.Time `json:"expires_at"`
	ExpiresIn      int       `json:"expires_in"`
	ConvertedAt    time.Time `json:"converted_at"`
}

// ConvertToLocation warms the Location token cache of an installation
// @Summary Convert to location token
// @Tags location
// @Produce json
// @Param id path string true "Installation ID"
// @Success 200 {object} ConversionResponse
// @Failure 404 {object} ErrorResponse
// @Failure 502 {object} ErrorResponse "Conversion failed"
// @Router /api/convert-to-location/{id} [post]
func (h *Handlers) ConvertToLocation(w http.ResponseWriter, r *http.Request) {
	id, err := installationID(r)
	if err != nil {
		h.sendJSONError(w, r, err)
		return
	}

	bundle, err := h.manager.Converter().Convert(r.Context(), id)
	if err != nil {
		h.sendJSONError(w, r, err)
		return
	}

	h.sendJSONResponse(w, ConversionResponse{
		Success:        true,
		InstallationID: id,
		LocationID:     bundle.LocationID,
		CompanyID:      bundle.CompanyID,
		ExpiresAt:      bundle.ExpiresAt,
		ExpiresIn:      installations.ExpiresInSeconds(bundle.ExpiresAt, h.manager.Now()),
		ConvertedAt:    bundle.CreatedAt,
	})
}

// LocationTokenInfo is the cached Location token state
type LocationTokenInfo struct {
	Cached    bool       `json:"cached"`
	ExpiresAt *time.Time `json:"expiresAt,omitempty"`
	ExpiresIn int        `json:"expiresIn,omitempty"`
}

// TokenHealthResponse combines the Company token report with the Location token cache
type TokenHealthResponse struct {
	InstallationID  string               `json:"installationId"`
	AuthClass       string               `json:"authClass"`
	Token           installations.Report `json:"token"`
	LocationToken   LocationTokenInfo    `json:"locationToken"`
	NextRefreshAt   *time.Time           `json:"nextRefreshAt,omitempty"`
	RefreshRequired bool                 `json:"refreshRequired"`
}

// TokenHealth reports the full token state of an installation
// @Summary Token health
// @Tags tokens
// @Produce json
// @Param id path string true "Installation ID"
// @Success 200 {object} TokenHealthResponse
// @Failure 404 {object} ErrorResponse
// @Router /api/token-health/{id} [get]
func (h *Handlers) TokenHealth(w http.ResponseWriter, r *http.Request) {
	id, err := installationID(r)
	if err != nil {
		h.sendJSONError(w, r, err)
		return
	}

	inst, err := h.manager.Get(r.Context(), id)
	if err != nil {
		h.sendJSONError(w, r, err)
		return
	}

	now := h.manager.Now()
	report := installations.Describe(inst, now, h.manager.StatusBuffer())
	resp := TokenHealthResponse{
		InstallationID:  id,
		AuthClass:       inst.AuthClass,
		Token:           report,
		RefreshRequired: report.Status != installations.StatusValid,
	}

	if bundle, ok := h.manager.Converter().Peek(id); ok {
		expiresAt := bundle.ExpiresAt
		resp.LocationToken = LocationTokenInfo{
			Cached:    true,
			ExpiresAt: &expiresAt,
			ExpiresIn: installations.ExpiresInSeconds(expiresAt, now),
		}
	}
	if due, ok := h.manager.Scheduler().Due(id); ok {
		resp.NextRefreshAt = &due
	}

	h.sendJSONResponse(w, resp)
}
