package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"net/url"

	"ghl-oauth-manager/internal/common/errors"
	"ghl-oauth-manager/internal/common/logging"
	"ghl-oauth-manager/internal/common/utils"
	"ghl-oauth-manager/internal/installations"
	"ghl-oauth-manager/internal/provider"
)

const (
	errorOAuthDenied = "oauth_denied"
	errorNoCode      = "no_code"

	maxCallbackBody = 16 << 10
)

// CallbackRequest is the optional JSON body of a POST callback
type CallbackRequest struct {
	Code             string                `json:"code"`
	OAuthCredentials *provider.Credentials `json:"oauth_credentials,omitempty"`
}

// OAuthCallback completes an installation
// @Summary OAuth callback
// @Description Exchanges the authorization code and redirects to the success or error page. A POST body may carry oauth_credentials to override the configured client.
// @Tags oauth
// @Accept json
// @Param code query string false "Authorization code"
// @Param error query string false "Error reported by the provider"
// @Param body body CallbackRequest false "Code and credential override"
// @Success 302 {string} string "Redirect to SUCCESS_REDIRECT_URL?installation_id=<id>&welcome=true"
// @Failure 302 {string} string "Redirect to ERROR_REDIRECT_URL?error=<kind>"
// @Router /oauth/callback [get]
// @Router /oauth/callback [post]
func (h *Handlers) OAuthCallback(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	logger := logging.WithContext(r.Context())

	if providerErr := query.Get("error"); providerErr != "" {
		logger.Warn("Installation denied at the provider", logging.Field{Key: "provider_error", Value: providerErr})
		h.redirectError(w, r, errorOAuthDenied)
		return
	}

	req := CallbackRequest{Code: query.Get("code")}
	if r.Method == http.MethodPost && r.Body != nil {
		var body CallbackRequest
		err := json.NewDecoder(io.LimitReader(r.Body, maxCallbackBody)).Decode(&body)
		if err != nil && err != io.EOF {
			h.redirectError(w, r, string(errors.ErrTypeValidation))
			return
		}
		if body.Code != "" {
			req.Code = body.Code
		}
		req.OAuthCredentials = body.OAuthCredentials
	}

	if req.Code == "" {
		h.redirectError(w, r, errorNoCode)
		return
	}

	inst, err := h.manager.Install(r.Context(), req.Code, req.OAuthCredentials)
	if err != nil {
		logger.Warn("Installation failed",
			logging.Field{Key: "error_kind", Value: string(errors.GetType(err))},
			logging.Field{Key: "oauth_code", Value: errors.OAuthCode(err)},
		)
		h.redirectError(w, r, string(errors.GetType(err)))
		return
	}

	target := withQuery(h.config.SuccessRedirectURL, url.Values{
		"installation_id": {inst.ID},
		"welcome":         {"true"},
	})
	http.Redirect(w, r, target, http.StatusFound)
}

func (h *Handlers) redirectError(w http.ResponseWriter, r *http.Request, kind string) {
	http.Redirect(w, r, withQuery(h.config.ErrorRedirectURL, url.Values{"error": {kind}}), http.StatusFound)
}

// withQuery adds params to base, keeping any query it already has.
func withQuery(base string, params url.Values) string {
	u, err := url.Parse(base)
	if err != nil {
		return base + "?" + params.Encode()
	}
	q := u.Query()
	for k, v := range params {
		q[k] = v
	}
	u.RawQuery = q.Encode()
	return u.String()
}

// InstallURL returns the marketplace consent URL
// @Summary Install URL
// @Tags oauth
// @Produce json
// @Param state query string false "Opaque state echoed back to the callback"
// @Success 200 {object} map[string]string
// @Failure 400 {object} ErrorResponse "Client credentials not configured"
// @Router /oauth/install-url [get]
func (h *Handlers) InstallURL(w http.ResponseWriter, r *http.Request) {
	state := r.URL.Query().Get("state")
	if state == "" {
		state = utils.GenerateRequestID()
	}

	target, err := h.manager.AuthCodeURL(state)
	if err != nil {
		h.sendJSONError(w, r, err)
		return
	}
	h.sendJSONResponse(w, map[string]string{"url": target, "state": state})
}

// OAuthStatusResponse summarizes whether an installation can call the API
type OAuthStatusResponse struct {
	Authenticated       bool                      `json:"authenticated"`
	InstallationID      string                    `json:"installationId"`
	TokenStatus         installations.TokenStatus `json:"tokenStatus"`
	LocationID          string                    `json:"locationId"`
	AuthClass           string                    `json:"authClass"`
	HasLocationToken    bool                      `json:"hasLocationToken"`
	ConversionAvailable bool                      `json:"conversionAvailable"`
}

// OAuthStatus reports the authentication state of one installation
// @Summary OAuth status
// @Tags oauth
// @Produce json
// @Param installation_id query string true "Installation ID"
// @Success 200 {object} OAuthStatusResponse
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /api/oauth/status [get]
func (h *Handlers) OAuthStatus(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("installation_id")
	if id == "" {
		h.sendJSONError(w, r, errors.ValidationError("installation_id is required"))
		return
	}

	inst, err := h.manager.Get(r.Context(), id)
	if err != nil {
		h.sendJSONError(w, r, err)
		return
	}

	report := installations.Describe(inst, h.manager.Now(), h.manager.StatusBuffer())
	_, cached := h.manager.Converter().Peek(id)

	h.sendJSONResponse(w, OAuthStatusResponse{
		Authenticated:       report.HasAccessToken && (report.Status == installations.StatusValid || report.Status == installations.StatusExpiringSoon),
		InstallationID:      id,
		TokenStatus:         report.Status,
		LocationID:          inst.LocationID,
		AuthClass:           inst.AuthClass,
		HasLocationToken:    cached || inst.AuthClass == installations.AuthClassLocation,
		ConversionAvailable: inst.AuthClass != installations.AuthClassLocation && inst.LocationID != "",
	})
}
