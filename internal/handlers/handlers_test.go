package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"ghl-oauth-manager/internal/config"
	"ghl-oauth-manager/internal/events"
	"ghl-oauth-manager/internal/installations"
	"ghl-oauth-manager/internal/oauth2"
	"ghl-oauth-manager/internal/provider"
	"ghl-oauth-manager/internal/testutil"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testEnv struct {
	router    *mux.Router
	store     *testutil.MockStore
	provider  *testutil.FakeProvider
	manager   *oauth2.Manager
	published *testutil.RecordingPublisher
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{
		store:     testutil.NewMockStore(),
		provider:  testutil.NewFakeProvider(t),
		published: &testutil.RecordingPublisher{},
	}

	m, err := oauth2.NewManager(oauth2.Options{
		Store:       env.store,
		Provider:    env.provider.Client(),
		Credentials: oauth2.NewCredentialResolver(testutil.TestCredentials),
		Events:      events.NewEmitter(env.published),
	})
	require.NoError(t, err)
	t.Cleanup(func() { m.Close() })
	env.manager = m

	cfg := &config.Config{
		SuccessRedirectURL: "/installation-success",
		ErrorRedirectURL:   "/oauth-error",
	}
	h := New(m, cfg, "test")

	r := mux.NewRouter()
	r.HandleFunc("/health", h.HealthCheck).Methods("GET")
	r.HandleFunc("/oauth/callback", h.OAuthCallback).Methods("GET", "POST")
	r.HandleFunc("/oauth/install-url", h.InstallURL).Methods("GET")
	r.HandleFunc("/api/oauth/status", h.OAuthStatus).Methods("GET")
	r.HandleFunc("/token/status/{id}", h.TokenStatus).Methods("GET")
	r.HandleFunc("/token/refresh/{id}", h.RefreshToken).Methods("POST")
	r.HandleFunc("/tokens/bulk-refresh", h.BulkRefresh).Methods("POST")
	r.HandleFunc("/tokens/expiring", h.ExpiringTokens).Methods("GET")
	r.HandleFunc("/tokens/expired", h.ExpiredTokens).Methods("GET")
	r.HandleFunc("/api/token-access/{id}", h.TokenAccess).Methods("GET")
	r.HandleFunc("/api/location-token/{id}", h.LocationToken).Methods("GET")
	r.HandleFunc("/api/convert-to-location/{id}", h.ConvertToLocation).Methods("POST")
	r.HandleFunc("/api/token-health/{id}", h.TokenHealth).Methods("GET")
	r.HandleFunc("/installations", h.Installations).Methods("GET")
	r.HandleFunc("/installations/{id}", h.DeleteInstallation).Methods("DELETE")
	env.router = r
	return env
}

func (e *testEnv) seed(t *testing.T, list ...*installations.Installation) {
	t.Helper()
	require.NoError(t, e.store.Seed(list...))
}

func (e *testEnv) do(method, target string, body []byte) *httptest.ResponseRecorder {
	var req *http.Request
	if body != nil {
		req = httptest.NewRequest(method, target, bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rr := httptest.NewRecorder()
	e.router.ServeHTTP(rr, req)
	return rr
}

func decode(t *testing.T, rr *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), out), rr.Body.String())
}

func redirectTarget(t *testing.T, rr *httptest.ResponseRecorder) *url.URL {
	t.Helper()
	require.Equal(t, http.StatusFound, rr.Code)
	u, err := url.Parse(rr.Header().Get("Location"))
	require.NoError(t, err)
	return u
}

func TestOAuthCallback_Redirects(t *testing.T) {
	env := newTestEnv(t)
	env.provider.AddCode("good-code", provider.TokenResponse{
		AccessToken:  "at-good",
		RefreshToken: "rt-good",
		ExpiresIn:    86400,
		Scope:        "contacts.readonly locations.readonly",
		CompanyID:    "comp-1",
		LocationID:   "loc-1",
	})

	t.Run("provider error", func(t *testing.T) {
		u := redirectTarget(t, env.do("GET", "/oauth/callback?error=access_denied", nil))
		assert.Equal(t, "/oauth-error", u.Path)
		assert.Equal(t, "oauth_denied", u.Query().Get("error"))
	})

	t.Run("missing code", func(t *testing.T) {
		u := redirectTarget(t, env.do("GET", "/oauth/callback", nil))
		assert.Equal(t, "/oauth-error", u.Path)
		assert.Equal(t, "no_code", u.Query().Get("error"))
	})

	t.Run("rejected code", func(t *testing.T) {
		u := redirectTarget(t, env.do("GET", "/oauth/callback?code=unknown", nil))
		assert.Equal(t, "provider_rejected", u.Query().Get("error"))
	})

	t.Run("bad POST body", func(t *testing.T) {
		u := redirectTarget(t, env.do("POST", "/oauth/callback", []byte("{not json")))
		assert.Equal(t, "validation", u.Query().Get("error"))
	})

	t.Run("success", func(t *testing.T) {
		u := redirectTarget(t, env.do("GET", "/oauth/callback?code=good-code", nil))
		assert.Equal(t, "/installation-success", u.Path)
		assert.Equal(t, "true", u.Query().Get("welcome"))

		id := u.Query().Get("installation_id")
		require.NotEmpty(t, id)
		assert.True(t, strings.HasPrefix(id, "install_"))

		rr := env.do("GET", "/token/status/"+id, nil)
		require.Equal(t, http.StatusOK, rr.Code)
		var report installations.Report
		decode(t, rr, &report)
		assert.Equal(t, installations.StatusValid, report.Status)
		assert.Equal(t, "loc-1", report.LocationID)
		assert.True(t, report.HasAccessToken)
		assert.True(t, report.HasRefreshToken)
		assert.NotContains(t, rr.Body.String(), "at-good")
	})
}

func TestOAuthCallback_PostBody(t *testing.T) {
	env := newTestEnv(t)
	env.provider.AddCode("posted", provider.TokenResponse{
		AccessToken: "at-posted",
		ExpiresIn:   3600,
		LocationID:  "loc-post",
	})

	body, _ := json.Marshal(CallbackRequest{Code: "posted"})
	u := redirectTarget(t, env.do("POST", "/oauth/callback", body))
	assert.Equal(t, "/installation-success", u.Path)
	assert.NotEmpty(t, u.Query().Get("installation_id"))

	// An override with a client the provider does not know is rejected.
	env.provider.AddCode("posted-2", provider.TokenResponse{AccessToken: "at-2", ExpiresIn: 3600})
	body, _ = json.Marshal(CallbackRequest{
		Code: "posted-2",
		OAuthCredentials: &provider.Credentials{
			ClientID:     "other-client",
			ClientSecret: "other-secret",
			RedirectURI:  "https://other.example.com/cb",
		},
	})
	u = redirectTarget(t, env.do("POST", "/oauth/callback", body))
	assert.Equal(t, "provider_rejected", u.Query().Get("error"))
}

func TestErrorResponseShape(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do("GET", "/token/status/install_missing", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
	assert.Equal(t, "no-store", rr.Header().Get("Cache-Control"))

	var resp ErrorResponse
	decode(t, rr, &resp)
	assert.False(t, resp.Success)
	assert.Equal(t, "not_found", resp.Error)
	assert.Equal(t, "installation not found", resp.Message)
}

func TestRefreshToken(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t,
		testutil.NewInstallationBuilder("install_a").WithExpiresIn(5*time.Minute).Build(),
		testutil.NewInstallationBuilder("install_bad").WithExpiresIn(5*time.Minute).WithRefreshToken("rt-revoked").Build(),
		testutil.NewInstallationBuilder("install_norefresh").WithRefreshToken("").Build(),
	)
	env.provider.RejectRefresh("rt-revoked")

	t.Run("success returns metadata only", func(t *testing.T) {
		rr := env.do("POST", "/token/refresh/install_a", nil)
		require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

		var resp RefreshResponse
		decode(t, rr, &resp)
		assert.True(t, resp.Success)
		assert.Equal(t, "install_a", resp.InstallationID)
		assert.InDelta(t, 86400, resp.ExpiresIn, 5)
		assert.Equal(t, "contacts.readonly locations.readonly", resp.Scope)
		assert.Equal(t, installations.StatusValid, resp.Status)
		assert.NotContains(t, rr.Body.String(), "at-refreshed")
		assert.NotContains(t, rr.Body.String(), "rt-refreshed")
	})

	t.Run("invalid grant", func(t *testing.T) {
		rr := env.do("POST", "/token/refresh/install_bad", nil)
		assert.Equal(t, http.StatusBadGateway, rr.Code)

		var resp ErrorResponse
		decode(t, rr, &resp)
		assert.Equal(t, "provider_rejected", resp.Error)
		assert.NotContains(t, rr.Body.String(), "rt-revoked")

		rr = env.do("GET", "/token/status/install_bad", nil)
		var report installations.Report
		decode(t, rr, &report)
		assert.Equal(t, installations.StatusRefreshExpired, report.Status)
	})

	t.Run("no refresh token", func(t *testing.T) {
		rr := env.do("POST", "/token/refresh/install_norefresh", nil)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("unknown installation", func(t *testing.T) {
		rr := env.do("POST", "/token/refresh/install_nope", nil)
		assert.Equal(t, http.StatusNotFound, rr.Code)
	})
}

func TestBulkRefresh(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t, testutil.NewInstallationBuilder("install_1").Build())

	tests := []struct {
		name string
		body string
	}{
		{"not json", "installation_ids"},
		{"empty list", `{"installation_ids":[]}`},
		{"missing field", `{}`},
		{"blank id", `{"installation_ids":[""]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := env.do("POST", "/tokens/bulk-refresh", []byte(tt.body))
			assert.Equal(t, http.StatusBadRequest, rr.Code)
			var resp ErrorResponse
			decode(t, rr, &resp)
			assert.Equal(t, "validation", resp.Error)
		})
	}

	t.Run("mixed results", func(t *testing.T) {
		rr := env.do("POST", "/tokens/bulk-refresh", []byte(`{"installation_ids":["install_1","install_missing"]}`))
		require.Equal(t, http.StatusOK, rr.Code)

		var summary oauth2.BulkSummary
		decode(t, rr, &summary)
		assert.Equal(t, 2, summary.Total)
		assert.Equal(t, 1, summary.Successful)
		assert.Equal(t, 1, summary.Failed)
		require.Len(t, summary.Results, 2)
	})
}

func TestExpiringTokens(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t,
		testutil.NewInstallationBuilder("install_soon").WithExpiresIn(30*time.Minute).Build(),
		testutil.NewInstallationBuilder("install_day").Build(),
		testutil.NewInstallationBuilder("install_gone").WithExpiresIn(-time.Hour).Build(),
	)

	for _, minutes := range []string{"0", "-5", "abc", "10081"} {
		t.Run("rejects "+minutes, func(t *testing.T) {
			rr := env.do("GET", "/tokens/expiring?minutes="+minutes, nil)
			assert.Equal(t, http.StatusBadRequest, rr.Code)
		})
	}

	t.Run("default window", func(t *testing.T) {
		rr := env.do("GET", "/tokens/expiring", nil)
		require.Equal(t, http.StatusOK, rr.Code)
		var resp ListResponse
		decode(t, rr, &resp)
		require.Equal(t, 1, resp.Count)
		assert.Equal(t, "install_soon", resp.Installations[0].ID)
	})

	t.Run("wide window", func(t *testing.T) {
		rr := env.do("GET", "/tokens/expiring?minutes=2000", nil)
		var resp ListResponse
		decode(t, rr, &resp)
		assert.Equal(t, 2, resp.Count)
		assert.NotContains(t, rr.Body.String(), "at-install")
	})

	t.Run("expired", func(t *testing.T) {
		rr := env.do("GET", "/tokens/expired", nil)
		require.Equal(t, http.StatusOK, rr.Code)
		var resp ListResponse
		decode(t, rr, &resp)
		require.Equal(t, 1, resp.Count)
		assert.Equal(t, "install_gone", resp.Installations[0].ID)
	})
}

func TestTokenAccess(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t,
		testutil.NewInstallationBuilder("install_fresh").Build(),
		testutil.NewInstallationBuilder("install_stale").WithExpiresIn(5*time.Minute).Build(),
	)

	rr := env.do("GET", "/api/token-access/install_fresh", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var resp TokenAccessResponse
	decode(t, rr, &resp)
	assert.Equal(t, "at-install_fresh", resp.AccessToken)
	assert.Equal(t, "Bearer", resp.TokenType)
	assert.Equal(t, "loc-install_fresh", resp.LocationID)

	rr = env.do("GET", "/api/token-access/install_stale", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	decode(t, rr, &resp)
	assert.Equal(t, "at-refreshed-1", resp.AccessToken)
	assert.InDelta(t, 86400, resp.ExpiresIn, 5)

	_, refreshes, _ := env.provider.Calls()
	assert.Equal(t, 1, refreshes)
}

func TestLocationTokenAndHealth(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t, testutil.NewInstallationBuilder("install_c").Build())

	rr := env.do("POST", "/api/convert-to-location/install_c", nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var conv ConversionResponse
	decode(t, rr, &conv)
	assert.Equal(t, "loc-install_c", conv.LocationID)
	assert.NotContains(t, rr.Body.String(), "access_token")

	rr = env.do("GET", "/api/location-token/install_c", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var loc LocationTokenResponse
	decode(t, rr, &loc)
	assert.Equal(t, "loc-at-install_c", loc.AccessToken)
	assert.Equal(t, installations.AuthClassLocation, loc.AuthClass)

	_, _, locationCalls := env.provider.Calls()
	assert.Equal(t, 1, locationCalls)

	rr = env.do("GET", "/api/token-health/install_c", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var health TokenHealthResponse
	decode(t, rr, &health)
	assert.True(t, health.LocationToken.Cached)
	assert.Equal(t, installations.StatusValid, health.Token.Status)
	assert.False(t, health.RefreshRequired)

	rr = env.do("GET", "/api/location-token/install_unknown", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestLocationToken_MissingLocation(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t, testutil.NewInstallationBuilder("install_nl").WithLocation("").Build())

	rr := env.do("GET", "/api/location-token/install_nl", nil)
	assert.Equal(t, http.StatusBadGateway, rr.Code)
	var resp ErrorResponse
	decode(t, rr, &resp)
	assert.Equal(t, "location_conversion_failed", resp.Error)
}

func TestOAuthStatus(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t,
		testutil.NewInstallationBuilder("install_ok").Build(),
		testutil.NewInstallationBuilder("install_loc").WithAuthClass(installations.AuthClassLocation).Build(),
	)

	rr := env.do("GET", "/api/oauth/status", nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = env.do("GET", "/api/oauth/status?installation_id=install_nope", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = env.do("GET", "/api/oauth/status?installation_id=install_ok", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var resp OAuthStatusResponse
	decode(t, rr, &resp)
	assert.True(t, resp.Authenticated)
	assert.Equal(t, installations.StatusValid, resp.TokenStatus)
	assert.True(t, resp.ConversionAvailable)
	assert.False(t, resp.HasLocationToken)

	rr = env.do("GET", "/api/oauth/status?installation_id=install_loc", nil)
	decode(t, rr, &resp)
	assert.True(t, resp.HasLocationToken)
	assert.False(t, resp.ConversionAvailable)
}

func TestInstallationsListAndDelete(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t,
		testutil.NewInstallationBuilder("install_x").Build(),
		testutil.NewInstallationBuilder("install_y").Build(),
	)

	rr := env.do("GET", "/installations", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var list ListResponse
	decode(t, rr, &list)
	assert.Equal(t, 2, list.Count)
	assert.NotContains(t, rr.Body.String(), "at-install_x")
	assert.NotContains(t, rr.Body.String(), "rt-install_x")

	rr = env.do("DELETE", "/installations/install_x", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.True(t, eventually(func() bool {
		return env.published.Has(events.InstallationDeleted, "install_x")
	}))

	rr = env.do("DELETE", "/installations/install_x", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestInstallationsPaging(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t,
		testutil.NewInstallationBuilder("install_a").Build(),
		testutil.NewInstallationBuilder("install_b").Build(),
		testutil.NewInstallationBuilder("install_c").Build(),
	)

	rr := env.do("GET", "/installations?page=2&per_page=2", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var list ListResponse
	decode(t, rr, &list)
	assert.Equal(t, 1, list.Count)
	require.NotNil(t, list.Pagination)
	assert.Equal(t, 2, list.Pagination.TotalPages)
	assert.Equal(t, 3, list.Pagination.TotalResults)

	rr = env.do("GET", "/installations", nil)
	var all ListResponse
	decode(t, rr, &all)
	assert.Equal(t, 3, all.Count)
	assert.Nil(t, all.Pagination)

	rr = env.do("GET", "/installations?per_page=0", nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestInstallURL(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do("GET", "/oauth/install-url?state=abc123", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var resp map[string]string
	decode(t, rr, &resp)
	assert.Equal(t, "abc123", resp["state"])

	u, err := url.Parse(resp["url"])
	require.NoError(t, err)
	assert.Equal(t, "/oauth/chooselocation", u.Path)
	assert.Equal(t, testutil.TestCredentials.ClientID, u.Query().Get("client_id"))
	assert.Equal(t, "abc123", u.Query().Get("state"))

	rr = env.do("GET", "/oauth/install-url", nil)
	decode(t, rr, &resp)
	assert.NotEmpty(t, resp["state"])
}

func TestHealthCheck(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do("GET", "/health", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var resp HealthResponse
	decode(t, rr, &resp)
	assert.Equal(t, "healthy", resp.Status)
	assert.Equal(t, ServiceName, resp.Service)
	assert.Equal(t, "test", resp.Version)
	require.NotNil(t, resp.CircuitBreaker)
	assert.Equal(t, "closed", resp.CircuitBreaker.State)

	env.store.FailOn("Health", testutil.ErrStoreDown)
	rr = env.do("GET", "/health", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	decode(t, rr, &resp)
	assert.Equal(t, "unhealthy", resp.Status)
	assert.Equal(t, "unreachable", resp.Store)
}

// eventually polls cond for up to a second; events are emitted asynchronously.
func eventually(cond func() bool) bool {
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}
	return false
}
