package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"ghl-oauth-manager/internal/common/utils"
	"ghl-oauth-manager/internal/provider"
)

// TestCredentials are the client credentials the fake provider accepts
var TestCredentials = provider.Credentials{
	ClientID:     "test-client",
	ClientSecret: "test-secret",
	RedirectURI:  "https://app.example.com/oauth/callback",
}

// FakeProvider serves the provider token endpoints from an httptest server.
// Codes registered with AddCode are accepted once each.
type FakeProvider struct {
	Server *httptest.Server

	mu             sync.Mutex
	codes          map[string]provider.TokenResponse
	invalidRefresh map[string]bool
	issued         int
	exchangeCalls  int
	refreshCalls   int
	locationCalls  int
}

// NewFakeProvider starts the server and closes it with the test
func NewFakeProvider(t *testing.T) *FakeProvider {
	t.Helper()
	p := &FakeProvider{
		codes:          make(map[string]provider.TokenResponse),
		invalidRefresh: make(map[string]bool),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/oauth/token", p.handleToken)
	mux.HandleFunc("/oauth/locationToken", p.handleLocationToken)
	p.Server = httptest.NewServer(mux)
	t.Cleanup(p.Server.Close)
	return p
}

// Client returns a provider client pointed at the fake server, without retries
func (p *FakeProvider) Client() *provider.Client {
	return provider.NewClient(provider.Config{
		BaseURL:        p.Server.URL,
		MarketplaceURL: p.Server.URL,
		Scopes:         []string{"contacts.readonly", "locations.readonly"},
		Timeout:        5 * time.Second,
		ExchangeRetry:  utils.RetryConfig{MaxAttempts: 1},
	})
}

// AddCode registers an authorization code and the token it exchanges for
func (p *FakeProvider) AddCode(code string, resp provider.TokenResponse) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.codes[code] = resp
}

// RejectRefresh makes refreshes with the given token fail with invalid_grant
func (p *FakeProvider) RejectRefresh(refreshToken string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.invalidRefresh[refreshToken] = true
}

// Calls returns the number of exchange, refresh and location token calls
func (p *FakeProvider) Calls() (exchange, refresh, location int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.exchangeCalls, p.refreshCalls, p.locationCalls
}

func (p *FakeProvider) handleToken(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		WriteJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid_request"})
		return
	}
	if r.PostForm.Get("client_id") != TestCredentials.ClientID {
		WriteJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid_client"})
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	switch r.PostForm.Get("grant_type") {
	case "authorization_code":
		p.exchangeCalls++
		code := r.PostForm.Get("code")
		resp, ok := p.codes[code]
		if !ok {
			WriteJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid_grant"})
			return
		}
		delete(p.codes, code)
		WriteJSON(w, http.StatusOK, resp)

	case "refresh_token":
		p.refreshCalls++
		if p.invalidRefresh[r.PostForm.Get("refresh_token")] {
			WriteJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid_grant"})
			return
		}
		p.issued++
		WriteJSON(w, http.StatusOK, provider.TokenResponse{
			AccessToken:  fmt.Sprintf("at-refreshed-%d", p.issued),
			RefreshToken: fmt.Sprintf("rt-refreshed-%d", p.issued),
			ExpiresIn:    86400,
			TokenType:    "Bearer",
			Scope:        "contacts.readonly locations.readonly",
		})

	default:
		WriteJSON(w, http.StatusBadRequest, map[string]string{"error": "unsupported_grant_type"})
	}
}

func (p *FakeProvider) handleLocationToken(w http.ResponseWriter, r *http.Request) {
	_ = r.ParseForm()
	companyToken := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")

	p.mu.Lock()
	p.locationCalls++
	p.mu.Unlock()

	WriteJSON(w, http.StatusOK, provider.TokenResponse{
		AccessToken: "loc-" + companyToken,
		ExpiresIn:   86400,
		TokenType:   "Bearer",
		LocationID:  r.PostForm.Get("locationId"),
	})
}

// WriteJSON writes body with the given status
func WriteJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
