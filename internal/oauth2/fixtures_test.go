package oauth2

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"ghl-oauth-manager/internal/common/utils"
	"ghl-oauth-manager/internal/events"
	"ghl-oauth-manager/internal/installations"
	"ghl-oauth-manager/internal/provider"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

var envCreds = provider.Credentials{
	ClientID:     "env-client",
	ClientSecret: "env-secret",
	RedirectURI:  "https://app.example.com/oauth/callback",
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Now().Truncate(time.Second)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// fakeProvider is an httptest stand-in for the provider token endpoints.
type fakeProvider struct {
	server *httptest.Server

	mu                 sync.Mutex
	codes              map[string]provider.TokenResponse
	invalidRefresh     map[string]bool
	stallRefresh       map[string]bool
	unavailable        int
	rejectCompany      map[string]bool
	rejectAllLocation  bool
	omitRefreshToken   bool
	refreshExpiresIn   int
	locationExpiresIn  int
	gate               chan struct{}
	issued             int
	exchangeCalls      int
	refreshCalls       int
	locationCalls      int
	refreshClientIDs   []string
	locationCompanyIDs []string
}

func newFakeProvider(t *testing.T) *fakeProvider {
	t.Helper()
	p := &fakeProvider{
		codes:             make(map[string]provider.TokenResponse),
		invalidRefresh:    make(map[string]bool),
		stallRefresh:      make(map[string]bool),
		rejectCompany:     make(map[string]bool),
		refreshExpiresIn:  86400,
		locationExpiresIn: 86400,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/oauth/token", p.handleToken)
	mux.HandleFunc("/oauth/locationToken", p.handleLocationToken)
	p.server = httptest.NewServer(mux)
	t.Cleanup(p.server.Close)
	return p
}

func (p *fakeProvider) client() *provider.Client {
	return p.clientWithTimeout(5 * time.Second)
}

func (p *fakeProvider) clientWithTimeout(timeout time.Duration) *provider.Client {
	return provider.NewClient(provider.Config{
		BaseURL:       p.server.URL,
		Timeout:       timeout,
		ExchangeRetry: utils.RetryConfig{MaxAttempts: 1},
	})
}

func (p *fakeProvider) handleToken(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid_request"})
		return
	}

	switch r.PostForm.Get("grant_type") {
	case "authorization_code":
		p.mu.Lock()
		p.exchangeCalls++
		resp, ok := p.codes[r.PostForm.Get("code")]
		p.mu.Unlock()
		if !ok {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid_grant"})
			return
		}
		writeJSON(w, http.StatusOK, resp)

	case "refresh_token":
		p.mu.Lock()
		p.refreshCalls++
		p.refreshClientIDs = append(p.refreshClientIDs, r.PostForm.Get("client_id"))
		gate := p.gate
		p.mu.Unlock()
		if gate != nil {
			<-gate
		}

		p.mu.Lock()
		stall := p.stallRefresh[r.PostForm.Get("refresh_token")]
		p.mu.Unlock()
		if stall {
			select {
			case <-r.Context().Done():
			case <-time.After(3 * time.Second):
			}
			return
		}

		p.mu.Lock()
		defer p.mu.Unlock()
		if p.unavailable > 0 {
			p.unavailable--
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "temporarily_unavailable"})
			return
		}
		if p.invalidRefresh[r.PostForm.Get("refresh_token")] {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid_grant"})
			return
		}
		p.issued++
		resp := provider.TokenResponse{
			AccessToken: fmt.Sprintf("at-refreshed-%d", p.issued),
			ExpiresIn:   p.refreshExpiresIn,
			TokenType:   "Bearer",
			Scope:       "contacts.readonly locations.readonly",
		}
		if !p.omitRefreshToken {
			resp.RefreshToken = fmt.Sprintf("rt-refreshed-%d", p.issued)
		}
		writeJSON(w, http.StatusOK, resp)

	default:
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unsupported_grant_type"})
	}
}

func (p *fakeProvider) handleLocationToken(w http.ResponseWriter, r *http.Request) {
	_ = r.ParseForm()
	companyToken := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")

	p.mu.Lock()
	defer p.mu.Unlock()
	p.locationCalls++
	p.locationCompanyIDs = append(p.locationCompanyIDs, r.PostForm.Get("companyId"))

	if p.rejectAllLocation || p.rejectCompany[companyToken] {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid_token"})
		return
	}
	writeJSON(w, http.StatusOK, provider.TokenResponse{
		AccessToken:  "loc-" + companyToken,
		RefreshToken: "loc-rt",
		ExpiresIn:    p.locationExpiresIn,
		TokenType:    "Bearer",
		Scope:        "contacts.readonly",
		LocationID:   r.PostForm.Get("locationId"),
	})
}

func (p *fakeProvider) counts() (exchange, refresh, location int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.exchangeCalls, p.refreshCalls, p.locationCalls
}

func (p *fakeProvider) set(fn func(p *fakeProvider)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fn(p)
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *recordingPublisher) Publish(ctx context.Context, event events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

func (r *recordingPublisher) Close() error { return nil }

func (r *recordingPublisher) has(typ events.Type, id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, ev := range r.events {
		if ev.Type == typ && ev.InstallationID == id {
			return true
		}
	}
	return false
}

type harness struct {
	manager   *Manager
	provider  *fakeProvider
	store     *installations.MemoryStore
	clock     *fakeClock
	published *recordingPublisher
}

func newHarness(t *testing.T, configure func(*Options)) *harness {
	t.Helper()
	h := &harness{
		provider:  newFakeProvider(t),
		store:     installations.NewMemoryStore(),
		clock:     newFakeClock(),
		published: &recordingPublisher{},
	}

	opts := Options{
		Store:       h.store,
		Provider:    h.provider.client(),
		Credentials: NewCredentialResolver(envCreds),
		Events:      events.NewEmitter(h.published),
		Clock:       h.clock.Now,

		MinRefreshInterval: time.Millisecond,
	}
	if configure != nil {
		configure(&opts)
	}

	m, err := NewManager(opts)
	require.NoError(t, err)
	t.Cleanup(func() { m.Close() })
	h.manager = m
	return h
}

// seed stores a Company installation whose token expires after lifetime.
func (h *harness) seed(t *testing.T, id string, lifetime time.Duration, refreshToken string) *installations.Installation {
	t.Helper()
	now := h.clock.Now()
	inst := &installations.Installation{
		ID:           id,
		AccessToken:  "at-" + id,
		RefreshToken: refreshToken,
		ExpiresAt:    now.Add(lifetime),
		LocationID:   "loc-" + id,
		CompanyID:    "comp-1",
		AuthClass:    installations.AuthClassCompany,
		TokenStatus:  installations.StatusValid,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	_, err := h.store.Create(context.Background(), inst)
	require.NoError(t, err)
	return inst
}

func testJWT(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-signing-key"))
	require.NoError(t, err)
	return token
}
