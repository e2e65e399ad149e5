package provider

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"ghl-oauth-manager/internal/circuitbreaker"
	"ghl-oauth-manager/internal/common/errors"
	commonhttp "ghl-oauth-manager/internal/common/http"
	"ghl-oauth-manager/internal/common/logging"
	"ghl-oauth-manager/internal/common/utils"

	"golang.org/x/oauth2"
)

// Config configures the provider client
type Config struct {
	BaseURL        string
	MarketplaceURL string
	Scopes         []string
	Timeout        time.Duration
	// HTTPClient overrides the default client. Tests pass httptest clients here.
	HTTPClient *http.Client
	// ExchangeRetry controls retries of the authorization code exchange
	ExchangeRetry utils.RetryConfig
}

// DefaultExchangeRetry retries transient failures twice, waiting 1s then 2s.
func DefaultExchangeRetry() utils.RetryConfig {
	return utils.RetryConfig{
		MaxAttempts:     3,
		InitialDelay:    time.Second,
		Linear:          true,
		RetryableErrors: errors.Retryable,
	}
}

// Client calls the provider's OAuth endpoints through a circuit breaker.
// Directory lookups have their own breaker so that discovery failures
// never block token calls.
type Client struct {
	baseURL          string
	marketplaceURL   string
	scopes           []string
	timeout          time.Duration
	httpClient       *http.Client
	breaker          *circuitbreaker.GoBreakerAdapter
	directoryBreaker *circuitbreaker.GoBreakerAdapter
	exchangeRetry    utils.RetryConfig
	logger           logging.Logger
}

// NewClient creates a provider client
func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.MarketplaceURL == "" {
		cfg.MarketplaceURL = DefaultMarketplaceURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = commonhttp.NewHTTPClientWithTimeout(cfg.Timeout)
	}
	if cfg.ExchangeRetry.MaxAttempts == 0 {
		cfg.ExchangeRetry = DefaultExchangeRetry()
	}
	if cfg.ExchangeRetry.RetryableErrors == nil {
		cfg.ExchangeRetry.RetryableErrors = errors.Retryable
	}

	logger := logging.GetGlobalLogger().WithFields(logging.Field{Key: "component", Value: "provider"})

	return &Client{
		baseURL:          strings.TrimRight(cfg.BaseURL, "/"),
		marketplaceURL:   strings.TrimRight(cfg.MarketplaceURL, "/"),
		scopes:           cfg.Scopes,
		timeout:          cfg.Timeout,
		httpClient:       cfg.HTTPClient,
		breaker:          circuitbreaker.NewGoBreaker("ghl-oauth", circuitbreaker.OAuthConfig, logger),
		directoryBreaker: circuitbreaker.NewGoBreaker("ghl-directory", circuitbreaker.DefaultConfig(), logger),
		exchangeRetry:    cfg.ExchangeRetry,
		logger:           logger,
	}
}

// ExchangeCode trades an authorization code for tokens. Transient failures
// are retried; a rejection is returned on the first attempt.
func (c *Client) ExchangeCode(ctx context.Context, creds Credentials, code string) (*TokenResponse, error) {
	if creds.RedirectURI == "" {
		return nil, errors.MissingCredentialsError("redirect_uri is required for code exchange")
	}

	form := url.Values{}
	form.Set("client_id", creds.ClientID)
	form.Set("client_secret", creds.ClientSecret)
	form.Set("grant_type", "authorization_code")
	form.Set("code", code)
	form.Set("redirect_uri", creds.RedirectURI)
	form.Set("user_type", UserTypeLocation)

	var tok *TokenResponse
	attempt := 0
	err := utils.RetryWithBackoff(ctx, c.exchangeRetry, func() error {
		attempt++
		var callErr error
		tok, callErr = c.requestToken(ctx, c.baseURL+"/oauth/token", form, nil)
		if callErr != nil && errors.Retryable(callErr) {
			c.logger.Warn("Code exchange attempt failed",
				logging.Field{Key: "attempt", Value: attempt},
				logging.Field{Key: "error_kind", Value: string(errors.GetType(callErr))},
			)
		}
		return callErr
	})
	if err != nil {
		return nil, unwrapRetry(err)
	}
	return tok, nil
}

// RefreshToken runs the refresh_token grant once. The refresh token is
// single use, so no retry happens here.
func (c *Client) RefreshToken(ctx context.Context, creds Credentials, refreshToken string) (*TokenResponse, error) {
	form := url.Values{}
	form.Set("client_id", creds.ClientID)
	form.Set("client_secret", creds.ClientSecret)
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", refreshToken)
	form.Set("user_type", UserTypeLocation)
	if creds.RedirectURI != "" {
		form.Set("redirect_uri", creds.RedirectURI)
	}

	return c.requestToken(ctx, c.baseURL+"/oauth/token", form, nil)
}

// LocationToken exchanges a Company token for a token bound to locationID.
func (c *Client) LocationToken(ctx context.Context, companyToken, companyID, locationID string) (*TokenResponse, error) {
	form := url.Values{}
	form.Set("companyId", companyID)
	form.Set("locationId", locationID)

	headers := map[string]string{
		"Authorization": "Bearer " + companyToken,
		"Version":       APIVersion,
	}
	return c.requestToken(ctx, c.baseURL+"/oauth/locationToken", form, headers)
}

// ListLocations returns the locations visible to a Company token
func (c *Client) ListLocations(ctx context.Context, token, companyID string) ([]Location, error) {
	query := url.Values{}
	query.Set("companyId", companyID)

	var body struct {
		Locations []Location `json:"locations"`
	}
	if err := c.getJSON(ctx, "/locations/search?"+query.Encode(), token, &body); err != nil {
		return nil, err
	}
	return body.Locations, nil
}

// CountProducts returns how many products the location holds. Discovery uses
// it as a signal of which location is actually in use.
func (c *Client) CountProducts(ctx context.Context, token, locationID string) (int, error) {
	query := url.Values{}
	query.Set("locationId", locationID)

	var body struct {
		Products []json.RawMessage `json:"products"`
	}
	if err := c.getJSON(ctx, "/products/?"+query.Encode(), token, &body); err != nil {
		return 0, err
	}
	return len(body.Products), nil
}

// AuthCodeURL builds the marketplace consent URL for the app.
func (c *Client) AuthCodeURL(creds Credentials, state string) string {
	cfg := oauth2.Config{
		ClientID:     creds.ClientID,
		ClientSecret: creds.ClientSecret,
		RedirectURL:  creds.RedirectURI,
		Scopes:       c.scopes,
		Endpoint: oauth2.Endpoint{
			AuthURL:   c.marketplaceURL + "/oauth/chooselocation",
			TokenURL:  c.baseURL + "/oauth/token",
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}
	return cfg.AuthCodeURL(state)
}

// BreakerStats exposes the token breaker counters for health reporting
func (c *Client) BreakerStats() circuitbreaker.Stats {
	return c.breaker.Stats()
}

// DirectoryBreakerStats exposes the breaker guarding discovery lookups
func (c *Client) DirectoryBreakerStats() circuitbreaker.Stats {
	return c.directoryBreaker.Stats()
}

func (c *Client) requestToken(ctx context.Context, endpoint string, form url.Values, headers map[string]string) (*TokenResponse, error) {
	var tok TokenResponse
	err := c.do(ctx, c.breaker, func(callCtx context.Context) (*http.Request, error) {
		return commonhttp.NewFormRequest(callCtx, endpoint, form, headers)
	}, &tok)
	if err != nil {
		return nil, err
	}
	if tok.AccessToken == "" {
		return nil, errors.ProviderRejectedError(http.StatusOK, "missing_access_token", "")
	}
	if tok.ExpiresIn <= 0 {
		return nil, errors.ProviderRejectedError(http.StatusOK, "invalid_response", "").
			WithContext("expires_in", tok.ExpiresIn)
	}
	return &tok, nil
}

func (c *Client) getJSON(ctx context.Context, path, token string, out interface{}) error {
	return c.do(ctx, c.directoryBreaker, func(callCtx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(callCtx, http.MethodGet, c.baseURL+path, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to build request: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
		req.Header.Set("Version", APIVersion)
		req.Header.Set("Accept", "application/json")
		return req, nil
	}, out)
}

// do runs one request through breaker with a per-call deadline and
// decodes a 2xx body into out.
func (c *Client) do(ctx context.Context, breaker *circuitbreaker.GoBreakerAdapter, build func(context.Context) (*http.Request, error), out interface{}) error {
	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := build(callCtx)
	if err != nil {
		return errors.InternalError("failed to build provider request", err)
	}
	operation := req.URL.Path

	var body []byte
	var status int
	err = breaker.Execute(callCtx, func() error {
		resp, httpErr := c.httpClient.Do(req)
		if httpErr != nil {
			return translateTransportError(callCtx, operation, httpErr)
		}

		status = resp.StatusCode
		body, httpErr = commonhttp.ReadBody(resp, commonhttp.DefaultMaxBodyBytes)
		if httpErr != nil {
			return translateTransportError(callCtx, operation, httpErr)
		}
		return classifyStatus(status, body)
	})
	if err != nil {
		c.logger.Debug("Provider call failed",
			logging.Field{Key: "operation", Value: operation},
			logging.Field{Key: "status", Value: status},
			logging.Field{Key: "error_kind", Value: string(errors.GetType(err))},
		)
		if _, ok := errors.As(err); !ok {
			return translateTransportError(callCtx, operation, err)
		}
		return err
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return errors.ProviderRejectedError(status, "invalid_response", commonhttp.Truncate(string(body), maxStoredBody)).WithCause(err)
	}
	return nil
}

func classifyStatus(status int, body []byte) error {
	if commonhttp.IsSuccess(status) {
		return nil
	}

	stored := commonhttp.Truncate(string(body), maxStoredBody)
	if status >= 500 || status == http.StatusTooManyRequests {
		return errors.ProviderUnavailableError(fmt.Sprintf("provider returned status %d", status), nil).
			WithContext("provider_status", status).
			WithContext("provider_body", stored)
	}

	var oauthErr oauthErrorBody
	_ = json.Unmarshal(body, &oauthErr)
	return errors.ProviderRejectedError(status, oauthErr.Error, stored)
}

func translateTransportError(ctx context.Context, operation string, err error) error {
	var netErr net.Error
	if stderrors.Is(err, context.DeadlineExceeded) || stderrors.Is(ctx.Err(), context.DeadlineExceeded) ||
		(stderrors.As(err, &netErr) && netErr.Timeout()) {
		return errors.TimeoutError(operation).WithCause(err)
	}
	return errors.ProviderUnavailableError("provider request failed", err)
}

// unwrapRetry strips the retry wrapper so callers see the provider error kind.
func unwrapRetry(err error) error {
	if appErr, ok := errors.As(err); ok {
		return appErr
	}
	if stderrors.Is(err, context.DeadlineExceeded) {
		return errors.TimeoutError("token exchange").WithCause(err)
	}
	return errors.ProviderUnavailableError("token exchange cancelled", err)
}
