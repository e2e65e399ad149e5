// Package installations holds the OAuth installation model, its stores and
// the token health evaluator.
package installations

import (
	"strings"
	"time"

	"ghl-oauth-manager/internal/provider"

	"github.com/samber/lo"
)

// TokenStatus is the health of an installation's access token
type TokenStatus string

const (
	StatusValid           TokenStatus = "valid"
	StatusExpiringSoon    TokenStatus = "expiring_soon"
	StatusExpired         TokenStatus = "expired"
	StatusRefreshFailed   TokenStatus = "refresh_failed"
	StatusRefreshRequired TokenStatus = "refresh_required"
	// StatusRefreshExpired means the provider answered invalid_grant; the
	// app has to be reinstalled.
	StatusRefreshExpired TokenStatus = "refresh_expired"
	StatusNoToken        TokenStatus = "no_token"
)

// Terminal reports whether the scheduler gave up on the installation
func (s TokenStatus) Terminal() bool {
	return s == StatusRefreshFailed || s == StatusRefreshExpired || s == StatusRefreshRequired
}

const (
	AuthClassCompany  = "Company"
	AuthClassLocation = "Location"
)

// Installation is one successful OAuth grant
type Installation struct {
	ID           string      `json:"id"`
	AccessToken  string      `json:"access_token"`
	RefreshToken string      `json:"refresh_token"`
	TokenType    string      `json:"token_type,omitempty"`
	ExpiresAt    time.Time   `json:"expires_at"`
	Scopes       []string    `json:"scopes,omitempty"`
	LocationID   string      `json:"location_id,omitempty"`
	CompanyID    string      `json:"company_id,omitempty"`
	UserID       string      `json:"user_id,omitempty"`
	AuthClass    string      `json:"auth_class,omitempty"`
	UserType     string      `json:"user_type,omitempty"`
	TokenStatus  TokenStatus `json:"token_status"`
	LastRefresh  *time.Time  `json:"last_refresh,omitempty"`
	LastError    string      `json:"last_error,omitempty"`
	CreatedAt    time.Time   `json:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"`
}

// ApplyToken copies a token response onto the installation. ExpiresAt is
// always issuedAt + expires_in. The refresh token is kept when the response
// omits it.
func (i *Installation) ApplyToken(tok *provider.TokenResponse, issuedAt time.Time) {
	i.AccessToken = tok.AccessToken
	if tok.RefreshToken != "" {
		i.RefreshToken = tok.RefreshToken
	}
	i.ExpiresAt = issuedAt.Add(time.Duration(tok.ExpiresIn) * time.Second)
	if tok.Scope != "" {
		i.Scopes = ParseScopes(tok.Scope)
	}
	if tok.TokenType != "" {
		i.TokenType = tok.TokenType
	}
	if tok.UserType != "" {
		i.UserType = tok.UserType
	}
	if tok.UserID != "" {
		i.UserID = tok.UserID
	}
	if i.CompanyID == "" {
		i.CompanyID = tok.CompanyID
	}
	i.TokenStatus = StatusValid
	i.LastError = ""
	i.UpdatedAt = issuedAt
}

// MarkFailed records a refresh failure. Only the error kind is stored.
func (i *Installation) MarkFailed(status TokenStatus, kind string, now time.Time) {
	i.TokenStatus = status
	i.LastError = kind
	i.UpdatedAt = now
}

// NoteTransientFailure records a failed refresh that will be retried. The
// status is left alone so the installation stays schedulable.
func (i *Installation) NoteTransientFailure(kind string, now time.Time) {
	i.LastError = kind
	i.UpdatedAt = now
}

// Clone returns a deep copy
func (i *Installation) Clone() *Installation {
	if i == nil {
		return nil
	}
	c := *i
	if i.Scopes != nil {
		c.Scopes = append([]string(nil), i.Scopes...)
	}
	if i.LastRefresh != nil {
		t := *i.LastRefresh
		c.LastRefresh = &t
	}
	return &c
}

// ScopeString joins the scopes the way the provider sends them
func (i *Installation) ScopeString() string {
	return strings.Join(i.Scopes, " ")
}

// ParseScopes splits a space separated scope string, dropping duplicates.
func ParseScopes(scope string) []string {
	return lo.Uniq(strings.Fields(scope))
}
