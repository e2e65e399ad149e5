package oauth2

import (
	"ghl-oauth-manager/internal/installations"

	"github.com/golang-jwt/jwt/v5"
)

// Claims are the fields read from a provider access token. The token is
// decoded without verification: it came straight from the token endpoint
// over TLS and is only used for routing hints.
type Claims struct {
	AuthClass   string `json:"authClass"`
	AuthClassID string `json:"authClassId"`
	CompanyID   string `json:"companyId,omitempty"`
	LocationID  string `json:"locationId,omitempty"`
	jwt.RegisteredClaims
}

// ParseClaims decodes the JWT payload of token
func ParseClaims(token string) (Claims, error) {
	var claims Claims
	if token == "" {
		return claims, nil
	}
	_, _, err := jwt.NewParser().ParseUnverified(token, &claims)
	return claims, err
}

// Company returns the company id, falling back to authClassId for Company tokens
func (c Claims) Company() string {
	if c.CompanyID != "" {
		return c.CompanyID
	}
	if c.AuthClass == installations.AuthClassCompany {
		return c.AuthClassID
	}
	return ""
}

// Location returns the explicit location id, or authClassId for Location tokens
func (c Claims) Location() string {
	if c.LocationID != "" {
		return c.LocationID
	}
	if c.AuthClass == installations.AuthClassLocation {
		return c.AuthClassID
	}
	return ""
}
