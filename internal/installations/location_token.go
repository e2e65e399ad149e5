package installations

import "time"

// LocationTokenBundle is a Location scoped token derived from an
// installation's Company token. It is never refreshed, only recomputed.
type LocationTokenBundle struct {
	InstallationID string    `json:"installation_id"`
	AccessToken    string    `json:"access_token"`
	RefreshToken   string    `json:"refresh_token,omitempty"`
	ExpiresAt      time.Time `json:"expires_at"`
	LocationID     string    `json:"location_id"`
	CompanyID      string    `json:"company_id,omitempty"`
	Scope          string    `json:"scope,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// Valid reports whether the bundle can still be used at now
func (b *LocationTokenBundle) Valid(now time.Time) bool {
	return b != nil && b.AccessToken != "" && b.ExpiresAt.After(now)
}

// ClampTo limits the bundle's lifetime to the parent token's expiry.
func (b *LocationTokenBundle) ClampTo(parentExpiresAt time.Time) {
	if !parentExpiresAt.IsZero() && b.ExpiresAt.After(parentExpiresAt) {
		b.ExpiresAt = parentExpiresAt
	}
}
