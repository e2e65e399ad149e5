package installations

import (
	"math"
	"time"
)

// Evaluate classifies the access token at now. It is pure: the same inputs
// always give the same answer.
func Evaluate(inst *Installation, now time.Time, buffer time.Duration) TokenStatus {
	if inst == nil || inst.AccessToken == "" {
		return StatusNoToken
	}
	if !inst.ExpiresAt.After(now) {
		return StatusExpired
	}
	if !inst.ExpiresAt.After(now.Add(buffer)) {
		return StatusExpiringSoon
	}
	return StatusValid
}

// NeedsRefresh reports whether the token is expired or inside buffer
func NeedsRefresh(inst *Installation, now time.Time, buffer time.Duration) bool {
	switch Evaluate(inst, now, buffer) {
	case StatusExpired, StatusExpiringSoon:
		return true
	}
	return false
}

// Report is the user facing view of an installation's token health
type Report struct {
	Status           TokenStatus `json:"status"`
	ExpiresInMinutes int         `json:"expiresInMinutes"`
	ExpiresAt        time.Time   `json:"expiresAt"`
	HasAccessToken   bool        `json:"hasAccessToken"`
	HasRefreshToken  bool        `json:"hasRefreshToken"`
	LocationID       string      `json:"locationId"`
	LastRefresh      *time.Time  `json:"lastRefresh,omitempty"`
	LastError        string      `json:"lastError,omitempty"`
}

// Describe builds the status report. A persisted terminal status wins over
// the computed one unless the token is valid again.
func Describe(inst *Installation, now time.Time, buffer time.Duration) Report {
	status := Evaluate(inst, now, buffer)
	if status != StatusValid && inst.TokenStatus.Terminal() {
		status = inst.TokenStatus
	}

	return Report{
		Status:           status,
		ExpiresInMinutes: ExpiresInMinutes(inst, now),
		ExpiresAt:        inst.ExpiresAt,
		HasAccessToken:   inst.AccessToken != "",
		HasRefreshToken:  inst.RefreshToken != "",
		LocationID:       inst.LocationID,
		LastRefresh:      inst.LastRefresh,
		LastError:        inst.LastError,
	}
}

// ExpiresInMinutes is the whole minutes left, negative once expired.
func ExpiresInMinutes(inst *Installation, now time.Time) int {
	if inst.ExpiresAt.IsZero() {
		return 0
	}
	return int(math.Floor(inst.ExpiresAt.Sub(now).Minutes()))
}

// ExpiresInSeconds is the whole seconds left, never negative
func ExpiresInSeconds(expiresAt, now time.Time) int {
	left := int(expiresAt.Sub(now) / time.Second)
	if left < 0 {
		return 0
	}
	return left
}
