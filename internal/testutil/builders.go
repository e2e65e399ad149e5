package testutil

import (
	"time"

	"ghl-oauth-manager/internal/installations"
)

// InstallationBuilder helps build test installations
type InstallationBuilder struct {
	inst *installations.Installation
}

// NewInstallationBuilder starts from a valid Company installation expiring in a day
func NewInstallationBuilder(id string) *InstallationBuilder {
	now := time.Now().Truncate(time.Second)
	return &InstallationBuilder{
		inst: &installations.Installation{
			ID:           id,
			AccessToken:  "at-" + id,
			RefreshToken: "rt-" + id,
			TokenType:    "Bearer",
			ExpiresAt:    now.Add(24 * time.Hour),
			LocationID:   "loc-" + id,
			CompanyID:    "comp-1",
			AuthClass:    installations.AuthClassCompany,
			TokenStatus:  installations.StatusValid,
			Scopes:       []string{"contacts.readonly", "locations.readonly"},
			CreatedAt:    now,
			UpdatedAt:    now,
		},
	}
}

func (b *InstallationBuilder) WithExpiresIn(d time.Duration) *InstallationBuilder {
	b.inst.ExpiresAt = time.Now().Truncate(time.Second).Add(d)
	return b
}

func (b *InstallationBuilder) WithExpiresAt(t time.Time) *InstallationBuilder {
	b.inst.ExpiresAt = t
	return b
}

func (b *InstallationBuilder) WithRefreshToken(token string) *InstallationBuilder {
	b.inst.RefreshToken = token
	return b
}

func (b *InstallationBuilder) WithLocation(id string) *InstallationBuilder {
	b.inst.LocationID = id
	return b
}

func (b *InstallationBuilder) WithCompany(id string) *InstallationBuilder {
	b.inst.CompanyID = id
	return b
}

func (b *InstallationBuilder) WithAuthClass(class string) *InstallationBuilder {
	b.inst.AuthClass = class
	return b
}

func (b *InstallationBuilder) WithStatus(status installations.TokenStatus) *InstallationBuilder {
	b.inst.TokenStatus = status
	return b
}

func (b *InstallationBuilder) WithUpdatedAt(t time.Time) *InstallationBuilder {
	b.inst.UpdatedAt = t
	return b
}

// Build returns a copy so the builder can be reused
func (b *InstallationBuilder) Build() *installations.Installation {
	return b.inst.Clone()
}
