package oauth2

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"time"

	"ghl-oauth-manager/internal/common/cache"
	"ghl-oauth-manager/internal/common/errors"
	"ghl-oauth-manager/internal/common/logging"
	"ghl-oauth-manager/internal/events"
	"ghl-oauth-manager/internal/installations"
	"ghl-oauth-manager/internal/provider"
)

// LocationTokenClient exchanges a Company token for a Location token
type LocationTokenClient interface {
	LocationToken(ctx context.Context, companyToken, companyID, locationID string) (*provider.TokenResponse, error)
}

// InstallationRefresher refreshes an installation's Company token
type InstallationRefresher func(ctx context.Context, id string) (*installations.Installation, error)

// DefaultLocationTokenSkew is how long before expiry a cached Location
// token is no longer handed out.
const DefaultLocationTokenSkew = 5 * time.Minute

type cachedBundle struct {
	bundle      *installations.LocationTokenBundle
	fingerprint string
}

// Converter turns Company tokens into cached Location tokens
type Converter struct {
	store   installations.Store
	client  LocationTokenClient
	refresh InstallationRefresher
	cache   *cache.LocalCache
	events  *events.Emitter
	clock   func() time.Time
	skew    time.Duration
	logger  logging.Logger
}

// NewConverter creates a converter. refresh is called at most once per
// conversion, when the provider rejects the Company token with 401.
func NewConverter(store installations.Store, client LocationTokenClient, refresh InstallationRefresher,
	emitter *events.Emitter, clock func() time.Time) *Converter {
	if clock == nil {
		clock = time.Now
	}
	if emitter == nil {
		emitter = events.NewEmitter(nil)
	}
	return &Converter{
		store:   store,
		client:  client,
		refresh: refresh,
		cache:   cache.NewLocalCache(time.Hour, 10*time.Minute),
		events:  emitter,
		clock:   clock,
		skew:    DefaultLocationTokenSkew,
		logger:  logging.GetGlobalLogger().WithFields(logging.Field{Key: "component", Value: "location_converter"}),
	}
}

// Convert returns a Location token for the installation, from cache when the
// cached one was derived from the current Company token and is not about to
// expire.
func (c *Converter) Convert(ctx context.Context, id string) (*installations.LocationTokenBundle, error) {
	inst, err := c.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if inst.AuthClass == installations.AuthClassLocation {
		return c.ownToken(ctx, inst)
	}

	now := c.clock()
	if bundle, ok := c.cached(id, fingerprint(inst.AccessToken), now); ok {
		return bundle, nil
	}

	companyID := inst.CompanyID
	if companyID == "" {
		if claims, err := ParseClaims(inst.AccessToken); err == nil {
			companyID = claims.Company()
		}
	}
	if companyID == "" {
		return nil, errors.LocationConversionError("installation has no company id", nil).
			WithContext("installation_id", id)
	}
	if inst.LocationID == "" {
		return nil, errors.LocationConversionError("installation has no location id", nil).
			WithContext("installation_id", id)
	}

	tok, err := c.client.LocationToken(ctx, inst.AccessToken, companyID, inst.LocationID)
	if err != nil && errors.ProviderStatus(err) == http.StatusUnauthorized && c.refresh != nil {
		c.logger.Info("Company token rejected, refreshing once before retrying conversion",
			logging.Field{Key: "installation_id", Value: id},
		)
		refreshed, refreshErr := c.refresh(ctx, id)
		if refreshErr != nil {
			return nil, errors.LocationConversionError("company token refresh failed", refreshErr).
				WithContext("installation_id", id)
		}
		inst = refreshed
		tok, err = c.client.LocationToken(ctx, inst.AccessToken, companyID, inst.LocationID)
	}
	if err != nil {
		return nil, errors.LocationConversionError("location token exchange failed", err).
			WithContext("installation_id", id)
	}

	now = c.clock()
	bundle := &installations.LocationTokenBundle{
		InstallationID: id,
		AccessToken:    tok.AccessToken,
		RefreshToken:   tok.RefreshToken,
		ExpiresAt:      now.Add(time.Duration(tok.ExpiresIn) * time.Second),
		LocationID:     inst.LocationID,
		CompanyID:      companyID,
		Scope:          tok.Scope,
		CreatedAt:      now,
	}
	bundle.ClampTo(inst.ExpiresAt)

	if ttl := bundle.ExpiresAt.Sub(now); ttl > 0 {
		_ = c.cache.Set(ctx, id, &cachedBundle{bundle: bundle, fingerprint: fingerprint(inst.AccessToken)}, ttl)
	}

	c.events.Emit(events.Event{
		Type:           events.LocationConverted,
		InstallationID: id,
		LocationID:     inst.LocationID,
	})
	c.logger.Info("Location token issued",
		logging.Field{Key: "installation_id", Value: id},
		logging.Field{Key: "location_id", Value: inst.LocationID},
		logging.Field{Key: "expires_at", Value: bundle.ExpiresAt},
	)

	out := *bundle
	return &out, nil
}

// ownToken serves installations that already hold a Location token.
func (c *Converter) ownToken(ctx context.Context, inst *installations.Installation) (*installations.LocationTokenBundle, error) {
	if installations.Evaluate(inst, c.clock(), 0) != installations.StatusValid && c.refresh != nil {
		refreshed, err := c.refresh(ctx, inst.ID)
		if err != nil {
			return nil, errors.LocationConversionError("location token refresh failed", err).
				WithContext("installation_id", inst.ID)
		}
		inst = refreshed
	}

	return &installations.LocationTokenBundle{
		InstallationID: inst.ID,
		AccessToken:    inst.AccessToken,
		RefreshToken:   inst.RefreshToken,
		ExpiresAt:      inst.ExpiresAt,
		LocationID:     inst.LocationID,
		CompanyID:      inst.CompanyID,
		Scope:          inst.ScopeString(),
		CreatedAt:      inst.CreatedAt,
	}, nil
}

func (c *Converter) cached(id, parent string, now time.Time) (*installations.LocationTokenBundle, bool) {
	value, ok := c.cache.Get(context.Background(), id)
	if !ok {
		return nil, false
	}
	entry, ok := value.(*cachedBundle)
	if !ok || entry.fingerprint != parent || !entry.bundle.Valid(now.Add(c.skew)) {
		return nil, false
	}
	out := *entry.bundle
	return &out, true
}

// Peek returns the cached bundle without any network call
func (c *Converter) Peek(id string) (*installations.LocationTokenBundle, bool) {
	value, ok := c.cache.Get(context.Background(), id)
	if !ok {
		return nil, false
	}
	entry, ok := value.(*cachedBundle)
	if !ok || !entry.bundle.Valid(c.clock()) {
		return nil, false
	}
	out := *entry.bundle
	return &out, true
}

// Invalidate drops the cached Location token of id
func (c *Converter) Invalidate(id string) {
	_ = c.cache.Delete(context.Background(), id)
}

// CachedCount returns the number of cached Location tokens
func (c *Converter) CachedCount() int {
	return c.cache.Len()
}

func fingerprint(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:8])
}
