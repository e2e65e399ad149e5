package oauth2

import (
	"context"

	"ghl-oauth-manager/internal/common/errors"
	"ghl-oauth-manager/internal/common/logging"
	"ghl-oauth-manager/internal/provider"
)

// LocationResolver picks the location an installation is bound to. An empty
// id with a nil error means "unknown".
type LocationResolver interface {
	Resolve(ctx context.Context, token string, claims Claims) (string, error)
}

// LocationDirectory lists locations and their product counts
type LocationDirectory interface {
	ListLocations(ctx context.Context, token, companyID string) ([]provider.Location, error)
	CountProducts(ctx context.Context, token, locationID string) (int, error)
}

// ClaimsResolver reads the location from the token claims
type ClaimsResolver struct{}

func (ClaimsResolver) Resolve(ctx context.Context, token string, claims Claims) (string, error) {
	return claims.Location(), nil
}

// DiscoveryResolver asks the API which locations the company owns and picks
// one: the claims' location when listed, else the one with the most
// products, else the first listed.
type DiscoveryResolver struct {
	directory LocationDirectory
	logger    logging.Logger
}

// NewDiscoveryResolver creates a resolver backed by directory
func NewDiscoveryResolver(directory LocationDirectory) *DiscoveryResolver {
	return &DiscoveryResolver{
		directory: directory,
		logger:    logging.GetGlobalLogger().WithFields(logging.Field{Key: "component", Value: "location_discovery"}),
	}
}

func (d *DiscoveryResolver) Resolve(ctx context.Context, token string, claims Claims) (string, error) {
	companyID := claims.Company()
	if companyID == "" {
		return "", nil
	}

	locations, err := d.directory.ListLocations(ctx, token, companyID)
	if err != nil {
		return "", err
	}
	if len(locations) == 0 {
		return "", nil
	}

	if hint := claims.Location(); hint != "" {
		for _, loc := range locations {
			if loc.ID == hint {
				return hint, nil
			}
		}
	}

	best, bestCount := locations[0].ID, -1
	for _, loc := range locations {
		count, err := d.directory.CountProducts(ctx, token, loc.ID)
		if err != nil {
			d.logger.Debug("Product count failed during discovery",
				logging.Field{Key: "location_id", Value: loc.ID},
				logging.Field{Key: "error_kind", Value: string(errors.GetType(err))},
			)
			continue
		}
		if count > bestCount {
			best, bestCount = loc.ID, count
		}
	}
	return best, nil
}

// ChainResolver tries resolvers in order and returns the first non-empty id.
// Errors are logged and skipped.
type ChainResolver struct {
	resolvers []LocationResolver
	logger    logging.Logger
}

// NewChainResolver creates a chain
func NewChainResolver(resolvers ...LocationResolver) *ChainResolver {
	return &ChainResolver{
		resolvers: resolvers,
		logger:    logging.GetGlobalLogger().WithFields(logging.Field{Key: "component", Value: "location_resolver"}),
	}
}

func (c *ChainResolver) Resolve(ctx context.Context, token string, claims Claims) (string, error) {
	for _, r := range c.resolvers {
		id, err := r.Resolve(ctx, token, claims)
		if err != nil {
			c.logger.Warn("Location resolver failed",
				logging.Field{Key: "error_kind", Value: string(errors.GetType(err))},
			)
			continue
		}
		if id != "" {
			return id, nil
		}
	}
	return "", nil
}
