package installations

import (
	"context"
	"sort"
	"time"

	"ghl-oauth-manager/internal/common/errors"
	"ghl-oauth-manager/internal/common/utils"
	"ghl-oauth-manager/internal/crypto"

	"github.com/samber/lo"
)

// Store persists installations. Update is atomic per installation: the
// mutator sees the latest stored value and nothing is written when it fails.
type Store interface {
	Create(ctx context.Context, inst *Installation) (string, error)
	Get(ctx context.Context, id string) (*Installation, error)
	Update(ctx context.Context, id string, mutate func(*Installation) error) (*Installation, error)
	List(ctx context.Context, filter Filter) ([]*Installation, error)
	Delete(ctx context.Context, id string) error
	Health(ctx context.Context) error
	Close() error
}

// Filter selects installations for List. Zero values match everything.
type Filter struct {
	// ExpiringWithin matches 0 < ExpiresAt-now <= d
	ExpiringWithin time.Duration
	// Expired matches ExpiresAt <= now
	Expired       bool
	Statuses      []TokenStatus
	UpdatedBefore time.Time
	Limit         int
	// Now is the reference time, time.Now when zero
	Now time.Time
}

func (f Filter) now() time.Time {
	if f.Now.IsZero() {
		return time.Now()
	}
	return f.Now
}

// Match reports whether inst passes the filter at now
func (f Filter) Match(inst *Installation, now time.Time) bool {
	if f.Expired && inst.ExpiresAt.After(now) {
		return false
	}
	if f.ExpiringWithin > 0 {
		left := inst.ExpiresAt.Sub(now)
		if left <= 0 || left > f.ExpiringWithin {
			return false
		}
	}
	if len(f.Statuses) > 0 && !lo.Contains(f.Statuses, inst.TokenStatus) {
		return false
	}
	if !f.UpdatedBefore.IsZero() && !inst.UpdatedAt.Before(f.UpdatedBefore) {
		return false
	}
	return true
}

// applyFilter filters, sorts by ExpiresAt ascending and applies Limit.
func applyFilter(all []*Installation, filter Filter) []*Installation {
	now := filter.now()
	matched := lo.Filter(all, func(inst *Installation, _ int) bool {
		return filter.Match(inst, now)
	})
	sortByExpiry(matched)
	if filter.Limit > 0 && len(matched) > filter.Limit {
		matched = matched[:filter.Limit]
	}
	return matched
}

func sortByExpiry(list []*Installation) {
	sort.SliceStable(list, func(a, b int) bool {
		if list[a].ExpiresAt.Equal(list[b].ExpiresAt) {
			return list[a].ID < list[b].ID
		}
		return list[a].ExpiresAt.Before(list[b].ExpiresAt)
	})
}

// prepareCreate fills the id and timestamps of a new installation.
func prepareCreate(inst *Installation, now time.Time) (*Installation, error) {
	if inst == nil {
		return nil, errors.ValidationError("installation is required")
	}
	c := inst.Clone()
	if c.ID == "" {
		c.ID = utils.NewInstallationID(now)
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	if c.UpdatedAt.IsZero() {
		c.UpdatedAt = now
	}
	if c.TokenStatus == "" {
		c.TokenStatus = Evaluate(c, now, 0)
	}
	return c, nil
}

func duplicateError(id string) error {
	return errors.ValidationError("installation already exists").WithContext("installation_id", id)
}

// secrets encrypts token fields before they reach a persistent backend.
type secrets struct {
	cipher crypto.TokenCipher
}

func newSecrets(cipher crypto.TokenCipher) secrets {
	if cipher == nil {
		cipher = crypto.PlainCipher{}
	}
	return secrets{cipher: cipher}
}

func (s secrets) seal(inst *Installation) (*Installation, error) {
	c := inst.Clone()
	var err error
	if c.AccessToken, err = s.encrypt(c.AccessToken); err != nil {
		return nil, err
	}
	if c.RefreshToken, err = s.encrypt(c.RefreshToken); err != nil {
		return nil, err
	}
	return c, nil
}

func (s secrets) open(inst *Installation) (*Installation, error) {
	var err error
	if inst.AccessToken, err = s.decrypt(inst.AccessToken); err != nil {
		return nil, err
	}
	if inst.RefreshToken, err = s.decrypt(inst.RefreshToken); err != nil {
		return nil, err
	}
	return inst, nil
}

func (s secrets) encrypt(v string) (string, error) {
	if v == "" {
		return "", nil
	}
	out, err := s.cipher.Encrypt(v)
	if err != nil {
		return "", errors.InternalError("failed to encrypt token", err)
	}
	return out, nil
}

func (s secrets) decrypt(v string) (string, error) {
	if v == "" {
		return "", nil
	}
	out, err := s.cipher.Decrypt(v)
	if err != nil {
		return "", errors.InternalError("failed to decrypt token", err)
	}
	return out, nil
}
