package oauth2

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"ghl-oauth-manager/internal/common/errors"
	"ghl-oauth-manager/internal/common/utils"
	"ghl-oauth-manager/internal/events"
	"ghl-oauth-manager/internal/installations"
	"ghl-oauth-manager/internal/provider"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewManager_RequiresStoreAndProvider(t *testing.T) {
	_, err := NewManager(Options{Provider: provider.NewClient(provider.Config{})})
	assert.True(t, errors.IsType(err, errors.ErrTypeConfig))

	_, err = NewManager(Options{Store: installations.NewMemoryStore()})
	assert.True(t, errors.IsType(err, errors.ErrTypeConfig))
}

func TestManager_Install(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()

	accessToken := testJWT(t, jwt.MapClaims{"authClass": "Location", "authClassId": "loc-42", "companyId": "comp-7"})
	h.provider.set(func(p *fakeProvider) {
		p.codes["code-1"] = provider.TokenResponse{
			AccessToken:  accessToken,
			RefreshToken: "rt-1",
			ExpiresIn:    86400,
			Scope:        "contacts.readonly contacts.readonly locations.readonly",
			UserType:     "Location",
		}
	})

	inst, err := h.manager.Install(ctx, "code-1", nil)
	require.NoError(t, err)

	assert.Regexp(t, `^install_\d+_`, inst.ID)
	assert.Equal(t, "loc-42", inst.LocationID)
	assert.Equal(t, "comp-7", inst.CompanyID)
	assert.Equal(t, installations.AuthClassLocation, inst.AuthClass)
	assert.Equal(t, []string{"contacts.readonly", "locations.readonly"}, inst.Scopes)
	assert.Equal(t, h.clock.Now().Add(86400*time.Second), inst.ExpiresAt)
	assert.Equal(t, installations.StatusValid, inst.TokenStatus)

	stored, err := h.store.Get(ctx, inst.ID)
	require.NoError(t, err)
	assert.Equal(t, "rt-1", stored.RefreshToken)

	assert.Eventually(t, func() bool {
		return h.published.has(events.InstallationCreated, inst.ID)
	}, time.Second, 10*time.Millisecond)
}

func TestManager_Install_ResponseLocationWins(t *testing.T) {
	h := newHarness(t, nil)

	h.provider.set(func(p *fakeProvider) {
		p.codes["code-1"] = provider.TokenResponse{
			AccessToken:  testJWT(t, jwt.MapClaims{"authClass": "Location", "authClassId": "loc-from-jwt"}),
			RefreshToken: "rt-1",
			ExpiresIn:    3600,
			LocationID:   "loc-from-response",
		}
	})

	inst, err := h.manager.Install(context.Background(), "code-1", nil)
	require.NoError(t, err)
	assert.Equal(t, "loc-from-response", inst.LocationID)
}

func TestManager_Install_UnknownLocationIsStored(t *testing.T) {
	h := newHarness(t, nil)

	h.provider.set(func(p *fakeProvider) {
		p.codes["code-1"] = provider.TokenResponse{AccessToken: "opaque", RefreshToken: "rt-1", ExpiresIn: 3600}
	})

	inst, err := h.manager.Install(context.Background(), "code-1", nil)
	require.NoError(t, err)
	assert.Empty(t, inst.LocationID)
	assert.Equal(t, installations.AuthClassCompany, inst.AuthClass)
}

func TestManager_Install_Failures(t *testing.T) {
	t.Run("missing code", func(t *testing.T) {
		h := newHarness(t, nil)
		_, err := h.manager.Install(context.Background(), "", nil)
		require.Error(t, err)
		appErr, _ := errors.As(err)
		assert.Equal(t, "no_code", appErr.Code)
	})

	t.Run("missing credentials fails before any provider call", func(t *testing.T) {
		h := newHarness(t, func(o *Options) { o.Credentials = NewCredentialResolver(provider.Credentials{}) })
		_, err := h.manager.Install(context.Background(), "code-1", nil)
		assert.True(t, errors.IsType(err, errors.ErrTypeMissingCredentials))
		exchange, _, _ := h.provider.counts()
		assert.Zero(t, exchange)
	})

	t.Run("partial override is rejected", func(t *testing.T) {
		h := newHarness(t, nil)
		_, err := h.manager.Install(context.Background(), "code-1", &provider.Credentials{ClientID: "other"})
		assert.True(t, errors.IsType(err, errors.ErrTypeMissingCredentials))
	})

	t.Run("rejected code", func(t *testing.T) {
		h := newHarness(t, nil)
		_, err := h.manager.Install(context.Background(), "unknown-code", nil)
		assert.True(t, errors.IsType(err, errors.ErrTypeProviderRejected))
		assert.Equal(t, "invalid_grant", errors.OAuthCode(err))

		all, err := h.manager.List(context.Background())
		require.NoError(t, err)
		assert.Empty(t, all)
	})
}

func TestManager_Install_OverrideUsedForRefresh(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()

	h.provider.set(func(p *fakeProvider) {
		p.codes["code-1"] = provider.TokenResponse{AccessToken: "at-1", RefreshToken: "rt-1", ExpiresIn: 3600}
	})

	override := &provider.Credentials{
		ClientID:     "request-client",
		ClientSecret: "request-secret",
		RedirectURI:  "https://other.example.com/callback",
	}
	inst, err := h.manager.Install(ctx, "code-1", override)
	require.NoError(t, err)

	_, err = h.manager.Refresh(ctx, inst.ID)
	require.NoError(t, err)

	h.provider.mu.Lock()
	defer h.provider.mu.Unlock()
	assert.Equal(t, []string{"request-client"}, h.provider.refreshClientIDs)
}

func TestManager_Refresh(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	seeded := h.seed(t, "install_1", 5*time.Minute, "rt-old")

	inst, err := h.manager.Refresh(ctx, "install_1")
	require.NoError(t, err)

	assert.True(t, inst.ExpiresAt.After(seeded.ExpiresAt))
	assert.Equal(t, "at-refreshed-1", inst.AccessToken)
	assert.Equal(t, "rt-refreshed-1", inst.RefreshToken)
	assert.Equal(t, installations.StatusValid, inst.TokenStatus)
	require.NotNil(t, inst.LastRefresh)
	assert.Equal(t, h.clock.Now(), *inst.LastRefresh)

	assert.Eventually(t, func() bool {
		return h.published.has(events.TokenRefreshed, "install_1")
	}, time.Second, 10*time.Millisecond)
}

func TestManager_Refresh_KeepsRefreshTokenWhenOmitted(t *testing.T) {
	h := newHarness(t, nil)
	h.seed(t, "install_1", time.Minute, "rt-keep")
	h.provider.set(func(p *fakeProvider) { p.omitRefreshToken = true })

	inst, err := h.manager.Refresh(context.Background(), "install_1")
	require.NoError(t, err)
	assert.Equal(t, "rt-keep", inst.RefreshToken)
}

func TestManager_Refresh_InvalidGrant(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	h.seed(t, "install_1", 5*time.Minute, "rt-revoked")
	h.provider.set(func(p *fakeProvider) { p.invalidRefresh["rt-revoked"] = true })

	_, err := h.manager.Refresh(ctx, "install_1")
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrTypeProviderRejected))

	stored, err := h.store.Get(ctx, "install_1")
	require.NoError(t, err)
	assert.Equal(t, installations.StatusRefreshExpired, stored.TokenStatus)
	assert.Equal(t, "invalid_grant", stored.LastError)
	assert.Equal(t, "at-install_1", stored.AccessToken)
	assert.False(t, h.manager.Scheduler().Armed("install_1"))

	report, err := h.manager.Status(ctx, "install_1")
	require.NoError(t, err)
	assert.Equal(t, installations.StatusRefreshExpired, report.Status)

	assert.Eventually(t, func() bool {
		return h.published.has(events.TokenRefreshFailed, "install_1")
	}, time.Second, 10*time.Millisecond)
}

func TestManager_Refresh_OutageIsNotTerminal(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	h.seed(t, "install_1", 20*time.Hour, "rt-1")
	h.provider.set(func(p *fakeProvider) { p.unavailable = 1 })

	_, err := h.manager.Refresh(ctx, "install_1")
	require.Error(t, err)
	assert.True(t, errors.Retryable(err))

	stored, err := h.store.Get(ctx, "install_1")
	require.NoError(t, err)
	assert.Equal(t, installations.StatusValid, stored.TokenStatus)
	assert.Equal(t, string(errors.ErrTypeProviderUnavailable), stored.LastError)
	assert.Equal(t, "rt-1", stored.RefreshToken)
	assert.Eventually(t, func() bool {
		return h.published.has(events.TokenRefreshRetrying, "install_1")
	}, time.Second, 10*time.Millisecond)

	report, err := h.manager.Reconcile(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Armed)
	assert.True(t, h.manager.Scheduler().Armed("install_1"))
}

func TestManager_ScheduledRefreshRetriesAfterOutage(t *testing.T) {
	h := newHarness(t, func(o *Options) {
		o.AutoRefresh = true
		o.RetryBackoff = utils.RetryConfig{InitialDelay: 10 * time.Millisecond, MaxDelay: 50 * time.Millisecond, BackoffFactor: 2}
	})
	ctx := context.Background()
	inst := h.seed(t, "install_1", -time.Minute, "rt-1")
	h.provider.set(func(p *fakeProvider) { p.unavailable = 2 })

	_, ok := h.manager.Scheduler().Schedule(inst)
	require.True(t, ok)

	require.Eventually(t, func() bool {
		stored, err := h.store.Get(ctx, "install_1")
		return err == nil && stored.AccessToken == "at-refreshed-1"
	}, 2*time.Second, 10*time.Millisecond)

	stored, err := h.store.Get(ctx, "install_1")
	require.NoError(t, err)
	assert.Equal(t, installations.StatusValid, stored.TokenStatus)
	assert.Empty(t, stored.LastError)

	_, refresh, _ := h.provider.counts()
	assert.Equal(t, 3, refresh)

	due, ok := h.manager.Scheduler().Due("install_1")
	require.True(t, ok)
	assert.True(t, due.After(h.clock.Now().Add(time.Hour)))
}

func TestManager_Refresh_MissingRefreshToken(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	h.seed(t, "install_1", time.Hour, "")

	_, err := h.manager.Refresh(ctx, "install_1")
	require.Error(t, err)
	appErr, ok := errors.As(err)
	require.True(t, ok)
	assert.Equal(t, errors.ErrTypeValidation, appErr.Type)
	assert.Equal(t, "missing_refresh_token", appErr.Code)

	stored, err := h.store.Get(ctx, "install_1")
	require.NoError(t, err)
	assert.Equal(t, installations.StatusRefreshRequired, stored.TokenStatus)

	_, refresh, _ := h.provider.counts()
	assert.Zero(t, refresh)
}

func TestManager_Refresh_UnknownInstallation(t *testing.T) {
	h := newHarness(t, nil)
	_, err := h.manager.Refresh(context.Background(), "install_missing")
	assert.True(t, errors.IsType(err, errors.ErrTypeNotFound))
}

func TestManager_Refresh_ConcurrentCallsShareOneProviderCall(t *testing.T) {
	h := newHarness(t, nil)
	h.seed(t, "install_1", time.Minute, "rt-1")

	gate := make(chan struct{})
	h.provider.set(func(p *fakeProvider) { p.gate = gate })

	const callers = 8
	var wg sync.WaitGroup
	results := make([]*installations.Installation, callers)
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = h.manager.Refresh(context.Background(), "install_1")
		}(i)
	}
	require.True(t, h.manager.Scheduler().ScheduleAfter("install_1", 0))

	require.Eventually(t, func() bool {
		_, refresh, _ := h.provider.counts()
		return refresh == 1
	}, time.Second, 5*time.Millisecond)
	time.Sleep(100 * time.Millisecond)
	close(gate)
	wg.Wait()

	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, "at-refreshed-1", results[i].AccessToken)
	}
	assert.Eventually(t, func() bool { return h.manager.Scheduler().Pending() == 0 }, time.Second, 10*time.Millisecond)

	_, refresh, _ := h.provider.counts()
	assert.Equal(t, 1, refresh)
}

func TestManager_ScheduledRefreshSkipsTokenRenewedElsewhere(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	stale := h.seed(t, "install_1", -time.Minute, "rt-1")

	renewed := h.clock.Now().Add(20 * time.Hour)
	_, err := h.store.Update(ctx, stale.ID, func(inst *installations.Installation) error {
		inst.ExpiresAt = renewed
		return nil
	})
	require.NoError(t, err)

	_, ok := h.manager.Scheduler().Schedule(stale)
	require.True(t, ok)

	require.Eventually(t, func() bool {
		due, ok := h.manager.Scheduler().Due("install_1")
		return ok && due.Equal(renewed.Add(-DefaultRefreshPadding))
	}, time.Second, 5*time.Millisecond)

	_, refresh, _ := h.provider.counts()
	assert.Zero(t, refresh)
}

func TestManager_ScheduledRefreshRunsWhenExpiryUnchanged(t *testing.T) {
	h := newHarness(t, nil)
	inst := h.seed(t, "install_1", -time.Minute, "rt-1")

	_, ok := h.manager.Scheduler().Schedule(inst)
	require.True(t, ok)

	assert.Eventually(t, func() bool {
		_, refresh, _ := h.provider.counts()
		return refresh == 1
	}, time.Second, 5*time.Millisecond)
}

func TestManager_Refresh_ReArmsWhenAutoRefreshEnabled(t *testing.T) {
	h := newHarness(t, func(o *Options) { o.AutoRefresh = true })
	h.seed(t, "install_1", time.Minute, "rt-1")

	inst, err := h.manager.Refresh(context.Background(), "install_1")
	require.NoError(t, err)

	due, ok := h.manager.Scheduler().Due("install_1")
	require.True(t, ok)
	lifetime := inst.ExpiresAt.Sub(h.clock.Now())
	assert.Equal(t, h.clock.Now().Add(RefreshDelay(lifetime, DefaultRefreshPadding)), due)
}

func TestManager_BulkRefresh(t *testing.T) {
	h := newHarness(t, func(o *Options) { o.BulkConcurrency = 2 })

	ids := make([]string, 0, 6)
	for i := 0; i < 5; i++ {
		id := fmt.Sprintf("install_%d", i)
		h.seed(t, id, time.Minute, "rt-"+id)
		ids = append(ids, id)
	}
	h.provider.set(func(p *fakeProvider) {
		p.invalidRefresh["rt-install_1"] = true
		p.invalidRefresh["rt-install_3"] = true
	})
	ids = append(ids, "install_missing")

	summary := h.manager.BulkRefresh(context.Background(), ids)

	assert.Equal(t, 6, summary.Total)
	assert.Equal(t, 3, summary.Successful)
	assert.Equal(t, 3, summary.Failed)
	require.Len(t, summary.Results, 6)

	byID := make(map[string]BulkResult)
	for _, r := range summary.Results {
		byID[r.InstallationID] = r
	}
	for _, id := range []string{"install_0", "install_2", "install_4"} {
		assert.True(t, byID[id].Success, id)
		assert.Equal(t, BulkRefreshed, byID[id].Status, id)
		assert.NotNil(t, byID[id].ExpiresAt, id)
	}
	for _, id := range []string{"install_1", "install_3"} {
		assert.False(t, byID[id].Success, id)
		assert.Equal(t, BulkFailed, byID[id].Status, id)
		assert.Equal(t, string(errors.ErrTypeProviderRejected), byID[id].Error, id)
	}
	assert.Equal(t, BulkError, byID["install_missing"].Status)
	assert.Equal(t, ids, []string{
		summary.Results[0].InstallationID, summary.Results[1].InstallationID, summary.Results[2].InstallationID,
		summary.Results[3].InstallationID, summary.Results[4].InstallationID, summary.Results[5].InstallationID,
	})
}

func TestManager_BulkRefresh_TimeoutDoesNotBlockBatch(t *testing.T) {
	h := newHarness(t, func(o *Options) { o.BulkConcurrency = 2 })
	h.manager.provider = h.provider.clientWithTimeout(200 * time.Millisecond)

	ids := []string{"install_0", "install_1", "install_2", "install_3"}
	for _, id := range ids {
		h.seed(t, id, time.Minute, "rt-"+id)
	}
	h.provider.set(func(p *fakeProvider) { p.stallRefresh["rt-install_1"] = true })

	start := time.Now()
	summary := h.manager.BulkRefresh(context.Background(), ids)
	assert.Less(t, time.Since(start), 2*time.Second)

	assert.Equal(t, 4, summary.Total)
	assert.Equal(t, 3, summary.Successful)
	assert.Equal(t, 1, summary.Failed)

	for _, r := range summary.Results {
		if r.InstallationID == "install_1" {
			assert.False(t, r.Success)
			assert.Equal(t, BulkFailed, r.Status)
			assert.Equal(t, string(errors.ErrTypeTimeout), r.Error)
			continue
		}
		assert.True(t, r.Success, r.InstallationID)
		assert.Equal(t, BulkRefreshed, r.Status, r.InstallationID)
	}

	stored, err := h.store.Get(context.Background(), "install_1")
	require.NoError(t, err)
	assert.False(t, stored.TokenStatus.Terminal())
	assert.Equal(t, "at-install_1", stored.AccessToken)
}

func TestManager_DayLongTokenScenario(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()

	h.provider.set(func(p *fakeProvider) {
		p.codes["code-1"] = provider.TokenResponse{AccessToken: "at-1", RefreshToken: "rt-1", ExpiresIn: 86400}
	})
	t0 := h.clock.Now()
	inst, err := h.manager.Install(ctx, "code-1", nil)
	require.NoError(t, err)
	assert.Equal(t, t0.Add(86400*time.Second), inst.ExpiresAt)

	h.clock.Advance(86300 * time.Second)
	report, err := h.manager.Status(ctx, inst.ID)
	require.NoError(t, err)
	assert.Equal(t, installations.StatusExpiringSoon, report.Status)
	assert.Equal(t, 1, report.ExpiresInMinutes)

	refreshTime := h.clock.Now()
	refreshed, err := h.manager.Refresh(ctx, inst.ID)
	require.NoError(t, err)
	assert.Equal(t, refreshTime.Add(86400*time.Second), refreshed.ExpiresAt)

	report, err = h.manager.Status(ctx, inst.ID)
	require.NoError(t, err)
	assert.Equal(t, installations.StatusValid, report.Status)
}

func TestManager_EnsureFresh(t *testing.T) {
	ctx := context.Background()

	t.Run("valid token is returned as is", func(t *testing.T) {
		h := newHarness(t, nil)
		h.seed(t, "install_1", 2*time.Hour, "rt-1")

		inst, err := h.manager.EnsureFresh(ctx, "install_1")
		require.NoError(t, err)
		assert.Equal(t, "at-install_1", inst.AccessToken)
		_, refresh, _ := h.provider.counts()
		assert.Zero(t, refresh)
	})

	t.Run("expiring token is refreshed", func(t *testing.T) {
		h := newHarness(t, nil)
		h.seed(t, "install_1", 5*time.Minute, "rt-1")

		inst, err := h.manager.EnsureFresh(ctx, "install_1")
		require.NoError(t, err)
		assert.Equal(t, "at-refreshed-1", inst.AccessToken)
	})

	t.Run("failed refresh serves the unexpired token", func(t *testing.T) {
		h := newHarness(t, nil)
		h.seed(t, "install_1", 5*time.Minute, "rt-1")
		h.provider.set(func(p *fakeProvider) { p.invalidRefresh["rt-1"] = true })

		inst, err := h.manager.EnsureFresh(ctx, "install_1")
		require.NoError(t, err)
		assert.Equal(t, "at-install_1", inst.AccessToken)
	})

	t.Run("failed refresh of an expired token is an error", func(t *testing.T) {
		h := newHarness(t, nil)
		h.seed(t, "install_1", -time.Minute, "rt-1")
		h.provider.set(func(p *fakeProvider) { p.invalidRefresh["rt-1"] = true })

		_, err := h.manager.EnsureFresh(ctx, "install_1")
		assert.True(t, errors.IsType(err, errors.ErrTypeProviderRejected))
	})
}

func TestManager_Queries(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	h.seed(t, "install_a", 30*time.Minute, "rt")
	h.seed(t, "install_b", 3*time.Hour, "rt")
	h.seed(t, "install_c", -time.Minute, "rt")

	expiring, err := h.manager.Expiring(ctx, time.Hour)
	require.NoError(t, err)
	require.Len(t, expiring, 1)
	assert.Equal(t, "install_a", expiring[0].ID)

	expired, err := h.manager.Expired(ctx)
	require.NoError(t, err)
	require.Len(t, expired, 1)
	assert.Equal(t, "install_c", expired[0].ID)

	all, err := h.manager.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "install_c", all[0].ID)
	assert.Equal(t, "install_b", all[2].ID)
}

func TestManager_Delete(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	h.seed(t, "install_1", time.Hour, "rt")
	h.manager.Scheduler().ScheduleAfter("install_1", time.Hour)

	require.NoError(t, h.manager.Delete(ctx, "install_1"))
	assert.False(t, h.manager.Scheduler().Armed("install_1"))

	_, err := h.manager.Get(ctx, "install_1")
	assert.True(t, errors.IsType(err, errors.ErrTypeNotFound))
	assert.Eventually(t, func() bool {
		return h.published.has(events.InstallationDeleted, "install_1")
	}, time.Second, 10*time.Millisecond)
}

func TestManager_Reconcile(t *testing.T) {
	h := newHarness(t, func(o *Options) { o.Retention = 30 * 24 * time.Hour })
	ctx := context.Background()

	h.seed(t, "install_healthy", 20*time.Hour, "rt-healthy")
	h.seed(t, "install_soon", 30*time.Minute, "rt-soon")
	h.seed(t, "install_no_refresh", 20*time.Hour, "")

	failed := h.seed(t, "install_failed", time.Hour, "rt-failed")
	_, err := h.store.Update(ctx, failed.ID, func(inst *installations.Installation) error {
		inst.MarkFailed(installations.StatusRefreshFailed, "provider_rejected", h.clock.Now())
		return nil
	})
	require.NoError(t, err)

	stale := h.seed(t, "install_stale", -48*time.Hour, "rt-stale")
	_, err = h.store.Update(ctx, stale.ID, func(inst *installations.Installation) error {
		inst.MarkFailed(installations.StatusRefreshExpired, "invalid_grant", h.clock.Now().Add(-40*24*time.Hour))
		return nil
	})
	require.NoError(t, err)

	report, err := h.manager.Reconcile(ctx)
	require.NoError(t, err)

	assert.Equal(t, 1, report.Armed)
	assert.Equal(t, 1, report.Immediate)
	assert.Equal(t, 1, report.Collected)

	due, ok := h.manager.Scheduler().Due("install_healthy")
	require.True(t, ok)
	assert.Equal(t, h.clock.Now().Add(20*time.Hour-DefaultRefreshPadding), due)
	assert.False(t, h.manager.Scheduler().Armed("install_no_refresh"))
	assert.False(t, h.manager.Scheduler().Armed("install_failed"))

	_, err = h.store.Get(ctx, "install_stale")
	assert.True(t, errors.IsType(err, errors.ErrTypeNotFound))

	assert.Eventually(t, func() bool {
		inst, err := h.store.Get(ctx, "install_soon")
		return err == nil && inst.AccessToken == "at-refreshed-1"
	}, 2*time.Second, 10*time.Millisecond)

	second, err := h.manager.Reconcile(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, second.Armed)
	assert.Zero(t, second.Immediate)
	assert.Zero(t, second.Collected)
	assert.True(t, h.manager.Scheduler().Armed("install_soon"))
}

func TestManager_StartWithAutoRefreshDisabled(t *testing.T) {
	h := newHarness(t, nil)
	h.seed(t, "install_1", 20*time.Hour, "rt")

	require.NoError(t, h.manager.Start(context.Background()))
	assert.Zero(t, h.manager.Scheduler().Pending())
}

func TestManager_StartArmsStoredInstallations(t *testing.T) {
	h := newHarness(t, func(o *Options) {
		o.AutoRefresh = true
		o.ReconcileInterval = time.Hour
	})
	h.seed(t, "install_1", 20*time.Hour, "rt")

	require.NoError(t, h.manager.Start(context.Background()))
	assert.True(t, h.manager.Scheduler().Armed("install_1"))

	require.NoError(t, h.manager.Close())
	assert.Zero(t, h.manager.Scheduler().Pending())
}

func TestManager_AuthCodeURL(t *testing.T) {
	h := newHarness(t, nil)

	url, err := h.manager.AuthCodeURL("state-1")
	require.NoError(t, err)
	assert.Contains(t, url, "/oauth/chooselocation?")
	assert.Contains(t, url, "client_id=env-client")
	assert.Contains(t, url, "state=state-1")

	bare := newHarness(t, func(o *Options) { o.Credentials = NewCredentialResolver(provider.Credentials{}) })
	_, err = bare.manager.AuthCodeURL("state-1")
	assert.True(t, errors.IsType(err, errors.ErrTypeMissingCredentials))
}

func TestManager_BreakerStats(t *testing.T) {
	h := newHarness(t, nil)
	stats, ok := h.manager.BreakerStats()
	require.True(t, ok)
	assert.Equal(t, "ghl-oauth", stats.Name)
}
