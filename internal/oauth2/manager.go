package oauth2

import (
	"context"
	"fmt"
	"sync"
	"time"

	"ghl-oauth-manager/internal/circuitbreaker"
	"ghl-oauth-manager/internal/common/errors"
	"ghl-oauth-manager/internal/common/logging"
	"ghl-oauth-manager/internal/common/utils"
	"ghl-oauth-manager/internal/events"
	"ghl-oauth-manager/internal/installations"
	"ghl-oauth-manager/internal/locks"
	"ghl-oauth-manager/internal/provider"

	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// Provider is the part of the provider client the manager drives
type Provider interface {
	ExchangeCode(ctx context.Context, creds provider.Credentials, code string) (*provider.TokenResponse, error)
	RefreshToken(ctx context.Context, creds provider.Credentials, refreshToken string) (*provider.TokenResponse, error)
	LocationToken(ctx context.Context, companyToken, companyID, locationID string) (*provider.TokenResponse, error)
	AuthCodeURL(creds provider.Credentials, state string) string
}

const (
	DefaultRefreshPadding  = 10 * time.Minute
	DefaultStatusBuffer    = 10 * time.Minute
	DefaultRefreshBuffer   = time.Hour
	DefaultBulkConcurrency = 4
	// DefaultMinRefreshInterval is the shortest delay a timer is armed with
	// from a token expiry.
	DefaultMinRefreshInterval = 30 * time.Second

	// refreshTimeout bounds one refresh including the wait for the lock
	refreshTimeout = 45 * time.Second
	lockExpiration = 30 * time.Second
)

// DefaultRetryBackoff waits 30s after the first transient failure and
// doubles up to 15m.
func DefaultRetryBackoff() utils.RetryConfig {
	return utils.RetryConfig{
		InitialDelay:  30 * time.Second,
		MaxDelay:      15 * time.Minute,
		BackoffFactor: 2,
		JitterFactor:  0.1,
	}
}

// Options configures a Manager
type Options struct {
	Store       installations.Store
	Provider    Provider
	Credentials *CredentialResolver
	// Locations resolves the location of new installations. Defaults to
	// the token claims, chained with discovery when EnableDiscovery is set
	// and Directory is available.
	Locations       LocationResolver
	Directory       LocationDirectory
	EnableDiscovery bool
	Locker          locks.Locker
	Events          *events.Emitter
	Clock           func() time.Time

	RefreshPadding     time.Duration
	MinRefreshInterval time.Duration
	// RetryBackoff spaces the retries of refreshes that failed on a provider
	// outage or timeout. MaxAttempts is ignored: retries continue until one
	// succeeds or the failure is not retryable.
	RetryBackoff    utils.RetryConfig
	StatusBuffer    time.Duration
	RefreshBuffer   time.Duration
	BulkConcurrency int

	AutoRefresh       bool
	ReconcileInterval time.Duration
	// Retention deletes failed installations untouched for this long. Zero disables it.
	Retention time.Duration
}

// Manager owns the installation lifecycle: install, refresh, scheduling
// and location token conversion.
type Manager struct {
	store       installations.Store
	provider    Provider
	credentials *CredentialResolver
	locations   LocationResolver
	locker      locks.Locker
	events      *events.Emitter
	clock       func() time.Time

	statusBuffer    time.Duration
	refreshBuffer   time.Duration
	bulkConcurrency int
	autoRefresh     bool
	interval        time.Duration
	retention       time.Duration
	retryBackoff    utils.RetryConfig

	retryMu sync.Mutex
	retries map[string]int

	scheduler *Scheduler
	converter *Converter
	cron      *cron.Cron
	flights   singleflight.Group
	inflight  sync.WaitGroup
	closeOnce sync.Once

	logger logging.Logger
}

// NewManager creates a manager. Start must be called to enable background refresh.
func NewManager(opts Options) (*Manager, error) {
	if opts.Store == nil {
		return nil, errors.ConfigError("installation store is required")
	}
	if opts.Provider == nil {
		return nil, errors.ConfigError("provider client is required")
	}

	m := &Manager{
		store:           opts.Store,
		provider:        opts.Provider,
		credentials:     opts.Credentials,
		locations:       opts.Locations,
		locker:          opts.Locker,
		events:          opts.Events,
		clock:           opts.Clock,
		statusBuffer:    opts.StatusBuffer,
		refreshBuffer:   opts.RefreshBuffer,
		bulkConcurrency: opts.BulkConcurrency,
		autoRefresh:     opts.AutoRefresh,
		interval:        opts.ReconcileInterval,
		retention:       opts.Retention,
		retryBackoff:    opts.RetryBackoff,
		retries:         make(map[string]int),
		logger:          logging.GetGlobalLogger().WithFields(logging.Field{Key: "component", Value: "lifecycle_manager"}),
	}

	if m.credentials == nil {
		m.credentials = NewCredentialResolver(provider.Credentials{})
	}
	if m.locker == nil {
		m.locker = locks.NoopLocker{}
	}
	if m.events == nil {
		m.events = events.NewEmitter(nil)
	}
	if m.clock == nil {
		m.clock = time.Now
	}
	if m.statusBuffer <= 0 {
		m.statusBuffer = DefaultStatusBuffer
	}
	if m.refreshBuffer <= 0 {
		m.refreshBuffer = DefaultRefreshBuffer
	}
	if m.bulkConcurrency <= 0 {
		m.bulkConcurrency = DefaultBulkConcurrency
	}
	if m.interval <= 0 {
		m.interval = 30 * time.Minute
	}
	if m.locations == nil {
		if opts.EnableDiscovery && opts.Directory != nil {
			m.locations = NewChainResolver(ClaimsResolver{}, NewDiscoveryResolver(opts.Directory))
		} else {
			m.locations = ClaimsResolver{}
		}
	}

	if m.retryBackoff.InitialDelay <= 0 {
		m.retryBackoff = DefaultRetryBackoff()
	}

	padding := opts.RefreshPadding
	if padding <= 0 {
		padding = DefaultRefreshPadding
	}
	minInterval := opts.MinRefreshInterval
	if minInterval <= 0 {
		minInterval = DefaultMinRefreshInterval
	}
	m.scheduler = NewScheduler(padding, m.scheduledRefresh, m.clock).WithMinDelay(minInterval)
	m.converter = NewConverter(m.store, m.provider, m.Refresh, m.events, m.clock)
	m.cron = cron.New()

	return m, nil
}

// Start arms timers for stored installations and starts the reconcile job.
// It does nothing when auto refresh is disabled.
func (m *Manager) Start(ctx context.Context) error {
	if !m.autoRefresh {
		m.logger.Info("Automatic refresh disabled")
		return nil
	}

	if _, err := m.Reconcile(ctx); err != nil {
		m.logger.Warn("Initial reconcile failed", logging.Field{Key: "error_kind", Value: string(errors.GetType(err))})
	}

	spec := fmt.Sprintf("@every %s", m.interval)
	if _, err := m.cron.AddFunc(spec, m.reconcileJob); err != nil {
		return errors.ConfigError("invalid reconcile interval").WithCause(err)
	}
	m.cron.Start()

	m.logger.Info("Automatic refresh started",
		logging.Field{Key: "reconcile_interval", Value: m.interval.String()},
		logging.Field{Key: "armed", Value: m.scheduler.Pending()},
	)
	return nil
}

func (m *Manager) reconcileJob() {
	ctx, cancel := context.WithTimeout(context.Background(), m.interval)
	defer cancel()
	if _, err := m.Reconcile(ctx); err != nil {
		m.logger.Error("Reconcile failed", err)
	}
}

// Install exchanges an authorization code and stores the new installation.
func (m *Manager) Install(ctx context.Context, code string, override *provider.Credentials) (*installations.Installation, error) {
	if code == "" {
		return nil, errors.ValidationError("authorization code is required").WithCode("no_code")
	}

	creds, err := m.credentials.Resolve(override)
	if err != nil {
		return nil, err
	}

	tok, err := m.provider.ExchangeCode(ctx, creds, code)
	if err != nil {
		m.logger.Warn("Authorization code exchange failed",
			logging.Field{Key: "error_kind", Value: string(errors.GetType(err))},
			logging.Field{Key: "oauth_code", Value: errors.OAuthCode(err)},
		)
		return nil, err
	}

	claims, err := ParseClaims(tok.AccessToken)
	if err != nil {
		m.logger.Debug("Access token is not a readable JWT", logging.Field{Key: "error", Value: err.Error()})
	}

	now := m.clock()
	inst := &installations.Installation{
		ID:         utils.NewInstallationID(now),
		AuthClass:  authClass(claims, tok),
		CompanyID:  tok.CompanyID,
		LocationID: tok.LocationID,
		CreatedAt:  now,
	}
	if inst.CompanyID == "" {
		inst.CompanyID = claims.Company()
	}
	inst.ApplyToken(tok, now)

	if inst.LocationID == "" {
		locationID, err := m.locations.Resolve(ctx, tok.AccessToken, claims)
		if err != nil {
			m.logger.Warn("Location resolution failed", logging.Field{Key: "error_kind", Value: string(errors.GetType(err))})
		}
		inst.LocationID = locationID
	}

	id, err := m.store.Create(ctx, inst)
	if err != nil {
		return nil, err
	}
	inst.ID = id

	if override != nil && !override.Empty() {
		m.credentials.Remember(id, creds)
	}
	if m.autoRefresh {
		m.scheduler.Schedule(inst)
	}

	m.events.Emit(events.Event{
		Type:           events.InstallationCreated,
		InstallationID: id,
		LocationID:     inst.LocationID,
		Status:         string(inst.TokenStatus),
	})
	m.logger.Info("Installation created",
		logging.Field{Key: "installation_id", Value: id},
		logging.Field{Key: "location_id", Value: inst.LocationID},
		logging.Field{Key: "auth_class", Value: inst.AuthClass},
		logging.Field{Key: "expires_at", Value: inst.ExpiresAt},
	)
	return inst.Clone(), nil
}

func authClass(claims Claims, tok *provider.TokenResponse) string {
	if claims.AuthClass != "" {
		return claims.AuthClass
	}
	if tok.UserType == provider.UserTypeLocation {
		return installations.AuthClassLocation
	}
	return installations.AuthClassCompany
}

// Refresh exchanges the refresh token of id for a new access token.
// Concurrent calls for the same installation share one provider call.
func (m *Manager) Refresh(ctx context.Context, id string) (*installations.Installation, error) {
	ch := m.flights.DoChan(id, func() (interface{}, error) {
		m.inflight.Add(1)
		defer m.inflight.Done()

		rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), refreshTimeout)
		defer cancel()
		return m.refresh(rctx, id)
	})

	select {
	case <-ctx.Done():
		return nil, errors.TimeoutError("token refresh").WithCause(ctx.Err()).WithContext("installation_id", id)
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*installations.Installation).Clone(), nil
	}
}

func (m *Manager) refresh(ctx context.Context, id string) (*installations.Installation, error) {
	lock, err := m.locker.AcquireLock(ctx, locks.RefreshLockKey(id), lockExpiration)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := lock.Release(context.Background()); err != nil {
			m.logger.Warn("Failed to release refresh lock", logging.Field{Key: "installation_id", Value: id})
		}
	}()

	inst, err := m.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if inst.RefreshToken == "" {
		m.fail(ctx, inst, installations.StatusRefreshRequired, "missing_refresh_token")
		return nil, errors.ValidationError("installation has no refresh token").
			WithCode("missing_refresh_token").
			WithContext("installation_id", id)
	}

	creds, err := m.credentials.ForInstallation(id)
	if err != nil {
		m.fail(ctx, inst, installations.StatusRefreshFailed, string(errors.GetType(err)))
		return nil, err
	}

	start := m.clock()
	tok, err := m.provider.RefreshToken(ctx, creds, inst.RefreshToken)
	if err != nil {
		if errors.Retryable(err) {
			m.retryLater(ctx, inst, string(errors.GetType(err)))
			return nil, err
		}
		status := installations.StatusRefreshFailed
		kind := string(errors.GetType(err))
		if errors.OAuthCode(err) == "invalid_grant" {
			status = installations.StatusRefreshExpired
			kind = "invalid_grant"
		}
		m.fail(ctx, inst, status, kind)
		return nil, err
	}

	now := m.clock()
	updated, err := m.store.Update(ctx, id, func(cur *installations.Installation) error {
		cur.ApplyToken(tok, now)
		refreshedAt := now
		cur.LastRefresh = &refreshedAt
		return nil
	})
	if err != nil {
		return nil, err
	}

	m.converter.Invalidate(id)
	m.resetRetries(id)
	if m.autoRefresh {
		m.scheduler.Schedule(updated)
	}

	m.events.Emit(events.Event{
		Type:           events.TokenRefreshed,
		InstallationID: id,
		LocationID:     updated.LocationID,
		Status:         string(updated.TokenStatus),
	})
	m.logger.Info("Token refreshed",
		logging.Field{Key: "installation_id", Value: id},
		logging.Field{Key: "expires_at", Value: updated.ExpiresAt},
		logging.Field{Key: "duration", Value: now.Sub(start).String()},
	)
	return updated, nil
}

// scheduledRefresh runs a timer-triggered refresh. When another replica has
// already renewed the token since the timer was armed, the timer is re-armed
// from the stored expiry instead.
func (m *Manager) scheduledRefresh(ctx context.Context, id string) error {
	if armed, ok := ArmedExpiry(ctx); ok {
		inst, err := m.store.Get(ctx, id)
		if err != nil {
			return err
		}
		if inst.TokenStatus.Terminal() {
			return nil
		}
		if inst.ExpiresAt.After(armed) {
			m.logger.Debug("Token renewed elsewhere, re-arming",
				logging.Field{Key: "installation_id", Value: id},
				logging.Field{Key: "expires_at", Value: inst.ExpiresAt},
			)
			m.scheduler.Schedule(inst)
			return nil
		}
	}

	_, err := m.Refresh(ctx, id)
	return err
}

// retryLater records a transient refresh failure and, with auto refresh on,
// re-arms the timer after the backoff for the consecutive failure count.
func (m *Manager) retryLater(ctx context.Context, inst *installations.Installation, kind string) {
	m.retryMu.Lock()
	m.retries[inst.ID]++
	attempt := m.retries[inst.ID]
	m.retryMu.Unlock()

	// the refresh context may be the one that just timed out
	uctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	_, err := m.store.Update(uctx, inst.ID, func(cur *installations.Installation) error {
		cur.NoteTransientFailure(kind, m.clock())
		return nil
	})
	if err != nil {
		m.logger.Error("Failed to record refresh failure", err, logging.Field{Key: "installation_id", Value: inst.ID})
	}

	delay := m.retryBackoff.Delay(attempt)
	if m.autoRefresh {
		m.scheduler.ScheduleAfter(inst.ID, delay)
	}

	m.events.Emit(events.Event{
		Type:           events.TokenRefreshRetrying,
		InstallationID: inst.ID,
		LocationID:     inst.LocationID,
		Status:         string(inst.TokenStatus),
		Error:          kind,
	})
	m.logger.Warn("Token refresh failed, will retry",
		logging.Field{Key: "installation_id", Value: inst.ID},
		logging.Field{Key: "error_kind", Value: kind},
		logging.Field{Key: "attempt", Value: attempt},
		logging.Field{Key: "retry_in", Value: delay.String()},
	)
}

func (m *Manager) resetRetries(id string) {
	m.retryMu.Lock()
	delete(m.retries, id)
	m.retryMu.Unlock()
}

// fail persists a terminal status and drops the pending timer.
func (m *Manager) fail(ctx context.Context, inst *installations.Installation, status installations.TokenStatus, kind string) {
	m.scheduler.Cancel(inst.ID)
	m.resetRetries(inst.ID)

	_, err := m.store.Update(ctx, inst.ID, func(cur *installations.Installation) error {
		cur.MarkFailed(status, kind, m.clock())
		return nil
	})
	if err != nil {
		m.logger.Error("Failed to record refresh failure", err, logging.Field{Key: "installation_id", Value: inst.ID})
	}

	m.events.Emit(events.Event{
		Type:           events.TokenRefreshFailed,
		InstallationID: inst.ID,
		LocationID:     inst.LocationID,
		Status:         string(status),
		Error:          kind,
	})
	m.logger.Warn("Token refresh failed",
		logging.Field{Key: "installation_id", Value: inst.ID},
		logging.Field{Key: "status", Value: string(status)},
		logging.Field{Key: "error_kind", Value: kind},
	)
}

// EnsureFresh returns the installation, refreshing it first when the token
// is expired or inside the status buffer. A failed refresh still returns the
// current token while it has not expired.
func (m *Manager) EnsureFresh(ctx context.Context, id string) (*installations.Installation, error) {
	inst, err := m.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	now := m.clock()
	if !installations.NeedsRefresh(inst, now, m.statusBuffer) {
		return inst, nil
	}

	refreshed, err := m.Refresh(ctx, id)
	if err != nil {
		if inst.ExpiresAt.After(now) {
			m.logger.Warn("Refresh failed, serving the current token until it expires",
				logging.Field{Key: "installation_id", Value: id},
				logging.Field{Key: "expires_at", Value: inst.ExpiresAt},
			)
			return inst, nil
		}
		return nil, err
	}
	return refreshed, nil
}

// BulkResult is the outcome of one installation in a bulk refresh
type BulkResult struct {
	InstallationID string     `json:"installation_id"`
	Success        bool       `json:"success"`
	Status         string     `json:"status"`
	ExpiresAt      *time.Time `json:"expires_at,omitempty"`
	Error          string     `json:"error,omitempty"`
	Message        string     `json:"message,omitempty"`
}

const (
	BulkRefreshed = "refreshed"
	BulkFailed    = "failed"
	BulkError     = "error"
)

// BulkSummary aggregates a bulk refresh
type BulkSummary struct {
	Total      int          `json:"total"`
	Successful int          `json:"successful"`
	Failed     int          `json:"failed"`
	Results    []BulkResult `json:"results"`
}

// BulkRefresh refreshes every id with bounded concurrency. One failure never
// stops the others.
func (m *Manager) BulkRefresh(ctx context.Context, ids []string) BulkSummary {
	results := make([]BulkResult, len(ids))

	var g errgroup.Group
	g.SetLimit(m.bulkConcurrency)
	for i, id := range ids {
		i, id := i, id
		g.Go(func() error {
			results[i] = m.bulkOne(ctx, id)
			return nil
		})
	}
	_ = g.Wait()

	summary := BulkSummary{Total: len(ids), Results: results}
	for _, r := range results {
		if r.Success {
			summary.Successful++
		} else {
			summary.Failed++
		}
	}

	m.logger.Info("Bulk refresh completed",
		logging.Field{Key: "total", Value: summary.Total},
		logging.Field{Key: "successful", Value: summary.Successful},
		logging.Field{Key: "failed", Value: summary.Failed},
	)
	return summary
}

func (m *Manager) bulkOne(ctx context.Context, id string) BulkResult {
	inst, err := m.Refresh(ctx, id)
	if err == nil {
		return BulkResult{
			InstallationID: id,
			Success:        true,
			Status:         BulkRefreshed,
			ExpiresAt:      &inst.ExpiresAt,
		}
	}

	status := BulkFailed
	switch errors.GetType(err) {
	case errors.ErrTypeNotFound, errors.ErrTypeInternal, errors.ErrTypeConnection:
		status = BulkError
	}
	return BulkResult{
		InstallationID: id,
		Status:         status,
		Error:          string(errors.GetType(err)),
		Message:        errors.SafeMessage(err),
	}
}

// Get returns one installation
func (m *Manager) Get(ctx context.Context, id string) (*installations.Installation, error) {
	return m.store.Get(ctx, id)
}

// Status reports the token health of id
func (m *Manager) Status(ctx context.Context, id string) (installations.Report, error) {
	inst, err := m.store.Get(ctx, id)
	if err != nil {
		return installations.Report{}, err
	}
	return installations.Describe(inst, m.clock(), m.statusBuffer), nil
}

// Expiring lists installations whose token expires within d
func (m *Manager) Expiring(ctx context.Context, d time.Duration) ([]*installations.Installation, error) {
	return m.store.List(ctx, installations.Filter{ExpiringWithin: d, Now: m.clock()})
}

// Expired lists installations whose token has expired
func (m *Manager) Expired(ctx context.Context) ([]*installations.Installation, error) {
	return m.store.List(ctx, installations.Filter{Expired: true, Now: m.clock()})
}

// List returns every installation ordered by expiry
func (m *Manager) List(ctx context.Context) ([]*installations.Installation, error) {
	return m.store.List(ctx, installations.Filter{Now: m.clock()})
}

// Delete removes an installation and everything derived from it
func (m *Manager) Delete(ctx context.Context, id string) error {
	inst, err := m.store.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := m.store.Delete(ctx, id); err != nil {
		return err
	}

	m.scheduler.Cancel(id)
	m.converter.Invalidate(id)
	m.credentials.Forget(id)
	m.resetRetries(id)

	m.events.Emit(events.Event{
		Type:           events.InstallationDeleted,
		InstallationID: id,
		LocationID:     inst.LocationID,
		Status:         string(inst.TokenStatus),
	})
	m.logger.Info("Installation deleted", logging.Field{Key: "installation_id", Value: id})
	return nil
}

// ReconcileReport summarizes one reconcile pass
type ReconcileReport struct {
	Armed     int `json:"armed"`
	Immediate int `json:"immediate"`
	Collected int `json:"collected"`
}

// Reconcile arms a timer for every refreshable installation that has none,
// then deletes failed installations past the retention period. It never
// refreshes directly.
func (m *Manager) Reconcile(ctx context.Context) (ReconcileReport, error) {
	var report ReconcileReport

	all, err := m.store.List(ctx, installations.Filter{Now: m.clock()})
	if err != nil {
		return report, err
	}

	now := m.clock()
	for _, inst := range all {
		if inst.RefreshToken == "" || inst.TokenStatus.Terminal() || m.scheduler.Armed(inst.ID) {
			continue
		}
		if installations.NeedsRefresh(inst, now, m.refreshBuffer) {
			if m.scheduler.ScheduleAfter(inst.ID, 0) {
				report.Immediate++
			}
			continue
		}
		if _, ok := m.scheduler.Schedule(inst); ok {
			report.Armed++
		}
	}

	if m.retention > 0 {
		stale, err := m.store.List(ctx, installations.Filter{
			Statuses:      []installations.TokenStatus{installations.StatusRefreshFailed, installations.StatusRefreshExpired},
			UpdatedBefore: now.Add(-m.retention),
			Now:           now,
		})
		if err != nil {
			return report, err
		}
		for _, inst := range stale {
			if err := m.Delete(ctx, inst.ID); err != nil && !errors.IsType(err, errors.ErrTypeNotFound) {
				m.logger.Error("Failed to delete stale installation", err, logging.Field{Key: "installation_id", Value: inst.ID})
				continue
			}
			report.Collected++
		}
	}

	m.logger.Debug("Reconcile completed",
		logging.Field{Key: "installations", Value: len(all)},
		logging.Field{Key: "armed", Value: report.Armed},
		logging.Field{Key: "immediate", Value: report.Immediate},
		logging.Field{Key: "collected", Value: report.Collected},
	)
	return report, nil
}

// AuthCodeURL builds the marketplace install URL with the environment credentials
func (m *Manager) AuthCodeURL(state string) (string, error) {
	creds, err := m.credentials.Resolve(nil)
	if err != nil {
		return "", err
	}
	return m.provider.AuthCodeURL(creds, state), nil
}

// Converter returns the location token converter
func (m *Manager) Converter() *Converter {
	return m.converter
}

// Scheduler returns the refresh scheduler
func (m *Manager) Scheduler() *Scheduler {
	return m.scheduler
}

// CredentialsConfigured reports whether environment credentials are complete
func (m *Manager) CredentialsConfigured() bool {
	return m.credentials.Configured()
}

// StatusBuffer is the window in which a token is reported expiring_soon
func (m *Manager) StatusBuffer() time.Duration {
	return m.statusBuffer
}

// Now returns the manager clock
func (m *Manager) Now() time.Time {
	return m.clock()
}

// BreakerStats returns the provider circuit breaker state when the provider has one
func (m *Manager) BreakerStats() (circuitbreaker.Stats, bool) {
	if p, ok := m.provider.(interface{ BreakerStats() circuitbreaker.Stats }); ok {
		return p.BreakerStats(), true
	}
	return circuitbreaker.Stats{}, false
}

// Health checks the store
func (m *Manager) Health(ctx context.Context) error {
	return m.store.Health(ctx)
}

// Close stops the reconcile job and every timer and waits for refreshes in flight.
func (m *Manager) Close() error {
	m.closeOnce.Do(func() {
		<-m.cron.Stop().Done()
		m.scheduler.Stop()
		m.inflight.Wait()
		m.logger.Info("Lifecycle manager stopped")
	})
	return nil
}
