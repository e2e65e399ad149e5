package oauth2

import (
	"context"
	"sync"
	"time"

	"ghl-oauth-manager/internal/common/errors"
	"ghl-oauth-manager/internal/common/logging"
	"ghl-oauth-manager/internal/installations"
)

// RefreshFunc refreshes one installation
type RefreshFunc func(ctx context.Context, installationID string) error

// RefreshDelay returns how long to wait before refreshing a token with the
// given remaining lifetime: max(lifetime*0.8, lifetime-padding).
func RefreshDelay(lifetime, padding time.Duration) time.Duration {
	proportional := time.Duration(float64(lifetime) * 0.8)
	padded := lifetime - padding
	if padded > proportional {
		return padded
	}
	return proportional
}

type scheduledRefresh struct {
	timer     *time.Timer
	due       time.Time
	expiresAt time.Time
}

type armedExpiryKey struct{}

// ArmedExpiry returns the token expiry a timer-triggered refresh was armed
// for. It is absent for refreshes armed with ScheduleAfter.
func ArmedExpiry(ctx context.Context) (time.Time, bool) {
	t, ok := ctx.Value(armedExpiryKey{}).(time.Time)
	return t, ok && !t.IsZero()
}

// Scheduler keeps at most one pending refresh timer per installation.
// Arming again replaces the pending timer.
type Scheduler struct {
	padding  time.Duration
	minDelay time.Duration
	refresh  RefreshFunc
	clock    func() time.Time
	logger   logging.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	timers  map[string]*scheduledRefresh
	stopped bool
	running sync.WaitGroup
}

// NewScheduler creates a scheduler calling refresh when a timer fires
func NewScheduler(padding time.Duration, refresh RefreshFunc, clock func() time.Time) *Scheduler {
	if clock == nil {
		clock = time.Now
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		padding: padding,
		refresh: refresh,
		clock:   clock,
		logger:  logging.GetGlobalLogger().WithFields(logging.Field{Key: "component", Value: "refresh_scheduler"}),
		ctx:     ctx,
		cancel:  cancel,
		timers:  make(map[string]*scheduledRefresh),
	}
}

// WithMinDelay sets the shortest delay Schedule arms. It must be called
// before the scheduler is used.
func (s *Scheduler) WithMinDelay(d time.Duration) *Scheduler {
	s.minDelay = d
	return s
}

// Schedule arms the refresh of inst from its expiry and returns the delay,
// never shorter than the minimum delay. Installations without a refresh
// token are not scheduled.
func (s *Scheduler) Schedule(inst *installations.Installation) (time.Duration, bool) {
	if inst == nil || inst.RefreshToken == "" {
		return 0, false
	}
	delay := RefreshDelay(inst.ExpiresAt.Sub(s.clock()), s.padding)
	if delay < s.minDelay {
		delay = s.minDelay
	}
	if delay < 0 {
		delay = 0
	}
	return delay, s.arm(inst.ID, delay, inst.ExpiresAt)
}

// ScheduleAfter arms a refresh of id after delay. A non-positive delay runs
// it right away in the background.
func (s *Scheduler) ScheduleAfter(id string, delay time.Duration) bool {
	return s.arm(id, delay, time.Time{})
}

func (s *Scheduler) arm(id string, delay time.Duration, expiresAt time.Time) bool {
	if delay < 0 {
		delay = 0
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return false
	}

	if existing, ok := s.timers[id]; ok {
		existing.timer.Stop()
	}

	entry := &scheduledRefresh{due: s.clock().Add(delay), expiresAt: expiresAt}
	entry.timer = time.AfterFunc(delay, func() { s.fire(id, entry) })
	s.timers[id] = entry

	s.logger.Debug("Refresh scheduled",
		logging.Field{Key: "installation_id", Value: id},
		logging.Field{Key: "delay", Value: delay.String()},
	)
	return true
}

func (s *Scheduler) fire(id string, entry *scheduledRefresh) {
	s.mu.Lock()
	if s.stopped || s.timers[id] != entry {
		s.mu.Unlock()
		return
	}
	delete(s.timers, id)
	s.running.Add(1)
	s.mu.Unlock()

	defer s.running.Done()

	ctx := s.ctx
	if !entry.expiresAt.IsZero() {
		ctx = context.WithValue(ctx, armedExpiryKey{}, entry.expiresAt)
	}

	start := s.clock()
	if err := s.refresh(ctx, id); err != nil {
		s.logger.Warn("Scheduled refresh failed",
			logging.Field{Key: "installation_id", Value: id},
			logging.Field{Key: "error_kind", Value: string(errors.GetType(err))},
		)
		return
	}
	s.logger.Info("Scheduled refresh completed",
		logging.Field{Key: "installation_id", Value: id},
		logging.Field{Key: "duration", Value: s.clock().Sub(start).String()},
	)
}

// Cancel drops the pending refresh of id
func (s *Scheduler) Cancel(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if entry, ok := s.timers[id]; ok {
		entry.timer.Stop()
		delete(s.timers, id)
	}
}

// Armed reports whether id has a pending refresh
func (s *Scheduler) Armed(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.timers[id]
	return ok
}

// Due returns when the pending refresh of id fires
func (s *Scheduler) Due(id string) (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.timers[id]
	if !ok {
		return time.Time{}, false
	}
	return entry.due, true
}

// Pending returns the number of armed timers
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers)
}

// Stop cancels every timer and waits for refreshes already running.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	for id, entry := range s.timers {
		entry.timer.Stop()
		delete(s.timers, id)
	}
	s.mu.Unlock()

	s.cancel()
	s.running.Wait()
}
