package installations

import (
	"context"
	"sync"
	"time"

	"ghl-oauth-manager/internal/common/errors"
	"ghl-oauth-manager/internal/common/logging"
	"ghl-oauth-manager/internal/locks"

	"github.com/google/uuid"
)

// LeaseLocker grants expiring row leases from the refresh_leases table so
// processes sharing one SQL database (the server and ghlctl) never refresh
// the same installation at once when Redis is not configured.
type LeaseLocker struct {
	store      *SQLStore
	owner      string
	tries      int
	retryDelay time.Duration
	logger     logging.Logger

	mu   sync.Mutex
	held map[string]*lease
}

type lease struct {
	key        string
	expiration time.Duration
	locker     *LeaseLocker
	cancel     context.CancelFunc
	once       sync.Once

	mu       sync.Mutex
	released bool
}

// Locker returns a lease locker backed by this store's database
func (s *SQLStore) Locker() *LeaseLocker {
	return &LeaseLocker{
		store:      s,
		owner:      uuid.NewString(),
		tries:      20,
		retryDelay: 100 * time.Millisecond,
		logger:     logging.GetGlobalLogger().WithFields(logging.Field{Key: "component", Value: "locks"}),
		held:       make(map[string]*lease),
	}
}

// AcquireLock claims key, retrying while another owner holds an unexpired lease.
func (l *LeaseLocker) AcquireLock(ctx context.Context, key string, expiration time.Duration) (locks.Lock, error) {
	for attempt := 1; ; attempt++ {
		ok, err := l.claim(ctx, key, expiration)
		if err != nil && ctx.Err() == nil {
			return nil, errors.InternalError("failed to claim refresh lease", err).WithContext("lock", key)
		}
		if ok {
			break
		}
		if ctx.Err() != nil || attempt >= l.tries {
			return nil, contended(key, ctx.Err())
		}
		select {
		case <-ctx.Done():
			return nil, contended(key, ctx.Err())
		case <-time.After(l.retryDelay):
		}
	}

	renewCtx, cancel := context.WithCancel(context.Background())
	held := &lease{key: key, expiration: expiration, locker: l, cancel: cancel}

	l.mu.Lock()
	l.held[key] = held
	l.mu.Unlock()

	go l.renew(renewCtx, held)
	return held, nil
}

func contended(key string, cause error) error {
	appErr := errors.InternalError("refresh lease held by another process", cause).WithContext("lock", key)
	appErr.Type = errors.ErrTypeConcurrentRefresh
	return appErr
}

// claim inserts the lease row or takes over an expired one
func (l *LeaseLocker) claim(ctx context.Context, key string, expiration time.Duration) (bool, error) {
	now := time.Now()
	res, err := l.store.db.ExecContext(ctx, l.store.rebind(`INSERT INTO refresh_leases (lease_key, owner, expires_at)
		VALUES (?, ?, ?)
		ON CONFLICT (lease_key) DO UPDATE SET owner = excluded.owner, expires_at = excluded.expires_at
		WHERE refresh_leases.expires_at < ?`),
		key, l.owner, toMillis(now.Add(expiration)), toMillis(now))
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (l *LeaseLocker) extend(ctx context.Context, held *lease) (bool, error) {
	res, err := l.store.db.ExecContext(ctx, l.store.rebind(`UPDATE refresh_leases SET expires_at = ?
		WHERE lease_key = ? AND owner = ?`),
		toMillis(time.Now().Add(held.expiration)), held.key, l.owner)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n == 1, err
}

func (l *LeaseLocker) renew(ctx context.Context, held *lease) {
	interval := held.expiration / 3
	if interval < time.Second {
		interval = time.Second
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			extendCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			ok, err := l.extend(extendCtx, held)
			cancel()

			if err != nil || !ok {
				l.logger.Warn("Lost refresh lease", logging.Field{Key: "lock", Value: held.key})
				held.markReleased()
				return
			}
		}
	}
}

// Close releases every lease still held by this locker
func (l *LeaseLocker) Close() error {
	l.mu.Lock()
	held := make([]*lease, 0, len(l.held))
	for _, h := range l.held {
		held = append(held, h)
	}
	l.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for _, h := range held {
		_ = h.Release(ctx)
	}
	return nil
}

func (h *lease) Key() string { return h.key }

// Release deletes the lease row if this owner still holds it
func (h *lease) Release(ctx context.Context) error {
	var err error
	h.once.Do(func() {
		h.markReleased()
		_, err = h.locker.store.db.ExecContext(ctx, h.locker.store.rebind(
			`DELETE FROM refresh_leases WHERE lease_key = ? AND owner = ?`), h.key, h.locker.owner)
		if err != nil {
			err = errors.InternalError("failed to release refresh lease", err).WithContext("lock", h.key)
		}
	})
	return err
}

func (h *lease) IsHeld() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return !h.released
}

func (h *lease) markReleased() {
	h.cancel()

	h.mu.Lock()
	h.released = true
	h.mu.Unlock()

	h.locker.mu.Lock()
	if h.locker.held[h.key] == h {
		delete(h.locker.held, h.key)
	}
	h.locker.mu.Unlock()
}

var _ locks.Locker = (*LeaseLocker)(nil)
