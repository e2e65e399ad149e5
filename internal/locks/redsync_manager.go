package locks

import (
	"context"
	"sync"
	"time"

	"ghl-oauth-manager/internal/common/errors"
	"ghl-oauth-manager/internal/common/logging"
	"ghl-oauth-manager/internal/redis"

	"github.com/go-redsync/redsync/v4"
	"github.com/go-redsync/redsync/v4/redis/goredis/v8"
)

// RedsyncManager implements distributed locking with the Redlock algorithm
// from go-redsync/redsync/v4. Held locks are extended in the background at a
// third of their expiry until released.
type RedsyncManager struct {
	redsync    *redsync.Redsync
	logger     logging.Logger
	localLocks map[string]*RedsyncLock
	mutex      sync.Mutex
}

// RedsyncLock wraps a redsync.Mutex
type RedsyncLock struct {
	mutex      *redsync.Mutex
	key        string
	expiration time.Duration
	ctx        context.Context
	cancel     context.CancelFunc
	manager    *RedsyncManager
	once       sync.Once
}

// NewRedsyncManager creates a lock manager on top of a connected Redis client
func NewRedsyncManager(redisClient *redis.Client) (*RedsyncManager, error) {
	if redisClient == nil {
		return nil, errors.ConfigError("redis client is required")
	}

	pool := goredis.NewPool(redisClient.GetGoRedisClient())

	return &RedsyncManager{
		redsync:    redsync.New(pool),
		logger:     logging.GetGlobalLogger().WithFields(logging.Field{Key: "component", Value: "locks"}),
		localLocks: make(map[string]*RedsyncLock),
	}, nil
}

// AcquireLock blocks until the lock is held, redsync gives up, or ctx is done.
// Failure to get the lock is reported as concurrent_refresh style contention.
func (rm *RedsyncManager) AcquireLock(ctx context.Context, key string, expiration time.Duration) (Lock, error) {
	mutex := rm.redsync.NewMutex("lock:"+key,
		redsync.WithExpiry(expiration),
		redsync.WithTries(20),
		redsync.WithRetryDelay(100*time.Millisecond),
	)

	if err := mutex.LockContext(ctx); err != nil {
		appErr := errors.InternalError("failed to acquire distributed lock", err).WithContext("lock", key)
		appErr.Type = errors.ErrTypeConcurrentRefresh
		return nil, appErr
	}

	lockCtx, cancel := context.WithCancel(context.Background())
	lock := &RedsyncLock{
		mutex:      mutex,
		key:        key,
		expiration: expiration,
		ctx:        lockCtx,
		cancel:     cancel,
		manager:    rm,
	}

	rm.mutex.Lock()
	rm.localLocks[key] = lock
	rm.mutex.Unlock()

	go rm.renewLock(lock)

	return lock, nil
}

func (rm *RedsyncManager) renewLock(lock *RedsyncLock) {
	renewInterval := lock.expiration / 3
	if renewInterval < time.Second {
		renewInterval = time.Second
	}

	ticker := time.NewTicker(renewInterval)
	defer ticker.Stop()

	for {
		select {
		case <-lock.ctx.Done():
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			ok, err := lock.mutex.ExtendContext(ctx)
			cancel()

			if err != nil || !ok {
				rm.logger.Warn("Lost distributed lock", logging.Field{Key: "lock", Value: lock.key})
				lock.release()
				return
			}
		}
	}
}

// Close releases every lock still held by this manager
func (rm *RedsyncManager) Close() error {
	rm.mutex.Lock()
	held := make([]*RedsyncLock, 0, len(rm.localLocks))
	for _, lock := range rm.localLocks {
		held = append(held, lock)
	}
	rm.mutex.Unlock()

	for _, lock := range held {
		lock.release()
	}
	return nil
}

// Key returns the unique identifier for this lock.
func (rl *RedsyncLock) Key() string {
	return rl.key
}

// Release stops renewal and deletes the lock in Redis.
func (rl *RedsyncLock) Release(ctx context.Context) error {
	var err error
	rl.once.Do(func() {
		err = rl.unlock(ctx)
	})
	return err
}

func (rl *RedsyncLock) release() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = rl.Release(ctx)
}

func (rl *RedsyncLock) unlock(ctx context.Context) error {
	rl.cancel()

	rl.manager.mutex.Lock()
	if rl.manager.localLocks[rl.key] == rl {
		delete(rl.manager.localLocks, rl.key)
	}
	rl.manager.mutex.Unlock()

	if _, err := rl.mutex.UnlockContext(ctx); err != nil {
		return errors.InternalError("failed to release distributed lock", err).WithContext("lock", rl.key)
	}
	return nil
}

// IsHeld returns true until the lock is released or lost.
func (rl *RedsyncLock) IsHeld() bool {
	select {
	case <-rl.ctx.Done():
		return false
	default:
		return true
	}
}

var _ Locker = (*RedsyncManager)(nil)
