package installations

import (
	"context"
	"testing"
	"time"

	"ghl-oauth-manager/internal/common/errors"
	"ghl-oauth-manager/internal/locks"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func leaseOwner(t *testing.T, store *SQLStore, key string) string {
	t.Helper()
	var owner string
	err := store.db.QueryRow(`SELECT owner FROM refresh_leases WHERE lease_key = ?`, key).Scan(&owner)
	if err != nil {
		return ""
	}
	return owner
}

func TestLeaseLocker_AcquireRelease(t *testing.T) {
	store := newSQLiteTestStore(t)
	locker := store.Locker()
	defer locker.Close()
	ctx := context.Background()

	lock, err := locker.AcquireLock(ctx, locks.RefreshLockKey("install_1"), 30*time.Second)
	require.NoError(t, err)
	assert.Equal(t, "refresh:install_1", lock.Key())
	assert.True(t, lock.IsHeld())
	assert.Equal(t, locker.owner, leaseOwner(t, store, "refresh:install_1"))

	require.NoError(t, lock.Release(ctx))
	assert.False(t, lock.IsHeld())
	assert.Empty(t, leaseOwner(t, store, "refresh:install_1"))
	assert.NoError(t, lock.Release(ctx), "second release is a no-op")
}

// Two lockers on one database stand in for the server and ghlctl.
func TestLeaseLocker_ContentionAcrossProcesses(t *testing.T) {
	store := newSQLiteTestStore(t)
	server, cli := store.Locker(), store.Locker()
	cli.tries = 3
	cli.retryDelay = 10 * time.Millisecond
	defer server.Close()
	defer cli.Close()
	ctx := context.Background()

	held, err := server.AcquireLock(ctx, "refresh:install_2", 30*time.Second)
	require.NoError(t, err)

	_, err = cli.AcquireLock(ctx, "refresh:install_2", 30*time.Second)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrTypeConcurrentRefresh))

	require.NoError(t, held.Release(ctx))

	lock, err := cli.AcquireLock(ctx, "refresh:install_2", 30*time.Second)
	require.NoError(t, err)
	assert.Equal(t, cli.owner, leaseOwner(t, store, "refresh:install_2"))
	require.NoError(t, lock.Release(ctx))
}

func TestLeaseLocker_ExpiredLeaseIsTakenOver(t *testing.T) {
	store := newSQLiteTestStore(t)
	crashed, next := store.Locker(), store.Locker()
	next.tries = 1
	defer next.Close()
	ctx := context.Background()

	_, err := crashed.AcquireLock(ctx, "refresh:install_3", 20*time.Millisecond)
	require.NoError(t, err)

	time.Sleep(50 * time.Millisecond)

	lock, err := next.AcquireLock(ctx, "refresh:install_3", 30*time.Second)
	require.NoError(t, err)
	assert.Equal(t, next.owner, leaseOwner(t, store, "refresh:install_3"))

	// The stale owner must not delete the new lease.
	require.NoError(t, crashed.Close())
	assert.Equal(t, next.owner, leaseOwner(t, store, "refresh:install_3"))
	require.NoError(t, lock.Release(ctx))
}

func TestLeaseLocker_ContextCancelled(t *testing.T) {
	store := newSQLiteTestStore(t)
	a, b := store.Locker(), store.Locker()
	defer a.Close()
	defer b.Close()

	_, err := a.AcquireLock(context.Background(), "refresh:install_4", 30*time.Second)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 150*time.Millisecond)
	defer cancel()
	start := time.Now()
	_, err = b.AcquireLock(ctx, "refresh:install_4", 30*time.Second)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrTypeConcurrentRefresh))
	assert.Less(t, time.Since(start), time.Second)
}
