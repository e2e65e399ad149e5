package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLocalCache_SetGetDelete(t *testing.T) {
	ctx := context.Background()
	c := NewLocalCache(time.Minute, time.Minute)

	assert.NoError(t, c.Set(ctx, "install_1", "bundle", time.Minute))
	val, found := c.Get(ctx, "install_1")
	assert.True(t, found)
	assert.Equal(t, "bundle", val)
	assert.Equal(t, 1, c.Len())

	_, exp, found := c.GetWithExpiration("install_1")
	assert.True(t, found)
	assert.WithinDuration(t, time.Now().Add(time.Minute), exp, 2*time.Second)

	assert.NoError(t, c.Delete(ctx, "install_1"))
	_, found = c.Get(ctx, "install_1")
	assert.False(t, found)
}

func TestLocalCache_Expiry(t *testing.T) {
	ctx := context.Background()
	c := NewLocalCache(time.Minute, time.Minute)

	_ = c.Set(ctx, "short", "v", 20*time.Millisecond)
	time.Sleep(40 * time.Millisecond)

	_, found := c.Get(ctx, "short")
	assert.False(t, found)
}

func TestLocalCache_NonPositiveTTLStoresNothing(t *testing.T) {
	ctx := context.Background()
	c := NewLocalCache(time.Minute, time.Minute)

	_ = c.Set(ctx, "k", "old", time.Minute)
	_ = c.Set(ctx, "k", "stale", 0)

	_, found := c.Get(ctx, "k")
	assert.False(t, found)
}

func TestLocalCache_Clear(t *testing.T) {
	ctx := context.Background()
	c := NewLocalCache(time.Minute, time.Minute)
	_ = c.Set(ctx, "a", 1, time.Minute)
	_ = c.Set(ctx, "b", 2, time.Minute)

	assert.NoError(t, c.Clear(ctx))
	assert.Equal(t, 0, c.Len())
}
