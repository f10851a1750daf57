//go:build integration

package ratelimit_test

import (
	"context"
	"testing"
	"time"

	"stampd/internal/ratelimit"
	"stampd/pkg/testutil/containers"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisStoreCountsWithinWindow(t *testing.T) {
	rc := containers.NewRedisContainer(t)
	store := ratelimit.NewRedisStore(rc.Client, "test")
	ctx := context.Background()

	for i := int64(1); i <= 3; i++ {
		count, err := store.Incr(ctx, "client-a", time.Minute)
		require.NoError(t, err)
		assert.Equal(t, i, count)
	}

	count, err := store.Incr(ctx, "client-b", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count, "keys are counted independently")
}

func TestRedisStoreWindowExpires(t *testing.T) {
	rc := containers.NewRedisContainer(t)
	store := ratelimit.NewRedisStore(rc.Client, "test")
	ctx := context.Background()

	_, err := store.Incr(ctx, "client", time.Second)
	require.NoError(t, err)
	_, err = store.Incr(ctx, "client", time.Second)
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		count, err := store.Incr(ctx, "client", time.Second)
		return err == nil && count == 1
	}, 5*time.Second, 250*time.Millisecond, "the counter must reset after the window TTL")
}

func TestLimiterOverRedis(t *testing.T) {
	rc := containers.NewRedisContainer(t)
	limiter := ratelimit.New(ratelimit.NewRedisStore(rc.Client, "test"), 2, time.Minute)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		allowed, err := limiter.Allow(ctx, "ip")
		require.NoError(t, err)
		assert.True(t, allowed)
	}

	allowed, err := limiter.Allow(ctx, "ip")
	require.NoError(t, err)
	assert.False(t, allowed)
}
