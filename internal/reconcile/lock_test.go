package reconcile

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestRedisLockSingleHolder(t *testing.T) {
	ctx := context.Background()
	_, client := newRedis(t)

	a := NewRedisLock(client, "", time.Minute)
	b := NewRedisLock(client, "", time.Minute)

	ok, err := a.Acquire(ctx)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = b.Acquire(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	// b never held the lease, so its release must not free a's.
	require.NoError(t, b.Release(ctx))
	ok, err = b.Acquire(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, a.Release(ctx))
	ok, err = b.Acquire(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRedisLockExpires(t *testing.T) {
	ctx := context.Background()
	mr, client := newRedis(t)

	a := NewRedisLock(client, "lock", time.Minute)
	b := NewRedisLock(client, "lock", time.Minute)

	ok, err := a.Acquire(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	mr.FastForward(2 * time.Minute)

	ok, err = b.Acquire(ctx)
	require.NoError(t, err)
	assert.True(t, ok)

	// a's stale release must leave b's lease intact.
	require.NoError(t, a.Release(ctx))
	assert.True(t, mr.Exists("lock"))
}
