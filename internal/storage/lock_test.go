package storage

import (
	"context"
	"testing"

	"grievance/backend/internal/config"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func TestRedisLocker_LockIsExclusive(t *testing.T) {
	ctx := context.Background()
	mr, rdb := newTestRedis(t)
	locker := &RedisLocker{Redis: rdb}
	key := config.ComplaintLockKeyPrefix + "c-1"

	unlock, err := locker.Lock(ctx, "c-1")
	require.NoError(t, err)
	assert.True(t, mr.Exists(key))
	assert.Equal(t, config.ComplaintLockTTL, mr.TTL(key))

	_, err = locker.Lock(ctx, "c-1")
	assert.ErrorIs(t, err, ErrLocked)

	other, err := locker.Lock(ctx, "c-2")
	require.NoError(t, err, "locks are per complaint")
	other()

	unlock()
	assert.False(t, mr.Exists(key))

	again, err := locker.Lock(ctx, "c-1")
	require.NoError(t, err)
	again()
}

func TestRedisLocker_ExpiredHolderCannotReleaseNewLock(t *testing.T) {
	ctx := context.Background()
	mr, rdb := newTestRedis(t)
	locker := &RedisLocker{Redis: rdb}
	key := config.ComplaintLockKeyPrefix + "c-1"

	staleUnlock, err := locker.Lock(ctx, "c-1")
	require.NoError(t, err)

	mr.FastForward(config.ComplaintLockTTL + 1)
	require.False(t, mr.Exists(key), "lock expires after its TTL")

	unlock, err := locker.Lock(ctx, "c-1")
	require.NoError(t, err)
	holder, err := mr.Get(key)
	require.NoError(t, err)

	staleUnlock()

	current, err := mr.Get(key)
	require.NoError(t, err, "the stale holder must not delete the new lock")
	assert.Equal(t, holder, current)
	_, err = locker.Lock(ctx, "c-1")
	assert.ErrorIs(t, err, ErrLocked)

	unlock()
	assert.False(t, mr.Exists(key))
}

func TestRedisLocker_RedisErrorIsNotLocked(t *testing.T) {
	mr, rdb := newTestRedis(t)
	mr.SetError("ERR server unavailable")

	_, err := (&RedisLocker{Redis: rdb}).Lock(context.Background(), "c-1")

	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrLocked)
}

func TestService_LockerUsesRedisWhenConfigured(t *testing.T) {
	_, rdb := newTestRedis(t)

	locker := NewStorageService(nil, rdb).Locker()

	assert.IsType(t, &RedisLocker{}, locker)
}
