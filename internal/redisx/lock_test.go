package redisx

import (
	"context"
	"testing"
	"time"

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

func TestLocker_LockAndRelease(t *testing.T) {
	mr, rdb := newTestRedis(t)
	l := NewLocker(rdb, 5*time.Second)

	release, err := l.Lock(context.Background(), "order:ORD-1")
	require.NoError(t, err)
	assert.True(t, mr.Exists("lock:order:ORD-1"))
	assert.Equal(t, 5*time.Second, mr.TTL("lock:order:ORD-1"))

	release()
	release()
	assert.False(t, mr.Exists("lock:order:ORD-1"))
}

func TestLocker_BlocksUntilContextDone(t *testing.T) {
	_, rdb := newTestRedis(t)
	l := NewLocker(rdb, 5*time.Second)
	l.Backoff = 5 * time.Millisecond

	release, err := l.Lock(context.Background(), "order:ORD-1")
	require.NoError(t, err)
	defer release()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	_, err = l.Lock(ctx, "order:ORD-1")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestLocker_StaleHolderCannotReleaseNewOwner(t *testing.T) {
	mr, rdb := newTestRedis(t)
	l := NewLocker(rdb, time.Second)

	stale, err := l.Lock(context.Background(), "order:ORD-1")
	require.NoError(t, err)
	mr.FastForward(2 * time.Second)

	fresh, err := l.Lock(context.Background(), "order:ORD-1")
	require.NoError(t, err)
	defer fresh()

	stale()
	assert.True(t, mr.Exists("lock:order:ORD-1"))
}

func TestLocker_AcquiresAfterRelease(t *testing.T) {
	_, rdb := newTestRedis(t)
	l := NewLocker(rdb, 5*time.Second)
	l.Backoff = 2 * time.Millisecond

	first, err := l.Lock(context.Background(), "order:ORD-1")
	require.NoError(t, err)

	acquired := make(chan struct{})
	go func() {
		second, err := l.Lock(context.Background(), "order:ORD-1")
		if err == nil {
			second()
		}
		close(acquired)
	}()

	time.Sleep(10 * time.Millisecond)
	first()

	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("second locker never acquired the key")
	}
}
