package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newRedisLimiter(t *testing.T) (*RedisLimiter, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewRedisLimiter(rdb, zap.NewNop(), "test"), mr
}

func TestRedisLimiter_SixthRequestRejected(t *testing.T) {
	l, _ := newRedisLimiter(t)
	ctx := context.Background()

	for i := 1; i <= 5; i++ {
		dec := l.Admit(ctx, "10.0.0.1", registrationLimit)
		require.True(t, dec.Allowed, "request %d", i)
		require.Equal(t, 5-i, dec.Remaining)
	}

	dec := l.Admit(ctx, "10.0.0.1", registrationLimit)
	require.False(t, dec.Allowed)
	require.Positive(t, dec.RetryAfter)
	require.LessOrEqual(t, dec.RetryAfter, 300)

	other := l.Admit(ctx, "10.0.0.2", registrationLimit)
	require.True(t, other.Allowed)
}

func TestRedisLimiter_WindowExpires(t *testing.T) {
	l, mr := newRedisLimiter(t)
	ctx := context.Background()
	limit := Limit{Max: 1, Window: time.Minute}

	require.True(t, l.Admit(ctx, "k", limit).Allowed)
	require.False(t, l.Admit(ctx, "k", limit).Allowed)

	mr.FastForward(61 * time.Second)

	dec := l.Admit(ctx, "k", limit)
	require.True(t, dec.Allowed)
	require.Equal(t, 0, dec.Remaining)
}

func TestRedisLimiter_SetsExpiryOnKey(t *testing.T) {
	l, mr := newRedisLimiter(t)

	l.Admit(context.Background(), "k", registrationLimit)

	require.True(t, mr.Exists("test:k"))
	require.Equal(t, registrationLimit.Window, mr.TTL("test:k"))
}

func TestRedisLimiter_FailsOpenWhenRedisIsDown(t *testing.T) {
	l, mr := newRedisLimiter(t)
	mr.Close()

	dec := l.Admit(context.Background(), "k", registrationLimit)
	require.True(t, dec.Allowed)
	require.True(t, dec.Degraded)
	require.Zero(t, dec.Remaining)
	require.True(t, dec.ResetAt.IsZero())
}

func TestRedisLimiter_HealthyDecisionIsNotDegraded(t *testing.T) {
	l, _ := newRedisLimiter(t)

	require.False(t, l.Admit(context.Background(), "k", registrationLimit).Degraded)
}
