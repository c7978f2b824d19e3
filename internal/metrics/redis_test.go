package metrics

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newRedisRecorder(t *testing.T) (*RedisRecorder, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewRedisRecorder(rdb, "test:metrics"), mr
}

func TestRedisRecorder_RecordAndSnapshot(t *testing.T) {
	r, _ := newRedisRecorder(t)
	ctx := context.Background()

	require.NoError(t, r.Record(ctx, Entry{Success: true, Category: "hackathon", Duration: 10 * time.Millisecond}))
	require.NoError(t, r.Record(ctx, Entry{Success: true, Category: "workshops", Duration: 20 * time.Millisecond}))
	require.NoError(t, r.Record(ctx, Entry{ErrorType: "duplicate_email", Duration: 30 * time.Millisecond}))

	snap, err := r.Snapshot(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(3), snap.System.TotalRequests)
	require.Equal(t, int64(2), snap.System.SuccessfulRequests)
	require.Equal(t, int64(1), snap.System.FailedRequests)
	require.Equal(t, map[string]int64{"hackathon": 1, "workshops": 1}, snap.Categories)
	require.Equal(t, map[string]int64{"duplicate_email": 1}, snap.Errors)
	require.InDelta(t, 20.0, snap.Performance.AverageProcessingTime, 0.0001)
	require.Equal(t, []float64{10, 20, 30}, snap.Performance.RecentProcessingTimes)
}

func TestRedisRecorder_LatencyListIsCapped(t *testing.T) {
	r, mr := newRedisRecorder(t)
	ctx := context.Background()

	for i := 0; i < 120; i++ {
		require.NoError(t, r.Record(ctx, Entry{Success: true, Duration: time.Millisecond}))
	}

	list, err := mr.List("test:metrics:latency")
	require.NoError(t, err)
	require.Len(t, list, SampleSize)

	snap, err := r.Snapshot(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(120), snap.System.TotalRequests)
	require.Equal(t, SampleSize, snap.Performance.SampleCount)
}

func TestRedisRecorder_EmptyStore(t *testing.T) {
	r, _ := newRedisRecorder(t)

	snap, err := r.Snapshot(context.Background())
	require.NoError(t, err)
	require.Zero(t, snap.System.TotalRequests)
	require.Empty(t, snap.Errors)
}

func TestRedisRecorder_ReportsErrorsWhenDown(t *testing.T) {
	r, mr := newRedisRecorder(t)
	mr.Close()

	require.Error(t, r.Record(context.Background(), Entry{Success: true}))
	_, err := r.Snapshot(context.Background())
	require.Error(t, err)
}
