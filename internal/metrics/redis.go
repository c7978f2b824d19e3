package metrics

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisRecorder shares aggregates between instances through Redis hashes
// and a capped latency list.
type RedisRecorder struct {
	rdb    redis.Cmdable
	prefix string
	now    func() time.Time
}

// NewRedisRecorder constructs a RedisRecorder storing keys under prefix.
func NewRedisRecorder(rdb redis.Cmdable, prefix string) *RedisRecorder {
	prefix = strings.Trim(prefix, ":")
	if prefix == "" {
		prefix = "metrics"
	}
	return &RedisRecorder{rdb: rdb, prefix: prefix, now: time.Now}
}

func (r *RedisRecorder) key(name string) string { return r.prefix + ":" + name }

// Record implements Recorder. All updates for one entry are applied in a
// single MULTI/EXEC.
func (r *RedisRecorder) Record(ctx context.Context, e Entry) error {
	pipe := r.rdb.TxPipeline()

	pipe.HIncrBy(ctx, r.key("system"), "total", 1)
	if e.Success {
		pipe.HIncrBy(ctx, r.key("system"), "success", 1)
		if e.Category != "" {
			pipe.HIncrBy(ctx, r.key("categories"), e.Category, 1)
		}
	} else {
		pipe.HIncrBy(ctx, r.key("system"), "failed", 1)
		pipe.HIncrBy(ctx, r.key("errors"), errorKey(e), 1)
	}

	pipe.LPush(ctx, r.key("latency"), strconv.FormatFloat(millis(e.Duration), 'f', 3, 64))
	pipe.LTrim(ctx, r.key("latency"), 0, SampleSize-1)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("record metrics: %w", err)
	}
	return nil
}

// Snapshot implements Recorder.
func (r *RedisRecorder) Snapshot(ctx context.Context) (Snapshot, error) {
	pipe := r.rdb.Pipeline()
	system := pipe.HGetAll(ctx, r.key("system"))
	errs := pipe.HGetAll(ctx, r.key("errors"))
	categories := pipe.HGetAll(ctx, r.key("categories"))
	latency := pipe.LRange(ctx, r.key("latency"), 0, SampleSize-1)
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return Snapshot{}, fmt.Errorf("read metrics: %w", err)
	}

	counts := parseCounts(system.Val())
	snap := Snapshot{
		System: SystemMetrics{
			TotalRequests:      counts["total"],
			SuccessfulRequests: counts["success"],
			FailedRequests:     counts["failed"],
			SuccessRate:        successRate(counts["success"], counts["total"]),
		},
		Errors:     parseCounts(errs.Val()),
		Categories: parseCounts(categories.Val()),
		Timestamp:  r.now().UTC(),
	}

	// The list is newest first.
	raw := latency.Val()
	samples := make([]float64, 0, len(raw))
	for i := len(raw) - 1; i >= 0; i-- {
		v, err := strconv.ParseFloat(raw[i], 64)
		if err != nil {
			continue
		}
		samples = append(samples, v)
	}
	snap.Performance = performance(samples)
	return snap, nil
}

func parseCounts(raw map[string]string) map[string]int64 {
	out := make(map[string]int64, len(raw))
	for k, v := range raw {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			continue
		}
		out[k] = n
	}
	return out
}
