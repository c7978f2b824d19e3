package ratelimit

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// fixedWindow increments the counter and starts the window on first use.
// Returns {count, pttl}.
var fixedWindow = redis.NewScript(`
local count = redis.call('INCR', KEYS[1])
local ttl = redis.call('PTTL', KEYS[1])
if count == 1 or ttl < 0 then
	redis.call('PEXPIRE', KEYS[1], ARGV[1])
	ttl = tonumber(ARGV[1])
end
return {count, ttl}
`)

// RedisLimiter shares fixed windows between instances through Redis.
type RedisLimiter struct {
	rdb    redis.Scripter
	log    *zap.Logger
	prefix string
	now    func() time.Time
}

// NewRedisLimiter constructs a RedisLimiter. Keys are stored as prefix:key.
func NewRedisLimiter(rdb redis.Scripter, log *zap.Logger, prefix string) *RedisLimiter {
	if rdb == nil {
		panic("ratelimit: nil redis client")
	}
	if log == nil {
		log = zap.NewNop()
	}
	if prefix == "" {
		prefix = "ratelimit"
	}
	return &RedisLimiter{rdb: rdb, log: log, prefix: prefix, now: time.Now}
}

// Admit implements Limiter. Redis failures admit the request: losing the
// limiter must not take registrations down with it.
func (l *RedisLimiter) Admit(ctx context.Context, key string, limit Limit) Decision {
	now := l.now()
	res, err := fixedWindow.Run(ctx, l.rdb, []string{l.prefix + ":" + key}, limit.Window.Milliseconds()).Int64Slice()
	if errors.Is(err, context.Canceled) {
		return Decision{Allowed: false, Limit: limit.Max, RetryAfter: 1, ResetAt: now.Add(time.Second)}
	}
	if err != nil || len(res) != 2 {
		l.log.Error("rate limit check failed, admitting request", zap.String("key", key), zap.Error(err))
		return Decision{Allowed: true, Limit: limit.Max, Degraded: true}
	}

	count := int(res[0])
	resetAt := now.Add(time.Duration(res[1]) * time.Millisecond)
	if count > limit.Max {
		return Decision{
			Allowed:    false,
			Limit:      limit.Max,
			Remaining:  0,
			ResetAt:    resetAt,
			RetryAfter: retryAfterSeconds(resetAt, now),
		}
	}
	return Decision{
		Allowed:   true,
		Limit:     limit.Max,
		Remaining: limit.Max - count,
		ResetAt:   resetAt,
	}
}
