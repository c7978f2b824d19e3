package ratelimit

import (
	"context"
	"sync"
	"time"
)

// DefaultMaxKeys is the high-water mark of tracked keys.
const DefaultMaxKeys = 10_000

type window struct {
	count   int
	resetAt time.Time
}

// MemoryLimiter keeps windows in a process-local map. Limits are per
// instance; use RedisLimiter when several instances share traffic.
type MemoryLimiter struct {
	mu      sync.Mutex
	windows map[string]*window
	maxKeys int
	now     func() time.Time
}

// MemoryOption configures a MemoryLimiter.
type MemoryOption func(*MemoryLimiter)

// WithMaxKeys overrides DefaultMaxKeys.
func WithMaxKeys(n int) MemoryOption {
	return func(l *MemoryLimiter) { l.maxKeys = n }
}

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) MemoryOption {
	return func(l *MemoryLimiter) { l.now = now }
}

// NewMemoryLimiter constructs an empty MemoryLimiter.
func NewMemoryLimiter(opts ...MemoryOption) *MemoryLimiter {
	l := &MemoryLimiter{
		windows: make(map[string]*window),
		maxKeys: DefaultMaxKeys,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Admit implements Limiter.
func (l *MemoryLimiter) Admit(_ context.Context, key string, limit Limit) Decision {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	w, ok := l.windows[key]
	if !ok || now.After(w.resetAt) {
		if !ok && len(l.windows) >= l.maxKeys {
			l.evict(now)
		}
		w = &window{count: 1, resetAt: now.Add(limit.Window)}
		l.windows[key] = w
		return Decision{
			Allowed:   true,
			Limit:     limit.Max,
			Remaining: limit.Max - 1,
			ResetAt:   w.resetAt,
		}
	}

	if w.count >= limit.Max {
		return Decision{
			Allowed:    false,
			Limit:      limit.Max,
			Remaining:  0,
			ResetAt:    w.resetAt,
			RetryAfter: retryAfterSeconds(w.resetAt, now),
		}
	}

	w.count++
	return Decision{
		Allowed:   true,
		Limit:     limit.Max,
		Remaining: limit.Max - w.count,
		ResetAt:   w.resetAt,
	}
}

// evict drops expired windows and, if the map is still full, every window.
// The full clear resets in-window counts for all callers at once.
// Caller holds l.mu.
func (l *MemoryLimiter) evict(now time.Time) {
	for k, w := range l.windows {
		if now.After(w.resetAt) {
			delete(l.windows, k)
		}
	}
	if len(l.windows) >= l.maxKeys {
		clear(l.windows)
	}
}

// Len returns the number of tracked keys.
func (l *MemoryLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.windows)
}
