// Package ratelimit implements fixed-window admission control keyed by caller.
//
// A window starts on the first request for a key and lasts Limit.Window.
// Up to Limit.Max requests are admitted inside it; later ones are rejected
// until the window expires. Bursts at window boundaries are possible.
package ratelimit

import (
	"context"
	"time"
)

// Limit is the admission budget for one key.
type Limit struct {
	Max    int
	Window time.Duration
}

// Decision is the outcome of a single Admit call.
type Decision struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
	// RetryAfter is whole seconds until the window resets. Zero when allowed.
	RetryAfter int
	// Degraded is set when the backing store failed and the request was
	// admitted without being counted. Remaining and ResetAt are then zero.
	Degraded bool
}

// Limiter decides whether a request for key may proceed.
// Implementations never fail: they always return a decision.
type Limiter interface {
	Admit(ctx context.Context, key string, limit Limit) Decision
}

// retryAfterSeconds rounds the remaining window up to whole seconds.
func retryAfterSeconds(resetAt, now time.Time) int {
	d := resetAt.Sub(now)
	if d <= 0 {
		return 1
	}
	secs := int((d + time.Second - 1) / time.Second)
	if secs < 1 {
		secs = 1
	}
	return secs
}
