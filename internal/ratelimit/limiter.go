package ratelimit

import (
	"context"
	"time"
)

// Result describes the outcome of a rate limit check.
type Result struct {
	Allowed   bool
	Remaining int
	Reset     time.Time
}

// Limiter is a fixed-window counter keyed by an arbitrary string.
type Limiter interface {
	Allow(ctx context.Context, key string, now time.Time) (Result, error)
}

// window returns the index of the window containing now and the instant it
// ends.
func window(now time.Time, size time.Duration) (int64, time.Time) {
	idx := now.UnixNano() / int64(size)
	return idx, time.Unix(0, (idx+1)*int64(size)).UTC()
}
