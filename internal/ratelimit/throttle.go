package ratelimit

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"laundry/internal/apperr"
)

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Throttle is a per-client token bucket for endpoints that only need burst
// protection, such as registration and the contact form.
type Throttle struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	rps      rate.Limit
	burst    int
	idle     time.Duration
	now      func() time.Time

	lastSweep time.Time
}

func NewThrottle(perMinute, burst int, idle time.Duration) *Throttle {
	if perMinute <= 0 {
		perMinute = 30
	}
	if burst <= 0 {
		burst = 5
	}
	if idle <= 0 {
		idle = 10 * time.Minute
	}
	return &Throttle{
		visitors: make(map[string]*visitor),
		rps:      rate.Limit(float64(perMinute) / 60),
		burst:    burst,
		idle:     idle,
		now:      time.Now,
	}
}

// Allow consumes one token for key.
func (t *Throttle) Allow(key string) bool {
	now := t.now()

	t.mu.Lock()
	defer t.mu.Unlock()

	t.sweep(now)

	v, ok := t.visitors[key]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(t.rps, t.burst)}
		t.visitors[key] = v
	}
	v.lastSeen = now
	return v.limiter.AllowN(now, 1)
}

// sweep evicts idle visitors, at most once per idle interval. Callers hold mu.
func (t *Throttle) sweep(now time.Time) {
	if now.Sub(t.lastSweep) < t.idle {
		return
	}
	t.lastSweep = now
	for k, v := range t.visitors {
		if now.Sub(v.lastSeen) > t.idle {
			delete(t.visitors, k)
		}
	}
}

func (t *Throttle) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !t.Allow(c.ClientIP()) {
			appErr := apperr.New(apperr.KindRateLimited, "", "too many requests, slow down")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, appErr.Body())
			return
		}
		c.Next()
	}
}
