package ratelimit

import (
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"laundry/internal/apperr"
)

// KeyFunc derives the counter key for a request.
type KeyFunc func(c *gin.Context) string

// ByClientIP keys requests by scope and client address.
func ByClientIP(scope string) KeyFunc {
	return func(c *gin.Context) string {
		return scope + ":" + c.ClientIP()
	}
}

// Middleware rejects requests once the limiter denies their key. If the
// limiter backend fails the request is let through and the failure logged.
func Middleware(limiter Limiter, key KeyFunc, log logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limiter == nil {
			c.Next()
			return
		}
		now := time.Now()
		res, err := limiter.Allow(c.Request.Context(), key(c), now)
		if err != nil {
			log.WithError(err).WithField("path", c.FullPath()).Warn("rate limiter unavailable")
			c.Next()
			return
		}
		if !res.Reset.IsZero() {
			c.Header("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
		}
		if !res.Allowed {
			retry := int(math.Ceil(res.Reset.Sub(now).Seconds()))
			if retry < 1 {
				retry = 1
			}
			c.Header("Retry-After", strconv.Itoa(retry))
			appErr := apperr.New(apperr.KindRateLimited, "", "too many requests, try again later")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, appErr.Body())
			return
		}
		c.Next()
	}
}
