package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// Pinger reports whether a backing service is reachable.
type Pinger func(ctx context.Context) error

func Health(ping Pinger, log logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if ping != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			defer cancel()

			if err := ping(ctx); err != nil {
				log.WithError(err).Warn("health check: database unavailable")
				c.JSON(http.StatusServiceUnavailable, gin.H{"success": false, "status": "degraded", "database": "unavailable"})
				return
			}
		}
		respondOK(c, http.StatusOK, gin.H{"status": "ok", "database": "ok"})
	}
}
