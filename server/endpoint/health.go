// Package endpoint provides the operational HTTP endpoints shared by every
// diarizer deployment.
package endpoint

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ocobra/meeting-minutes-sub000/observability"
)

// HealthChecker returns the aggregated service health.
type HealthChecker func(ctx context.Context) *observability.ServiceHealth

// Health reports service health including component statuses. A down
// service answers 503; a degraded one still answers 200.
func Health(checker HealthChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		h := checker(c.Request.Context())
		httpStatus := http.StatusOK
		if h.Status == observability.HealthStatusDown {
			httpStatus = http.StatusServiceUnavailable
		}
		c.JSON(httpStatus, gin.H{
			"status":     h.Status,
			"service":    h.Service,
			"version":    h.Version,
			"timestamp":  time.Now().UTC().Format(time.RFC3339),
			"components": h.Components,
		})
	}
}
