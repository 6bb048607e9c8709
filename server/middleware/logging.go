package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ocobra/meeting-minutes-sub000/logger"
)

// RequestLogger logs one line per request with method, path, status and
// latency. Probe endpoints are skipped.
func RequestLogger(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if isProbePath(c.Request.URL.Path) {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		fields := logger.Fields(
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", status,
			"client_ip", c.ClientIP(),
			logger.FieldDuration, time.Since(start).Milliseconds(),
		)
		if len(c.Errors) > 0 {
			fields[logger.FieldError] = c.Errors.String()
		}
		l := log.WithContext(c.Request.Context())
		switch {
		case status >= 500:
			l.Error("request failed", fields)
		case status >= 400:
			l.Warn("request rejected", fields)
		default:
			l.Debug("request served", fields)
		}
	}
}
