package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ocobra/meeting-minutes-sub000/errors"
)

// BodySizeLimit caps request bodies at maxBytes. Requests that declare a
// larger Content-Length are rejected up front; others fail on read.
func BodySizeLimit(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if maxBytes <= 0 {
			c.Next()
			return
		}
		if c.Request.ContentLength > maxBytes {
			appErr := errors.InvalidInput("body", "request body too large")
			c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, appErr.ToResponse())
			return
		}
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}
