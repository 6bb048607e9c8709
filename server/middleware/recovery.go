package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"

	"github.com/ocobra/meeting-minutes-sub000/errors"
	"github.com/ocobra/meeting-minutes-sub000/logger"
)

// Recovery catches panics in downstream handlers, logs the stack and
// answers with the standard internal-error envelope.
func Recovery(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}
			err := fmt.Errorf("panic: %v", rec)
			log.WithContext(c.Request.Context()).Error("panic recovered", logger.Fields(
				"path", c.Request.URL.Path,
				"method", c.Request.Method,
				logger.FieldError, err.Error(),
				"stack", string(debug.Stack()),
			))
			c.AbortWithStatusJSON(http.StatusInternalServerError, errors.Internal(err).ToResponse())
		}()
		c.Next()
	}
}
