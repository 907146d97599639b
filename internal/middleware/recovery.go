package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"
	"github.com/stwalsh4118/choropleth/internal/logger"
)

// PanicResponder writes the response for a request whose handler panicked.
// internal/errors.Panic writes the standard error envelope.
type PanicResponder func(c *gin.Context)

// Recovery recovers from handler panics, logs them with the stack and hands
// the response to respond. A nil respond aborts with a bare 500.
func Recovery(log *logger.Logger, respond PanicResponder) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			recovered := recover()
			if recovered == nil {
				return
			}

			requestLogger := GetLogger(c)
			if requestLogger == nil {
				requestLogger = log
			}
			requestLogger.Error("Panic recovered", fmt.Errorf("panic: %v", recovered), map[string]interface{}{
				"request_id": GetRequestID(c),
				"method":     c.Request.Method,
				"route":      c.FullPath(),
				"stack":      string(debug.Stack()),
			})

			if c.Writer.Written() {
				c.Abort()
				return
			}
			if respond == nil {
				c.AbortWithStatus(http.StatusInternalServerError)
				return
			}
			respond(c)
			c.Abort()
		}()

		c.Next()
	}
}
