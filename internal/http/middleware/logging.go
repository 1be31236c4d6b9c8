package middleware

import (
	"time"

	"telegram_tapper/internal/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// RequestLogger tags every request with an id, stores a request-scoped
// logger on the context and logs the outcome.
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		reqID := c.GetHeader("X-Request-ID")
		if reqID == "" {
			reqID = uuid.NewString()
		}
		c.Header("X-Request-ID", reqID)
		c.Request = c.Request.WithContext(logger.NewContext(c.Request.Context(), "request_id", reqID))

		c.Next()

		l := logger.WithContext(c.Request.Context())
		args := []any{
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
			"ip", c.ClientIP(),
		}
		if c.Writer.Status() >= 500 {
			l.Warn("request", args...)
			return
		}
		l.Debug("request", args...)
	}
}
