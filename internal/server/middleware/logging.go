package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"quizd/internal/logging"
)

// RequestLogging logs one line per request through the component logger so
// every entry passes the same redaction as the rest of the service.
func RequestLogging(logger logging.Logger) gin.HandlerFunc {
	logger = logging.OrNop(logger)
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		logger.Info("%s %s -> %d (%s) request_id=%s",
			c.Request.Method,
			c.Request.URL.Path,
			c.Writer.Status(),
			time.Since(start).Round(time.Millisecond),
			c.GetString(RequestIDKey),
		)
	}
}
