package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"quizd/internal/observability"
)

// Metrics records request count and latency per route.
func Metrics(collector *observability.MetricsCollector) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		collector.RecordHTTPRequest(c.Request.Context(), c.Request.Method, path, c.Writer.Status(), time.Since(start))
	}
}
