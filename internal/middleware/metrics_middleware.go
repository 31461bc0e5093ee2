package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"prepme-backend/internal/metrics"
)

// Metrics records the count and latency of every request by route template.
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		metrics.ObserveHTTPRequest(c.Request.Method, c.FullPath(), c.Writer.Status(), time.Since(start).Seconds())
	}
}
