package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/studynexus/nexus/internal/metrics"
)

const startTimeKey = "request_start"

// PrometheusMiddleware records HTTP request duration and count.
func PrometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(startTimeKey, time.Now())
		c.Next()

		status := strconv.Itoa(c.Writer.Status())
		path := c.FullPath() // route pattern, not actual path (avoids cardinality explosion)
		if path == "" {
			path = "unknown"
		}

		metrics.RequestDuration.WithLabelValues(c.Request.Method, path, status).Observe(requestDuration(c).Seconds())
		metrics.RequestsTotal.WithLabelValues(c.Request.Method, path, status).Inc()
	}
}

// requestDuration returns the time since PrometheusMiddleware saw the request.
func requestDuration(c *gin.Context) time.Duration {
	if v, ok := c.Get(startTimeKey); ok {
		if start, ok := v.(time.Time); ok {
			return time.Since(start)
		}
	}

	return 0
}
