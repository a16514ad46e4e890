package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/studynexus/nexus/internal/httputil"
)

const (
	// RequestIDKey is the gin context key for the request ID.
	RequestIDKey = httputil.RequestIDKey

	// RequestIDHeader is the HTTP header used to propagate the request ID.
	RequestIDHeader = "X-Request-ID"

	clientRequestIDKey = "client_request_id"
)

// RequestID assigns every request a fresh server-side UUID. A client supplied
// X-Request-ID is kept as "client_request_id" for correlation only.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := uuid.NewString()

		if clientID := c.GetHeader(RequestIDHeader); clientID != "" {
			c.Set(clientRequestIDKey, clientID)
		}

		c.Set(RequestIDKey, id)
		c.Header(RequestIDHeader, id)
		c.Next()
	}
}

// AccessLog writes one structured log line per request.
func AccessLog(log *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := c.Get(startTimeKey); !ok {
			c.Set(startTimeKey, time.Now())
		}

		c.Next()

		fields := logrus.Fields{
			"method":   c.Request.Method,
			"route":    c.FullPath(),
			"path":     c.Request.URL.Path,
			"status":   c.Writer.Status(),
			"client":   c.ClientIP(),
			"bytes":    c.Writer.Size(),
			"duration": requestDuration(c).String(),
		}

		if rid, ok := c.Get(RequestIDKey); ok {
			fields["request_id"] = rid
		}

		if cid := c.GetString(clientRequestIDKey); cid != "" {
			fields["client_request_id"] = cid
		}

		entry := log.WithFields(fields)

		switch status := c.Writer.Status(); {
		case status >= 500:
			entry.Error("request")
		case status >= 400:
			entry.Warn("request")
		default:
			entry.Info("request")
		}
	}
}
