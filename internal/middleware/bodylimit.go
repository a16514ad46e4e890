package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// Request body limits.
const (
	DefaultMaxBody = 1 << 20  // 1 MB
	ImportMaxBody  = 32 << 20 // 32 MB, snapshot and bulk concept imports
)

// MaxBodySize returns middleware that limits request body size. Paths with
// one of the largePrefixes get ImportMaxBody instead.
func MaxBodySize(maxBytes int64, largePrefixes ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Body == nil {
			c.Next()

			return
		}

		limit := maxBytes
		for _, p := range largePrefixes {
			if strings.HasPrefix(c.Request.URL.Path, p) {
				limit = ImportMaxBody

				break
			}
		}

		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
		c.Next()
	}
}
