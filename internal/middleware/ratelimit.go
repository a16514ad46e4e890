// Package middleware provides HTTP middleware for the nexus API.
package middleware

import (
	"fmt"
	"math"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/time/rate"

	"github.com/studynexus/nexus/internal/httputil"
)

// maxClients bounds the number of tracked client IPs. The least recently
// seen client loses its limiter first.
const maxClients = 100_000

// RateLimiter applies a token bucket per client IP.
type RateLimiter struct {
	limiters *lru.Cache[string, *rate.Limiter]
	rate     rate.Limit
	burst    int
}

// NewRateLimiter creates a RateLimiter with the given requests per second and burst size.
func NewRateLimiter(ratePerSec float64, burst int) (*RateLimiter, error) {
	cache, err := lru.New[string, *rate.Limiter](maxClients)
	if err != nil {
		return nil, fmt.Errorf("creating limiter cache: %w", err)
	}

	return &RateLimiter{
		limiters: cache,
		rate:     rate.Limit(ratePerSec),
		burst:    burst,
	}, nil
}

func (rl *RateLimiter) limiter(ip string) *rate.Limiter {
	if l, ok := rl.limiters.Get(ip); ok {
		return l
	}

	l := rate.NewLimiter(rl.rate, rl.burst)
	// A concurrent request from the same IP may have raced us here.
	if prev, ok, _ := rl.limiters.PeekOrAdd(ip, l); ok {
		return prev
	}

	return l
}

// Handler returns Gin middleware that applies rate limiting per client IP.
func (rl *RateLimiter) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		// c.ClientIP() ignores X-Forwarded-For because the router trusts no proxies.
		l := rl.limiter(c.ClientIP())

		r := l.Reserve()
		if delay := r.Delay(); delay > 0 {
			r.Cancel()
			c.Header("Retry-After", strconv.Itoa(int(math.Ceil(delay.Seconds()))))
			httputil.RespondError(c, http.StatusTooManyRequests, "rate_limited", "rate limit exceeded")

			return
		}

		c.Next()
	}
}
