package middleware

import (
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"walrusweb/pkg/metrics"
	"walrusweb/pkg/ratelimit"
)

const RateLimitMessage = "Too many requests, please try again later."

// RateLimit rejects clients that exceed the limiter's window with 429.
// Requests are let through when the limiter itself fails.
func RateLimit(limiter ratelimit.Limiter, logger *slog.Logger, m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		res, err := limiter.Allow(c.Request.Context(), c.ClientIP())
		if err != nil {
			logger.Error(
				fmt.Sprintf("rate limiter unavailable: %s", err),
				"component", "http",
			)
			c.Next()
			return
		}
		c.Header("RateLimit-Limit", strconv.Itoa(res.Limit))
		c.Header("RateLimit-Remaining", strconv.Itoa(res.Remaining))
		if !res.Allowed {
			m.RateLimited()
			retryAfter := int(math.Ceil(res.RetryAfter.Seconds()))
			if retryAfter < 1 {
				retryAfter = 1
			}
			c.Header("Retry-After", strconv.Itoa(retryAfter))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": RateLimitMessage})
			return
		}
		c.Next()
	}
}
