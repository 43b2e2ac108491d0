package middleware

import (
	"fmt"
	"net/http"

	"github.com/LutfiBK25/qulron/internal/fingerprint"
	"github.com/LutfiBK25/qulron/internal/ratelimit"
	"github.com/gin-gonic/gin"
)

// RateLimit runs admission control before anything else touches the
// request. Denied requests get a 429 naming the exceeded tier.
func RateLimit(admission *ratelimit.Admission) gin.HandlerFunc {
	return func(c *gin.Context) {
		clientIP := fingerprint.ClientIP(c.Request)
		path := c.Request.URL.Path

		decision := admission.Admit(clientIP, path)

		if !decision.Allowed {
			retryAfter := int(decision.RetryAfter.Seconds())
			if retryAfter < 1 {
				retryAfter = 1
			}

			c.Header("Retry-After", fmt.Sprintf("%d", retryAfter))
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error":       decision.Message,
				"limit_type":  string(decision.Reason),
				"retry_after": retryAfter,
			})
			c.Abort()
			return
		}

		c.Next()
	}
}
