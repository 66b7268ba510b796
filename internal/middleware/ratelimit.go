package middleware

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/farellandr/ticketgate/internal/helpers"
	"github.com/farellandr/ticketgate/internal/metrics"
	"github.com/farellandr/ticketgate/internal/ratelimit"
)

// RateLimit throttles authenticated callers by user id, anonymous ones by
// client IP. A nil limiter disables throttling.
func RateLimit(limiter *ratelimit.Limiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limiter == nil {
			c.Next()
			return
		}

		key := "ip:" + c.ClientIP()
		if identity, ok := GetIdentity(c); ok {
			key = "user:" + identity.UserID.String()
		}

		allowed, err := limiter.Allow(c.Request.Context(), key)
		if err != nil {
			GetLogger(c).Warn("rate limiter unavailable, allowing request", "component", "ratelimit", "error", err)
		}
		if !allowed {
			metrics.RateLimited()
			c.Header("Retry-After", strconv.Itoa(int(limiter.Window().Seconds())))
			helpers.RespondWithCode(c, http.StatusTooManyRequests, helpers.CodeRateLimited, "Too many requests. Please slow down.", nil)
			return
		}
		c.Next()
	}
}
