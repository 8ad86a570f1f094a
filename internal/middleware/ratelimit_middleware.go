package middleware

import (
	"context"
	"net/http"

	"github.com/UthayakumarDevon/livechatapp/internal/transport/httpdto"

	"github.com/gin-gonic/gin"
)

// Allower is satisfied by the websocket event limiters, so HTTP routes share
// the same local or Redis backed limits.
type Allower interface {
	Allow(ctx context.Context, key, event string) bool
}

// RateLimitMiddleware limits requests per client IP under the given event
// name.
func RateLimitMiddleware(limiter Allower, event string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limiter == nil {
			c.Next()
			return
		}
		if !limiter.Allow(c.Request.Context(), "ip:"+c.ClientIP(), event) {
			c.JSON(http.StatusTooManyRequests, httpdto.NewErrorResponse("rate limit exceeded", "RATE_LIMITED"))
			c.Abort()
			return
		}
		c.Next()
	}
}
