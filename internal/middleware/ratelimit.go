package middleware

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nexus-cloud/summarizer/internal/config"
	pkgredis "github.com/nexus-cloud/summarizer/internal/pkg/redis"
	"github.com/nexus-cloud/summarizer/internal/pkg/response"
)

const rateLimitWindow = time.Second

// RateLimit returns a middleware that enforces a per-tenant sliding-window
// request limit backed by Redis. Runs after Auth so the tenant is known.
// Redis problems fail open: limiting is protection, not correctness.
func RateLimit(rc *pkgredis.Client, cfg config.RateLimit) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !cfg.Enabled || rc == nil {
			c.Next()
			return
		}

		p := CurrentPrincipal(c)
		if p == nil {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		windowKey := time.Now().Unix()
		key := fmt.Sprintf("nx:rate_limit:%s:%d", p.TenantID, windowKey)

		count, err := rc.Incr(ctx, key)
		if err != nil {
			c.Next()
			return
		}
		if count == 1 {
			_ = rc.PExpire(ctx, key, rateLimitWindow+time.Second)
		}

		if count > int64(cfg.PerSecond) {
			response.TooManyRequests(c, "tenant request rate exceeded")
			return
		}

		c.Next()
	}
}
