package middlewares

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const issueLimitWindow = 24 * time.Hour

// IssueRateLimiter caps issue creation at limit per reporter per day. It
// must run after AuthMiddleware. A nil client disables the limit.
func IssueRateLimiter(client *redis.Client, keyPrefix string, limit int, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if client == nil || limit <= 0 {
			c.Next()
			return
		}
		principal, ok := CurrentPrincipal(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated", "code": "unauthorized"})
			c.Abort()
			return
		}

		ctx := c.Request.Context()
		userKey := keyPrefix + ":" + principal.ID

		count, err := client.Incr(ctx, userKey).Result()
		if err != nil {
			logger.Error("Rate limiter increment failed", zap.String("key", userKey), zap.Error(err))
			c.JSON(http.StatusBadGateway, gin.H{"error": "rate limiter unavailable", "code": "adapter_failure"})
			c.Abort()
			return
		}

		// first hit in the window starts the clock
		if count == 1 {
			if err := client.Expire(ctx, userKey, issueLimitWindow).Err(); err != nil {
				logger.Error("Rate limiter expire failed", zap.String("key", userKey), zap.Error(err))
				c.JSON(http.StatusBadGateway, gin.H{"error": "rate limiter unavailable", "code": "adapter_failure"})
				c.Abort()
				return
			}
		}

		if count > int64(limit) {
			retryAfter, _ := client.TTL(ctx, userKey).Result()
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error":       "rate limit exceeded",
				"code":        "rate_limited",
				"retry_after": retryAfter.Seconds(),
			})
			c.Abort()
			return
		}

		c.Next()
	}
}
