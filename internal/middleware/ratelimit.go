package middleware

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RateLimitKey returns the per-second counter key of a client
func RateLimitKey(clientIP string, now time.Time) string {
	return fmt.Sprintf("rl:ip:%s:second:%d", clientIP, now.Unix())
}

// RateLimit limits every client IP to perSecond requests per second using
// Redis counters. A nil client or a zero limit disables limiting, and
// Redis failures let the request through.
func RateLimit(rdb *redis.Client, perSecond int, logger *zap.Logger) fiber.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(c *fiber.Ctx) error {
		if rdb == nil || perSecond <= 0 {
			return c.Next()
		}

		ctx, cancel := context.WithTimeout(c.UserContext(), 200*time.Millisecond)
		defer cancel()

		now := time.Now()
		key := RateLimitKey(c.IP(), now)

		count, err := rdb.Incr(ctx, key).Result()
		if err != nil {
			logger.Warn("rate limit check failed", zap.String("key", key), zap.Error(err))
			return c.Next()
		}
		if count == 1 {
			rdb.Expire(ctx, key, 2*time.Second)
		}

		c.Set("X-RateLimit-Limit-Second", strconv.Itoa(perSecond))
		if count > int64(perSecond) {
			c.Set("X-RateLimit-Remaining-Second", "0")
			c.Set("X-RateLimit-Reset-Second", strconv.FormatInt(now.Unix()+1, 10))
			c.Set("Retry-After", "1")

			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"code":    "RATE_LIMIT_EXCEEDED",
				"message": "Too many requests per second",
				"details": fiber.Map{
					"limit":       perSecond,
					"retry_after": 1,
				},
			})
		}
		c.Set("X-RateLimit-Remaining-Second", strconv.FormatInt(int64(perSecond)-count, 10))
		return c.Next()
	}
}
