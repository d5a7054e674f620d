package middleware

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RateLimitMiddleware applies a sliding per-user (falling back to per-IP)
// request budget backed by redis. Redis outages fail open: rejecting
// legitimate milestone submissions is worse than briefly skipping limits.
func RateLimitMiddleware(rdb *redis.Client, limit int, window time.Duration) fiber.Handler {
	return func(c *fiber.Ctx) error {
		subject := c.IP()
		if id := GetUserID(c); id != (uuid.UUID{}) {
			subject = id.String()
		}
		key := fmt.Sprintf("rl:%s:%s", c.Path(), subject)

		count, err := rdb.Incr(c.Context(), key).Result()
		if err != nil {
			return c.Next()
		}
		if count == 1 {
			rdb.Expire(c.Context(), key, window)
		}
		if count > int64(limit) {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "rate limit exceeded",
			})
		}

		return c.Next()
	}
}
