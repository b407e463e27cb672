package middleware

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

const loginRateKeyPrefix = "rl:login:"

// LoginRateLimit caps failed login attempts per phone number, or per client IP when the
// body carries none. A successful login clears the counter. It is a no-op without Redis
// and fails open on cache errors.
func LoginRateLimit(cache *redis.Client, maxPerMin int, logger *slog.Logger) fiber.Handler {
	if maxPerMin <= 0 {
		maxPerMin = 5
	}
	return func(c *fiber.Ctx) error {
		if cache == nil {
			return c.Next()
		}
		var req struct {
			PhoneNumber string `json:"phone_number"`
		}
		_ = c.BodyParser(&req)
		subject := strings.TrimSpace(req.PhoneNumber)
		if subject == "" {
			subject = c.IP()
		}
		key := loginRateKeyPrefix + subject
		cnt, err := cache.Incr(c.UserContext(), key).Result()
		if err != nil {
			logger.WarnContext(c.UserContext(), "login rate limit unavailable", slog.Any("error", err))
			return c.Next()
		}
		if cnt == 1 {
			cache.Expire(c.UserContext(), key, time.Minute)
		}
		if cnt > int64(maxPerMin) {
			c.Set(fiber.HeaderRetryAfter, "60")
			return fiber.NewError(http.StatusTooManyRequests, "Request was throttled. Expected available in 60 seconds.")
		}
		if err := c.Next(); err != nil {
			return err
		}
		if c.Response().StatusCode() == http.StatusOK {
			if err := cache.Del(c.UserContext(), key).Err(); err != nil {
				logger.WarnContext(c.UserContext(), "login rate limit reset failed", slog.Any("error", err))
			}
		}
		return nil
	}
}
