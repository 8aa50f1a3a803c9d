package middleware

import (
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/limiter"
	fiberredis "github.com/gofiber/storage/redis/v3"
	"github.com/redis/go-redis/v9"

	"github.com/Alijeyrad/assessflow/config"
)

// NewLimiter builds a sliding-window limiter keyed by client IP. Counters
// live in Redis when rdb is set so every replica shares them.
func NewLimiter(cfg config.RateLimitConfig, rdb *redis.Client) fiber.Handler {
	max := cfg.Max
	if max <= 0 {
		max = 120
	}
	exp := time.Duration(cfg.ExpirationSeconds) * time.Second
	if exp <= 0 {
		exp = time.Minute
	}

	lc := limiter.Config{
		Max:               max,
		Expiration:        exp,
		LimiterMiddleware: limiter.SlidingWindow{},
		LimitReached: func(c fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{"error": "too many requests"})
		},
	}
	if rdb != nil {
		lc.Storage = fiberredis.NewFromConnection(rdb)
	}
	return limiter.New(lc)
}
