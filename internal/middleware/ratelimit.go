package middleware

import (
	"context"
	"errors"
	"strconv"
	"time"

	"projectboard/internal/config"
	"projectboard/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

// ErrNoQuotaStore is returned when quotas are enforced but Redis is not configured.
var ErrNoQuotaStore = errors.New("rate limit store unavailable")

// Quota is a fixed-window request budget for one named action.
type Quota struct {
	Name   string
	Limit  int
	Window time.Duration
	// Strict rejects requests with 503 when the store is down instead of letting them through.
	Strict bool
}

// Limiter counts requests per subject in Redis.
type Limiter struct {
	rdb     *redis.Client
	enforce bool
}

// NewLimiter returns a limiter for env. Development and test environments are never throttled.
func NewLimiter(rdb *redis.Client, env string) *Limiter {
	return &Limiter{rdb: rdb, enforce: !config.IsLocal(env)}
}

// Allow counts one request by subject against q and returns the requests left in the window.
func (l *Limiter) Allow(ctx context.Context, q Quota, subject string) (left int, ok bool, err error) {
	if !l.enforce || q.Limit <= 0 {
		return q.Limit, true, nil
	}
	if l.rdb == nil {
		return 0, false, ErrNoQuotaStore
	}

	key := "rl:" + q.Name + ":" + subject
	var hits *redis.IntCmd
	_, err = l.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		hits = p.Incr(ctx, key)
		p.ExpireNX(ctx, key, q.Window)
		return nil
	})
	if err != nil {
		return 0, false, err
	}
	n := int(hits.Val())
	return max(q.Limit-n, 0), n <= q.Limit, nil
}

// subject keys requests by the authenticated user, falling back to the client IP.
func subject(c *fiber.Ctx) string {
	if uid, ok := c.Locals("userID").(uint); ok && uid != 0 {
		return "user:" + strconv.FormatUint(uint64(uid), 10)
	}
	return "ip:" + c.IP()
}

// Handler enforces q on a route. Over-budget requests get 429 with Retry-After.
func (l *Limiter) Handler(q Quota) fiber.Handler {
	return func(c *fiber.Ctx) error {
		left, ok, err := l.Allow(c.UserContext(), q, subject(c))
		if err != nil {
			if !q.Strict {
				return c.Next()
			}
			Logger.WarnContext(c.UserContext(), "rate limit store unavailable", "quota", q.Name, "error", err)
			return c.Status(fiber.StatusServiceUnavailable).JSON(models.ErrorResponse{
				Error: "rate limit unavailable",
				Code:  models.CodeInternal,
			})
		}
		if l.enforce {
			c.Set("X-RateLimit-Limit", strconv.Itoa(q.Limit))
			c.Set("X-RateLimit-Remaining", strconv.Itoa(left))
		}
		if !ok {
			c.Set(fiber.HeaderRetryAfter, strconv.Itoa(int(q.Window.Seconds())))
			return c.Status(fiber.StatusTooManyRequests).JSON(models.ErrorResponse{
				Error: "rate limit exceeded",
				Code:  models.CodeRateLimited,
			})
		}
		return c.Next()
	}
}
