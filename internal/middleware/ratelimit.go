package middleware

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

var errNoLimitStore = errors.New("rate limit store unavailable")

// WriteLimit throttles mutations per actor with a fixed Redis window. The
// actor is the authenticated user, or the client IP before authentication.
type WriteLimit struct {
	Client  *redis.Client
	Scope   string
	Limit   int
	Window  time.Duration
	Enabled bool
}

// Allow counts one request for actor and reports whether it fits the window,
// how many requests remain and when the window resets.
func (l WriteLimit) Allow(ctx context.Context, actor string) (allowed bool, remaining int, reset time.Duration, err error) {
	if !l.Enabled {
		return true, l.Limit, 0, nil
	}
	if l.Client == nil {
		return false, 0, 0, errNoLimitStore
	}

	key := fmt.Sprintf("rl:%s:%s", l.Scope, actor)
	var (
		incr *redis.IntCmd
		ttl  *redis.DurationCmd
	)
	if _, err := l.Client.Pipelined(ctx, func(p redis.Pipeliner) error {
		incr = p.Incr(ctx, key)
		ttl = p.PTTL(ctx, key)
		return nil
	}); err != nil {
		return false, 0, 0, err
	}

	count := incr.Val()
	reset = ttl.Val()
	// A negative TTL means the key has no expiry yet: first hit of the window.
	if reset < 0 {
		if err := l.Client.PExpire(ctx, key, l.Window).Err(); err != nil {
			return false, 0, 0, err
		}
		reset = l.Window
	}

	remaining = l.Limit - int(count)
	if remaining < 0 {
		remaining = 0
	}
	return count <= int64(l.Limit), remaining, reset, nil
}

// Handler returns the Fiber middleware. Store failures let the request
// through; a write outage of the cache must not block catalog edits.
func (l WriteLimit) Handler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !l.Enabled {
			return c.Next()
		}

		actor := "ip:" + c.IP()
		if uid := UserID(c); uid != "" {
			actor = "user:" + uid
		}

		allowed, remaining, reset, err := l.Allow(c.UserContext(), actor)
		if err != nil {
			Logger.WarnContext(c.UserContext(), "rate limit check skipped",
				slog.String("scope", l.Scope),
				slog.String("error", err.Error()),
			)
			return c.Next()
		}

		c.Set("X-RateLimit-Limit", strconv.Itoa(l.Limit))
		c.Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
		if !allowed {
			c.Set(fiber.HeaderRetryAfter, strconv.Itoa(int(reset.Round(time.Second).Seconds())))
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "Too many changes, please try again later.",
				"code":  "RATE_LIMITED",
			})
		}
		return c.Next()
	}
}
