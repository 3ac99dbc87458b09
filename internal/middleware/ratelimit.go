package middleware

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"agora/internal/models"
	"agora/internal/observability"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

// ErrLimiterUnavailable is returned when no Redis client is configured.
var ErrLimiterUnavailable = errors.New("rate limiter has no redis client")

// Limit is a named request budget shared by every route that uses it.
type Limit struct {
	Name     string
	Requests int
	Window   time.Duration
}

// Budgets for the write-heavy and credential endpoints.
var (
	RegisterLimit      = Limit{Name: "register", Requests: 3, Window: 10 * time.Minute}
	LoginLimit         = Limit{Name: "login", Requests: 10, Window: 5 * time.Minute}
	CreatePostLimit    = Limit{Name: "create_post", Requests: 10, Window: time.Minute}
	CreateCommentLimit = Limit{Name: "create_comment", Requests: 20, Window: time.Minute}
	SearchLimit        = Limit{Name: "search", Requests: 30, Window: time.Minute}
	ToggleLimit        = Limit{Name: "toggle", Requests: 60, Window: time.Minute}
)

// Decision is the outcome of one rate limit check.
type Decision struct {
	Allowed   bool
	Remaining int
	ResetIn   time.Duration
}

// limitingDisabled skips rate limiting outside deployed environments so dev
// and load-test workflows are not throttled.
func limitingDisabled() bool {
	switch os.Getenv("APP_ENV") {
	case "", "test", "development", "stress":
		return true
	}
	return false
}

// Check counts one request from caller against l. A counter found without
// an expiry gets one, so a crash between INCR and EXPIRE heals itself.
func Check(ctx context.Context, rdb *redis.Client, l Limit, caller string) (Decision, error) {
	if limitingDisabled() {
		return Decision{Allowed: true, Remaining: l.Requests, ResetIn: l.Window}, nil
	}
	if rdb == nil {
		return Decision{}, ErrLimiterUnavailable
	}

	key := fmt.Sprintf("rl:%s:%s", l.Name, caller)
	var incr *redis.IntCmd
	var ttl *redis.DurationCmd
	_, err := rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, key)
		ttl = pipe.TTL(ctx, key)
		return nil
	})
	if err != nil {
		return Decision{}, err
	}

	count := int(incr.Val())
	resetIn := ttl.Val()
	if resetIn < 0 {
		if err := rdb.Expire(ctx, key, l.Window).Err(); err != nil {
			return Decision{}, err
		}
		resetIn = l.Window
	}
	return Decision{
		Allowed:   count <= l.Requests,
		Remaining: max(l.Requests-count, 0),
		ResetIn:   resetIn,
	}, nil
}

// RateLimit enforces l per caller. Authenticated callers are keyed by user
// ID, everyone else by remote IP. When Redis is missing or failing the
// request goes through and the failure is logged.
func RateLimit(rdb *redis.Client, l Limit) fiber.Handler {
	return func(c *fiber.Ctx) error {
		caller := "ip:" + c.IP()
		if uid, ok := c.Locals("userID").(uint); ok {
			caller = "user:" + strconv.FormatUint(uint64(uid), 10)
		}

		d, err := Check(c.UserContext(), rdb, l, caller)
		if err != nil {
			if !errors.Is(err, ErrLimiterUnavailable) {
				observability.Logger.WarnContext(c.UserContext(), "rate limit check failed, allowing request",
					slog.String("limit", l.Name),
					slog.String("error", err.Error()))
			}
			return c.Next()
		}

		c.Set("X-RateLimit-Limit", strconv.Itoa(l.Requests))
		c.Set("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
		if !d.Allowed {
			observability.RateLimitRejections.WithLabelValues(l.Name).Inc()
			c.Set(fiber.HeaderRetryAfter, strconv.Itoa(int(d.ResetIn.Round(time.Second).Seconds())))
			return models.Respond(c, models.NewRateLimitedError())
		}
		return c.Next()
	}
}
