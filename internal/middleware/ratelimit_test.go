package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"agora/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testLimit = Limit{Name: "login", Requests: 2, Window: time.Minute}

func newMiniredis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func TestCheck_DisabledOutsideDeployments(t *testing.T) {
	for _, env := range []string{"", "test", "development", "stress"} {
		t.Run("env="+env, func(t *testing.T) {
			t.Setenv("APP_ENV", env)
			d, err := Check(context.Background(), nil, testLimit, "ip:1.2.3.4")
			require.NoError(t, err)
			assert.True(t, d.Allowed)
		})
	}
}

func TestCheck_NoRedis(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	_, err := Check(context.Background(), nil, testLimit, "ip:1.2.3.4")
	assert.ErrorIs(t, err, ErrLimiterUnavailable)
}

func TestCheck_CountsPerCallerAndWindow(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	mr, rdb := newMiniredis(t)
	ctx := context.Background()

	d, err := Check(ctx, rdb, testLimit, "ip:1.2.3.4")
	require.NoError(t, err)
	assert.Equal(t, Decision{Allowed: true, Remaining: 1, ResetIn: time.Minute}, d)

	d, err = Check(ctx, rdb, testLimit, "ip:1.2.3.4")
	require.NoError(t, err)
	assert.True(t, d.Allowed)
	assert.Zero(t, d.Remaining)

	d, err = Check(ctx, rdb, testLimit, "ip:1.2.3.4")
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Equal(t, time.Minute, mr.TTL("rl:login:ip:1.2.3.4"))

	d, err = Check(ctx, rdb, testLimit, "ip:5.6.7.8")
	require.NoError(t, err)
	assert.True(t, d.Allowed, "each caller has its own bucket")

	mr.FastForward(time.Minute + time.Second)
	d, err = Check(ctx, rdb, testLimit, "ip:1.2.3.4")
	require.NoError(t, err)
	assert.True(t, d.Allowed, "bucket resets after the window")
}

func TestCheck_RepairsCounterWithoutExpiry(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	mr, rdb := newMiniredis(t)
	require.NoError(t, mr.Set("rl:login:user:9", "1"))

	d, err := Check(context.Background(), rdb, testLimit, "user:9")
	require.NoError(t, err)
	assert.True(t, d.Allowed)
	assert.Equal(t, time.Minute, mr.TTL("rl:login:user:9"))
}

func TestRateLimit_RejectsWithHeaders(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	_, rdb := newMiniredis(t)

	app := fiber.New()
	app.Post("/login", RateLimit(rdb, testLimit), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	for range testLimit.Requests {
		resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/login", nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "2", resp.Header.Get("X-RateLimit-Limit"))
	}

	resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/login", nil))
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, "0", resp.Header.Get("X-RateLimit-Remaining"))
	assert.Equal(t, "60", resp.Header.Get(fiber.HeaderRetryAfter))

	var body models.ErrorResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, models.CodeRateLimited, body.Code)
}

func TestRateLimit_KeysAuthenticatedCallersByUser(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	mr, rdb := newMiniredis(t)

	app := fiber.New()
	app.Post("/like", func(c *fiber.Ctx) error {
		c.Locals("userID", uint(42))
		return c.Next()
	}, RateLimit(rdb, testLimit), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/like", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, mr.Exists("rl:login:user:42"))
}

func TestRateLimit_FailsOpen(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1, DialTimeout: 100 * time.Millisecond})
	t.Cleanup(func() { _ = rdb.Close() })
	mr.Close()

	app := fiber.New()
	app.Get("/search", RateLimit(rdb, testLimit), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})
	app.Get("/no-redis", RateLimit(nil, testLimit), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	for _, path := range []string{"/search", "/no-redis"} {
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, path, nil), -1)
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode, path)
	}
}
