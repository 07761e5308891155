package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newQuotaRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func quotaApp(l *Limiter, q Quota) *fiber.App {
	app := fiber.New()
	app.Get("/limited", l.Handler(q), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})
	return app
}

func get(t *testing.T, app *fiber.App) *http.Response {
	t.Helper()
	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/limited", nil))
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func TestLimiter_NotEnforcedOutsideProduction(t *testing.T) {
	t.Parallel()

	for _, env := range []string{"", "test", "development"} {
		l := NewLimiter(nil, env)
		left, ok, err := l.Allow(context.Background(), Quota{Name: "api", Limit: 1, Window: time.Minute}, "user:1")
		assert.NoError(t, err, env)
		assert.True(t, ok, env)
		assert.Equal(t, 1, left, env)
	}
}

func TestLimiter_NoStoreInProduction(t *testing.T) {
	t.Parallel()

	_, ok, err := NewLimiter(nil, "production").Allow(context.Background(),
		Quota{Name: "api", Limit: 1, Window: time.Minute}, "user:1")
	assert.ErrorIs(t, err, ErrNoQuotaStore)
	assert.False(t, ok)
}

func TestLimiter_FixedWindow(t *testing.T) {
	t.Parallel()

	mr, rdb := newQuotaRedis(t)
	l := NewLimiter(rdb, "production")
	q := Quota{Name: "api", Limit: 2, Window: time.Minute}
	ctx := context.Background()

	for want := 1; want >= 0; want-- {
		left, ok, err := l.Allow(ctx, q, "user:9")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, want, left)
	}

	left, ok, err := l.Allow(ctx, q, "user:9")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Zero(t, left)
	ttl := mr.TTL("rl:api:user:9")
	assert.True(t, ttl > 0 && ttl <= time.Minute)

	mr.FastForward(time.Minute + time.Second)
	_, ok, err = l.Allow(ctx, q, "user:9")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestLimiter_ZeroLimitDisablesQuota(t *testing.T) {
	t.Parallel()

	_, rdb := newQuotaRedis(t)
	_, ok, err := NewLimiter(rdb, "production").Allow(context.Background(), Quota{Name: "api_v1"}, "user:1")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestLimiterHandler(t *testing.T) {
	t.Parallel()

	t.Run("lenient quota passes when store is down", func(t *testing.T) {
		t.Parallel()
		app := quotaApp(NewLimiter(nil, "production"), Quota{Name: "search", Limit: 1, Window: time.Minute})
		assert.Equal(t, http.StatusOK, get(t, app).StatusCode)
	})

	t.Run("strict quota rejects when store is down", func(t *testing.T) {
		t.Parallel()
		app := quotaApp(NewLimiter(nil, "production"), Quota{Name: "login", Limit: 1, Window: time.Minute, Strict: true})
		assert.Equal(t, http.StatusServiceUnavailable, get(t, app).StatusCode)
	})

	t.Run("no headers in test env", func(t *testing.T) {
		t.Parallel()
		app := quotaApp(NewLimiter(nil, "test"), Quota{Name: "search", Limit: 1, Window: time.Minute})
		resp := get(t, app)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Empty(t, resp.Header.Get("X-RateLimit-Limit"))
	})

	t.Run("over budget", func(t *testing.T) {
		t.Parallel()
		_, rdb := newQuotaRedis(t)
		app := quotaApp(NewLimiter(rdb, "production"), Quota{Name: "limited", Limit: 1, Window: time.Minute})

		first := get(t, app)
		assert.Equal(t, http.StatusOK, first.StatusCode)
		assert.Equal(t, "1", first.Header.Get("X-RateLimit-Limit"))
		assert.Equal(t, "0", first.Header.Get("X-RateLimit-Remaining"))

		second := get(t, app)
		assert.Equal(t, http.StatusTooManyRequests, second.StatusCode)
		assert.Equal(t, "60", second.Header.Get("Retry-After"))
	})
}
