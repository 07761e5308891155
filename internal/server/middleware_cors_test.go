package server

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"projectboard/internal/config"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const boardOrigin = "http://localhost:5173"

func corsApp(t *testing.T) *fiber.App {
	t.Helper()
	srv := &Server{config: &config.Config{AllowedOrigins: boardOrigin}}

	app := fiber.New()
	srv.SetupMiddleware(app)
	app.Patch("/api/cards/:id", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})
	return app
}

func exhaustLimiter(t *testing.T, app *fiber.App) {
	t.Helper()
	for i := 0; i < 100; i++ {
		req := httptest.NewRequest(http.MethodPatch, "/api/cards/1", nil)
		req.Header.Set("Origin", boardOrigin)
		resp, err := app.Test(req, -1)
		require.NoError(t, err)
		require.Equal(t, fiber.StatusOK, resp.StatusCode)
		_ = resp.Body.Close()
	}
}

func TestSetupMiddleware_RateLimitedResponseKeepsCORSHeaders(t *testing.T) {
	t.Parallel()
	app := corsApp(t)
	exhaustLimiter(t, app)

	req := httptest.NewRequest(http.MethodPatch, "/api/cards/1", nil)
	req.Header.Set("Origin", boardOrigin)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, fiber.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, boardOrigin, resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestSetupMiddleware_PreflightSkipsLimiter(t *testing.T) {
	t.Parallel()
	app := corsApp(t)
	exhaustLimiter(t, app)

	req := httptest.NewRequest(http.MethodOptions, "/api/cards/1", nil)
	req.Header.Set("Origin", boardOrigin)
	req.Header.Set("Access-Control-Request-Method", http.MethodPatch)
	req.Header.Set("Access-Control-Request-Headers", "authorization,content-type")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, fiber.StatusNoContent, resp.StatusCode)
	assert.Equal(t, boardOrigin, resp.Header.Get("Access-Control-Allow-Origin"))
	assert.Contains(t, resp.Header.Get("Access-Control-Allow-Methods"), http.MethodPatch)
}
