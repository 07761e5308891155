package server

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHardeningHeaders(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	cases := []struct {
		path   string
		status int
	}{
		{"/health/live", http.StatusOK},
		{"/api/boards", http.StatusUnauthorized},
		{"/tokens/display/missing", http.StatusGone},
	}
	for _, tc := range cases {
		t.Run(tc.path, func(t *testing.T) {
			resp, err := env.app.Test(httptest.NewRequest(http.MethodGet, tc.path, nil), -1)
			require.NoError(t, err)
			defer func() { _ = resp.Body.Close() }()

			assert.Equal(t, tc.status, resp.StatusCode)
			assert.Equal(t, "nosniff", resp.Header.Get(fiber.HeaderXContentTypeOptions))
			assert.Equal(t, "SAMEORIGIN", resp.Header.Get(fiber.HeaderXFrameOptions))
			assert.NotEmpty(t, resp.Header.Get(fiber.HeaderXRequestID))
		})
	}
}

func TestRequestIDIsEchoed(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodGet, "/health/live", nil)
	req.Header.Set(fiber.HeaderXRequestID, "trace-me-42")
	resp, err := env.app.Test(req, -1)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, "trace-me-42", resp.Header.Get(fiber.HeaderXRequestID))
}
