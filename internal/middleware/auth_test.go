package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-key-12345678901234567890123456789012"

func sessionToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	s, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return s
}

func validClaims(userID uint, exp time.Duration) jwt.MapClaims {
	return jwt.MapClaims{
		"sub": strconv.FormatUint(uint64(userID), 10),
		"iss": SessionIssuer,
		"aud": SessionAudience,
		"exp": time.Now().Add(exp).Unix(),
	}
}

func TestSessionRequired(t *testing.T) {
	t.Parallel()

	app := fiber.New()
	app.Get("/test", SessionRequired(testSecret), func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"userID": c.Locals("userID")})
	})

	wrongAudience := validClaims(5, time.Hour)
	wrongAudience["aud"] = "someone-else"

	tests := []struct {
		name           string
		authHeader     string
		expectedStatus int
		expectedUserID uint
	}{
		{"valid session", "Bearer " + sessionToken(t, testSecret, validClaims(123, time.Hour)), http.StatusOK, 123},
		{"lowercase scheme", "bearer " + sessionToken(t, testSecret, validClaims(7, time.Hour)), http.StatusOK, 7},
		{"missing header", "", http.StatusUnauthorized, 0},
		{"basic auth", "Basic dXNlcjpwYXNz", http.StatusUnauthorized, 0},
		{"malformed token", "Bearer malformed.token.here", http.StatusUnauthorized, 0},
		{"expired token", "Bearer " + sessionToken(t, testSecret, validClaims(123, -time.Hour)), http.StatusUnauthorized, 0},
		{"wrong secret", "Bearer " + sessionToken(t, "another-secret-another-secret-123", validClaims(1, time.Hour)), http.StatusUnauthorized, 0},
		{"wrong audience", "Bearer " + sessionToken(t, testSecret, wrongAudience), http.StatusUnauthorized, 0},
		{"zero subject", "Bearer " + sessionToken(t, testSecret, validClaims(0, time.Hour)), http.StatusUnauthorized, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/test", nil)
			if tt.authHeader != "" {
				req.Header.Set("Authorization", tt.authHeader)
			}

			resp, err := app.Test(req)
			require.NoError(t, err)
			defer func() { _ = resp.Body.Close() }()
			assert.Equal(t, tt.expectedStatus, resp.StatusCode)

			var body map[string]any
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
			if tt.expectedStatus == http.StatusOK {
				assert.Equal(t, float64(tt.expectedUserID), body["userID"])
			} else {
				assert.Equal(t, "UNAUTHORIZED", body["code"])
			}
		})
	}
}

func TestBearerToken(t *testing.T) {
	t.Parallel()

	app := fiber.New()
	app.Get("/", func(c *fiber.Ctx) error {
		return c.SendString(BearerToken(c))
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer   abc123  ")
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	buf := make([]byte, 16)
	n, _ := resp.Body.Read(buf)
	assert.Equal(t, "abc123", string(buf[:n]))
}
