package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"projectboard/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParamLabel(t *testing.T) {
	t.Parallel()
	tests := []struct {
		param    string
		expected string
	}{
		{"id", "ID"},
		{"userId", "user ID"},
		{"columnId", "column ID"},
		{"attachmentId", "attachment ID"},
		{"checklistItemId", "checklist item ID"},
		{"something", "something"},
	}
	for _, tt := range tests {
		t.Run(tt.param, func(t *testing.T) {
			assert.Equal(t, tt.expected, paramLabel(tt.param))
		})
	}
}

func TestPageFrom(t *testing.T) {
	t.Parallel()
	app := fiber.New()
	app.Get("/items", func(c *fiber.Ctx) error {
		p := pageFrom(c, 25)
		return c.JSON(fiber.Map{"limit": p.Limit, "offset": p.Offset})
	})

	tests := []struct {
		name   string
		query  string
		limit  float64
		offset float64
	}{
		{"defaults", "", 25, 0},
		{"custom", "?limit=10&offset=30", 10, 30},
		{"clamped", "?limit=1000&offset=-4", 100, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/items"+tt.query, nil)
			resp, err := app.Test(req)
			require.NoError(t, err)
			defer func() { _ = resp.Body.Close() }()

			var body map[string]float64
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
			assert.Equal(t, tt.limit, body["limit"])
			assert.Equal(t, tt.offset, body["offset"])
		})
	}
}

func TestRouteID(t *testing.T) {
	t.Parallel()
	tests := []struct {
		param  string
		value  string
		status int
		msg    string
	}{
		{"id", "42", http.StatusOK, ""},
		{"id", "abc", http.StatusBadRequest, "Invalid ID"},
		{"id", "0", http.StatusBadRequest, "Invalid ID"},
		{"userId", "abc", http.StatusBadRequest, "Invalid user ID"},
		{"attachmentId", "-3", http.StatusBadRequest, "Invalid attachment ID"},
	}
	for _, tt := range tests {
		t.Run(tt.param+"="+tt.value, func(t *testing.T) {
			app := fiber.New()
			app.Get("/items/:"+tt.param, func(c *fiber.Ctx) error {
				id, err := routeID(c, tt.param)
				if err != nil {
					return fail(c, err)
				}
				return c.JSON(fiber.Map{"id": id})
			})

			resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/items/"+tt.value, nil))
			require.NoError(t, err)
			defer func() { _ = resp.Body.Close() }()

			assert.Equal(t, tt.status, resp.StatusCode)
			if tt.msg != "" {
				var body models.ErrorResponse
				require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
				assert.Equal(t, tt.msg, body.Error)
			}
		})
	}
}

func TestBindJSON_Invalid(t *testing.T) {
	t.Parallel()
	app := fiber.New()
	app.Post("/items", func(c *fiber.Ctx) error {
		var dest struct {
			Name string `json:"name"`
		}
		if err := bindJSON(c, &dest); err != nil {
			return fail(c, err)
		}
		return c.SendString(dest.Name)
	})

	req := httptest.NewRequest(http.MethodPost, "/items", strings.NewReader("{not json"))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestFail_MapsErrorKinds(t *testing.T) {
	t.Parallel()
	tests := []struct {
		err    error
		status int
		code   string
	}{
		{models.NewBadRequestError("Invalid ID"), http.StatusBadRequest, models.CodeBadRequest},
		{models.NewNotFoundError("Card", 9), http.StatusNotFound, models.CodeNotFound},
		{models.NewForbiddenError("nope"), http.StatusForbidden, models.CodeForbidden},
		{models.NewValidationError("bad"), http.StatusUnprocessableEntity, models.CodeValidation},
		{models.NewTokenExpiredError(), http.StatusUnauthorized, models.CodeTokenExpired},
		{models.NewTokenDisplayExpiredError(), http.StatusGone, models.CodeTokenDisplayExpired},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			app := fiber.New()
			app.Get("/", func(c *fiber.Ctx) error { return fail(c, tt.err) })

			resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/", nil))
			require.NoError(t, err)
			defer func() { _ = resp.Body.Close() }()

			assert.Equal(t, tt.status, resp.StatusCode)
			var body models.ErrorResponse
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
			assert.Equal(t, tt.code, body.Code)
		})
	}
}

func TestFlexID_AcceptsNumberOrString(t *testing.T) {
	t.Parallel()
	var a, b struct {
		ID flexID `json:"id"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"id": 12}`), &a))
	require.NoError(t, json.Unmarshal([]byte(`{"id": "12"}`), &b))
	assert.Equal(t, flexID("12"), a.ID)
	assert.Equal(t, a.ID, b.ID)
}
