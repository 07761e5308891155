// Package server contains the HTTP handlers of the board UI API and the external token API.
package server

import (
	"errors"
	"strconv"
	"strings"
	"unicode"

	"projectboard/internal/middleware"
	"projectboard/internal/models"

	"github.com/gofiber/fiber/v2"
)

const (
	localUser = "currentUser"
	pageCap   = 100
)

// page is a limit/offset window read from the query string.
type page struct {
	Limit  int
	Offset int
}

// pageFrom reads ?limit&offset. Limits outside 1..100 fall back to def or the cap.
func pageFrom(c *fiber.Ctx, def int) page {
	limit := c.QueryInt("limit", def)
	switch {
	case limit <= 0:
		limit = def
	case limit > pageCap:
		limit = pageCap
	}
	return page{Limit: limit, Offset: max(c.QueryInt("offset", 0), 0)}
}

// routeID reads a positive integer route parameter. The message names the parameter:
// "id" reads as "ID" and "checklistItemId" as "checklist item ID".
func routeID(c *fiber.Ctx, param string) (uint, error) {
	id, err := c.ParamsInt(param)
	if err != nil || id <= 0 {
		return 0, models.NewBadRequestError("Invalid " + paramLabel(param))
	}
	return uint(id), nil
}

func paramLabel(param string) string {
	if param == "id" {
		return "ID"
	}
	stem, ok := strings.CutSuffix(param, "Id")
	if !ok {
		return param
	}
	var b strings.Builder
	for i, r := range stem {
		if unicode.IsUpper(r) {
			if i > 0 {
				b.WriteByte(' ')
			}
			r = unicode.ToLower(r)
		}
		b.WriteRune(r)
	}
	return b.String() + " ID"
}

// bindJSON decodes the request body into dest.
func bindJSON(c *fiber.Ctx, dest any) error {
	if err := c.BodyParser(dest); err != nil {
		return models.NewBadRequestError("Invalid request body")
	}
	return nil
}

// fail writes err with the status derived from its kind; 5xx failures are logged.
func fail(c *fiber.Ctx, err error) error {
	if models.StatusFor(err) >= fiber.StatusInternalServerError {
		middleware.Logger.ErrorContext(c.UserContext(), "board request failed",
			"route", c.Path(), "error", err)
	}
	return models.RespondWithAppError(c, err)
}

// currentUser returns the user bound by the session or token middleware, loading
// it once per request.
func (s *Server) currentUser(c *fiber.Ctx) (*models.User, error) {
	if u, ok := c.Locals(localUser).(*models.User); ok {
		return u, nil
	}
	userID, _ := c.Locals("userID").(uint)
	if userID == 0 {
		return nil, models.NewUnauthorizedError("Authorization required")
	}
	user, err := s.store.Users.FindByID(c.UserContext(), userID)
	if models.HasCode(err, models.CodeNotFound) {
		return nil, models.NewUnauthorizedError("Unknown user")
	}
	if err != nil {
		return nil, err
	}
	c.Locals(localUser, user)
	return user, nil
}

// queryUint reads an optional positive integer query parameter.
func queryUint(c *fiber.Ctx, key string) (*uint, error) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return nil, nil
	}
	id, err := parseUint(raw)
	if err != nil {
		return nil, models.NewValidationError("Invalid " + key)
	}
	return &id, nil
}

func parseUint(raw string) (uint, error) {
	v, err := strconv.ParseUint(strings.TrimSpace(raw), 10, 32)
	if err != nil {
		return 0, err
	}
	if v == 0 {
		return 0, errors.New("zero id")
	}
	return uint(v), nil
}

// flexID accepts an identifier sent either as a JSON number or a JSON string.
type flexID string

func (f *flexID) UnmarshalJSON(data []byte) error {
	raw := strings.TrimSpace(string(data))
	if raw == "null" {
		*f = ""
		return nil
	}
	*f = flexID(strings.Trim(raw, `"`))
	return nil
}
