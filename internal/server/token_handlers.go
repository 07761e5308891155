package server

import (
	"bytes"
	"html/template"

	"projectboard/internal/models"
	"projectboard/internal/service"

	"github.com/gofiber/fiber/v2"
)

type issueTokenRequest struct {
	Name      string   `json:"name"`
	Abilities []string `json:"abilities"`
	ExpiresAt *string  `json:"expires_at"`
}

var (
	tokenPage = template.Must(template.New("token").Parse(`<!doctype html>
<html><head><meta charset="utf-8"><title>API token</title></head>
<body>
<h1>Your API token</h1>
<p>Copy it now. It will not be shown again.</p>
<pre>{{.}}</pre>
</body></html>`))

	expiredPage = template.Must(template.New("expired").Parse(`<!doctype html>
<html><head><meta charset="utf-8"><title>Link expired</title></head>
<body>
<h1>Link expired</h1>
<p>{{.}}</p>
</body></html>`))
)

func renderPage(c *fiber.Ctx, status int, tpl *template.Template, data any) error {
	var buf bytes.Buffer
	if err := tpl.Execute(&buf, data); err != nil {
		return fail(c, models.NewInternalError(err))
	}
	c.Set(fiber.HeaderCacheControl, "no-store")
	c.Type("html", "utf-8")
	return c.Status(status).Send(buf.Bytes())
}

func (s *Server) issueToken(c *fiber.Ctx, defaultAbilities []string, allowAbilities bool) error {
	user, err := s.currentUser(c)
	if err != nil {
		return fail(c, err)
	}
	var req issueTokenRequest
	if err := bindJSON(c, &req); err != nil {
		return fail(c, err)
	}
	in := service.IssueTokenInput{Name: req.Name, Abilities: defaultAbilities}
	if allowAbilities && len(req.Abilities) > 0 {
		in.Abilities = req.Abilities
	}
	if req.ExpiresAt != nil {
		if in.ExpiresAt, err = service.ParseDate(*req.ExpiresAt); err != nil {
			return fail(c, models.NewValidationError("expires_at must be a date or an RFC 3339 timestamp"))
		}
	}
	issued, err := s.tokens.Issue(c.UserContext(), user, in)
	if err != nil {
		return fail(c, err)
	}
	resp := fiber.Map{"token": issued.Token}
	if issued.DisplayKey != "" {
		resp["display_url"] = c.BaseURL() + "/tokens/display/" + issued.DisplayKey
	} else {
		resp["plain_token"] = issued.Plaintext
	}
	return c.Status(fiber.StatusCreated).JSON(resp)
}

// IssueToken handles POST /api/api-tokens. Tokens issued from the board UI only carry
// board abilities.
// @Summary Issue an API token
// @Tags tokens
// @Accept json
// @Produce json
// @Success 201 {object} map[string]interface{}
// @Router /api-tokens [post]
func (s *Server) IssueToken(c *fiber.Ctx) error {
	return s.issueToken(c, service.UIAbilities, false)
}

// IssueScopedToken handles POST /api/tokens with caller-chosen abilities, "*" by default.
func (s *Server) IssueScopedToken(c *fiber.Ctx) error {
	return s.issueToken(c, nil, true)
}

// ListTokens handles GET /api/api-tokens
func (s *Server) ListTokens(c *fiber.Ctx) error {
	user, err := s.currentUser(c)
	if err != nil {
		return fail(c, err)
	}
	tokens, err := s.tokens.List(c.UserContext(), user)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"tokens": tokens})
}

// RevokeToken handles DELETE /api/api-tokens/:id
func (s *Server) RevokeToken(c *fiber.Ctx) error {
	user, err := s.currentUser(c)
	if err != nil {
		return fail(c, err)
	}
	tokenID, err := routeID(c, "id")
	if err != nil {
		return fail(c, err)
	}
	if err := s.tokens.Revoke(c.UserContext(), user, tokenID); err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "message": "Token revoked"})
}

// DisplayToken handles GET /tokens/display/:key. The plaintext is shown once; later
// visits get the expired page.
func (s *Server) DisplayToken(c *fiber.Ctx) error {
	plaintext, err := s.tokens.Reveal(c.UserContext(), c.Params("key"))
	if err != nil {
		if models.HasCode(err, models.CodeTokenDisplayExpired) {
			return renderPage(c, fiber.StatusGone, expiredPage, err.Error())
		}
		return fail(c, err)
	}
	return renderPage(c, fiber.StatusOK, tokenPage, plaintext)
}
