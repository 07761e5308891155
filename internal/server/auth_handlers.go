package server

import (
	"time"

	"projectboard/internal/config"
	"projectboard/internal/middleware"
	"projectboard/internal/models"

	"github.com/gofiber/fiber/v2"
)

const devSessionTTL = 7 * 24 * time.Hour

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// DevLogin handles POST /api/auth/login. Sign-in belongs to the host application;
// this route is only mounted in local environments so the UI can be driven by hand.
// @Summary Development login
// @Description Exchange email and password for a session JWT (local environments only)
// @Tags auth
// @Accept json
// @Produce json
// @Param request body loginRequest true "Credentials"
// @Success 200 {object} object{token=string,user=models.User}
// @Failure 401 {object} models.ErrorResponse
// @Router /auth/login [post]
func (s *Server) DevLogin(c *fiber.Ctx) error {
	var req loginRequest
	if err := bindJSON(c, &req); err != nil {
		return fail(c, err)
	}
	user, err := s.users.Authenticate(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return fail(c, err)
	}
	session, err := middleware.IssueSessionToken(user.ID, s.config.JWTSecret, devSessionTTL)
	if err != nil {
		return fail(c, models.NewInternalError(err))
	}
	return c.JSON(fiber.Map{"token": session, "user": user})
}

func (s *Server) devLoginEnabled() bool {
	return config.IsLocal(s.config.Env)
}
