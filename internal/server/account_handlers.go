package server

import (
	"github.com/gofiber/fiber/v2"
)

// GetFeatureFlags handles GET /api/feature-flags: the FEATURE_FLAGS entries as configured
// and every board feature resolved for the caller.
func (s *Server) GetFeatureFlags(c *fiber.Ctx) error {
	uid, _ := c.Locals("userID").(uint)
	return c.JSON(fiber.Map{
		"configured": s.featureFlags.Configured(),
		"features":   s.featureFlags.Evaluate(uid),
	})
}

// ListNotifications handles GET /api/notifications?limit= with the caller's newest
// notifications first.
func (s *Server) ListNotifications(c *fiber.Ctx) error {
	user, err := s.currentUser(c)
	if err != nil {
		return fail(c, err)
	}
	events, err := s.notifier.Recent(c.UserContext(), user.ID, c.QueryInt("limit", 0))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"notifications": events})
}

// ClearNotifications handles DELETE /api/notifications
func (s *Server) ClearNotifications(c *fiber.Ctx) error {
	user, err := s.currentUser(c)
	if err != nil {
		return fail(c, err)
	}
	if err := s.notifier.Clear(c.UserContext(), user.ID); err != nil {
		return fail(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
