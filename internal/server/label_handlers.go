package server

import (
	"projectboard/internal/service"

	"github.com/gofiber/fiber/v2"
)

// ListLabels handles GET /api/labels
func (s *Server) ListLabels(c *fiber.Ctx) error {
	labels, err := s.labels.List(c.UserContext())
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(labels)
}

// CreateLabel handles POST /api/labels
func (s *Server) CreateLabel(c *fiber.Ctx) error {
	user, err := s.currentUser(c)
	if err != nil {
		return fail(c, err)
	}
	var req service.LabelInput
	if err := bindJSON(c, &req); err != nil {
		return fail(c, err)
	}
	label, err := s.labels.Create(c.UserContext(), user, req)
	if err != nil {
		return fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(label)
}

// UpdateLabel handles PUT /api/labels/:id
func (s *Server) UpdateLabel(c *fiber.Ctx) error {
	user, err := s.currentUser(c)
	if err != nil {
		return fail(c, err)
	}
	labelID, err := routeID(c, "id")
	if err != nil {
		return fail(c, err)
	}
	var req service.LabelInput
	if err := bindJSON(c, &req); err != nil {
		return fail(c, err)
	}
	label, err := s.labels.Update(c.UserContext(), user, labelID, req)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(label)
}

// DeleteLabel handles DELETE /api/labels/:id
func (s *Server) DeleteLabel(c *fiber.Ctx) error {
	user, err := s.currentUser(c)
	if err != nil {
		return fail(c, err)
	}
	labelID, err := routeID(c, "id")
	if err != nil {
		return fail(c, err)
	}
	if err := s.labels.Delete(c.UserContext(), user, labelID); err != nil {
		return fail(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
