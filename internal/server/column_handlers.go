package server

import (
	"projectboard/internal/service"

	"github.com/gofiber/fiber/v2"
)

type columnRequest struct {
	Name  *string            `json:"name"`
	Order *int               `json:"order"`
	Cards []service.CardSeed `json:"cards"`
}

// CreateColumn handles POST /api/boards/:id/columns
func (s *Server) CreateColumn(c *fiber.Ctx) error {
	user, err := s.currentUser(c)
	if err != nil {
		return fail(c, err)
	}
	boardID, err := routeID(c, "id")
	if err != nil {
		return fail(c, err)
	}
	var req columnRequest
	if err := bindJSON(c, &req); err != nil {
		return fail(c, err)
	}
	name := ""
	if req.Name != nil {
		name = *req.Name
	}
	column, err := s.columns.Create(c.UserContext(), user, boardID, name)
	if err != nil {
		return fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(column)
}

// UpdateColumn handles PUT /api/columns/:id
func (s *Server) UpdateColumn(c *fiber.Ctx) error {
	user, err := s.currentUser(c)
	if err != nil {
		return fail(c, err)
	}
	columnID, err := routeID(c, "id")
	if err != nil {
		return fail(c, err)
	}
	var req columnRequest
	if err := bindJSON(c, &req); err != nil {
		return fail(c, err)
	}
	column, err := s.columns.Update(c.UserContext(), user, columnID, service.UpdateColumnInput{
		Name:  req.Name,
		Order: req.Order,
	})
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(column)
}

// ReorderColumn handles PUT /api/columns/:id/reorder
func (s *Server) ReorderColumn(c *fiber.Ctx) error {
	user, err := s.currentUser(c)
	if err != nil {
		return fail(c, err)
	}
	columnID, err := routeID(c, "id")
	if err != nil {
		return fail(c, err)
	}
	var req columnRequest
	if err := bindJSON(c, &req); err != nil {
		return fail(c, err)
	}
	if req.Order == nil {
		return fail(c, errOrderRequired)
	}
	column, err := s.columns.Reorder(c.UserContext(), user, columnID, *req.Order)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(column)
}

// ArchiveColumn handles DELETE /api/columns/:id
func (s *Server) ArchiveColumn(c *fiber.Ctx) error {
	user, err := s.currentUser(c)
	if err != nil {
		return fail(c, err)
	}
	columnID, err := routeID(c, "id")
	if err != nil {
		return fail(c, err)
	}
	if err := s.columns.Archive(c.UserContext(), user, columnID); err != nil {
		return fail(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// RestoreColumn handles PUT /api/columns/:id/restore
func (s *Server) RestoreColumn(c *fiber.Ctx) error {
	user, err := s.currentUser(c)
	if err != nil {
		return fail(c, err)
	}
	columnID, err := routeID(c, "id")
	if err != nil {
		return fail(c, err)
	}
	if err := s.columns.Restore(c.UserContext(), user, columnID); err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"success": true})
}

// PurgeColumn handles DELETE /api/columns/:id/force
func (s *Server) PurgeColumn(c *fiber.Ctx) error {
	user, err := s.currentUser(c)
	if err != nil {
		return fail(c, err)
	}
	columnID, err := routeID(c, "id")
	if err != nil {
		return fail(c, err)
	}
	if err := s.columns.Purge(c.UserContext(), user, columnID); err != nil {
		return fail(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// ArchiveColumnCards handles POST /api/columns/:id/archive-cards
func (s *Server) ArchiveColumnCards(c *fiber.Ctx) error {
	user, err := s.currentUser(c)
	if err != nil {
		return fail(c, err)
	}
	columnID, err := routeID(c, "id")
	if err != nil {
		return fail(c, err)
	}
	n, err := s.columns.ArchiveCards(c.UserContext(), user, columnID)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "archived": n})
}
