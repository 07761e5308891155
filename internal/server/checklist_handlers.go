package server

import (
	"projectboard/internal/service"

	"github.com/gofiber/fiber/v2"
)

// ListChecklists handles GET /api/cards/:id/checklists
func (s *Server) ListChecklists(c *fiber.Ctx) error {
	user, err := s.currentUser(c)
	if err != nil {
		return fail(c, err)
	}
	cardID, err := routeID(c, "id")
	if err != nil {
		return fail(c, err)
	}
	checklists, err := s.checklists.List(c.UserContext(), user, cardID)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(checklists)
}

// CreateChecklist handles POST /api/cards/:id/checklists
func (s *Server) CreateChecklist(c *fiber.Ctx) error {
	user, err := s.currentUser(c)
	if err != nil {
		return fail(c, err)
	}
	cardID, err := routeID(c, "id")
	if err != nil {
		return fail(c, err)
	}
	var req struct {
		Name string `json:"name"`
	}
	if err := bindJSON(c, &req); err != nil {
		return fail(c, err)
	}
	checklist, err := s.checklists.Create(c.UserContext(), user, cardID, req.Name)
	if err != nil {
		return fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(checklist)
}

// RenameChecklist handles PUT /api/checklists/:id
func (s *Server) RenameChecklist(c *fiber.Ctx) error {
	user, err := s.currentUser(c)
	if err != nil {
		return fail(c, err)
	}
	checklistID, err := routeID(c, "id")
	if err != nil {
		return fail(c, err)
	}
	var req struct {
		Name string `json:"name"`
	}
	if err := bindJSON(c, &req); err != nil {
		return fail(c, err)
	}
	checklist, err := s.checklists.Rename(c.UserContext(), user, checklistID, req.Name)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(checklist)
}

// DeleteChecklist handles DELETE /api/checklists/:id
func (s *Server) DeleteChecklist(c *fiber.Ctx) error {
	user, err := s.currentUser(c)
	if err != nil {
		return fail(c, err)
	}
	checklistID, err := routeID(c, "id")
	if err != nil {
		return fail(c, err)
	}
	if err := s.checklists.Delete(c.UserContext(), user, checklistID); err != nil {
		return fail(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// AddChecklistItem handles POST /api/checklists/:id/items
func (s *Server) AddChecklistItem(c *fiber.Ctx) error {
	user, err := s.currentUser(c)
	if err != nil {
		return fail(c, err)
	}
	checklistID, err := routeID(c, "id")
	if err != nil {
		return fail(c, err)
	}
	var req struct {
		Content string `json:"content"`
	}
	if err := bindJSON(c, &req); err != nil {
		return fail(c, err)
	}
	item, err := s.checklists.AddItem(c.UserContext(), user, checklistID, req.Content)
	if err != nil {
		return fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(item)
}

// UpdateChecklistItem handles PUT /api/checklist-items/:id
func (s *Server) UpdateChecklistItem(c *fiber.Ctx) error {
	user, err := s.currentUser(c)
	if err != nil {
		return fail(c, err)
	}
	itemID, err := routeID(c, "id")
	if err != nil {
		return fail(c, err)
	}
	var req service.UpdateItemInput
	if err := bindJSON(c, &req); err != nil {
		return fail(c, err)
	}
	item, err := s.checklists.UpdateItem(c.UserContext(), user, itemID, req)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(item)
}

// DeleteChecklistItem handles DELETE /api/checklist-items/:id
func (s *Server) DeleteChecklistItem(c *fiber.Ctx) error {
	user, err := s.currentUser(c)
	if err != nil {
		return fail(c, err)
	}
	itemID, err := routeID(c, "id")
	if err != nil {
		return fail(c, err)
	}
	if err := s.checklists.DeleteItem(c.UserContext(), user, itemID); err != nil {
		return fail(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
