package server

import (
	"projectboard/internal/models"
	"projectboard/internal/service"

	"github.com/gofiber/fiber/v2"
)

var errOrderRequired = models.NewValidationError("order is required")

type cardRequest struct {
	ColumnID       uint     `json:"board_column_id"`
	Title          string   `json:"title"`
	Description    *string  `json:"description"`
	DueDate        *string  `json:"due_date"`
	Order          *int     `json:"order_column"`
	EstimatedHours *float64 `json:"estimated_hours"`
	EstimatedCost  *float64 `json:"estimated_cost"`
	ActualHours    *float64 `json:"actual_hours"`
	ActualCost     *float64 `json:"actual_cost"`
	Labels         []uint   `json:"labels"`
	Assignees      []uint   `json:"assignees"`
}

func (r cardRequest) input(columnID uint) (service.CreateCardInput, error) {
	in := service.CreateCardInput{
		ColumnID:       columnID,
		Title:          r.Title,
		Description:    r.Description,
		Order:          r.Order,
		EstimatedHours: r.EstimatedHours,
		EstimatedCost:  r.EstimatedCost,
		ActualHours:    r.ActualHours,
		ActualCost:     r.ActualCost,
		LabelIDs:       r.Labels,
		AssigneeIDs:    r.Assignees,
	}
	if r.DueDate != nil {
		due, err := service.ParseDate(*r.DueDate)
		if err != nil {
			return in, err
		}
		in.DueDate = due
	}
	for _, v := range []*float64{r.EstimatedHours, r.EstimatedCost, r.ActualHours, r.ActualCost} {
		if v != nil && *v < 0 {
			return in, models.NewValidationError("estimates and actuals must not be negative")
		}
	}
	return in, nil
}

type moveRequest struct {
	ColumnID uint `json:"board_column_id"`
	Order    *int `json:"order_column"`
}

type duplicateRequest struct {
	ColumnID *uint   `json:"board_column_id"`
	Title    *string `json:"title"`
	Order    *int    `json:"order_column"`
}

// CreateCard handles POST /api/columns/:id/cards
// @Summary Create a card at the end of a column
// @Tags cards
// @Accept json
// @Produce json
// @Param id path int true "Column ID"
// @Success 201 {object} models.Card
// @Router /columns/{id}/cards [post]
func (s *Server) CreateCard(c *fiber.Ctx) error {
	user, err := s.currentUser(c)
	if err != nil {
		return fail(c, err)
	}
	columnID, err := routeID(c, "id")
	if err != nil {
		return fail(c, err)
	}
	var req cardRequest
	if err := bindJSON(c, &req); err != nil {
		return fail(c, err)
	}
	in, err := req.input(columnID)
	if err != nil {
		return fail(c, err)
	}
	card, err := s.cards.Create(c.UserContext(), user, in)
	if err != nil {
		return fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(card)
}

// GetCard handles GET /api/cards/:id
func (s *Server) GetCard(c *fiber.Ctx) error {
	user, err := s.currentUser(c)
	if err != nil {
		return fail(c, err)
	}
	cardID, err := routeID(c, "id")
	if err != nil {
		return fail(c, err)
	}
	detail, err := s.cards.Get(c.UserContext(), user, cardID)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(detail)
}

// UpdateCard handles PUT /api/cards/:id. Absent fields are kept and null clears a field.
func (s *Server) UpdateCard(c *fiber.Ctx) error {
	user, err := s.currentUser(c)
	if err != nil {
		return fail(c, err)
	}
	cardID, err := routeID(c, "id")
	if err != nil {
		return fail(c, err)
	}
	var req service.UpdateCardInput
	if err := bindJSON(c, &req); err != nil {
		return fail(c, err)
	}
	card, err := s.cards.Update(c.UserContext(), user, cardID, req)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(card)
}

func (s *Server) moveCard(c *fiber.Ctx, restrictToBoard bool) error {
	user, err := s.currentUser(c)
	if err != nil {
		return fail(c, err)
	}
	cardID, err := routeID(c, "id")
	if err != nil {
		return fail(c, err)
	}
	var req moveRequest
	if err := bindJSON(c, &req); err != nil {
		return fail(c, err)
	}
	if req.ColumnID == 0 {
		return fail(c, models.NewValidationError("board_column_id is required"))
	}
	card, err := s.cards.Move(c.UserContext(), user, cardID, service.MoveCardInput{
		ColumnID:        req.ColumnID,
		Order:           req.Order,
		RestrictToBoard: restrictToBoard,
	})
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(card)
}

// MoveCard handles PUT /api/cards/:id/move
func (s *Server) MoveCard(c *fiber.Ctx) error {
	return s.moveCard(c, false)
}

// DuplicateCard handles POST /api/cards/:id/duplicate
func (s *Server) DuplicateCard(c *fiber.Ctx) error {
	user, err := s.currentUser(c)
	if err != nil {
		return fail(c, err)
	}
	cardID, err := routeID(c, "id")
	if err != nil {
		return fail(c, err)
	}
	var req duplicateRequest
	if len(c.Body()) > 0 {
		if err := bindJSON(c, &req); err != nil {
			return fail(c, err)
		}
	}
	card, err := s.cards.Duplicate(c.UserContext(), user, cardID, service.DuplicateCardInput{
		Title:    req.Title,
		ColumnID: req.ColumnID,
		Order:    req.Order,
	})
	if err != nil {
		return fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(card)
}

// ArchiveCard handles DELETE /api/cards/:id
func (s *Server) ArchiveCard(c *fiber.Ctx) error {
	user, err := s.currentUser(c)
	if err != nil {
		return fail(c, err)
	}
	cardID, err := routeID(c, "id")
	if err != nil {
		return fail(c, err)
	}
	if err := s.cards.Archive(c.UserContext(), user, cardID); err != nil {
		return fail(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// RestoreCard handles PUT /api/cards/:id/restore
func (s *Server) RestoreCard(c *fiber.Ctx) error {
	user, err := s.currentUser(c)
	if err != nil {
		return fail(c, err)
	}
	cardID, err := routeID(c, "id")
	if err != nil {
		return fail(c, err)
	}
	if err := s.cards.Restore(c.UserContext(), user, cardID); err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"success": true})
}

// PurgeCard handles DELETE /api/cards/:id/force
func (s *Server) PurgeCard(c *fiber.Ctx) error {
	user, err := s.currentUser(c)
	if err != nil {
		return fail(c, err)
	}
	cardID, err := routeID(c, "id")
	if err != nil {
		return fail(c, err)
	}
	if err := s.cards.Purge(c.UserContext(), user, cardID); err != nil {
		return fail(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// SetCardCover handles PUT /api/cards/:id/cover
func (s *Server) SetCardCover(c *fiber.Ctx) error {
	user, err := s.currentUser(c)
	if err != nil {
		return fail(c, err)
	}
	cardID, err := routeID(c, "id")
	if err != nil {
		return fail(c, err)
	}
	var req struct {
		AttachmentID uint `json:"attachment_id"`
	}
	if err := bindJSON(c, &req); err != nil {
		return fail(c, err)
	}
	if req.AttachmentID == 0 {
		return fail(c, models.NewValidationError("attachment_id is required"))
	}
	if err := s.cards.SetCover(c.UserContext(), user, cardID, req.AttachmentID); err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"success": true})
}

// RemoveCardCover handles DELETE /api/cards/:id/cover
func (s *Server) RemoveCardCover(c *fiber.Ctx) error {
	user, err := s.currentUser(c)
	if err != nil {
		return fail(c, err)
	}
	cardID, err := routeID(c, "id")
	if err != nil {
		return fail(c, err)
	}
	if err := s.cards.RemoveCover(c.UserContext(), user, cardID); err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"success": true})
}

// AddAttachment handles POST /api/cards/:id/attachments. Only metadata is stored.
func (s *Server) AddAttachment(c *fiber.Ctx) error {
	user, err := s.currentUser(c)
	if err != nil {
		return fail(c, err)
	}
	cardID, err := routeID(c, "id")
	if err != nil {
		return fail(c, err)
	}
	var req service.AttachmentInput
	if err := bindJSON(c, &req); err != nil {
		return fail(c, err)
	}
	att, err := s.cards.AddAttachment(c.UserContext(), user, cardID, req)
	if err != nil {
		return fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(att)
}

// RemoveAttachment handles DELETE /api/cards/:id/attachments/:attachmentId
func (s *Server) RemoveAttachment(c *fiber.Ctx) error {
	user, err := s.currentUser(c)
	if err != nil {
		return fail(c, err)
	}
	attachmentID, err := routeID(c, "attachmentId")
	if err != nil {
		return fail(c, err)
	}
	if err := s.cards.RemoveAttachment(c.UserContext(), user, attachmentID); err != nil {
		return fail(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// SyncCardLabels handles POST /api/cards/:id/labels
func (s *Server) SyncCardLabels(c *fiber.Ctx) error {
	user, err := s.currentUser(c)
	if err != nil {
		return fail(c, err)
	}
	cardID, err := routeID(c, "id")
	if err != nil {
		return fail(c, err)
	}
	var req struct {
		Labels []uint `json:"labels"`
	}
	if err := bindJSON(c, &req); err != nil {
		return fail(c, err)
	}
	if req.Labels == nil {
		return fail(c, models.NewValidationError("labels must be present"))
	}
	card, err := s.cards.SyncLabels(c.UserContext(), user, cardID, req.Labels)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(card)
}

// SyncCardAssignees handles POST /api/cards/:id/assignees
func (s *Server) SyncCardAssignees(c *fiber.Ctx) error {
	user, err := s.currentUser(c)
	if err != nil {
		return fail(c, err)
	}
	cardID, err := routeID(c, "id")
	if err != nil {
		return fail(c, err)
	}
	var req struct {
		Users []uint `json:"users"`
	}
	if err := bindJSON(c, &req); err != nil {
		return fail(c, err)
	}
	if req.Users == nil {
		return fail(c, models.NewValidationError("users must be present"))
	}
	card, err := s.cards.SyncAssignees(c.UserContext(), user, cardID, req.Users)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(card)
}

// ListCardActivities handles GET /api/cards/:id/activities
func (s *Server) ListCardActivities(c *fiber.Ctx) error {
	user, err := s.currentUser(c)
	if err != nil {
		return fail(c, err)
	}
	cardID, err := routeID(c, "id")
	if err != nil {
		return fail(c, err)
	}
	win := pageFrom(c, service.DefaultActivityLimit)
	activities, err := s.cards.Activities(c.UserContext(), user, cardID, win.Limit)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(activities)
}

// ListAppearances handles GET /api/cards/:id/appearances
func (s *Server) ListAppearances(c *fiber.Ctx) error {
	user, err := s.currentUser(c)
	if err != nil {
		return fail(c, err)
	}
	cardID, err := routeID(c, "id")
	if err != nil {
		return fail(c, err)
	}
	appearances, err := s.cards.Appearances(c.UserContext(), user, cardID)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"appearances": appearances})
}

// AddMirror handles POST /api/cards/:id/mirror
func (s *Server) AddMirror(c *fiber.Ctx) error {
	user, err := s.currentUser(c)
	if err != nil {
		return fail(c, err)
	}
	cardID, err := routeID(c, "id")
	if err != nil {
		return fail(c, err)
	}
	var req struct {
		ColumnID uint `json:"column_id"`
	}
	if err := bindJSON(c, &req); err != nil {
		return fail(c, err)
	}
	if req.ColumnID == 0 {
		return fail(c, models.NewValidationError("column_id is required"))
	}
	appearance, err := s.cards.AddMirror(c.UserContext(), user, cardID, req.ColumnID)
	if err != nil {
		return fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(appearance)
}

// RemoveMirror handles DELETE /api/cards/:id/mirror/:columnId
func (s *Server) RemoveMirror(c *fiber.Ctx) error {
	user, err := s.currentUser(c)
	if err != nil {
		return fail(c, err)
	}
	cardID, err := routeID(c, "id")
	if err != nil {
		return fail(c, err)
	}
	columnID, err := routeID(c, "columnId")
	if err != nil {
		return fail(c, err)
	}
	if err := s.cards.RemoveMirror(c.UserContext(), user, cardID, columnID); err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"success": true})
}

// SearchMirrorCandidates handles GET /api/cards/:id/search-columns-for-mirroring?q=
func (s *Server) SearchMirrorCandidates(c *fiber.Ctx) error {
	user, err := s.currentUser(c)
	if err != nil {
		return fail(c, err)
	}
	cardID, err := routeID(c, "id")
	if err != nil {
		return fail(c, err)
	}
	boards, err := s.cards.MirrorCandidates(c.UserContext(), user, cardID, c.Query("q"))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"boards": boards})
}
