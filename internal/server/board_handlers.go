package server

import (
	"strconv"

	"projectboard/internal/models"
	"projectboard/internal/service"

	"github.com/gofiber/fiber/v2"
)

type boardRequest struct {
	Name            string               `json:"name"`
	BoardableType   string               `json:"boardable_type"`
	BoardableID     flexID               `json:"boardable_id"`
	BackgroundURL   *string              `json:"background_url"`
	BackgroundColor *string              `json:"background_color"`
	Columns         []service.ColumnSeed `json:"columns"`
}

type boardUpdateRequest struct {
	Name            *string `json:"name"`
	BackgroundURL   *string `json:"background_url"`
	BackgroundColor *string `json:"background_color"`
}

type memberRequest struct {
	UserID uint             `json:"user_id"`
	Role   models.BoardRole `json:"role"`
}

// ListBoards handles GET /api/boards?boardable_type=&boardable_id=
// @Summary List boards
// @Tags boards
// @Produce json
// @Param boardable_type query string false "Owner type"
// @Param boardable_id query string false "Owner ID"
// @Success 200 {object} service.BoardIndex
// @Router /boards [get]
func (s *Server) ListBoards(c *fiber.Ctx) error {
	ctx := c.UserContext()
	user, err := s.currentUser(c)
	if err != nil {
		return fail(c, err)
	}
	owner, err := s.owners.Parse(ctx, c.Query("boardable_type"), c.Query("boardable_id"))
	if err != nil {
		return fail(c, err)
	}
	index, err := s.boards.Index(ctx, user, owner)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(index)
}

// GetBoard handles GET /api/boards/:id
// @Summary Get a board with columns, cards, totals and members
// @Tags boards
// @Produce json
// @Param id path int true "Board ID"
// @Success 200 {object} service.BoardView
// @Router /boards/{id} [get]
func (s *Server) GetBoard(c *fiber.Ctx) error {
	user, err := s.currentUser(c)
	if err != nil {
		return fail(c, err)
	}
	boardID, err := routeID(c, "id")
	if err != nil {
		return fail(c, err)
	}
	view, err := s.boards.Get(c.UserContext(), user, boardID)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(view)
}

func (s *Server) createBoard(c *fiber.Ctx, withColumns bool) error {
	ctx := c.UserContext()
	user, err := s.currentUser(c)
	if err != nil {
		return fail(c, err)
	}
	var req boardRequest
	if err := bindJSON(c, &req); err != nil {
		return fail(c, err)
	}
	owner, err := s.owners.Parse(ctx, req.BoardableType, string(req.BoardableID))
	if err != nil {
		return fail(c, err)
	}
	in := service.CreateBoardInput{
		Name:            req.Name,
		Owner:           owner,
		BackgroundURL:   req.BackgroundURL,
		BackgroundColor: req.BackgroundColor,
	}
	if withColumns {
		in.Columns = req.Columns
	}
	board, err := s.boards.Create(ctx, user, in)
	if err != nil {
		return fail(c, err)
	}
	if withColumns {
		view, err := s.boards.Get(ctx, user, board.ID)
		if err != nil {
			return fail(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(view)
	}
	return c.Status(fiber.StatusCreated).JSON(board)
}

// CreateBoard handles POST /api/boards
// @Summary Create a board
// @Tags boards
// @Accept json
// @Produce json
// @Success 201 {object} models.Board
// @Router /boards [post]
func (s *Server) CreateBoard(c *fiber.Ctx) error {
	return s.createBoard(c, false)
}

// UpdateBoard handles PUT /api/boards/:id
func (s *Server) UpdateBoard(c *fiber.Ctx) error {
	user, err := s.currentUser(c)
	if err != nil {
		return fail(c, err)
	}
	boardID, err := routeID(c, "id")
	if err != nil {
		return fail(c, err)
	}
	var req boardUpdateRequest
	if err := bindJSON(c, &req); err != nil {
		return fail(c, err)
	}
	board, err := s.boards.Update(c.UserContext(), user, boardID, service.UpdateBoardInput{
		Name:            req.Name,
		BackgroundURL:   req.BackgroundURL,
		BackgroundColor: req.BackgroundColor,
	})
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(board)
}

// DeleteBoard handles DELETE /api/boards/:id
func (s *Server) DeleteBoard(c *fiber.Ctx) error {
	user, err := s.currentUser(c)
	if err != nil {
		return fail(c, err)
	}
	boardID, err := routeID(c, "id")
	if err != nil {
		return fail(c, err)
	}
	if err := s.boards.Delete(c.UserContext(), user, boardID); err != nil {
		return fail(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// GetArchived handles GET /api/boards/:id/archived
func (s *Server) GetArchived(c *fiber.Ctx) error {
	user, err := s.currentUser(c)
	if err != nil {
		return fail(c, err)
	}
	boardID, err := routeID(c, "id")
	if err != nil {
		return fail(c, err)
	}
	items, err := s.boards.Archived(c.UserContext(), user, boardID)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(items)
}

// ExportBoardTemplate handles GET /api/boards/:id/template
func (s *Server) ExportBoardTemplate(c *fiber.Ctx) error {
	user, err := s.currentUser(c)
	if err != nil {
		return fail(c, err)
	}
	boardID, err := routeID(c, "id")
	if err != nil {
		return fail(c, err)
	}
	out, err := s.boards.ExportTemplate(c.UserContext(), user, boardID)
	if err != nil {
		return fail(c, err)
	}
	c.Set(fiber.HeaderContentType, "application/yaml")
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="board-`+strconv.FormatUint(uint64(boardID), 10)+`.yml"`)
	return c.Send(out)
}

// ListMembers handles GET /api/boards/:id/members
func (s *Server) ListMembers(c *fiber.Ctx) error {
	user, err := s.currentUser(c)
	if err != nil {
		return fail(c, err)
	}
	boardID, err := routeID(c, "id")
	if err != nil {
		return fail(c, err)
	}
	members, err := s.boards.Members(c.UserContext(), user, boardID)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"members": members})
}

// AddMember handles POST /api/boards/:id/members
func (s *Server) AddMember(c *fiber.Ctx) error {
	user, err := s.currentUser(c)
	if err != nil {
		return fail(c, err)
	}
	boardID, err := routeID(c, "id")
	if err != nil {
		return fail(c, err)
	}
	var req memberRequest
	if err := bindJSON(c, &req); err != nil {
		return fail(c, err)
	}
	if req.UserID == 0 {
		return fail(c, models.NewValidationError("user_id is required"))
	}
	if req.Role == "" {
		req.Role = models.BoardRoleMember
	}
	member, err := s.boards.AddMember(c.UserContext(), user, boardID, req.UserID, req.Role)
	if err != nil {
		return fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(member)
}

// UpdateMember handles PUT /api/boards/:id/members/:userId
func (s *Server) UpdateMember(c *fiber.Ctx) error {
	user, err := s.currentUser(c)
	if err != nil {
		return fail(c, err)
	}
	boardID, err := routeID(c, "id")
	if err != nil {
		return fail(c, err)
	}
	memberID, err := routeID(c, "userId")
	if err != nil {
		return fail(c, err)
	}
	var req memberRequest
	if err := bindJSON(c, &req); err != nil {
		return fail(c, err)
	}
	if err := s.boards.UpdateMember(c.UserContext(), user, boardID, memberID, req.Role); err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "role": req.Role})
}

// RemoveMember handles DELETE /api/boards/:id/members/:userId
func (s *Server) RemoveMember(c *fiber.Ctx) error {
	user, err := s.currentUser(c)
	if err != nil {
		return fail(c, err)
	}
	boardID, err := routeID(c, "id")
	if err != nil {
		return fail(c, err)
	}
	memberID, err := routeID(c, "userId")
	if err != nil {
		return fail(c, err)
	}
	if err := s.boards.RemoveMember(c.UserContext(), user, boardID, memberID); err != nil {
		return fail(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
