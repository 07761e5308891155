package server

import (
	"projectboard/internal/middleware"
	"projectboard/internal/models"
	"projectboard/internal/service"

	"github.com/gofiber/fiber/v2"
)

// Abilities checked by the external API.
const (
	AbilityBoardsRead   = "project-board:boards:read"
	AbilityBoardsWrite  = "project-board:boards:write"
	AbilityCardsRead    = "project-board:cards:read"
	AbilityCardsWrite   = "project-board:cards:write"
	AbilityMembersWrite = "project-board:members:write"
)

const localToken = "apiToken"

// APIEnabled hides the external API entirely when it is switched off.
func (s *Server) APIEnabled() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !s.config.APIEnabled {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Not Found"})
		}
		return c.Next()
	}
}

// TokenRequired authenticates the bearer token and binds its owner as the acting user.
func (s *Server) TokenRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		token, err := s.tokens.Authenticate(c.UserContext(), middleware.BearerToken(c), "")
		if err != nil {
			return fail(c, err)
		}
		c.Locals(localToken, token)
		middleware.BindUser(c, token.UserID)
		c.Locals(localUser, token.User)
		middleware.BindToken(c, token.ID)
		return c.Next()
	}
}

func requireAbility(ability string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token, ok := c.Locals(localToken).(*models.APIToken)
		if !ok {
			return fail(c, models.NewUnauthorizedError("API token required"))
		}
		if err := service.CheckAbility(token, ability); err != nil {
			return fail(c, err)
		}
		return c.Next()
	}
}

func (s *Server) setupExternalRoutes(v1 fiber.Router) {
	boardsRead := requireAbility(AbilityBoardsRead)
	boardsWrite := requireAbility(AbilityBoardsWrite)
	cardsRead := requireAbility(AbilityCardsRead)
	cardsWrite := requireAbility(AbilityCardsWrite)
	membersWrite := requireAbility(AbilityMembersWrite)

	boards := v1.Group("/boards")
	boards.Get("/", boardsRead, s.ListBoards)
	boards.Post("/", boardsWrite, s.ExternalCreateBoard)
	boards.Post("/:id/columns", boardsWrite, s.CreateColumn)
	boards.Post("/:id/columns-with-cards", boardsWrite, s.CreateColumnWithCards)
	boards.Post("/:id/cards/bulk", cardsWrite, s.BulkCreateCards)
	boards.Patch("/:id/cards/bulk-update", cardsWrite, s.BulkUpdateCards)
	boards.Get("/:id/members", boardsRead, s.ListMembers)
	boards.Post("/:id/members", membersWrite, s.AddMember)
	boards.Patch("/:id/members/:userId", membersWrite, s.UpdateMember)
	boards.Delete("/:id/members/:userId", membersWrite, s.RemoveMember)
	boards.Get("/:id", boardsRead, s.GetBoard)
	boards.Patch("/:id", boardsWrite, s.UpdateBoard)

	columns := v1.Group("/columns")
	columns.Patch("/:id", boardsWrite, s.UpdateColumn)
	columns.Delete("/:id", boardsWrite, s.ArchiveColumn)

	cards := v1.Group("/cards")
	cards.Get("/search", cardsRead, s.SearchCards)
	cards.Post("/", cardsWrite, s.ExternalCreateCard)
	cards.Post("/:id/move", cardsWrite, s.ExternalMoveCard)
	cards.Post("/:id/comments", cardsWrite, s.CreateComment)
	cards.Post("/:id/attachments", cardsWrite, s.AddAttachment)
	cards.Get("/:id", cardsRead, s.GetCard)
	cards.Patch("/:id", cardsWrite, s.UpdateCard)
	cards.Delete("/:id", cardsWrite, s.ArchiveCard)
}

// ExternalCreateBoard handles POST /api/v1/boards. Only users with global board access may
// create boards through the API.
// @Summary Create a board with optional columns and cards
// @Tags external
// @Accept json
// @Produce json
// @Security BearerAuth
// @Success 201 {object} service.BoardView
// @Router /v1/boards [post]
func (s *Server) ExternalCreateBoard(c *fiber.Ctx) error {
	user, err := s.currentUser(c)
	if err != nil {
		return fail(c, err)
	}
	if !user.HasGlobalBoardAccess() {
		return fail(c, models.NewForbiddenError("Only admins can create boards"))
	}
	return s.createBoard(c, true)
}

// CreateColumnWithCards handles POST /api/v1/boards/:id/columns-with-cards
func (s *Server) CreateColumnWithCards(c *fiber.Ctx) error {
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
	if len(req.Cards) == 0 {
		return fail(c, models.NewValidationError("cards must contain at least one card"))
	}
	name := ""
	if req.Name != nil {
		name = *req.Name
	}
	column, cards, err := s.columns.CreateWithCards(c.UserContext(), user, boardID, name, req.Cards)
	if err != nil {
		return fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"column": column,
		"cards":  cards,
	})
}

// ExternalCreateCard handles POST /api/v1/cards with the column in the body.
func (s *Server) ExternalCreateCard(c *fiber.Ctx) error {
	user, err := s.currentUser(c)
	if err != nil {
		return fail(c, err)
	}
	var req cardRequest
	if err := bindJSON(c, &req); err != nil {
		return fail(c, err)
	}
	if req.ColumnID == 0 {
		return fail(c, models.NewValidationError("board_column_id is required"))
	}
	in, err := req.input(req.ColumnID)
	if err != nil {
		return fail(c, err)
	}
	card, err := s.cards.Create(c.UserContext(), user, in)
	if err != nil {
		return fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(card)
}

// ExternalMoveCard handles POST /api/v1/cards/:id/move. Cards stay on their board.
func (s *Server) ExternalMoveCard(c *fiber.Ctx) error {
	return s.moveCard(c, true)
}

// SearchCards handles GET /api/v1/cards/search?q=&board_id=
// @Summary Search cards by title, description or label
// @Tags external
// @Produce json
// @Security BearerAuth
// @Param q query string true "Search text"
// @Param board_id query int false "Restrict to one board"
// @Success 200 {object} service.CardSearchResult
// @Router /v1/cards/search [get]
func (s *Server) SearchCards(c *fiber.Ctx) error {
	user, err := s.currentUser(c)
	if err != nil {
		return fail(c, err)
	}
	boardID, err := queryUint(c, "board_id")
	if err != nil {
		return fail(c, err)
	}
	result, err := s.search.Cards(c.UserContext(), user, c.Query("q"), boardID)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(result)
}

type bulkCreateRequest struct {
	Cards []service.BulkCardInput `json:"cards"`
}

type bulkUpdateRequest struct {
	Cards []service.BulkUpdateItem `json:"cards"`
}

// BulkCreateCards handles POST /api/boards/:id/cards/bulk. Either every card is created or none.
// @Summary Create many cards on one board
// @Tags cards
// @Accept json
// @Produce json
// @Param id path int true "Board ID"
// @Success 201 {object} service.BulkCreateResult
// @Router /boards/{id}/cards/bulk [post]
func (s *Server) BulkCreateCards(c *fiber.Ctx) error {
	user, err := s.currentUser(c)
	if err != nil {
		return fail(c, err)
	}
	boardID, err := routeID(c, "id")
	if err != nil {
		return fail(c, err)
	}
	var req bulkCreateRequest
	if err := bindJSON(c, &req); err != nil {
		return fail(c, err)
	}
	result, err := s.bulk.Create(c.UserContext(), user, boardID, req.Cards)
	if err != nil {
		return fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(result)
}

// BulkUpdateCards handles PATCH /api/boards/:id/cards/bulk-update. Items succeed or fail
// independently; success is false when any item failed.
// @Summary Update many cards on one board
// @Tags cards
// @Accept json
// @Produce json
// @Param id path int true "Board ID"
// @Success 200 {object} service.BulkUpdateResult
// @Router /boards/{id}/cards/bulk-update [patch]
func (s *Server) BulkUpdateCards(c *fiber.Ctx) error {
	user, err := s.currentUser(c)
	if err != nil {
		return fail(c, err)
	}
	boardID, err := routeID(c, "id")
	if err != nil {
		return fail(c, err)
	}
	var req bulkUpdateRequest
	if err := bindJSON(c, &req); err != nil {
		return fail(c, err)
	}
	result, err := s.bulk.Update(c.UserContext(), user, boardID, req.Cards)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(result)
}
