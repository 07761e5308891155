package service

import (
	"context"
	"strings"
	"time"

	"projectboard/internal/access"
	"projectboard/internal/models"
	"projectboard/internal/observability"
	"projectboard/internal/repository"
	"projectboard/internal/validation"
)

// CardSeed describes a card created together with its board or column.
type CardSeed struct {
	Title          string     `json:"title" yaml:"title"`
	Description    *string    `json:"description" yaml:"description"`
	DueDate        *time.Time `json:"due_date" yaml:"due_date"`
	EstimatedHours *float64   `json:"estimated_hours" yaml:"estimated_hours"`
	EstimatedCost  *float64   `json:"estimated_cost" yaml:"estimated_cost"`
	ActualHours    *float64   `json:"actual_hours" yaml:"actual_hours"`
	ActualCost     *float64   `json:"actual_cost" yaml:"actual_cost"`
}

// ColumnSeed describes a column created together with its board.
type ColumnSeed struct {
	Name  string     `json:"name" yaml:"name"`
	Cards []CardSeed `json:"cards" yaml:"cards"`
}

// CreateBoardInput describes a new board.
type CreateBoardInput struct {
	Name            string
	Owner           *models.OwnerRef
	BackgroundURL   *string
	BackgroundColor *string
	Columns         []ColumnSeed
}

// UpdateBoardInput carries the board fields to change. Nil fields are left alone.
type UpdateBoardInput struct {
	Name            *string
	BackgroundURL   *string
	BackgroundColor *string
}

// BoardIndex is the board list shown to a user.
type BoardIndex struct {
	Boards         []models.Board `json:"boards"`
	DefaultBoardID *uint          `json:"default_board_id"`
	Labels         []models.Label `json:"labels"`
}

// ArchivedItems lists a board's archived columns and cards.
type ArchivedItems struct {
	Columns []models.Column `json:"columns"`
	Cards   []models.Card   `json:"cards"`
}

// BoardService implements board and membership operations.
type BoardService struct {
	core       *Core
	aggregator *BoardAggregator
	labels     *LabelService
}

// NewBoardService creates a BoardService.
func NewBoardService(core *Core, aggregator *BoardAggregator, labels *LabelService) *BoardService {
	return &BoardService{core: core, aggregator: aggregator, labels: labels}
}

// Index lists the boards visible to user, most recently updated first.
func (s *BoardService) Index(ctx context.Context, user *models.User, owner *models.OwnerRef) (*BoardIndex, error) {
	scope, err := s.core.Access.Scope(ctx, user)
	if err != nil {
		return nil, err
	}
	boards, err := s.core.Store.Boards.List(ctx, repository.BoardFilter{Scope: scope, Owner: owner})
	if err != nil {
		return nil, err
	}
	idx := &BoardIndex{Boards: boards, Labels: []models.Label{}}
	if len(boards) > 0 {
		id := boards[0].ID
		idx.DefaultBoardID = &id
	}
	if s.labels != nil {
		labels, err := s.labels.List(ctx)
		if err != nil {
			return nil, err
		}
		idx.Labels = labels
	}
	return idx, nil
}

// Get renders the full board for user.
func (s *BoardService) Get(ctx context.Context, user *models.User, boardID uint) (*BoardView, error) {
	board, err := s.core.Store.Boards.GetByID(ctx, boardID)
	if err != nil {
		return nil, err
	}
	if _, err := s.core.Access.Authorize(ctx, user, board.ID, access.ViewBoard); err != nil {
		return nil, err
	}
	return s.aggregator.FormatBoard(ctx, board, user)
}

func validateSeeds(columns []ColumnSeed) error {
	for _, col := range columns {
		if err := validation.ValidateName("column name", col.Name); err != nil {
			return invalid(err)
		}
		for _, card := range col.Cards {
			if err := validation.ValidateName("card title", card.Title); err != nil {
				return invalid(err)
			}
		}
	}
	return nil
}

// Create stores a board, attaches the creator as admin and creates any seeded columns and cards.
// Seeded items take their array index as order.
func (s *BoardService) Create(ctx context.Context, user *models.User, in CreateBoardInput) (*models.Board, error) {
	if user == nil || user.ID == 0 {
		return nil, models.NewUnauthorizedError("Authentication required")
	}
	name := strings.TrimSpace(in.Name)
	if err := invalid(validation.ValidateName("name", name)); err != nil {
		return nil, err
	}
	if err := invalid(validation.ValidateBackground(in.BackgroundURL, in.BackgroundColor)); err != nil {
		return nil, err
	}
	if err := validateSeeds(in.Columns); err != nil {
		return nil, err
	}

	board := &models.Board{Name: name, BackgroundURL: in.BackgroundURL, BackgroundColor: in.BackgroundColor}
	board.SetOwner(in.Owner)

	err := s.core.Store.WithTx(ctx, func(tx *repository.Store) error {
		if err := tx.Boards.Create(ctx, board); err != nil {
			return err
		}
		if err := tx.Members.Create(ctx, &models.BoardMember{BoardID: board.ID, UserID: user.ID, Role: models.BoardRoleAdmin}); err != nil {
			return err
		}
		for i, seed := range in.Columns {
			column := &models.Column{BoardID: board.ID, Name: strings.TrimSpace(seed.Name), Slug: validation.Slugify(seed.Name), Order: i}
			if err := tx.Columns.Create(ctx, column); err != nil {
				return err
			}
			if _, err := s.core.seedCards(ctx, tx, user, column, seed.Cards); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	observability.BoardOperations.WithLabelValues("board_create").Inc()
	return board, nil
}

// seedCards creates cards in order of the slice and records their creation.
func (c *Core) seedCards(ctx context.Context, tx *repository.Store, user *models.User, column *models.Column, seeds []CardSeed) ([]*models.Card, error) {
	out := make([]*models.Card, 0, len(seeds))
	for i, seed := range seeds {
		card := newCardFromSeed(seed, column.ID, user)
		order := i
		if err := c.Engine.Insert(ctx, tx, card, &order); err != nil {
			return nil, err
		}
		if _, err := c.Recorder.Record(ctx, tx, card.ID, user, models.ActivityCreated, TextCreated, nil); err != nil {
			return nil, err
		}
		out = append(out, card)
	}
	return out, nil
}

func newCardFromSeed(seed CardSeed, columnID uint, user *models.User) *models.Card {
	return &models.Card{
		ColumnID:       columnID,
		Title:          strings.TrimSpace(seed.Title),
		Description:    seed.Description,
		DueDate:        seed.DueDate,
		EstimatedHours: seed.EstimatedHours,
		EstimatedCost:  seed.EstimatedCost,
		ActualHours:    seed.ActualHours,
		ActualCost:     seed.ActualCost,
		CreatedBy:      actorID(user),
	}
}

// Update changes the board's name or background.
func (s *BoardService) Update(ctx context.Context, user *models.User, boardID uint, in UpdateBoardInput) (*models.Board, error) {
	board, err := s.core.Store.Boards.GetByID(ctx, boardID)
	if err != nil {
		return nil, err
	}
	if _, err := s.core.Access.Authorize(ctx, user, board.ID, access.ManageBoard); err != nil {
		return nil, err
	}
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if err := invalid(validation.ValidateName("name", name)); err != nil {
			return nil, err
		}
		board.Name = name
	}
	if err := invalid(validation.ValidateBackground(in.BackgroundURL, in.BackgroundColor)); err != nil {
		return nil, err
	}
	if in.BackgroundURL != nil {
		board.BackgroundURL = emptyToNil(in.BackgroundURL)
	}
	if in.BackgroundColor != nil {
		board.BackgroundColor = emptyToNil(in.BackgroundColor)
	}
	if err := s.core.Store.Boards.Update(ctx, board); err != nil {
		return nil, err
	}
	return board, nil
}

// Delete removes the board with every column, card and satellite row under it.
func (s *BoardService) Delete(ctx context.Context, user *models.User, boardID uint) error {
	if _, err := s.core.Store.Boards.GetByID(ctx, boardID); err != nil {
		return err
	}
	if _, err := s.core.Access.Authorize(ctx, user, boardID, access.ManageBoard); err != nil {
		return err
	}
	err := s.core.Store.WithTx(ctx, func(tx *repository.Store) error {
		return tx.Boards.Delete(ctx, boardID)
	})
	if err == nil {
		observability.BoardOperations.WithLabelValues("board_delete").Inc()
	}
	return err
}

// Archived lists archived columns and cards of the board.
func (s *BoardService) Archived(ctx context.Context, user *models.User, boardID uint) (*ArchivedItems, error) {
	if _, err := s.core.Access.Authorize(ctx, user, boardID, access.ViewBoard); err != nil {
		return nil, err
	}
	columns, err := s.core.Store.Columns.ListArchivedByBoard(ctx, boardID)
	if err != nil {
		return nil, err
	}
	cards, err := s.core.Store.Cards.ListArchivedByBoard(ctx, boardID)
	if err != nil {
		return nil, err
	}
	return &ArchivedItems{Columns: columns, Cards: cards}, nil
}

// Members lists the board's members including synthesized global admins.
func (s *BoardService) Members(ctx context.Context, user *models.User, boardID uint) ([]MemberView, error) {
	if _, err := s.core.Access.Authorize(ctx, user, boardID, access.ViewBoard); err != nil {
		return nil, err
	}
	return s.aggregator.Members(ctx, boardID)
}

// AddMember grants a user a role on the board.
func (s *BoardService) AddMember(ctx context.Context, user *models.User, boardID, userID uint, role models.BoardRole) (*models.BoardMember, error) {
	if !role.Valid() {
		return nil, models.NewValidationError("role must be one of viewer, member, admin")
	}
	if _, err := s.core.Store.Boards.GetByID(ctx, boardID); err != nil {
		return nil, err
	}
	if _, err := s.core.Access.Authorize(ctx, user, boardID, access.ManageMembers); err != nil {
		return nil, err
	}
	if _, err := s.core.Store.Users.FindByID(ctx, userID); err != nil {
		return nil, err
	}
	member := &models.BoardMember{BoardID: boardID, UserID: userID, Role: role}
	if err := s.core.Store.Members.Create(ctx, member); err != nil {
		return nil, err
	}
	return s.core.Store.Members.Get(ctx, boardID, userID)
}

// UpdateMember changes a member's role.
func (s *BoardService) UpdateMember(ctx context.Context, user *models.User, boardID, userID uint, role models.BoardRole) error {
	if !role.Valid() {
		return models.NewValidationError("role must be one of viewer, member, admin")
	}
	if _, err := s.core.Access.Authorize(ctx, user, boardID, access.ManageMembers); err != nil {
		return err
	}
	return s.core.Store.Members.UpdateRole(ctx, boardID, userID, role)
}

// RemoveMember revokes a user's membership.
func (s *BoardService) RemoveMember(ctx context.Context, user *models.User, boardID, userID uint) error {
	if _, err := s.core.Access.Authorize(ctx, user, boardID, access.ManageMembers); err != nil {
		return err
	}
	return s.core.Store.Members.Delete(ctx, boardID, userID)
}

func emptyToNil(s *string) *string {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil
	}
	v := strings.TrimSpace(*s)
	return &v
}
