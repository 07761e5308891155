package service

import (
	"context"

	"projectboard/internal/models"
	"projectboard/internal/observability"
)

// Totals sums the estimate and actual figures of home cards.
type Totals struct {
	EstimatedHours float64 `json:"estimated_hours"`
	EstimatedCost  float64 `json:"estimated_cost"`
	ActualHours    float64 `json:"actual_hours"`
	ActualCost     float64 `json:"actual_cost"`
}

func (t *Totals) add(card *models.Card) {
	if card.EstimatedHours != nil {
		t.EstimatedHours += *card.EstimatedHours
	}
	if card.EstimatedCost != nil {
		t.EstimatedCost += *card.EstimatedCost
	}
	if card.ActualHours != nil {
		t.ActualHours += *card.ActualHours
	}
	if card.ActualCost != nil {
		t.ActualCost += *card.ActualCost
	}
}

func (t *Totals) merge(o Totals) {
	t.EstimatedHours += o.EstimatedHours
	t.EstimatedCost += o.EstimatedCost
	t.ActualHours += o.ActualHours
	t.ActualCost += o.ActualCost
}

// ColumnView is a column with its merged card sequence.
type ColumnView struct {
	models.Column
	Cards  []CardView `json:"cards"`
	Totals Totals     `json:"totals"`
}

// MemberView is one entry of a board's member list. Global admins are listed even
// without a membership row.
type MemberView struct {
	UserID        uint             `json:"user_id"`
	Name          string           `json:"name"`
	Email         string           `json:"email"`
	Role          models.BoardRole `json:"role"`
	IsGlobalAdmin bool             `json:"is_global_admin"`
}

// BoardView is the full board as rendered for one user.
type BoardView struct {
	models.Board
	UserRole models.BoardRole `json:"user_role"`
	Columns  []ColumnView     `json:"columns"`
	Totals   Totals           `json:"totals"`
	Members  []MemberView     `json:"members"`
}

// BoardAggregator assembles BoardView responses.
type BoardAggregator struct {
	core *Core
}

// NewBoardAggregator creates a BoardAggregator.
func NewBoardAggregator(core *Core) *BoardAggregator {
	return &BoardAggregator{core: core}
}

// FormatBoard renders board for user. Totals count home cards only so a mirrored card
// is never counted twice.
func (a *BoardAggregator) FormatBoard(ctx context.Context, board *models.Board, user *models.User) (*BoardView, error) {
	defer observability.TrackQuery("aggregate", "boards")()
	ctx, span := observability.StartSpan(ctx, "board.aggregate")
	defer span.End()
	span.Board(board.ID)
	store := a.core.Store

	role, err := a.core.Access.RoleOf(ctx, user, board.ID)
	if err != nil {
		return nil, err
	}

	columns, err := store.Columns.ListByBoard(ctx, board.ID)
	if err != nil {
		return nil, err
	}
	ids := make([]uint, len(columns))
	for i, col := range columns {
		ids[i] = col.ID
	}
	cardsByColumn, err := a.core.Engine.ColumnCards(ctx, store, ids)
	if err != nil {
		return nil, err
	}

	view := &BoardView{Board: *board, UserRole: role, Columns: make([]ColumnView, 0, len(columns))}
	view.Board.Columns = nil
	for _, col := range columns {
		cv := ColumnView{Column: col, Cards: cardsByColumn[col.ID]}
		if cv.Cards == nil {
			cv.Cards = []CardView{}
		}
		for i := range cv.Cards {
			if !cv.Cards[i].IsMirror {
				cv.Totals.add(&cv.Cards[i].Card)
			}
		}
		view.Totals.merge(cv.Totals)
		view.Columns = append(view.Columns, cv)
	}

	members, err := a.Members(ctx, board.ID)
	if err != nil {
		return nil, err
	}
	view.Members = members
	return view, nil
}

// Members lists explicit members followed by global admins without a membership row.
func (a *BoardAggregator) Members(ctx context.Context, boardID uint) ([]MemberView, error) {
	store := a.core.Store
	rows, err := store.Members.List(ctx, boardID)
	if err != nil {
		return nil, err
	}
	out := make([]MemberView, 0, len(rows))
	seen := make(map[uint]bool, len(rows))
	for _, m := range rows {
		mv := MemberView{UserID: m.UserID, Role: m.Role}
		if m.User != nil {
			mv.Name = m.User.Name
			mv.Email = m.User.Email
			mv.IsGlobalAdmin = m.User.HasGlobalBoardAccess()
		}
		seen[m.UserID] = true
		out = append(out, mv)
	}

	admins, err := store.Users.GlobalAdmins(ctx)
	if err != nil {
		return nil, err
	}
	for _, u := range admins {
		if seen[u.ID] {
			continue
		}
		out = append(out, MemberView{
			UserID:        u.ID,
			Name:          u.Name,
			Email:         u.Email,
			Role:          models.BoardRoleAdmin,
			IsGlobalAdmin: true,
		})
	}
	return out, nil
}
