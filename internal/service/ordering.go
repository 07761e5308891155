package service

import (
	"context"
	"sort"

	"projectboard/internal/models"
	"projectboard/internal/repository"
)

// Mirror conflict messages.
const (
	MsgAlreadyMirrored = "Card is already mirrored to this column"
	MsgMirrorHome      = "Card already exists in this column"
)

// CardView is a card as it appears in one column: either at home or as a mirror.
type CardView struct {
	models.Card
	IsMirror         bool   `json:"is_mirror"`
	MirrorOrder      *int   `json:"mirror_order,omitempty"`
	OriginBoardID    uint   `json:"origin_board_id,omitempty"`
	OriginBoardName  string `json:"origin_board_name,omitempty"`
	OriginColumnID   uint   `json:"origin_column_id,omitempty"`
	OriginColumnName string `json:"origin_column_name,omitempty"`
}

// position is the order that applies in the column the view belongs to.
func (v CardView) position() int {
	if v.IsMirror && v.MirrorOrder != nil {
		return *v.MirrorOrder
	}
	return v.Order
}

// OrderingEngine maintains integer positions of columns, home cards and mirrors.
// Positions are never renumbered; equal positions are broken by id at read time.
type OrderingEngine struct{}

// NewOrderingEngine creates an OrderingEngine.
func NewOrderingEngine() *OrderingEngine {
	return &OrderingEngine{}
}

func next(max int, ok bool, err error) (int, error) {
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, nil
	}
	return max + 1, nil
}

// NextColumnOrder returns the append position for a new column on the board.
func (e *OrderingEngine) NextColumnOrder(ctx context.Context, tx *repository.Store, boardID uint) (int, error) {
	return next(tx.Columns.MaxOrder(ctx, boardID))
}

// NextCardOrder returns the append position among the column's home cards.
func (e *OrderingEngine) NextCardOrder(ctx context.Context, tx *repository.Store, columnID uint) (int, error) {
	return next(tx.Cards.MaxOrder(ctx, columnID))
}

// NextMirrorOrder returns the append position over the merged column, home cards and mirrors together.
func (e *OrderingEngine) NextMirrorOrder(ctx context.Context, tx *repository.Store, columnID uint) (int, error) {
	homeMax, homeOK, err := tx.Cards.MaxOrder(ctx, columnID)
	if err != nil {
		return 0, err
	}
	mirrorMax, mirrorOK, err := tx.Appearances.MaxOrder(ctx, columnID)
	if err != nil {
		return 0, err
	}
	switch {
	case homeOK && mirrorOK:
		return max(homeMax, mirrorMax) + 1, nil
	case homeOK:
		return homeMax + 1, nil
	case mirrorOK:
		return mirrorMax + 1, nil
	}
	return 0, nil
}

// Insert persists a new home card. A nil order appends to the column.
func (e *OrderingEngine) Insert(ctx context.Context, tx *repository.Store, card *models.Card, order *int) error {
	if order != nil {
		card.Order = *order
	} else {
		pos, err := e.NextCardOrder(ctx, tx, card.ColumnID)
		if err != nil {
			return err
		}
		card.Order = pos
	}
	return tx.Cards.Create(ctx, card)
}

// MoveResult reports what a Move changed besides the card's position.
type MoveResult struct {
	// ColumnChanged is set when the card left its home column.
	ColumnChanged bool
	// MirrorDropped is set when target held a mirror of the card.
	MirrorDropped bool
}

// Move places the card at order in target without shifting siblings. A nil order appends.
// A mirror of the card in target is dropped since a card never mirrors into its own home column.
func (e *OrderingEngine) Move(ctx context.Context, tx *repository.Store, card *models.Card, target *models.Column, order *int) (MoveResult, error) {
	var res MoveResult
	pos := 0
	if order != nil {
		pos = *order
	} else {
		n, err := e.NextCardOrder(ctx, tx, target.ID)
		if err != nil {
			return res, err
		}
		pos = n
	}

	res.ColumnChanged = card.ColumnID != target.ID
	if res.ColumnChanged {
		dropped, err := tx.Appearances.Delete(ctx, target.ID, card.ID)
		if err != nil {
			return res, err
		}
		res.MirrorDropped = dropped
	}
	if err := tx.Cards.Move(ctx, card.ID, target.ID, pos); err != nil {
		return res, err
	}
	card.ColumnID = target.ID
	card.Order = pos
	return res, nil
}

// AddMirror displays the card in target as well. It fails with a conflict when target is the
// card's home column or already holds a mirror of it.
func (e *OrderingEngine) AddMirror(ctx context.Context, tx *repository.Store, card *models.Card, target *models.Column, actor *models.User) (*models.Appearance, error) {
	if card.ColumnID == target.ID {
		return nil, models.NewConflictError(MsgMirrorHome)
	}
	if _, err := tx.Appearances.Get(ctx, target.ID, card.ID); err == nil {
		return nil, models.NewConflictError(MsgAlreadyMirrored)
	} else if !models.HasCode(err, models.CodeNotFound) {
		return nil, err
	}

	pos, err := e.NextMirrorOrder(ctx, tx, target.ID)
	if err != nil {
		return nil, err
	}
	appearance := &models.Appearance{
		ColumnID:  target.ID,
		CardID:    card.ID,
		Order:     pos,
		CreatedBy: actorID(actor),
	}
	if err := tx.Appearances.Create(ctx, appearance); err != nil {
		if models.HasCode(err, models.CodeConflict) {
			return nil, models.NewConflictError(MsgAlreadyMirrored)
		}
		return nil, err
	}
	return appearance, nil
}

// RemoveMirror detaches the mirror if present and reports whether a row was removed.
func (e *OrderingEngine) RemoveMirror(ctx context.Context, tx *repository.Store, cardID, columnID uint) (bool, error) {
	return tx.Appearances.Delete(ctx, columnID, cardID)
}

// ColumnCards builds the merged card sequence of each column: home cards and mirrors,
// sorted by the order that applies in that column, then by card id.
func (e *OrderingEngine) ColumnCards(ctx context.Context, store *repository.Store, columnIDs []uint) (map[uint][]CardView, error) {
	out := make(map[uint][]CardView, len(columnIDs))
	if len(columnIDs) == 0 {
		return out, nil
	}

	home, err := store.Cards.ListByColumns(ctx, columnIDs)
	if err != nil {
		return nil, err
	}
	for _, card := range home {
		out[card.ColumnID] = append(out[card.ColumnID], CardView{Card: card})
	}

	mirrors, err := store.Appearances.ListByColumns(ctx, columnIDs)
	if err != nil {
		return nil, err
	}
	for _, appearance := range mirrors {
		if appearance.Card == nil {
			continue
		}
		order := appearance.Order
		view := CardView{Card: *appearance.Card, IsMirror: true, MirrorOrder: &order}
		if col := appearance.Card.Column; col != nil {
			view.OriginColumnID = col.ID
			view.OriginColumnName = col.Name
			if col.Board != nil {
				view.OriginBoardID = col.Board.ID
				view.OriginBoardName = col.Board.Name
			}
		}
		out[appearance.ColumnID] = append(out[appearance.ColumnID], view)
	}

	for id := range out {
		cards := out[id]
		sort.SliceStable(cards, func(i, j int) bool {
			pi, pj := cards[i].position(), cards[j].position()
			if pi != pj {
				return pi < pj
			}
			if cards[i].ID != cards[j].ID {
				return cards[i].ID < cards[j].ID
			}
			return !cards[i].IsMirror && cards[j].IsMirror
		})
	}
	return out, nil
}
