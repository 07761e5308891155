package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"projectboard/internal/access"
	"projectboard/internal/models"
	"projectboard/internal/observability"
	"projectboard/internal/repository"
	"projectboard/internal/validation"

	"go.opentelemetry.io/otel/attribute"
	"gorm.io/datatypes"
)

// Per-item failure messages of bulk operations.
const (
	MsgCardNotOnBoard   = "Card does not belong to this board"
	MsgColumnNotOnBoard = "Target column does not belong to this board"
)

// DefaultBulkUpdateMaxItems is used when no limit is configured.
const DefaultBulkUpdateMaxItems = 50

// BulkCardInput describes one card of a bulk create.
type BulkCardInput struct {
	ColumnID       uint     `json:"column_id"`
	Title          string   `json:"title"`
	Description    *string  `json:"description"`
	DueDate        *string  `json:"due_date"`
	EstimatedHours *float64 `json:"estimated_hours"`
	EstimatedCost  *float64 `json:"estimated_cost"`
	ActualHours    *float64 `json:"actual_hours"`
	ActualCost     *float64 `json:"actual_cost"`
}

// BulkUpdateItem is one card of a bulk update. Labels, when present, replace the card's labels.
type BulkUpdateItem struct {
	ID uint `json:"id"`
	UpdateCardInput
	ColumnID *uint  `json:"column_id"`
	Labels   []uint `json:"labels"`
}

// BulkItemError reports a failed bulk item.
type BulkItemError struct {
	ID    uint   `json:"id"`
	Error string `json:"error"`
}

// BulkItemResult reports an updated card.
type BulkItemResult struct {
	ID      uint         `json:"id"`
	Success bool         `json:"success"`
	Card    *models.Card `json:"card"`
}

// BulkCreateResult is the outcome of a bulk create.
type BulkCreateResult struct {
	Success bool          `json:"success"`
	Message string        `json:"message"`
	Cards   []models.Card `json:"cards"`
}

// BulkUpdateResult is the outcome of a bulk update. Success is false when any item failed.
type BulkUpdateResult struct {
	Success bool             `json:"success"`
	Message string           `json:"message"`
	Results []BulkItemResult `json:"results"`
	Errors  []BulkItemError  `json:"errors"`
}

// BulkService creates and updates many cards of one board per call.
type BulkService struct {
	core     *Core
	maxItems int
}

// NewBulkService creates a BulkService. maxItems <= 0 uses DefaultBulkUpdateMaxItems.
func NewBulkService(core *Core, maxItems int) *BulkService {
	if maxItems <= 0 {
		maxItems = DefaultBulkUpdateMaxItems
	}
	return &BulkService{core: core, maxItems: maxItems}
}

func (s *BulkService) boardColumns(ctx context.Context, user *models.User, boardID uint) (map[uint]models.Column, error) {
	if _, err := s.core.Store.Boards.GetByID(ctx, boardID); err != nil {
		return nil, err
	}
	if _, err := s.core.Access.Authorize(ctx, user, boardID, access.EditCards); err != nil {
		return nil, err
	}
	columns, err := s.core.Store.Columns.ListByBoard(ctx, boardID)
	if err != nil {
		return nil, err
	}
	out := make(map[uint]models.Column, len(columns))
	for _, col := range columns {
		out[col.ID] = col
	}
	return out, nil
}

// Create appends every card to its column in one transaction. Any column outside the board
// rejects the whole request.
func (s *BulkService) Create(ctx context.Context, user *models.User, boardID uint, items []BulkCardInput) (*BulkCreateResult, error) {
	ctx, span := observability.StartSpan(ctx, "bulk.create", attribute.Int("bulk.items", len(items)))
	span.Board(boardID)
	defer span.End()

	if len(items) == 0 {
		return nil, models.NewValidationError("cards must contain at least one card")
	}
	columns, err := s.boardColumns(ctx, user, boardID)
	if err != nil {
		return nil, err
	}

	cards := make([]*models.Card, 0, len(items))
	for i, item := range items {
		if _, ok := columns[item.ColumnID]; !ok {
			return nil, models.NewValidationError(fmt.Sprintf("Column %d does not belong to this board", item.ColumnID))
		}
		title := strings.TrimSpace(item.Title)
		if err := validation.ValidateName("title", title); err != nil {
			return nil, models.NewValidationError(fmt.Sprintf("cards[%d]: %s", i, err.Error()))
		}
		var due *time.Time
		if item.DueDate != nil {
			if due, err = ParseDate(*item.DueDate); err != nil {
				return nil, err
			}
		}
		for _, v := range []*float64{item.EstimatedHours, item.EstimatedCost, item.ActualHours, item.ActualCost} {
			if v != nil && *v < 0 {
				return nil, models.NewValidationError(fmt.Sprintf("cards[%d]: estimates and actuals must not be negative", i))
			}
		}
		cards = append(cards, &models.Card{
			ColumnID:       item.ColumnID,
			Title:          title,
			Description:    item.Description,
			DueDate:        due,
			EstimatedHours: item.EstimatedHours,
			EstimatedCost:  item.EstimatedCost,
			ActualHours:    item.ActualHours,
			ActualCost:     item.ActualCost,
			CreatedBy:      actorID(user),
		})
	}

	err = s.core.Store.WithTx(ctx, func(tx *repository.Store) error {
		for _, card := range cards {
			if err := s.core.Engine.Insert(ctx, tx, card, nil); err != nil {
				return err
			}
			if _, err := s.core.Recorder.Record(ctx, tx, card.ID, user, models.ActivityCreated, TextCreated, nil); err != nil {
				return err
			}
		}
		return tx.Boards.Touch(ctx, boardID)
	})
	if err != nil {
		observability.BulkItems.WithLabelValues("create", "failed").Add(float64(len(items)))
		return nil, err
	}
	observability.BulkItems.WithLabelValues("create", "ok").Add(float64(len(cards)))

	out := &BulkCreateResult{Success: true, Message: fmt.Sprintf("%d cards created", len(cards)), Cards: make([]models.Card, 0, len(cards))}
	for _, card := range cards {
		out.Cards = append(out.Cards, *card)
	}
	return out, nil
}

// Update applies each item in its own transaction. A failing item is reported in Errors
// and leaves its card untouched; the other items still apply.
func (s *BulkService) Update(ctx context.Context, user *models.User, boardID uint, items []BulkUpdateItem) (*BulkUpdateResult, error) {
	ctx, span := observability.StartSpan(ctx, "bulk.update", attribute.Int("bulk.items", len(items)))
	span.Board(boardID)
	defer span.End()

	if len(items) == 0 {
		return nil, models.NewValidationError("cards must contain at least one card")
	}
	if len(items) > s.maxItems {
		return nil, models.NewValidationError(fmt.Sprintf("cards may contain at most %d items", s.maxItems))
	}
	columns, err := s.boardColumns(ctx, user, boardID)
	if err != nil {
		return nil, err
	}

	out := &BulkUpdateResult{Results: []BulkItemResult{}, Errors: []BulkItemError{}}
	for _, item := range items {
		card, err := s.updateOne(ctx, user, boardID, columns, item)
		if err != nil {
			out.Errors = append(out.Errors, BulkItemError{ID: item.ID, Error: itemMessage(err)})
			observability.BulkItems.WithLabelValues("update", "failed").Inc()
			continue
		}
		out.Results = append(out.Results, BulkItemResult{ID: item.ID, Success: true, Card: card})
		observability.BulkItems.WithLabelValues("update", "ok").Inc()
	}
	out.Success = len(out.Errors) == 0
	out.Message = fmt.Sprintf("%d cards updated, %d failed", len(out.Results), len(out.Errors))
	return out, nil
}

func itemMessage(err error) string {
	var appErr *models.AppError
	if errors.As(err, &appErr) && appErr.Code != models.CodeInternal {
		return appErr.Message
	}
	return "Failed to update card"
}

func (s *BulkService) updateOne(ctx context.Context, user *models.User, boardID uint, columns map[uint]models.Column, item BulkUpdateItem) (*models.Card, error) {
	card, err := s.core.Store.Cards.GetByID(ctx, item.ID)
	if models.HasCode(err, models.CodeNotFound) {
		return nil, models.NewConflictError(MsgCardNotOnBoard)
	}
	if err != nil {
		return nil, err
	}
	from, ok := columns[card.ColumnID]
	if !ok {
		return nil, models.NewConflictError(MsgCardNotOnBoard)
	}
	var target *models.Column
	if item.ColumnID != nil {
		col, ok := columns[*item.ColumnID]
		if !ok {
			return nil, models.NewConflictError(MsgColumnNotOnBoard)
		}
		target = &col
	}
	var labels []models.Label
	if item.Labels != nil {
		labels, err = s.core.resolveLabels(ctx, item.Labels)
		if err != nil {
			return nil, err
		}
	}
	changes, err := applyCardUpdate(card, item.UpdateCardInput)
	if err != nil {
		return nil, err
	}

	err = s.core.mutateCard(ctx, card, user, func(tx *repository.Store, log *cardLog) error {
		if err := tx.Cards.Update(ctx, card); err != nil {
			return err
		}
		for _, ch := range changes {
			if err := log.add(card.ID, ch.kind, ch.text, nil); err != nil {
				return err
			}
		}
		if item.Labels != nil {
			if _, err := syncLabels(ctx, tx, log, card.ID, labels); err != nil {
				return err
			}
		}
		if target != nil && target.ID != card.ColumnID {
			res, err := s.core.Engine.Move(ctx, tx, card, target, nil)
			if err != nil {
				return err
			}
			if res.MirrorDropped {
				if err := s.core.logMirrorDropped(ctx, tx, log, card.ID, target); err != nil {
					return err
				}
			}
			if err := log.add(card.ID, models.ActivityMoved, fmt.Sprintf(TextMoved, from.Name, target.Name), datatypes.JSONMap{
				"from_column_id": from.ID,
				"to_column_id":   target.ID,
			}); err != nil {
				return err
			}
		}
		return tx.Boards.Touch(ctx, boardID)
	})
	if err != nil {
		observability.GlobalLogger.WarnContext(ctx, "bulk card update failed",
			slog.Uint64("card_id", uint64(item.ID)),
			slog.String("error", err.Error()),
		)
		return nil, err
	}
	return s.core.Store.Cards.GetDetailed(ctx, card.ID)
}
