package service

import (
	"context"
	"strings"

	"projectboard/internal/access"
	"projectboard/internal/models"
	"projectboard/internal/observability"
	"projectboard/internal/repository"
	"projectboard/internal/validation"
)

// UpdateColumnInput carries the column fields to change.
type UpdateColumnInput struct {
	Name  *string
	Order *int
}

// ColumnService implements column lifecycle operations.
type ColumnService struct {
	core *Core
}

// NewColumnService creates a ColumnService.
func NewColumnService(core *Core) *ColumnService {
	return &ColumnService{core: core}
}

// Create appends a column to the board.
func (s *ColumnService) Create(ctx context.Context, user *models.User, boardID uint, name string) (*models.Column, error) {
	column, _, err := s.CreateWithCards(ctx, user, boardID, name, nil)
	return column, err
}

// CreateWithCards appends a column and fills it with cards in slice order.
func (s *ColumnService) CreateWithCards(ctx context.Context, user *models.User, boardID uint, name string, seeds []CardSeed) (*models.Column, []*models.Card, error) {
	name = strings.TrimSpace(name)
	if err := invalid(validation.ValidateName("name", name)); err != nil {
		return nil, nil, err
	}
	if err := validateSeeds([]ColumnSeed{{Name: name, Cards: seeds}}); err != nil {
		return nil, nil, err
	}
	if _, err := s.core.Store.Boards.GetByID(ctx, boardID); err != nil {
		return nil, nil, err
	}
	if _, err := s.core.Access.Authorize(ctx, user, boardID, access.CreateColumn); err != nil {
		return nil, nil, err
	}

	column := &models.Column{BoardID: boardID, Name: name, Slug: validation.Slugify(name)}
	var cards []*models.Card
	err := s.core.Store.WithTx(ctx, func(tx *repository.Store) error {
		order, err := s.core.Engine.NextColumnOrder(ctx, tx, boardID)
		if err != nil {
			return err
		}
		column.Order = order
		if err := tx.Columns.Create(ctx, column); err != nil {
			return err
		}
		cards, err = s.core.seedCards(ctx, tx, user, column, seeds)
		if err != nil {
			return err
		}
		return tx.Boards.Touch(ctx, boardID)
	})
	if err != nil {
		return nil, nil, err
	}
	observability.BoardOperations.WithLabelValues("column_create").Inc()
	return column, cards, nil
}

// Update renames or repositions a column.
func (s *ColumnService) Update(ctx context.Context, user *models.User, columnID uint, in UpdateColumnInput) (*models.Column, error) {
	column, err := s.core.columnContext(ctx, user, columnID, access.ManageColumns, false)
	if err != nil {
		return nil, err
	}
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if err := invalid(validation.ValidateName("name", name)); err != nil {
			return nil, err
		}
		column.Name = name
		column.Slug = validation.Slugify(name)
	}
	if in.Order != nil {
		if *in.Order < 0 {
			return nil, models.NewValidationError("order must not be negative")
		}
		column.Order = *in.Order
	}
	if err := s.core.Store.Columns.Update(ctx, column); err != nil {
		return nil, err
	}
	return column, nil
}

// Reorder sets the column's position. Siblings keep theirs.
func (s *ColumnService) Reorder(ctx context.Context, user *models.User, columnID uint, order int) (*models.Column, error) {
	return s.Update(ctx, user, columnID, UpdateColumnInput{Order: &order})
}

// Archive soft-deletes the column. Its cards stay attached until purge.
func (s *ColumnService) Archive(ctx context.Context, user *models.User, columnID uint) error {
	column, err := s.core.columnContext(ctx, user, columnID, access.ManageColumns, true)
	if err != nil {
		return err
	}
	if !column.Lifecycle().CanTransition(models.LifecycleArchived) {
		return models.NewValidationError("Column is already archived")
	}
	return s.core.Store.Columns.Archive(ctx, column.ID)
}

// Restore brings an archived column back.
func (s *ColumnService) Restore(ctx context.Context, user *models.User, columnID uint) error {
	column, err := s.core.columnContext(ctx, user, columnID, access.ManageColumns, true)
	if err != nil {
		return err
	}
	if !column.Lifecycle().CanTransition(models.LifecycleActive) {
		return models.NewValidationError("Column is not archived")
	}
	return s.core.Store.Columns.Restore(ctx, column.ID)
}

// Purge permanently deletes an archived column with its cards.
func (s *ColumnService) Purge(ctx context.Context, user *models.User, columnID uint) error {
	column, err := s.core.columnContext(ctx, user, columnID, access.ManageColumns, true)
	if err != nil {
		return err
	}
	if !column.Lifecycle().CanTransition(models.LifecyclePurged) {
		return models.NewValidationError("Column must be archived before it can be deleted permanently")
	}
	return s.core.Store.WithTx(ctx, func(tx *repository.Store) error {
		return tx.Columns.Purge(ctx, column.ID)
	})
}

// ArchiveCards archives every active home card of the column and returns how many were archived.
func (s *ColumnService) ArchiveCards(ctx context.Context, user *models.User, columnID uint) (int, error) {
	column, err := s.core.columnContext(ctx, user, columnID, access.EditCards, false)
	if err != nil {
		return 0, err
	}
	var archived int
	err = s.core.Store.WithTx(ctx, func(tx *repository.Store) error {
		ids, err := tx.Cards.IDsByColumn(ctx, column.ID)
		if err != nil {
			return err
		}
		for _, id := range ids {
			if err := tx.Cards.Archive(ctx, id); err != nil {
				return err
			}
			if _, err := s.core.Recorder.Record(ctx, tx, id, user, models.ActivityArchived, TextArchivedBulk, nil); err != nil {
				return err
			}
			archived++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return archived, nil
}
