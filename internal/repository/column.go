package repository

import (
	"context"

	"projectboard/internal/models"

	"gorm.io/gorm"
)

// ColumnRepository defines persistence operations for board columns.
type ColumnRepository interface {
	Create(ctx context.Context, column *models.Column) error
	GetByID(ctx context.Context, id uint) (*models.Column, error)
	GetWithArchived(ctx context.Context, id uint) (*models.Column, error)
	GetByIDs(ctx context.Context, ids []uint) ([]models.Column, error)
	ListByBoard(ctx context.Context, boardID uint) ([]models.Column, error)
	ListArchivedByBoard(ctx context.Context, boardID uint) ([]models.Column, error)
	MaxOrder(ctx context.Context, boardID uint) (int, bool, error)
	Update(ctx context.Context, column *models.Column) error
	SetOrder(ctx context.Context, id uint, order int) error
	Archive(ctx context.Context, id uint) error
	Restore(ctx context.Context, id uint) error
	Purge(ctx context.Context, id uint) error
}

type columnRepository struct {
	db *gorm.DB
}

// NewColumnRepository returns a new ColumnRepository implementation.
func NewColumnRepository(db *gorm.DB) ColumnRepository {
	return &columnRepository{db: db}
}

func (r *columnRepository) Create(ctx context.Context, column *models.Column) error {
	return wrap(r.db.WithContext(ctx).Create(column).Error, "Column", column.Name)
}

func (r *columnRepository) GetByID(ctx context.Context, id uint) (*models.Column, error) {
	var column models.Column
	if err := r.db.WithContext(ctx).First(&column, id).Error; err != nil {
		return nil, wrap(err, "Column", id)
	}
	return &column, nil
}

// GetWithArchived also finds soft-deleted columns.
func (r *columnRepository) GetWithArchived(ctx context.Context, id uint) (*models.Column, error) {
	var column models.Column
	if err := r.db.WithContext(ctx).Unscoped().First(&column, id).Error; err != nil {
		return nil, wrap(err, "Column", id)
	}
	return &column, nil
}

func (r *columnRepository) GetByIDs(ctx context.Context, ids []uint) ([]models.Column, error) {
	var columns []models.Column
	if len(ids) == 0 {
		return columns, nil
	}
	if err := r.db.WithContext(ctx).Preload("Board").Where("id IN ?", ids).Find(&columns).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return columns, nil
}

// ListByBoard returns active columns ordered by position, ties broken by id.
func (r *columnRepository) ListByBoard(ctx context.Context, boardID uint) ([]models.Column, error) {
	var columns []models.Column
	err := r.db.WithContext(ctx).Where("board_id = ?", boardID).Order("order_column").Order("id").Find(&columns).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return columns, nil
}

func (r *columnRepository) ListArchivedByBoard(ctx context.Context, boardID uint) ([]models.Column, error) {
	var columns []models.Column
	err := r.db.WithContext(ctx).Unscoped().
		Where("board_id = ? AND deleted_at IS NOT NULL", boardID).
		Order("deleted_at DESC").
		Find(&columns).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return columns, nil
}

// MaxOrder returns the highest position among active columns and whether any exist.
func (r *columnRepository) MaxOrder(ctx context.Context, boardID uint) (int, bool, error) {
	return maxOrder(r.db.WithContext(ctx).Model(&models.Column{}).Where("board_id = ?", boardID))
}

func (r *columnRepository) Update(ctx context.Context, column *models.Column) error {
	err := r.db.WithContext(ctx).Model(column).Select("Name", "Slug", "Order").Updates(column).Error
	return wrap(err, "Column", column.ID)
}

func (r *columnRepository) SetOrder(ctx context.Context, id uint, order int) error {
	res := r.db.WithContext(ctx).Model(&models.Column{}).Where("id = ?", id).Update("order_column", order)
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Column", id)
	}
	return nil
}

func (r *columnRepository) Archive(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Delete(&models.Column{}, id)
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Column", id)
	}
	return nil
}

func (r *columnRepository) Restore(ctx context.Context, id uint) error {
	err := r.db.WithContext(ctx).Unscoped().Model(&models.Column{}).Where("id = ?", id).Update("deleted_at", nil).Error
	return wrap(err, "Column", id)
}

// Purge hard-deletes the column with its cards and every appearance in it.
func (r *columnRepository) Purge(ctx context.Context, id uint) error {
	db := r.db.WithContext(ctx)

	var cardIDs []uint
	if err := db.Unscoped().Model(&models.Card{}).Where("board_column_id = ?", id).Pluck("id", &cardIDs).Error; err != nil {
		return models.NewInternalError(err)
	}
	if err := purgeCards(db, cardIDs); err != nil {
		return err
	}
	if err := db.Where("board_column_id = ?", id).Delete(&models.Appearance{}).Error; err != nil {
		return models.NewInternalError(err)
	}
	if err := db.Unscoped().Delete(&models.Column{}, id).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}
