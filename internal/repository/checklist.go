package repository

import (
	"context"
	"database/sql"

	"projectboard/internal/models"

	"gorm.io/gorm"
)

// ChecklistRepository defines persistence operations for checklists and their items.
type ChecklistRepository interface {
	Create(ctx context.Context, checklist *models.Checklist) error
	GetByID(ctx context.Context, id uint) (*models.Checklist, error)
	ListByCard(ctx context.Context, cardID uint) ([]models.Checklist, error)
	Rename(ctx context.Context, id uint, name string) error
	Delete(ctx context.Context, id uint) error

	CreateItem(ctx context.Context, item *models.ChecklistItem) error
	GetItem(ctx context.Context, id uint) (*models.ChecklistItem, error)
	UpdateItem(ctx context.Context, item *models.ChecklistItem) error
	DeleteItem(ctx context.Context, id uint) error
	MaxItemPosition(ctx context.Context, checklistID uint) (int, bool, error)
}

type checklistRepository struct {
	db *gorm.DB
}

// NewChecklistRepository returns a new ChecklistRepository implementation.
func NewChecklistRepository(db *gorm.DB) ChecklistRepository {
	return &checklistRepository{db: db}
}

func (r *checklistRepository) Create(ctx context.Context, checklist *models.Checklist) error {
	return wrap(r.db.WithContext(ctx).Create(checklist).Error, "Checklist", checklist.Name)
}

func (r *checklistRepository) GetByID(ctx context.Context, id uint) (*models.Checklist, error) {
	var checklist models.Checklist
	err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("position").Order("id") }).
		First(&checklist, id).Error
	if err != nil {
		return nil, wrap(err, "Checklist", id)
	}
	return &checklist, nil
}

func (r *checklistRepository) ListByCard(ctx context.Context, cardID uint) ([]models.Checklist, error) {
	var checklists []models.Checklist
	err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("position").Order("id") }).
		Where("card_id = ?", cardID).Order("id").
		Find(&checklists).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return checklists, nil
}

func (r *checklistRepository) Rename(ctx context.Context, id uint, name string) error {
	return wrap(r.db.WithContext(ctx).Model(&models.Checklist{}).Where("id = ?", id).Update("name", name).Error, "Checklist", id)
}

func (r *checklistRepository) Delete(ctx context.Context, id uint) error {
	db := r.db.WithContext(ctx)
	if err := db.Where("checklist_id = ?", id).Delete(&models.ChecklistItem{}).Error; err != nil {
		return models.NewInternalError(err)
	}
	res := db.Delete(&models.Checklist{}, id)
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Checklist", id)
	}
	return nil
}

func (r *checklistRepository) CreateItem(ctx context.Context, item *models.ChecklistItem) error {
	return wrap(r.db.WithContext(ctx).Create(item).Error, "Checklist item", item.ChecklistID)
}

func (r *checklistRepository) GetItem(ctx context.Context, id uint) (*models.ChecklistItem, error) {
	var item models.ChecklistItem
	if err := r.db.WithContext(ctx).First(&item, id).Error; err != nil {
		return nil, wrap(err, "Checklist item", id)
	}
	return &item, nil
}

func (r *checklistRepository) UpdateItem(ctx context.Context, item *models.ChecklistItem) error {
	err := r.db.WithContext(ctx).Model(item).Select("Content", "IsCompleted", "Position").Updates(item).Error
	return wrap(err, "Checklist item", item.ID)
}

func (r *checklistRepository) DeleteItem(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Delete(&models.ChecklistItem{}, id)
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Checklist item", id)
	}
	return nil
}

func (r *checklistRepository) MaxItemPosition(ctx context.Context, checklistID uint) (int, bool, error) {
	var max sql.NullInt64
	err := r.db.WithContext(ctx).Model(&models.ChecklistItem{}).
		Where("checklist_id = ?", checklistID).
		Select("MAX(position)").Row().Scan(&max)
	if err != nil {
		return 0, false, models.NewInternalError(err)
	}
	return int(max.Int64), max.Valid, nil
}
