package repository

import (
	"context"

	"projectboard/internal/models"

	"gorm.io/gorm"
)

// LabelRepository defines persistence operations for the shared label catalogue.
type LabelRepository interface {
	List(ctx context.Context) ([]models.Label, error)
	GetByID(ctx context.Context, id uint) (*models.Label, error)
	GetByIDs(ctx context.Context, ids []uint) ([]models.Label, error)
	FindByNameColor(ctx context.Context, name string, color *string) (*models.Label, error)
	Create(ctx context.Context, label *models.Label) error
	Update(ctx context.Context, label *models.Label) error
	Delete(ctx context.Context, id uint) error
}

type labelRepository struct {
	db *gorm.DB
}

// NewLabelRepository returns a new LabelRepository implementation.
func NewLabelRepository(db *gorm.DB) LabelRepository {
	return &labelRepository{db: db}
}

func (r *labelRepository) List(ctx context.Context) ([]models.Label, error) {
	var labels []models.Label
	if err := r.db.WithContext(ctx).Order("name").Order("id").Find(&labels).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return labels, nil
}

func (r *labelRepository) GetByID(ctx context.Context, id uint) (*models.Label, error) {
	var label models.Label
	if err := r.db.WithContext(ctx).First(&label, id).Error; err != nil {
		return nil, wrap(err, "Label", id)
	}
	return &label, nil
}

func (r *labelRepository) GetByIDs(ctx context.Context, ids []uint) ([]models.Label, error) {
	var labels []models.Label
	if len(ids) == 0 {
		return labels, nil
	}
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Order("id").Find(&labels).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return labels, nil
}

// FindByNameColor returns the label with exactly this name and color, or nil.
func (r *labelRepository) FindByNameColor(ctx context.Context, name string, color *string) (*models.Label, error) {
	q := r.db.WithContext(ctx).Where("name = ?", name)
	if color == nil {
		q = q.Where("color IS NULL")
	} else {
		q = q.Where("color = ?", *color)
	}
	var labels []models.Label
	if err := q.Order("id").Limit(1).Find(&labels).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	if len(labels) == 0 {
		return nil, nil
	}
	return &labels[0], nil
}

func (r *labelRepository) Create(ctx context.Context, label *models.Label) error {
	return wrap(r.db.WithContext(ctx).Create(label).Error, "Label", label.Name)
}

func (r *labelRepository) Update(ctx context.Context, label *models.Label) error {
	return wrap(r.db.WithContext(ctx).Model(label).Select("Name", "Color").Updates(label).Error, "Label", label.ID)
}

// Delete detaches the label from every card before removing it.
func (r *labelRepository) Delete(ctx context.Context, id uint) error {
	db := r.db.WithContext(ctx)
	if err := db.Exec("DELETE FROM card_labels WHERE label_id = ?", id).Error; err != nil {
		return models.NewInternalError(err)
	}
	res := db.Delete(&models.Label{}, id)
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Label", id)
	}
	return nil
}
