package repository

import (
	"context"

	"projectboard/internal/models"
	"projectboard/internal/observability"

	"gorm.io/gorm"
)

// ActivityRepository appends and reads card audit entries. Entries are never updated.
type ActivityRepository interface {
	Create(ctx context.Context, activity *models.Activity) error
	ListByCard(ctx context.Context, cardID uint, limit int) ([]models.Activity, error)
}

type activityRepository struct {
	db *gorm.DB
}

// NewActivityRepository returns a new ActivityRepository implementation.
func NewActivityRepository(db *gorm.DB) ActivityRepository {
	return &activityRepository{db: db}
}

func (r *activityRepository) Create(ctx context.Context, activity *models.Activity) error {
	defer observability.TrackQuery("insert", "activities")()
	return wrap(r.db.WithContext(ctx).Omit("User").Create(activity).Error, "Activity", activity.CardID)
}

// ListByCard returns the newest entries first. A non-positive limit returns all.
func (r *activityRepository) ListByCard(ctx context.Context, cardID uint, limit int) ([]models.Activity, error) {
	var activities []models.Activity
	q := r.db.WithContext(ctx).Preload("User").Where("card_id = ?", cardID).
		Order("created_at DESC").Order("id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&activities).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return activities, nil
}
