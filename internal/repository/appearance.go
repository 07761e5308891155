package repository

import (
	"context"

	"projectboard/internal/models"

	"gorm.io/gorm"
)

// AppearanceRepository defines persistence operations for card mirrors.
type AppearanceRepository interface {
	Create(ctx context.Context, appearance *models.Appearance) error
	Get(ctx context.Context, columnID, cardID uint) (*models.Appearance, error)
	Delete(ctx context.Context, columnID, cardID uint) (bool, error)
	ListByCard(ctx context.Context, cardID uint) ([]models.Appearance, error)
	ListByColumns(ctx context.Context, columnIDs []uint) ([]models.Appearance, error)
	MaxOrder(ctx context.Context, columnID uint) (int, bool, error)
}

type appearanceRepository struct {
	db *gorm.DB
}

// NewAppearanceRepository returns a new AppearanceRepository implementation.
func NewAppearanceRepository(db *gorm.DB) AppearanceRepository {
	return &appearanceRepository{db: db}
}

func (r *appearanceRepository) Create(ctx context.Context, appearance *models.Appearance) error {
	err := r.db.WithContext(ctx).Omit("Card", "Column").Create(appearance).Error
	if IsUniqueViolation(err) {
		return &models.AppError{Code: models.CodeConflict, Message: "Card is already mirrored to this column", Err: err}
	}
	return wrap(err, "Appearance", appearance.CardID)
}

func (r *appearanceRepository) Get(ctx context.Context, columnID, cardID uint) (*models.Appearance, error) {
	var appearance models.Appearance
	err := r.db.WithContext(ctx).Where("board_column_id = ? AND card_id = ?", columnID, cardID).First(&appearance).Error
	if err != nil {
		return nil, wrap(err, "Appearance", cardID)
	}
	return &appearance, nil
}

// Delete removes the mirror and reports whether a row was detached.
func (r *appearanceRepository) Delete(ctx context.Context, columnID, cardID uint) (bool, error) {
	res := r.db.WithContext(ctx).Where("board_column_id = ? AND card_id = ?", columnID, cardID).Delete(&models.Appearance{})
	if res.Error != nil {
		return false, models.NewInternalError(res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (r *appearanceRepository) ListByCard(ctx context.Context, cardID uint) ([]models.Appearance, error) {
	var appearances []models.Appearance
	err := r.db.WithContext(ctx).Preload("Column").Preload("Column.Board").
		Where("card_id = ?", cardID).Order("id").Find(&appearances).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return appearances, nil
}

// ListByColumns returns mirrors placed in the columns whose card is still active,
// with the card and its home column and board loaded.
func (r *appearanceRepository) ListByColumns(ctx context.Context, columnIDs []uint) ([]models.Appearance, error) {
	var appearances []models.Appearance
	if len(columnIDs) == 0 {
		return appearances, nil
	}
	err := r.db.WithContext(ctx).
		Joins("JOIN cards ON cards.id = card_appearances.card_id AND cards.deleted_at IS NULL").
		Preload("Card").
		Preload("Card.Labels").
		Preload("Card.Assignees").
		Preload("Card.Column", func(db *gorm.DB) *gorm.DB { return db.Unscoped() }).
		Preload("Card.Column.Board").
		Where("card_appearances.board_column_id IN ?", columnIDs).
		Order("card_appearances.order_column").Order("card_appearances.card_id").
		Find(&appearances).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return appearances, nil
}

func (r *appearanceRepository) MaxOrder(ctx context.Context, columnID uint) (int, bool, error) {
	return maxOrder(r.db.WithContext(ctx).Model(&models.Appearance{}).Where("board_column_id = ?", columnID))
}
