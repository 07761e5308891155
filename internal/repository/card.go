package repository

import (
	"context"
	"database/sql"

	"projectboard/internal/models"

	"gorm.io/gorm"
)

// CardRepository defines persistence operations for cards and their label/assignee links.
type CardRepository interface {
	Create(ctx context.Context, card *models.Card) error
	GetByID(ctx context.Context, id uint) (*models.Card, error)
	GetWithArchived(ctx context.Context, id uint) (*models.Card, error)
	GetDetailed(ctx context.Context, id uint) (*models.Card, error)
	ListByColumns(ctx context.Context, columnIDs []uint) ([]models.Card, error)
	ListArchivedByBoard(ctx context.Context, boardID uint) ([]models.Card, error)
	IDsByColumn(ctx context.Context, columnID uint) ([]uint, error)
	BoardIDOf(ctx context.Context, cardID uint) (uint, error)
	MaxOrder(ctx context.Context, columnID uint) (int, bool, error)
	Update(ctx context.Context, card *models.Card) error
	Move(ctx context.Context, id, columnID uint, order int) error
	SetCover(ctx context.Context, id uint, attachmentID *uint) error
	Archive(ctx context.Context, id uint) error
	Restore(ctx context.Context, id uint) error
	Purge(ctx context.Context, id uint) error

	LabelIDs(ctx context.Context, cardID uint) ([]uint, error)
	AddLabel(ctx context.Context, cardID, labelID uint) error
	RemoveLabel(ctx context.Context, cardID, labelID uint) error
	AssigneeIDs(ctx context.Context, cardID uint) ([]uint, error)
	AddAssignee(ctx context.Context, cardID, userID uint) error
	RemoveAssignee(ctx context.Context, cardID, userID uint) error
}

type cardRepository struct {
	db *gorm.DB
}

// NewCardRepository returns a new CardRepository implementation.
func NewCardRepository(db *gorm.DB) CardRepository {
	return &cardRepository{db: db}
}

func maxOrder(q *gorm.DB) (int, bool, error) {
	var max sql.NullInt64
	if err := q.Select("MAX(order_column)").Row().Scan(&max); err != nil {
		return 0, false, models.NewInternalError(err)
	}
	if !max.Valid {
		return 0, false, nil
	}
	return int(max.Int64), true, nil
}

func (r *cardRepository) Create(ctx context.Context, card *models.Card) error {
	return wrap(r.db.WithContext(ctx).Omit("Labels.*", "Assignees.*").Create(card).Error, "Card", card.Title)
}

func (r *cardRepository) GetByID(ctx context.Context, id uint) (*models.Card, error) {
	var card models.Card
	if err := r.db.WithContext(ctx).First(&card, id).Error; err != nil {
		return nil, wrap(err, "Card", id)
	}
	return &card, nil
}

// GetWithArchived also finds soft-deleted cards.
func (r *cardRepository) GetWithArchived(ctx context.Context, id uint) (*models.Card, error) {
	var card models.Card
	if err := r.db.WithContext(ctx).Unscoped().First(&card, id).Error; err != nil {
		return nil, wrap(err, "Card", id)
	}
	return &card, nil
}

// GetDetailed loads the card with labels, assignees, checklists with items, attachments and creator.
func (r *cardRepository) GetDetailed(ctx context.Context, id uint) (*models.Card, error) {
	var card models.Card
	err := r.db.WithContext(ctx).
		Preload("Labels", func(db *gorm.DB) *gorm.DB { return db.Order("labels.id") }).
		Preload("Assignees", func(db *gorm.DB) *gorm.DB { return db.Order("users.id") }).
		Preload("Checklists", func(db *gorm.DB) *gorm.DB { return db.Order("id") }).
		Preload("Checklists.Items", func(db *gorm.DB) *gorm.DB { return db.Order("position").Order("id") }).
		Preload("Attachments", func(db *gorm.DB) *gorm.DB { return db.Order("id") }).
		Preload("Creator").
		First(&card, id).Error
	if err != nil {
		return nil, wrap(err, "Card", id)
	}
	return &card, nil
}

// ListByColumns returns the active home cards of the columns with labels and assignees.
func (r *cardRepository) ListByColumns(ctx context.Context, columnIDs []uint) ([]models.Card, error) {
	var cards []models.Card
	if len(columnIDs) == 0 {
		return cards, nil
	}
	err := r.db.WithContext(ctx).
		Preload("Labels").
		Preload("Assignees").
		Where("board_column_id IN ?", columnIDs).
		Order("order_column").Order("id").
		Find(&cards).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return cards, nil
}

func (r *cardRepository) ListArchivedByBoard(ctx context.Context, boardID uint) ([]models.Card, error) {
	var cards []models.Card
	err := r.db.WithContext(ctx).Unscoped().
		Joins("JOIN board_columns ON board_columns.id = cards.board_column_id").
		Where("board_columns.board_id = ? AND cards.deleted_at IS NOT NULL", boardID).
		Order("cards.deleted_at DESC").
		Find(&cards).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return cards, nil
}

func (r *cardRepository) IDsByColumn(ctx context.Context, columnID uint) ([]uint, error) {
	var ids []uint
	err := r.db.WithContext(ctx).Model(&models.Card{}).Where("board_column_id = ?", columnID).
		Order("order_column").Order("id").Pluck("id", &ids).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return ids, nil
}

// BoardIDOf resolves the board of the card's home column, archived rows included.
func (r *cardRepository) BoardIDOf(ctx context.Context, cardID uint) (uint, error) {
	var boardIDs []uint
	err := r.db.WithContext(ctx).Unscoped().Model(&models.Card{}).
		Joins("JOIN board_columns ON board_columns.id = cards.board_column_id").
		Where("cards.id = ?", cardID).
		Pluck("board_columns.board_id", &boardIDs).Error
	if err != nil {
		return 0, models.NewInternalError(err)
	}
	if len(boardIDs) == 0 {
		return 0, models.NewNotFoundError("Card", cardID)
	}
	return boardIDs[0], nil
}

// MaxOrder returns the highest home-card position in the column and whether any card exists.
func (r *cardRepository) MaxOrder(ctx context.Context, columnID uint) (int, bool, error) {
	return maxOrder(r.db.WithContext(ctx).Model(&models.Card{}).Where("board_column_id = ?", columnID))
}

func (r *cardRepository) Update(ctx context.Context, card *models.Card) error {
	err := r.db.WithContext(ctx).Model(card).Select(
		"Title", "Description", "DueDate", "CompletedAt",
		"EstimatedHours", "EstimatedCost", "ActualHours", "ActualCost",
	).Updates(card).Error
	return wrap(err, "Card", card.ID)
}

func (r *cardRepository) Move(ctx context.Context, id, columnID uint, order int) error {
	res := r.db.WithContext(ctx).Model(&models.Card{}).Where("id = ?", id).
		Updates(map[string]any{"board_column_id": columnID, "order_column": order})
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Card", id)
	}
	return nil
}

func (r *cardRepository) SetCover(ctx context.Context, id uint, attachmentID *uint) error {
	err := r.db.WithContext(ctx).Model(&models.Card{}).Where("id = ?", id).Update("cover_attachment_id", attachmentID).Error
	return wrap(err, "Card", id)
}

func (r *cardRepository) Archive(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Delete(&models.Card{}, id)
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Card", id)
	}
	return nil
}

func (r *cardRepository) Restore(ctx context.Context, id uint) error {
	err := r.db.WithContext(ctx).Unscoped().Model(&models.Card{}).Where("id = ?", id).Update("deleted_at", nil).Error
	return wrap(err, "Card", id)
}

func (r *cardRepository) Purge(ctx context.Context, id uint) error {
	return purgeCards(r.db.WithContext(ctx), []uint{id})
}

// purgeCards hard-deletes cards and every row that hangs off them.
func purgeCards(db *gorm.DB, ids []uint) error {
	if len(ids) == 0 {
		return nil
	}

	var commentIDs []uint
	if err := db.Model(&models.Comment{}).
		Where("commentable_type = ? AND commentable_id IN ?", models.CommentableCard, ids).
		Pluck("id", &commentIDs).Error; err != nil {
		return models.NewInternalError(err)
	}
	var checklistIDs []uint
	if err := db.Model(&models.Checklist{}).Where("card_id IN ?", ids).Pluck("id", &checklistIDs).Error; err != nil {
		return models.NewInternalError(err)
	}

	steps := []func() error{
		func() error { return db.Where("card_id IN ?", ids).Delete(&models.Appearance{}).Error },
		func() error { return db.Exec("DELETE FROM card_labels WHERE card_id IN ?", ids).Error },
		func() error { return db.Exec("DELETE FROM card_users WHERE card_id IN ?", ids).Error },
		func() error {
			if len(commentIDs) == 0 {
				return nil
			}
			return db.Where("comment_id IN ?", commentIDs).Delete(&models.CommentReaction{}).Error
		},
		func() error {
			if len(commentIDs) == 0 {
				return nil
			}
			return db.Where("id IN ?", commentIDs).Delete(&models.Comment{}).Error
		},
		func() error {
			if len(checklistIDs) == 0 {
				return nil
			}
			return db.Where("checklist_id IN ?", checklistIDs).Delete(&models.ChecklistItem{}).Error
		},
		func() error { return db.Where("card_id IN ?", ids).Delete(&models.Checklist{}).Error },
		func() error { return db.Where("card_id IN ?", ids).Delete(&models.Activity{}).Error },
		func() error { return db.Where("card_id IN ?", ids).Delete(&models.Attachment{}).Error },
		func() error { return db.Unscoped().Where("id IN ?", ids).Delete(&models.Card{}).Error },
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return models.NewInternalError(err)
		}
	}
	return nil
}

func (r *cardRepository) LabelIDs(ctx context.Context, cardID uint) ([]uint, error) {
	var ids []uint
	err := r.db.WithContext(ctx).Table("card_labels").Where("card_id = ?", cardID).Order("label_id").Pluck("label_id", &ids).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return ids, nil
}

func (r *cardRepository) AddLabel(ctx context.Context, cardID, labelID uint) error {
	err := r.db.WithContext(ctx).Exec("INSERT INTO card_labels (card_id, label_id) VALUES (?, ?)", cardID, labelID).Error
	return wrap(err, "Card label", labelID)
}

func (r *cardRepository) RemoveLabel(ctx context.Context, cardID, labelID uint) error {
	err := r.db.WithContext(ctx).Exec("DELETE FROM card_labels WHERE card_id = ? AND label_id = ?", cardID, labelID).Error
	return wrap(err, "Card label", labelID)
}

func (r *cardRepository) AssigneeIDs(ctx context.Context, cardID uint) ([]uint, error) {
	var ids []uint
	err := r.db.WithContext(ctx).Table("card_users").Where("card_id = ?", cardID).Order("user_id").Pluck("user_id", &ids).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return ids, nil
}

func (r *cardRepository) AddAssignee(ctx context.Context, cardID, userID uint) error {
	err := r.db.WithContext(ctx).Exec("INSERT INTO card_users (card_id, user_id) VALUES (?, ?)", cardID, userID).Error
	return wrap(err, "Card assignee", userID)
}

func (r *cardRepository) RemoveAssignee(ctx context.Context, cardID, userID uint) error {
	err := r.db.WithContext(ctx).Exec("DELETE FROM card_users WHERE card_id = ? AND user_id = ?", cardID, userID).Error
	return wrap(err, "Card assignee", userID)
}
