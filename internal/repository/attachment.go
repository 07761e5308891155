package repository

import (
	"context"

	"projectboard/internal/models"

	"gorm.io/gorm"
)

// AttachmentRepository stores attachment metadata. File bytes live in external media storage.
type AttachmentRepository interface {
	Create(ctx context.Context, attachment *models.Attachment) error
	GetByID(ctx context.Context, id uint) (*models.Attachment, error)
	ListByCard(ctx context.Context, cardID uint) ([]models.Attachment, error)
	Delete(ctx context.Context, id uint) error
}

type attachmentRepository struct {
	db *gorm.DB
}

// NewAttachmentRepository returns a new AttachmentRepository implementation.
func NewAttachmentRepository(db *gorm.DB) AttachmentRepository {
	return &attachmentRepository{db: db}
}

func (r *attachmentRepository) Create(ctx context.Context, attachment *models.Attachment) error {
	return wrap(r.db.WithContext(ctx).Create(attachment).Error, "Attachment", attachment.FileName)
}

func (r *attachmentRepository) GetByID(ctx context.Context, id uint) (*models.Attachment, error) {
	var attachment models.Attachment
	if err := r.db.WithContext(ctx).First(&attachment, id).Error; err != nil {
		return nil, wrap(err, "Attachment", id)
	}
	return &attachment, nil
}

func (r *attachmentRepository) ListByCard(ctx context.Context, cardID uint) ([]models.Attachment, error) {
	var attachments []models.Attachment
	if err := r.db.WithContext(ctx).Where("card_id = ?", cardID).Order("id").Find(&attachments).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return attachments, nil
}

// Delete removes the attachment and clears it as cover of its card.
func (r *attachmentRepository) Delete(ctx context.Context, id uint) error {
	db := r.db.WithContext(ctx)
	if err := db.Unscoped().Model(&models.Card{}).Where("cover_attachment_id = ?", id).
		UpdateColumn("cover_attachment_id", nil).Error; err != nil {
		return models.NewInternalError(err)
	}
	res := db.Delete(&models.Attachment{}, id)
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Attachment", id)
	}
	return nil
}
