package repository

import (
	"context"

	"projectboard/internal/models"

	"gorm.io/gorm"
)

// CommentRepository defines persistence operations for comments and reactions.
type CommentRepository interface {
	Create(ctx context.Context, comment *models.Comment) error
	GetByID(ctx context.Context, id uint) (*models.Comment, error)
	ListByCard(ctx context.Context, cardID uint) ([]models.Comment, error)
	Update(ctx context.Context, comment *models.Comment) error
	Delete(ctx context.Context, id uint) error

	FindReaction(ctx context.Context, commentID, userID uint, emoji string) (*models.CommentReaction, error)
	AddReaction(ctx context.Context, reaction *models.CommentReaction) error
	DeleteReaction(ctx context.Context, id uint) error
}

type commentRepository struct {
	db *gorm.DB
}

// NewCommentRepository returns a new CommentRepository implementation.
func NewCommentRepository(db *gorm.DB) CommentRepository {
	return &commentRepository{db: db}
}

func (r *commentRepository) Create(ctx context.Context, comment *models.Comment) error {
	return wrap(r.db.WithContext(ctx).Omit("User").Create(comment).Error, "Comment", comment.CommentableID)
}

func (r *commentRepository) GetByID(ctx context.Context, id uint) (*models.Comment, error) {
	var comment models.Comment
	err := r.db.WithContext(ctx).Preload("User").Preload("Reactions").First(&comment, id).Error
	if err != nil {
		return nil, wrap(err, "Comment", id)
	}
	return &comment, nil
}

// ListByCard returns the top-level comments of a card, newest first, with replies and reactions.
func (r *commentRepository) ListByCard(ctx context.Context, cardID uint) ([]models.Comment, error) {
	var comments []models.Comment
	err := r.db.WithContext(ctx).
		Preload("User").
		Preload("Reactions", func(db *gorm.DB) *gorm.DB { return db.Order("id") }).
		Preload("Reactions.User").
		Preload("Replies", func(db *gorm.DB) *gorm.DB { return db.Order("created_at").Order("id") }).
		Preload("Replies.User").
		Preload("Replies.Reactions").
		Where("commentable_type = ? AND commentable_id = ? AND parent_id IS NULL", models.CommentableCard, cardID).
		Order("created_at DESC").Order("id DESC").
		Find(&comments).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return comments, nil
}

func (r *commentRepository) Update(ctx context.Context, comment *models.Comment) error {
	return wrap(r.db.WithContext(ctx).Model(comment).Select("Content").Updates(comment).Error, "Comment", comment.ID)
}

// Delete removes the comment, its replies and all their reactions.
func (r *commentRepository) Delete(ctx context.Context, id uint) error {
	db := r.db.WithContext(ctx)
	ids := []uint{id}
	var replyIDs []uint
	if err := db.Model(&models.Comment{}).Where("parent_id = ?", id).Pluck("id", &replyIDs).Error; err != nil {
		return models.NewInternalError(err)
	}
	ids = append(ids, replyIDs...)

	if err := db.Where("comment_id IN ?", ids).Delete(&models.CommentReaction{}).Error; err != nil {
		return models.NewInternalError(err)
	}
	if len(replyIDs) > 0 {
		if err := db.Where("id IN ?", replyIDs).Delete(&models.Comment{}).Error; err != nil {
			return models.NewInternalError(err)
		}
	}
	res := db.Delete(&models.Comment{}, id)
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Comment", id)
	}
	return nil
}

// FindReaction returns the user's reaction with exactly this emoji, or nil.
func (r *commentRepository) FindReaction(ctx context.Context, commentID, userID uint, emoji string) (*models.CommentReaction, error) {
	var reactions []models.CommentReaction
	err := r.db.WithContext(ctx).
		Where("comment_id = ? AND user_id = ? AND emoji = ?", commentID, userID, emoji).
		Limit(1).Find(&reactions).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	if len(reactions) == 0 {
		return nil, nil
	}
	return &reactions[0], nil
}

func (r *commentRepository) AddReaction(ctx context.Context, reaction *models.CommentReaction) error {
	return wrap(r.db.WithContext(ctx).Omit("User").Create(reaction).Error, "Reaction", reaction.Emoji)
}

func (r *commentRepository) DeleteReaction(ctx context.Context, id uint) error {
	return wrap(r.db.WithContext(ctx).Delete(&models.CommentReaction{}, id).Error, "Reaction", id)
}
