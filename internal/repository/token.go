package repository

import (
	"context"
	"time"

	"projectboard/internal/models"

	"gorm.io/gorm"
)

// TokenRepository defines persistence operations for API tokens.
type TokenRepository interface {
	Create(ctx context.Context, token *models.APIToken) error
	FindByHash(ctx context.Context, hash string) (*models.APIToken, error)
	ListByUser(ctx context.Context, userID uint) ([]models.APIToken, error)
	Delete(ctx context.Context, userID, id uint) error
	TouchLastUsed(ctx context.Context, id uint, at time.Time) error
}

type tokenRepository struct {
	db *gorm.DB
}

// NewTokenRepository returns a new TokenRepository implementation.
func NewTokenRepository(db *gorm.DB) TokenRepository {
	return &tokenRepository{db: db}
}

func (r *tokenRepository) Create(ctx context.Context, token *models.APIToken) error {
	return wrap(r.db.WithContext(ctx).Omit("User").Create(token).Error, "API token", token.Name)
}

func (r *tokenRepository) FindByHash(ctx context.Context, hash string) (*models.APIToken, error) {
	var token models.APIToken
	if err := r.db.WithContext(ctx).Preload("User").Where("token_hash = ?", hash).First(&token).Error; err != nil {
		return nil, wrap(err, "API token", "hash")
	}
	return &token, nil
}

func (r *tokenRepository) ListByUser(ctx context.Context, userID uint) ([]models.APIToken, error) {
	var tokens []models.APIToken
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at DESC").Order("id DESC").Find(&tokens).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return tokens, nil
}

// Delete revokes one of the user's tokens. Tokens of other users are reported as not found.
func (r *tokenRepository) Delete(ctx context.Context, userID, id uint) error {
	res := r.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).Delete(&models.APIToken{})
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("API token", id)
	}
	return nil
}

func (r *tokenRepository) TouchLastUsed(ctx context.Context, id uint, at time.Time) error {
	return r.db.WithContext(ctx).Model(&models.APIToken{}).Where("id = ?", id).UpdateColumn("last_used_at", at).Error
}
