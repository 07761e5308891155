package repository

import (
	"context"
	"strings"

	"projectboard/internal/models"

	"gorm.io/gorm"
)

const (
	searchDefault = 20
	searchMax     = 50
)

// UserRepository reads and creates host accounts. Boards only reference users; profile
// edits belong to the host application.
type UserRepository interface {
	FindByID(ctx context.Context, id uint) (*models.User, error)
	FindByIDs(ctx context.Context, ids []uint) ([]models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByNames(ctx context.Context, names []string) ([]models.User, error)
	Search(ctx context.Context, query string, limit int) ([]models.User, error)
	List(ctx context.Context, limit, offset int) ([]models.User, error)
	GlobalAdmins(ctx context.Context) ([]models.User, error)
	Create(ctx context.Context, user *models.User) error
}

type gormUsers struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) UserRepository {
	return gormUsers{db: db}
}

func (r gormUsers) q(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Model(&models.User{})
}

func (r gormUsers) first(ctx context.Context, key any, conds ...any) (*models.User, error) {
	u := new(models.User)
	if err := r.db.WithContext(ctx).First(u, conds...).Error; err != nil {
		return nil, wrap(err, "User", key)
	}
	return u, nil
}

func (r gormUsers) FindByID(ctx context.Context, id uint) (*models.User, error) {
	return r.first(ctx, id, id)
}

func (r gormUsers) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	norm := strings.ToLower(strings.TrimSpace(email))
	return r.first(ctx, email, "LOWER(email) = ?", norm)
}

func (r gormUsers) FindByIDs(ctx context.Context, ids []uint) ([]models.User, error) {
	if len(ids) == 0 {
		return []models.User{}, nil
	}
	return rows[models.User](r.q(ctx).Where("id IN ?", ids).Order("id"))
}

// FindByNames matches display names case-insensitively. Used to resolve @mentions.
func (r gormUsers) FindByNames(ctx context.Context, names []string) ([]models.User, error) {
	if len(names) == 0 {
		return []models.User{}, nil
	}
	folded := make([]string, 0, len(names))
	for _, n := range names {
		folded = append(folded, strings.ToLower(n))
	}
	return rows[models.User](r.q(ctx).Where("LOWER(name) IN ?", folded))
}

// Search matches name or email substrings. limit is clamped to 1..50.
func (r gormUsers) Search(ctx context.Context, query string, limit int) ([]models.User, error) {
	if limit <= 0 || limit > searchMax {
		limit = searchDefault
	}
	pattern := "%" + strings.ToLower(strings.TrimSpace(query)) + "%"
	return rows[models.User](r.q(ctx).
		Where("LOWER(name) LIKE ? OR LOWER(email) LIKE ?", pattern, pattern).
		Order("name").Limit(limit))
}

func (r gormUsers) List(ctx context.Context, limit, offset int) ([]models.User, error) {
	return rows[models.User](r.q(ctx).Order("name").Limit(limit).Offset(offset))
}

// GlobalAdmins lists users whose capabilities grant admin on every board.
func (r gormUsers) GlobalAdmins(ctx context.Context) ([]models.User, error) {
	return rows[models.User](r.q(ctx).
		Where("is_admin = ? OR can_access_all_boards = ?", true, true).
		Order("id"))
}

func (r gormUsers) Create(ctx context.Context, user *models.User) error {
	return wrap(r.db.WithContext(ctx).Create(user).Error, "User", user.Email)
}
