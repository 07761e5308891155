package repository

import (
	"context"
	"errors"

	"projectboard/internal/models"

	"gorm.io/gorm"
)

// MemberRepository defines persistence operations for board memberships.
type MemberRepository interface {
	RoleFor(ctx context.Context, boardID, userID uint) (models.BoardRole, error)
	BoardIDsFor(ctx context.Context, userID uint) ([]uint, error)
	List(ctx context.Context, boardID uint) ([]models.BoardMember, error)
	Get(ctx context.Context, boardID, userID uint) (*models.BoardMember, error)
	Create(ctx context.Context, member *models.BoardMember) error
	UpdateRole(ctx context.Context, boardID, userID uint, role models.BoardRole) error
	Delete(ctx context.Context, boardID, userID uint) error
}

type memberRepository struct {
	db *gorm.DB
}

// NewMemberRepository returns a new MemberRepository implementation.
func NewMemberRepository(db *gorm.DB) MemberRepository {
	return &memberRepository{db: db}
}

func (r *memberRepository) RoleFor(ctx context.Context, boardID, userID uint) (models.BoardRole, error) {
	var member models.BoardMember
	err := r.db.WithContext(ctx).Where("board_id = ? AND user_id = ?", boardID, userID).First(&member).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.BoardRoleNone, nil
	}
	if err != nil {
		return models.BoardRoleNone, models.NewInternalError(err)
	}
	if !member.Role.Valid() {
		return models.BoardRoleNone, nil
	}
	return member.Role, nil
}

func (r *memberRepository) BoardIDsFor(ctx context.Context, userID uint) ([]uint, error) {
	var ids []uint
	err := r.db.WithContext(ctx).Model(&models.BoardMember{}).Where("user_id = ?", userID).Pluck("board_id", &ids).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return ids, nil
}

func (r *memberRepository) List(ctx context.Context, boardID uint) ([]models.BoardMember, error) {
	var members []models.BoardMember
	err := r.db.WithContext(ctx).Preload("User").Where("board_id = ?", boardID).Order("created_at").Order("user_id").Find(&members).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return members, nil
}

func (r *memberRepository) Get(ctx context.Context, boardID, userID uint) (*models.BoardMember, error) {
	var member models.BoardMember
	err := r.db.WithContext(ctx).Preload("User").Where("board_id = ? AND user_id = ?", boardID, userID).First(&member).Error
	if err != nil {
		return nil, wrap(err, "Member", userID)
	}
	return &member, nil
}

func (r *memberRepository) Create(ctx context.Context, member *models.BoardMember) error {
	err := r.db.WithContext(ctx).Create(member).Error
	if IsUniqueViolation(err) {
		return models.NewConflictError("User is already a member of this board")
	}
	return wrap(err, "Member", member.UserID)
}

func (r *memberRepository) UpdateRole(ctx context.Context, boardID, userID uint, role models.BoardRole) error {
	res := r.db.WithContext(ctx).Model(&models.BoardMember{}).
		Where("board_id = ? AND user_id = ?", boardID, userID).
		Update("role", role)
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Member", userID)
	}
	return nil
}

func (r *memberRepository) Delete(ctx context.Context, boardID, userID uint) error {
	res := r.db.WithContext(ctx).Where("board_id = ? AND user_id = ?", boardID, userID).Delete(&models.BoardMember{})
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Member", userID)
	}
	return nil
}
