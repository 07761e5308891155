package repository

import (
	"context"
	"log/slog"
	"time"

	"projectboard/internal/access"
	"projectboard/internal/models"
	"projectboard/internal/observability"

	"gorm.io/gorm"
)

// BoardFilter narrows board listings.
type BoardFilter struct {
	Scope access.Scope
	Owner *models.OwnerRef
	Name  string
	Limit int
}

// BoardRepository defines persistence operations for boards.
type BoardRepository interface {
	Create(ctx context.Context, board *models.Board) error
	GetByID(ctx context.Context, id uint) (*models.Board, error)
	GetByColumnID(ctx context.Context, columnID uint) (*models.Board, error)
	List(ctx context.Context, filter BoardFilter) ([]models.Board, error)
	Update(ctx context.Context, board *models.Board) error
	Touch(ctx context.Context, id uint) error
	Delete(ctx context.Context, id uint) error
}

type boardRepository struct {
	db    *gorm.DB
	audit observability.WriteAudit
}

// NewBoardRepository returns a new BoardRepository implementation.
func NewBoardRepository(db *gorm.DB) BoardRepository {
	return &boardRepository{db: db, audit: observability.NewWriteAudit("boards")}
}

func (r *boardRepository) Create(ctx context.Context, board *models.Board) error {
	if err := r.db.WithContext(ctx).Create(board).Error; err != nil {
		r.audit.Failed(ctx, "create", err)
		return wrap(err, "Board", board.Name)
	}
	r.audit.Wrote(ctx, "create", slog.Uint64("board_id", uint64(board.ID)))
	return nil
}

func (r *boardRepository) GetByID(ctx context.Context, id uint) (*models.Board, error) {
	var board models.Board
	if err := r.db.WithContext(ctx).First(&board, id).Error; err != nil {
		return nil, wrap(err, "Board", id)
	}
	return &board, nil
}

// GetByColumnID resolves the board of a column, including archived columns.
func (r *boardRepository) GetByColumnID(ctx context.Context, columnID uint) (*models.Board, error) {
	var board models.Board
	err := r.db.WithContext(ctx).
		Joins("JOIN board_columns ON board_columns.board_id = boards.id").
		Where("board_columns.id = ?", columnID).
		First(&board).Error
	if err != nil {
		return nil, wrap(err, "Column", columnID)
	}
	return &board, nil
}

func (r *boardRepository) List(ctx context.Context, filter BoardFilter) ([]models.Board, error) {
	var boards []models.Board
	if !filter.Scope.All && len(filter.Scope.BoardIDs) == 0 {
		return boards, nil
	}

	q := r.db.WithContext(ctx).Model(&models.Board{})
	if !filter.Scope.All {
		q = q.Where("id IN ?", filter.Scope.BoardIDs)
	}
	if filter.Owner != nil {
		q = q.Where("boardable_type = ? AND boardable_id = ?", filter.Owner.Type, filter.Owner.ID)
	}
	if filter.Name != "" {
		q = q.Where("LOWER(name) LIKE LOWER(?)", "%"+filter.Name+"%")
	}
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}

	if err := q.Order("updated_at DESC").Order("id DESC").Find(&boards).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return boards, nil
}

func (r *boardRepository) Update(ctx context.Context, board *models.Board) error {
	err := r.db.WithContext(ctx).Model(board).Select(
		"Name", "BoardableType", "BoardableID", "BackgroundURL", "BackgroundColor",
	).Updates(board).Error
	if err != nil {
		r.audit.Failed(ctx, "update", err)
		return wrap(err, "Board", board.ID)
	}
	r.audit.Wrote(ctx, "update", slog.Uint64("board_id", uint64(board.ID)))
	return nil
}

// Touch bumps updated_at so the board index reflects recent activity.
func (r *boardRepository) Touch(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Model(&models.Board{}).Where("id = ?", id).
		UpdateColumn("updated_at", time.Now()).Error
}

// Delete removes the board and everything under it. Children are deleted
// explicitly so sqlite without foreign key enforcement behaves like postgres.
func (r *boardRepository) Delete(ctx context.Context, id uint) error {
	db := r.db.WithContext(ctx)

	var columnIDs []uint
	if err := db.Unscoped().Model(&models.Column{}).Where("board_id = ?", id).Pluck("id", &columnIDs).Error; err != nil {
		return models.NewInternalError(err)
	}
	if len(columnIDs) > 0 {
		var cardIDs []uint
		if err := db.Unscoped().Model(&models.Card{}).Where("board_column_id IN ?", columnIDs).Pluck("id", &cardIDs).Error; err != nil {
			return models.NewInternalError(err)
		}
		if err := purgeCards(db, cardIDs); err != nil {
			return err
		}
		if err := db.Where("board_column_id IN ?", columnIDs).Delete(&models.Appearance{}).Error; err != nil {
			return models.NewInternalError(err)
		}
		if err := db.Unscoped().Where("id IN ?", columnIDs).Delete(&models.Column{}).Error; err != nil {
			return models.NewInternalError(err)
		}
	}
	if err := db.Where("board_id = ?", id).Delete(&models.BoardMember{}).Error; err != nil {
		return models.NewInternalError(err)
	}
	res := db.Delete(&models.Board{}, id)
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Board", id)
	}
	r.audit.Wrote(ctx, "delete", slog.Uint64("board_id", uint64(id)), slog.Int("columns", len(columnIDs)))
	return nil
}
