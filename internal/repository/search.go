package repository

import (
	"context"
	"strings"
	"time"

	"projectboard/internal/access"
	"projectboard/internal/models"

	sq "github.com/Masterminds/squirrel"
	"gorm.io/gorm"
)

// Result caps for card search and the global search groups.
const (
	CardSearchLimit   = 50
	GlobalSearchLimit = 5
)

// SearchFilter narrows a search to the boards a caller may read.
type SearchFilter struct {
	Query   string
	Scope   access.Scope
	BoardID *uint
	Limit   int
}

// CardHit is a card matched by search with its location.
type CardHit struct {
	ID          uint      `json:"id"`
	Title       string    `json:"title"`
	Description *string   `json:"description"`
	ColumnID    uint      `json:"column_id"`
	ColumnName  string    `json:"column_name"`
	BoardID     uint      `json:"board_id"`
	BoardName   string    `json:"board_name"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// CommentHit is a card comment matched by search.
type CommentHit struct {
	ID        uint      `json:"id"`
	Content   string    `json:"content"`
	CardID    uint      `json:"card_id"`
	CardTitle string    `json:"card_title"`
	BoardID   uint      `json:"board_id"`
	CreatedAt time.Time `json:"created_at"`
}

// ChecklistItemHit is a checklist item matched by search.
type ChecklistItemHit struct {
	ID            uint   `json:"id"`
	Content       string `json:"content"`
	IsCompleted   bool   `json:"is_completed"`
	ChecklistName string `json:"checklist_name"`
	CardID        uint   `json:"card_id"`
	CardTitle     string `json:"card_title"`
	BoardID       uint   `json:"board_id"`
}

// SearchRepository runs case-insensitive substring searches across boards.
type SearchRepository interface {
	Cards(ctx context.Context, filter SearchFilter) ([]CardHit, error)
	Comments(ctx context.Context, filter SearchFilter) ([]CommentHit, error)
	ChecklistItems(ctx context.Context, filter SearchFilter) ([]ChecklistItemHit, error)
}

type searchRepository struct {
	db *gorm.DB
}

// NewSearchRepository returns a new SearchRepository implementation.
func NewSearchRepository(db *gorm.DB) SearchRepository {
	return &searchRepository{db: db}
}

func likePattern(q string) string {
	return "%" + strings.ToLower(strings.TrimSpace(q)) + "%"
}

func (f SearchFilter) limit(def int) uint64 {
	if f.Limit <= 0 || f.Limit > def {
		return uint64(def)
	}
	return uint64(f.Limit)
}

// activeCards selects live cards in live columns restricted to the filter's boards.
func activeCards(b sq.SelectBuilder, f SearchFilter) sq.SelectBuilder {
	b = b.Join("board_columns ON board_columns.id = cards.board_column_id").
		Where("cards.deleted_at IS NULL").
		Where("board_columns.deleted_at IS NULL")
	if !f.Scope.All {
		b = b.Where(sq.Eq{"board_columns.board_id": f.Scope.BoardIDs})
	}
	if f.BoardID != nil {
		b = b.Where(sq.Eq{"board_columns.board_id": *f.BoardID})
	}
	return b
}

func (r *searchRepository) run(ctx context.Context, b sq.SelectBuilder, dest any) error {
	query, args, err := b.PlaceholderFormat(sq.Question).ToSql()
	if err != nil {
		return models.NewInternalError(err)
	}
	if err := r.db.WithContext(ctx).Raw(query, args...).Scan(dest).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func emptyScope(f SearchFilter) bool {
	return !f.Scope.All && len(f.Scope.BoardIDs) == 0
}

// Cards matches title, description or an attached label name.
func (r *searchRepository) Cards(ctx context.Context, f SearchFilter) ([]CardHit, error) {
	hits := []CardHit{}
	if emptyScope(f) {
		return hits, nil
	}
	pattern := likePattern(f.Query)
	labelMatch := sq.Select("1").From("card_labels").
		Join("labels ON labels.id = card_labels.label_id").
		Where("card_labels.card_id = cards.id").
		Where("LOWER(labels.name) LIKE ?", pattern).
		Prefix("EXISTS (").Suffix(")")

	b := sq.Select(
		"cards.id", "cards.title", "cards.description", "cards.updated_at",
		"board_columns.id AS column_id", "board_columns.name AS column_name",
		"boards.id AS board_id", "boards.name AS board_name",
	).From("cards")
	b = activeCards(b, f).
		Join("boards ON boards.id = board_columns.board_id").
		Where(sq.Or{
			sq.Expr("LOWER(cards.title) LIKE ?", pattern),
			sq.Expr("LOWER(cards.description) LIKE ?", pattern),
			labelMatch,
		}).
		OrderBy("cards.updated_at DESC", "cards.id DESC").
		Limit(f.limit(CardSearchLimit))

	if err := r.run(ctx, b, &hits); err != nil {
		return nil, err
	}
	return hits, nil
}

func (r *searchRepository) Comments(ctx context.Context, f SearchFilter) ([]CommentHit, error) {
	hits := []CommentHit{}
	if emptyScope(f) {
		return hits, nil
	}
	b := sq.Select(
		"comments.id", "comments.content", "comments.created_at",
		"cards.id AS card_id", "cards.title AS card_title", "board_columns.board_id",
	).From("comments").
		Join("cards ON cards.id = comments.commentable_id").
		Where(sq.Eq{"comments.commentable_type": models.CommentableCard}).
		Where("LOWER(comments.content) LIKE ?", likePattern(f.Query))
	b = activeCards(b, f).
		OrderBy("comments.created_at DESC", "comments.id DESC").
		Limit(f.limit(GlobalSearchLimit))

	if err := r.run(ctx, b, &hits); err != nil {
		return nil, err
	}
	return hits, nil
}

func (r *searchRepository) ChecklistItems(ctx context.Context, f SearchFilter) ([]ChecklistItemHit, error) {
	hits := []ChecklistItemHit{}
	if emptyScope(f) {
		return hits, nil
	}
	b := sq.Select(
		"checklist_items.id", "checklist_items.content", "checklist_items.is_completed",
		"checklists.name AS checklist_name",
		"cards.id AS card_id", "cards.title AS card_title", "board_columns.board_id",
	).From("checklist_items").
		Join("checklists ON checklists.id = checklist_items.checklist_id").
		Join("cards ON cards.id = checklists.card_id").
		Where("LOWER(checklist_items.content) LIKE ?", likePattern(f.Query))
	b = activeCards(b, f).
		OrderBy("checklist_items.id DESC").
		Limit(f.limit(GlobalSearchLimit))

	if err := r.run(ctx, b, &hits); err != nil {
		return nil, err
	}
	return hits, nil
}
