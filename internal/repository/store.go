// Package repository implements the data access layer for boards, cards and their satellites.
package repository

import (
	"context"

	"gorm.io/gorm"
)

// Store groups every repository over one connection or transaction.
type Store struct {
	db *gorm.DB

	Users       UserRepository
	Boards      BoardRepository
	Members     MemberRepository
	Columns     ColumnRepository
	Cards       CardRepository
	Appearances AppearanceRepository
	Labels      LabelRepository
	Comments    CommentRepository
	Checklists  ChecklistRepository
	Activities  ActivityRepository
	Tokens      TokenRepository
	Attachments AttachmentRepository
	Search      SearchRepository
}

// NewStore builds every repository over db.
func NewStore(db *gorm.DB) *Store {
	return &Store{
		db:          db,
		Users:       NewUserRepository(db),
		Boards:      NewBoardRepository(db),
		Members:     NewMemberRepository(db),
		Columns:     NewColumnRepository(db),
		Cards:       NewCardRepository(db),
		Appearances: NewAppearanceRepository(db),
		Labels:      NewLabelRepository(db),
		Comments:    NewCommentRepository(db),
		Checklists:  NewChecklistRepository(db),
		Activities:  NewActivityRepository(db),
		Tokens:      NewTokenRepository(db),
		Attachments: NewAttachmentRepository(db),
		Search:      NewSearchRepository(db),
	}
}

// DB exposes the underlying handle for health checks and tooling.
func (s *Store) DB() *gorm.DB {
	return s.db
}

// WithTx runs fn inside one transaction. Every repository on the Store passed to fn
// shares that transaction; a returned error rolls everything back.
func (s *Store) WithTx(ctx context.Context, fn func(tx *Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewStore(tx))
	})
}
