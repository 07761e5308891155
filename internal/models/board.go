package models

import (
	"fmt"
	"time"
)

// OwnerRef is a tagged reference to an arbitrary owning entity.
type OwnerRef struct {
	Type string `json:"type"`
	ID   uint   `json:"id"`
}

func (r OwnerRef) String() string {
	return fmt.Sprintf("%s:%d", r.Type, r.ID)
}

// Board is the top-level container of columns.
type Board struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	Name            string    `gorm:"size:255;not null" json:"name"`
	BoardableType   *string   `gorm:"size:255;index:idx_boards_boardable" json:"boardable_type"`
	BoardableID     *uint     `gorm:"index:idx_boards_boardable" json:"boardable_id"`
	BackgroundURL   *string   `gorm:"size:500" json:"background_url"`
	BackgroundColor *string   `gorm:"size:20" json:"background_color"`
	Columns         []Column  `gorm:"foreignKey:BoardID;constraint:OnDelete:CASCADE" json:"columns,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// Owner returns the polymorphic owner reference, or nil when the board is unowned.
func (b *Board) Owner() *OwnerRef {
	if b.BoardableType == nil || b.BoardableID == nil || *b.BoardableType == "" {
		return nil
	}
	return &OwnerRef{Type: *b.BoardableType, ID: *b.BoardableID}
}

// SetOwner replaces the owner reference. A nil ref detaches the board.
func (b *Board) SetOwner(ref *OwnerRef) {
	if ref == nil {
		b.BoardableType = nil
		b.BoardableID = nil
		return
	}
	t, id := ref.Type, ref.ID
	b.BoardableType = &t
	b.BoardableID = &id
}
