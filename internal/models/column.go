package models

import (
	"time"

	"gorm.io/gorm"
)

// Column is an ordered list of cards within a board.
type Column struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	BoardID   uint           `gorm:"not null;index" json:"board_id"`
	Board     *Board         `gorm:"foreignKey:BoardID" json:"-"`
	Name      string         `gorm:"size:255;not null" json:"name"`
	Slug      string         `gorm:"size:255;not null" json:"slug"`
	Order     int            `gorm:"column:order_column;not null;default:0" json:"order"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

// TableName specifies the table name for GORM.
func (Column) TableName() string {
	return "board_columns"
}

// Lifecycle returns the archive state of the column.
func (c *Column) Lifecycle() Lifecycle {
	return LifecycleOf(c.DeletedAt)
}
