package models

import (
	"time"

	"gorm.io/gorm"
)

// MaxCardTitleLength bounds card titles.
const MaxCardTitleLength = 255

// Card is a unit of work living in exactly one home column.
type Card struct {
	ID                uint           `gorm:"primaryKey" json:"id"`
	ColumnID          uint           `gorm:"column:board_column_id;not null;index" json:"column_id"`
	Column            *Column        `gorm:"foreignKey:ColumnID" json:"-"`
	Title             string         `gorm:"size:255;not null" json:"title"`
	Description       *string        `gorm:"type:text" json:"description"`
	Order             int            `gorm:"column:order_column;not null;default:0" json:"order"`
	DueDate           *time.Time     `gorm:"type:date" json:"due_date"`
	CompletedAt       *time.Time     `json:"completed_at"`
	CreatedBy         *uint          `gorm:"index" json:"created_by"`
	Creator           *User          `gorm:"foreignKey:CreatedBy" json:"creator,omitempty"`
	EstimatedHours    *float64       `gorm:"type:decimal(10,2)" json:"estimated_hours"`
	EstimatedCost     *float64       `gorm:"type:decimal(12,2)" json:"estimated_cost"`
	ActualHours       *float64       `gorm:"type:decimal(10,2)" json:"actual_hours"`
	ActualCost        *float64       `gorm:"type:decimal(12,2)" json:"actual_cost"`
	CoverAttachmentID *uint          `json:"cover_attachment_id"`
	Labels            []Label        `gorm:"many2many:card_labels;" json:"labels,omitempty"`
	Assignees         []User         `gorm:"many2many:card_users;" json:"assignees,omitempty"`
	Checklists        []Checklist    `gorm:"foreignKey:CardID;constraint:OnDelete:CASCADE" json:"checklists,omitempty"`
	Attachments       []Attachment   `gorm:"foreignKey:CardID;constraint:OnDelete:CASCADE" json:"attachments,omitempty"`
	Appearances       []Appearance   `gorm:"foreignKey:CardID;constraint:OnDelete:CASCADE" json:"-"`
	CreatedAt         time.Time      `json:"created_at"`
	UpdatedAt         time.Time      `json:"updated_at"`
	DeletedAt         gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

// Lifecycle returns the archive state of the card.
func (c *Card) Lifecycle() Lifecycle {
	return LifecycleOf(c.DeletedAt)
}

// Appearance places a card in a column other than its home column.
type Appearance struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	ColumnID  uint      `gorm:"column:board_column_id;not null;uniqueIndex:idx_card_appearances_column_card" json:"column_id"`
	Column    *Column   `gorm:"foreignKey:ColumnID" json:"-"`
	CardID    uint      `gorm:"not null;uniqueIndex:idx_card_appearances_column_card;index" json:"card_id"`
	Card      *Card     `gorm:"foreignKey:CardID" json:"-"`
	Order     int       `gorm:"column:order_column;not null;default:0" json:"order"`
	CreatedBy *uint     `json:"created_by"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName specifies the table name for GORM.
func (Appearance) TableName() string {
	return "card_appearances"
}

// Attachment is the metadata of a file stored by the external media service.
type Attachment struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CardID    uint      `gorm:"not null;index" json:"card_id"`
	FileName  string    `gorm:"size:255;not null" json:"file_name"`
	URL       string    `gorm:"size:1000;not null" json:"url"`
	MimeType  string    `gorm:"size:255" json:"mime_type"`
	Size      int64     `json:"size"`
	CreatedBy *uint     `json:"created_by"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
