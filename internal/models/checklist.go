package models

import "time"

type Checklist struct {
	ID        uint            `gorm:"primaryKey" json:"id"`
	CardID    uint            `gorm:"not null;index" json:"card_id"`
	Name      string          `gorm:"size:255;not null" json:"name"`
	Items     []ChecklistItem `gorm:"foreignKey:ChecklistID;constraint:OnDelete:CASCADE" json:"items"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

type ChecklistItem struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	ChecklistID uint      `gorm:"not null;index" json:"checklist_id"`
	Content     string    `gorm:"type:text;not null" json:"content"`
	IsCompleted bool      `gorm:"not null;default:false" json:"is_completed"`
	Position    int       `gorm:"not null;default:0" json:"position"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
