package models

import (
	"time"

	"gorm.io/datatypes"
)

// ActivityType classifies an audit entry.
type ActivityType string

const (
	ActivityCreated       ActivityType = "created"
	ActivityUpdated       ActivityType = "updated"
	ActivityMoved         ActivityType = "moved"
	ActivityCommented     ActivityType = "commented"
	ActivityAssigned      ActivityType = "assigned"
	ActivityUnassigned    ActivityType = "unassigned"
	ActivityLabeled       ActivityType = "labeled"
	ActivityUnlabeled     ActivityType = "unlabeled"
	ActivityArchived      ActivityType = "archived"
	ActivityRestored      ActivityType = "restored"
	ActivityMirrored      ActivityType = "mirrored"
	ActivityMirrorRemoved ActivityType = "mirror_removed"
	ActivityImported      ActivityType = "imported"
)

// Activity is an immutable audit entry for a card.
type Activity struct {
	ID        uint              `gorm:"primaryKey" json:"id"`
	CardID    uint              `gorm:"not null;index" json:"card_id"`
	UserID    *uint             `gorm:"index" json:"user_id"`
	User      *User             `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Type      ActivityType      `gorm:"type:varchar(32);not null;index" json:"type"`
	Text      string            `gorm:"type:text;not null" json:"text"`
	Payload   datatypes.JSONMap `json:"payload,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}
