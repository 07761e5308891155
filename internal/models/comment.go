package models

import "time"

// CommentableCard is the commentable type tag for cards.
const CommentableCard = "card"

// Comment is a threaded remark attached to a commentable entity.
type Comment struct {
	ID              uint              `gorm:"primaryKey" json:"id"`
	CommentableType string            `gorm:"size:255;not null;index:idx_comments_commentable" json:"commentable_type"`
	CommentableID   uint              `gorm:"not null;index:idx_comments_commentable" json:"commentable_id"`
	Content         string            `gorm:"type:text;not null" json:"content"`
	UserID          uint              `gorm:"not null;index" json:"user_id"`
	User            *User             `gorm:"foreignKey:UserID" json:"user,omitempty"`
	ParentID        *uint             `gorm:"index" json:"parent_id"`
	Replies         []Comment         `gorm:"foreignKey:ParentID;constraint:OnDelete:CASCADE" json:"replies,omitempty"`
	Reactions       []CommentReaction `gorm:"foreignKey:CommentID;constraint:OnDelete:CASCADE" json:"reactions"`
	CreatedAt       time.Time         `json:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at"`
}

// CommentReaction is one user's emoji on a comment.
type CommentReaction struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CommentID uint      `gorm:"not null;index" json:"comment_id"`
	UserID    uint      `gorm:"not null;index" json:"user_id"`
	User      *User     `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Emoji     string    `gorm:"size:32;not null" json:"emoji"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
