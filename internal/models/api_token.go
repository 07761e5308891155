package models

import (
	"strings"
	"time"
)

// AbilityAll grants every ability.
const AbilityAll = "*"

// APIToken is a hashed bearer credential for the external API.
type APIToken struct {
	ID         uint       `gorm:"primaryKey" json:"id"`
	UserID     uint       `gorm:"not null;index" json:"user_id"`
	User       *User      `gorm:"foreignKey:UserID" json:"-"`
	Name       string     `gorm:"size:255;not null" json:"name"`
	TokenHash  string     `gorm:"size:64;not null;uniqueIndex" json:"-"`
	Abilities  StringList `json:"abilities"`
	LastUsedAt *time.Time `json:"last_used_at"`
	ExpiresAt  *time.Time `json:"expires_at"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// TableName specifies the table name for GORM.
func (APIToken) TableName() string {
	return "user_api_tokens"
}

// Can reports whether the token grants ability. "*" grants everything and
// "scope:*" grants every ability under scope.
func (t *APIToken) Can(ability string) bool {
	for _, granted := range t.Abilities {
		if granted == AbilityAll || granted == ability {
			return true
		}
		if prefix, ok := strings.CutSuffix(granted, ":*"); ok && strings.HasPrefix(ability, prefix+":") {
			return true
		}
	}
	return false
}

// IsExpired reports whether the token expired before now.
func (t *APIToken) IsExpired(now time.Time) bool {
	return t.ExpiresAt != nil && t.ExpiresAt.Before(now)
}
