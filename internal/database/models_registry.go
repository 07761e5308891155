package database

import "projectboard/internal/models"

// PersistentModels returns the authoritative set of schema-managed GORM models.
// Order matters for AutoMigrate: referenced tables come first.
func PersistentModels() []any {
	return []any{
		&models.User{},
		&models.Board{},
		&models.BoardMember{},
		&models.Column{},
		&models.Label{},
		&models.Card{},
		&models.Appearance{},
		&models.Attachment{},
		&models.Checklist{},
		&models.ChecklistItem{},
		&models.Comment{},
		&models.CommentReaction{},
		&models.Activity{},
		&models.APIToken{},
	}
}
