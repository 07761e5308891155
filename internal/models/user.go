package models

import "time"

// User is the host application's account as seen by the board core.
type User struct {
	ID                 uint       `gorm:"primaryKey" json:"id"`
	Name               string     `gorm:"size:255;not null;index" json:"name"`
	Email              string     `gorm:"size:255;not null;uniqueIndex" json:"email"`
	Password           string     `gorm:"size:255" json:"-"`
	IsAdmin            bool       `gorm:"not null;default:false" json:"is_admin"`
	CanAccessAllBoards bool       `gorm:"not null;default:false" json:"-"`
	BoardRoleOverride  *BoardRole `gorm:"type:varchar(20)" json:"-"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

// HasGlobalBoardAccess reports whether the user sees every board as an admin.
func (u *User) HasGlobalBoardAccess() bool {
	if u == nil {
		return false
	}
	return u.IsAdmin || u.CanAccessAllBoards
}

// RoleOverride returns a host-imposed role that applies to every board, if any.
func (u *User) RoleOverride() *BoardRole {
	if u == nil || u.BoardRoleOverride == nil || !u.BoardRoleOverride.Valid() {
		return nil
	}
	return u.BoardRoleOverride
}

// PrincipalID identifies the user to the access resolver.
func (u *User) PrincipalID() uint {
	if u == nil {
		return 0
	}
	return u.ID
}
