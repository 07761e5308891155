package models

import "time"

// BoardRole defines a member's role on a board.
type BoardRole string

const (
	// BoardRoleAdmin manages columns, members and the board itself.
	BoardRoleAdmin BoardRole = "admin"
	// BoardRoleMember edits cards.
	BoardRoleMember BoardRole = "member"
	// BoardRoleViewer reads and comments.
	BoardRoleViewer BoardRole = "viewer"
	// BoardRoleNone means no access.
	BoardRoleNone BoardRole = ""
)

// Valid reports whether r is one of the assignable roles.
func (r BoardRole) Valid() bool {
	switch r {
	case BoardRoleAdmin, BoardRoleMember, BoardRoleViewer:
		return true
	}
	return false
}

func (r BoardRole) rank() int {
	switch r {
	case BoardRoleAdmin:
		return 3
	case BoardRoleMember:
		return 2
	case BoardRoleViewer:
		return 1
	}
	return 0
}

// AtLeast reports whether r grants everything min grants.
func (r BoardRole) AtLeast(min BoardRole) bool {
	return r.rank() > 0 && r.rank() >= min.rank()
}

// BoardMember maps users to boards and tracks role.
type BoardMember struct {
	BoardID   uint      `gorm:"primaryKey;autoIncrement:false" json:"board_id"`
	Board     *Board    `gorm:"foreignKey:BoardID;constraint:OnDelete:CASCADE" json:"-"`
	UserID    uint      `gorm:"primaryKey;autoIncrement:false" json:"user_id"`
	User      *User     `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Role      BoardRole `gorm:"type:varchar(20);not null;default:'member'" json:"role"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName specifies the table name for GORM.
func (BoardMember) TableName() string {
	return "board_members"
}
