// Package access resolves a user's effective role on a board and enforces the board policy table.
package access

import (
	"context"
	"fmt"

	"projectboard/internal/models"
)

// Permissions is the capability surface the host user exposes to the board core.
type Permissions interface {
	HasGlobalBoardAccess() bool
	RoleOverride() *models.BoardRole
}

// Principal is an authenticated user as seen by the resolver.
type Principal interface {
	Permissions
	PrincipalID() uint
}

// UserDirectory looks up and searches host users.
type UserDirectory interface {
	FindByID(ctx context.Context, id uint) (*models.User, error)
	Search(ctx context.Context, query string, limit int) ([]models.User, error)
}

// Memberships reads explicit board membership rows.
type Memberships interface {
	RoleFor(ctx context.Context, boardID, userID uint) (models.BoardRole, error)
	BoardIDsFor(ctx context.Context, userID uint) ([]uint, error)
}

// Action is a guarded board operation.
type Action string

const (
	ViewBoard        Action = "view board"
	EditCards        Action = "edit cards"
	CreateColumn     Action = "create columns"
	ManageColumns    Action = "manage columns"
	ManageBoard      Action = "manage this board"
	Comment          Action = "comment"
	ManageMembers    Action = "manage members"
	ManageMirrors    Action = "manage mirrors"
	ManageLabels     Action = "manage labels"
	ManageChecklists Action = "manage checklists"
)

var policy = map[Action]models.BoardRole{
	ViewBoard:        models.BoardRoleViewer,
	Comment:          models.BoardRoleViewer,
	EditCards:        models.BoardRoleMember,
	CreateColumn:     models.BoardRoleMember,
	ManageMirrors:    models.BoardRoleMember,
	ManageLabels:     models.BoardRoleMember,
	ManageChecklists: models.BoardRoleMember,
	ManageColumns:    models.BoardRoleAdmin,
	ManageBoard:      models.BoardRoleAdmin,
	ManageMembers:    models.BoardRoleAdmin,
}

// RequiredRole returns the minimum role for action. Unknown actions require admin.
func RequiredRole(action Action) models.BoardRole {
	if role, ok := policy[action]; ok {
		return role
	}
	return models.BoardRoleAdmin
}

// Scope is the set of boards a user can see. All is set for global access.
type Scope struct {
	All      bool
	BoardIDs []uint
}

// Includes reports whether boardID is within the scope.
func (s Scope) Includes(boardID uint) bool {
	if s.All {
		return true
	}
	for _, id := range s.BoardIDs {
		if id == boardID {
			return true
		}
	}
	return false
}

// Resolver computes effective roles from global capabilities, host overrides and membership rows.
type Resolver struct {
	members Memberships
}

// NewResolver creates a Resolver backed by members.
func NewResolver(members Memberships) *Resolver {
	return &Resolver{members: members}
}

// RoleOf returns the user's effective role on the board.
// Global access wins over any membership row, then the host override, then the row itself.
func (r *Resolver) RoleOf(ctx context.Context, user Principal, boardID uint) (models.BoardRole, error) {
	if user == nil || user.PrincipalID() == 0 {
		return models.BoardRoleNone, nil
	}
	if user.HasGlobalBoardAccess() {
		return models.BoardRoleAdmin, nil
	}
	if override := user.RoleOverride(); override != nil {
		return *override, nil
	}
	return r.members.RoleFor(ctx, boardID, user.PrincipalID())
}

// CanAccess reports whether the user has any role on the board.
func (r *Resolver) CanAccess(ctx context.Context, user Principal, boardID uint) (bool, error) {
	role, err := r.RoleOf(ctx, user, boardID)
	if err != nil {
		return false, err
	}
	return role != models.BoardRoleNone, nil
}

// Authorize returns the user's role when it satisfies action, and a Forbidden error otherwise.
func (r *Resolver) Authorize(ctx context.Context, user Principal, boardID uint, action Action) (models.BoardRole, error) {
	role, err := r.RoleOf(ctx, user, boardID)
	if err != nil {
		return models.BoardRoleNone, err
	}
	if !role.AtLeast(RequiredRole(action)) {
		if role == models.BoardRoleNone {
			return role, models.NewForbiddenError("You do not have access to this board")
		}
		return role, models.NewForbiddenError(fmt.Sprintf("You do not have permission to %s", action))
	}
	return role, nil
}

// Scope lists the boards visible to the user. Global access and host overrides see every board.
func (r *Resolver) Scope(ctx context.Context, user Principal) (Scope, error) {
	if user == nil || user.PrincipalID() == 0 {
		return Scope{}, nil
	}
	if user.HasGlobalBoardAccess() || user.RoleOverride() != nil {
		return Scope{All: true}, nil
	}
	ids, err := r.members.BoardIDsFor(ctx, user.PrincipalID())
	if err != nil {
		return Scope{}, err
	}
	return Scope{BoardIDs: ids}, nil
}
