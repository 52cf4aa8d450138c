package models

import "fmt"

type Role string

const (
	RoleNone   Role = "none"
	RoleViewer Role = "viewer"
	RoleEditor Role = "editor"
	RoleOwner  Role = "owner"
)

func (r Role) level() int {
	switch r {
	case RoleViewer:
		return 1
	case RoleEditor:
		return 2
	case RoleOwner:
		return 3
	default:
		return 0
	}
}

// AtLeast reports whether r grants everything other grants.
func (r Role) AtLeast(other Role) bool {
	return r.level() >= other.level()
}

// MaxRole returns the more permissive of a and b.
func MaxRole(a, b Role) Role {
	if b.level() > a.level() {
		return b
	}
	return a
}

// ParseShareRole accepts only the roles a Share row may carry.
func ParseShareRole(value string) (Role, error) {
	switch Role(value) {
	case RoleViewer, RoleEditor:
		return Role(value), nil
	default:
		return "", fmt.Errorf("invalid share role %q", value)
	}
}

type Action string

const (
	ActionRead    Action = "read"
	ActionCreate  Action = "create"
	ActionRename  Action = "rename"
	ActionMove    Action = "move"
	ActionDelete  Action = "delete"
	ActionRestore Action = "restore"
	ActionPurge   Action = "purge"
	ActionShare   Action = "share"
	ActionRevert  Action = "revert"
)

// RequiredRole is the minimum role that may perform the action.
func (a Action) RequiredRole() Role {
	switch a {
	case ActionRead:
		return RoleViewer
	case ActionCreate, ActionRename, ActionMove:
		return RoleEditor
	case ActionDelete, ActionRestore, ActionPurge, ActionShare, ActionRevert:
		return RoleOwner
	default:
		return RoleOwner
	}
}

func (r Role) Permits(a Action) bool {
	if r == RoleNone {
		return false
	}
	return r.AtLeast(a.RequiredRole())
}
