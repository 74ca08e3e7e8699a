package models

import "fmt"

// Role is the closed set of account roles.
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleManager  Role = "manager"
	RoleEmployee Role = "employee"
)

// ParseRole converts a raw string into a Role.
func ParseRole(raw string) (Role, error) {
	switch r := Role(raw); r {
	case RoleAdmin, RoleManager, RoleEmployee:
		return r, nil
	default:
		return "", fmt.Errorf("unknown role %q", raw)
	}
}

// CanReview reports whether the role may approve or reject retroactive requests.
func (r Role) CanReview() bool {
	switch r {
	case RoleAdmin, RoleManager:
		return true
	case RoleEmployee:
		return false
	default:
		return false
	}
}

// CanManageUsers reports whether the role may create, edit, and delete accounts.
func (r Role) CanManageUsers() bool {
	switch r {
	case RoleAdmin:
		return true
	case RoleManager, RoleEmployee:
		return false
	default:
		return false
	}
}

// CanManageSettings reports whether the role may change attendance settings or trigger a sweep.
func (r Role) CanManageSettings() bool {
	switch r {
	case RoleAdmin:
		return true
	case RoleManager, RoleEmployee:
		return false
	default:
		return false
	}
}

// CanViewAll reports whether the role may read other users' entries, stats, and exports.
func (r Role) CanViewAll() bool {
	switch r {
	case RoleAdmin, RoleManager:
		return true
	case RoleEmployee:
		return false
	default:
		return false
	}
}

// TracksAttendance reports whether users of this role are expected to submit daily entries.
func (r Role) TracksAttendance() bool {
	switch r {
	case RoleEmployee:
		return true
	case RoleAdmin, RoleManager:
		return false
	default:
		return false
	}
}
