// Package users manages user accounts: invitation, role changes, per-user
// permission overrides and activation state, with the administrative
// invariants enforced at commit time.
package users

import (
	"time"

	"github.com/opsdeck/opsdeck/internal/permissions"
)

// User is a stored account record. Version increments on every mutation and
// guards concurrent edits.
type User struct {
	ID                int64
	Email             string
	FullName          string
	Role              permissions.Role
	IsActive          bool
	CustomPermissions []permissions.Key
	PasswordHash      string
	Version           int64
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// Grant builds the authorization snapshot for this record. Overrides are
// carried for every role; the resolver ignores them for admins.
func (u User) Grant() permissions.Grant {
	return permissions.Grant{
		Role:      u.Role,
		Active:    u.IsActive,
		Overrides: u.CustomPermissions,
	}
}

// NewUser is the payload for creating an account.
type NewUser struct {
	Email             string
	FullName          string
	Role              permissions.Role
	IsActive          bool
	CustomPermissions []permissions.Key
	PasswordHash      string
}

// Patch describes a partial mutation. Nil fields stay untouched.
type Patch struct {
	Role              *permissions.Role
	IsActive          *bool
	CustomPermissions *[]permissions.Key
	PasswordHash      *string
}
