package roles

import (
	"time"

	"github.com/aegis-admin/aegis/internal/permissions"
)

// ProtectedSlug names the role that can never be deleted.
const ProtectedSlug = "admin"

// DefaultSlug names the role assigned to self-registered users.
const DefaultSlug = "user"

// Role represents a named grouping of permissions. The slug is derived from
// the name at creation and stays fixed for the lifetime of the role.
type Role struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Slug        string    `json:"slug"`
	Description *string   `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Protected reports whether the role is exempt from deletion.
func (r Role) Protected() bool {
	return r.Slug == ProtectedSlug
}

// Detail is a role with its permission set and assignment count loaded.
type Detail struct {
	Role
	Permissions []permissions.Permission `json:"permissions"`
	UserCount   int                      `json:"user_count"`
}
