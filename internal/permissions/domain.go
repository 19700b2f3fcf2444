package permissions

import "time"

// Permission represents an atomic capability identified by its slug.
type Permission struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Slug        string    `json:"slug"`
	Group       *string   `json:"group,omitempty"`
	Description *string   `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Group bundles permissions sharing a category tag. The tag partitions the
// catalog for display only; it plays no part in access decisions.
type Group struct {
	Name        string       `json:"name"`
	Permissions []Permission `json:"permissions"`
}
