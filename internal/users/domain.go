package users

import "time"

// User represents a user account (principal).
type User struct {
	ID           int64      `json:"id"`
	Name         string     `json:"name"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"`
	RoleID       *int64     `json:"role_id,omitempty"`
	IsActive     *bool      `json:"is_active,omitempty"`
	LastLoginAt  *time.Time `json:"last_login_at,omitempty"`
	LastLoginIP  *string    `json:"last_login_ip,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// Active reports whether the account may authenticate and authorize. A nil
// flag counts as active: accounts predating the flag stay usable.
func (u User) Active() bool {
	return u.IsActive == nil || *u.IsActive
}
