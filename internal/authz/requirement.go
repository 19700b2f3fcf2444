// Package authz evaluates access requirements against a loaded principal and
// exposes the HTTP gate middleware built on that evaluation.
package authz

import "strings"

// Mode selects how a multi-permission requirement combines its entries.
type Mode int

const (
	// ModeAny passes when the principal holds at least one listed permission.
	ModeAny Mode = iota
	// ModeAll passes only when the principal holds every listed permission.
	ModeAll
)

// Requirement is a declarative access rule attached to a route. A zero
// Requirement only demands an authenticated, active principal.
type Requirement struct {
	Permissions []string
	Mode        Mode
	Roles       []string
}

// ParsePermissionSpec reads a pipe-delimited permission list with an optional
// trailing mode flag, e.g. "edit-users|delete-users" or
// "edit-users|delete-users|all". The default mode is any-of.
func ParsePermissionSpec(spec string) Requirement {
	parts := splitClean(spec, "|")
	mode := ModeAny
	if n := len(parts); n > 0 {
		switch strings.ToLower(parts[n-1]) {
		case "all":
			mode = ModeAll
			parts = parts[:n-1]
		case "any":
			parts = parts[:n-1]
		}
	}
	return Requirement{Permissions: parts, Mode: mode}
}

// ParseRoleSpec reads a comma-delimited role identifier list, e.g.
// "admin,moderator". Each entry may be a role slug or display name.
func ParseRoleSpec(spec string) Requirement {
	return Requirement{Roles: splitClean(spec, ",")}
}

func splitClean(spec, sep string) []string {
	raw := strings.Split(spec, sep)
	out := make([]string, 0, len(raw))
	for _, part := range raw {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
