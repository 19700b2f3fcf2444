package users

import "sort"

// PrincipalRole is the single role carried by a principal, with its permission
// set materialized for in-memory checks.
type PrincipalRole struct {
	ID          int64
	Slug        string
	Name        string
	Permissions map[string]struct{}
}

// Principal is a user's authorization context for one request: the direct
// permission grants plus the optional role. It is rebuilt from storage on every
// authorization check; nothing is cached across requests, so a revocation takes
// effect on the very next check.
type Principal struct {
	UserID int64
	Name   string
	Email  string
	Active bool
	Direct map[string]struct{}
	Role   *PrincipalRole
}

// HasPermission reports whether the permission is granted directly or through
// the role. The direct set is consulted first; the role only on a miss.
func (p *Principal) HasPermission(permSlug string) bool {
	if p == nil {
		return false
	}
	if _, ok := p.Direct[permSlug]; ok {
		return true
	}
	if p.Role != nil {
		if _, ok := p.Role.Permissions[permSlug]; ok {
			return true
		}
	}
	return false
}

// HasAnyPermission reports whether at least one of the given permissions is
// granted. Defined as repeated HasPermission calls so the semantics stay the
// same with or without a role.
func (p *Principal) HasAnyPermission(slugs []string) bool {
	for _, s := range slugs {
		if p.HasPermission(s) {
			return true
		}
	}
	return false
}

// HasAllPermissions reports whether every one of the given permissions is
// granted. An empty requirement is trivially satisfied.
func (p *Principal) HasAllPermissions(slugs []string) bool {
	for _, s := range slugs {
		if !p.HasPermission(s) {
			return false
		}
	}
	return true
}

// HasRole reports whether the principal's role matches any of the given
// identifiers by slug or by name. A principal without a role never matches,
// and an empty identifier list never matches either.
func (p *Principal) HasRole(idents []string) bool {
	if p == nil || p.Role == nil {
		return false
	}
	for _, ident := range idents {
		if ident == "" {
			continue
		}
		if p.Role.Slug == ident || p.Role.Name == ident {
			return true
		}
	}
	return false
}

// EffectivePermissions returns the sorted union of direct and role-derived
// permission slugs.
func (p *Principal) EffectivePermissions() []string {
	if p == nil {
		return nil
	}
	set := make(map[string]struct{}, len(p.Direct))
	for s := range p.Direct {
		set[s] = struct{}{}
	}
	if p.Role != nil {
		for s := range p.Role.Permissions {
			set[s] = struct{}{}
		}
	}
	out := make([]string, 0, len(set))
	for s := range set {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// RoleSlug returns the slug of the principal's role, or empty.
func (p *Principal) RoleSlug() string {
	if p == nil || p.Role == nil {
		return ""
	}
	return p.Role.Slug
}
