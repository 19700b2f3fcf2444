package users

import (
	"reflect"
	"testing"
)

func principalFixture() *Principal {
	return &Principal{
		UserID: 7,
		Name:   "Editor",
		Email:  "editor@test.local",
		Active: true,
		Direct: map[string]struct{}{"edit-users": {}},
		Role: &PrincipalRole{
			ID:          3,
			Slug:        "editor",
			Name:        "Editor",
			Permissions: map[string]struct{}{"view-users": {}, "view-roles": {}},
		},
	}
}

func TestHasPermissionDirectAndRole(t *testing.T) {
	p := principalFixture()

	if !p.HasPermission("edit-users") {
		t.Fatalf("expected direct grant to match")
	}
	if !p.HasPermission("view-users") {
		t.Fatalf("expected role grant to match")
	}
	if p.HasPermission("delete-users") {
		t.Fatalf("expected miss for ungranted permission")
	}
}

func TestHasPermissionWithoutRole(t *testing.T) {
	p := principalFixture()
	p.Role = nil

	if !p.HasPermission("edit-users") {
		t.Fatalf("expected direct grant to survive missing role")
	}
	if p.HasPermission("view-users") {
		t.Fatalf("expected role grant to be gone")
	}
}

func TestHasAnyAndAllPermissions(t *testing.T) {
	p := principalFixture()

	if !p.HasAnyPermission([]string{"delete-users", "view-users"}) {
		t.Fatalf("expected any-of to pass on one hit")
	}
	if p.HasAnyPermission([]string{"delete-users", "delete-roles"}) {
		t.Fatalf("expected any-of to fail on all misses")
	}
	if !p.HasAllPermissions([]string{"edit-users", "view-users"}) {
		t.Fatalf("expected all-of to pass when every slug is granted")
	}
	if p.HasAllPermissions([]string{"edit-users", "delete-users"}) {
		t.Fatalf("expected all-of to fail on one miss")
	}
	if !p.HasAllPermissions(nil) {
		t.Fatalf("expected empty all-of to be trivially satisfied")
	}
}

func TestHasRoleMatchesSlugOrName(t *testing.T) {
	p := principalFixture()

	if !p.HasRole([]string{"editor"}) {
		t.Fatalf("expected slug match")
	}
	if !p.HasRole([]string{"Editor"}) {
		t.Fatalf("expected name match")
	}
	if p.HasRole([]string{"admin", "moderator"}) {
		t.Fatalf("expected no match for other roles")
	}
	if p.HasRole(nil) {
		t.Fatalf("expected empty identifier list to never match")
	}
	if p.HasRole([]string{""}) {
		t.Fatalf("expected blank identifier to be skipped")
	}

	p.Role = nil
	if p.HasRole([]string{"editor"}) {
		t.Fatalf("expected principal without role to never match")
	}
}

func TestEffectivePermissionsSortedUnion(t *testing.T) {
	p := principalFixture()
	// Overlap between direct and role grants must not duplicate.
	p.Direct["view-users"] = struct{}{}

	got := p.EffectivePermissions()
	want := []string{"edit-users", "view-roles", "view-users"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestNilPrincipalIsInert(t *testing.T) {
	var p *Principal

	if p.HasPermission("view-users") {
		t.Fatalf("expected nil principal to deny permissions")
	}
	if p.HasRole([]string{"admin"}) {
		t.Fatalf("expected nil principal to deny roles")
	}
	if got := p.EffectivePermissions(); got != nil {
		t.Fatalf("expected nil permissions, got %v", got)
	}
}

func TestUserActiveDefaultsOpen(t *testing.T) {
	u := User{}
	if !u.Active() {
		t.Fatalf("expected unset flag to count as active")
	}
	f := false
	u.IsActive = &f
	if u.Active() {
		t.Fatalf("expected explicit false to deactivate")
	}
}
