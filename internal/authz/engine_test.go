package authz

import (
	"net/http"
	"testing"

	"github.com/aegis-admin/aegis/internal/users"
)

func activePrincipal() *users.Principal {
	return &users.Principal{
		UserID: 1,
		Active: true,
		Direct: map[string]struct{}{"edit-users": {}},
		Role: &users.PrincipalRole{
			Slug:        "editor",
			Name:        "Editor",
			Permissions: map[string]struct{}{"view-users": {}},
		},
	}
}

func TestEvaluateMissingPrincipal(t *testing.T) {
	verdict := Evaluate(nil, Requirement{Permissions: []string{"view-users"}})
	if verdict.Allowed {
		t.Fatalf("expected deny")
	}
	if verdict.Reason != DenyUnauthenticated {
		t.Fatalf("expected unauthenticated, got %s", verdict.Reason)
	}
}

func TestEvaluateInactiveShortCircuits(t *testing.T) {
	p := activePrincipal()
	p.Active = false

	// Role and permission would both pass; the active check must win.
	verdict := Evaluate(p, Requirement{Roles: []string{"editor"}, Permissions: []string{"view-users"}})
	if verdict.Reason != DenyAccountInactive {
		t.Fatalf("expected inactive denial, got %s", verdict.Reason)
	}
}

func TestEvaluateRoleBeforePermission(t *testing.T) {
	p := activePrincipal()

	verdict := Evaluate(p, Requirement{Roles: []string{"admin"}, Permissions: []string{"view-users"}})
	if verdict.Reason != DenyInsufficientRole {
		t.Fatalf("expected role denial to precede permission check, got %s", verdict.Reason)
	}
}

func TestEvaluatePermissionModes(t *testing.T) {
	p := activePrincipal()

	if v := Evaluate(p, Requirement{Permissions: []string{"delete-users", "view-users"}}); !v.Allowed {
		t.Fatalf("expected any-of to pass: %s", v.Reason)
	}
	v := Evaluate(p, Requirement{Permissions: []string{"delete-users", "view-users"}, Mode: ModeAll})
	if v.Allowed || v.Reason != DenyInsufficientPermission {
		t.Fatalf("expected all-of to fail with permission denial, got %+v", v)
	}
	if v := Evaluate(p, Requirement{Permissions: []string{"edit-users", "view-users"}, Mode: ModeAll}); !v.Allowed {
		t.Fatalf("expected all-of to pass: %s", v.Reason)
	}
}

func TestEvaluateDirectGrantSuffices(t *testing.T) {
	p := activePrincipal()
	p.Role = nil

	if v := Evaluate(p, Requirement{Permissions: []string{"edit-users"}}); !v.Allowed {
		t.Fatalf("expected direct grant to pass without a role: %s", v.Reason)
	}
}

func TestEvaluateZeroRequirement(t *testing.T) {
	if v := Evaluate(activePrincipal(), Requirement{}); !v.Allowed {
		t.Fatalf("expected authenticated active principal to pass: %s", v.Reason)
	}
	if v := Evaluate(nil, Requirement{}); v.Allowed {
		t.Fatalf("expected missing principal to fail even a zero requirement")
	}
}

func TestStatusFor(t *testing.T) {
	cases := map[DenyReason]int{
		DenyUnauthenticated:        http.StatusUnauthorized,
		DenyAccountInactive:        http.StatusUnauthorized,
		DenyInsufficientRole:       http.StatusForbidden,
		DenyInsufficientPermission: http.StatusForbidden,
	}
	for reason, want := range cases {
		if got := StatusFor(reason); got != want {
			t.Fatalf("%s: expected %d, got %d", reason, want, got)
		}
	}
}

func TestParsePermissionSpec(t *testing.T) {
	req := ParsePermissionSpec("edit-users|delete-users")
	if len(req.Permissions) != 2 || req.Mode != ModeAny {
		t.Fatalf("expected two any-of permissions, got %+v", req)
	}

	req = ParsePermissionSpec("edit-users|delete-users|all")
	if len(req.Permissions) != 2 || req.Mode != ModeAll {
		t.Fatalf("expected all-of mode, got %+v", req)
	}

	req = ParsePermissionSpec("view-users|any")
	if len(req.Permissions) != 1 || req.Mode != ModeAny {
		t.Fatalf("expected explicit any-of, got %+v", req)
	}

	req = ParsePermissionSpec(" view-users | view-roles ")
	if req.Permissions[0] != "view-users" || req.Permissions[1] != "view-roles" {
		t.Fatalf("expected trimmed entries, got %+v", req.Permissions)
	}
}

func TestParseRoleSpec(t *testing.T) {
	req := ParseRoleSpec("admin, moderator")
	if len(req.Roles) != 2 || req.Roles[1] != "moderator" {
		t.Fatalf("expected two roles, got %+v", req.Roles)
	}
}
