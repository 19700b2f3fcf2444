package authz

import (
	"net/http"

	"github.com/aegis-admin/aegis/internal/users"
)

// DenyReason classifies why a requirement was not met.
type DenyReason string

const (
	DenyUnauthenticated        DenyReason = "unauthenticated"
	DenyAccountInactive        DenyReason = "account_inactive"
	DenyInsufficientRole       DenyReason = "insufficient_role"
	DenyInsufficientPermission DenyReason = "insufficient_permission"
)

// Verdict is the outcome of evaluating a requirement against a principal.
type Verdict struct {
	Allowed bool
	Reason  DenyReason
}

var allow = Verdict{Allowed: true}

func deny(reason DenyReason) Verdict {
	return Verdict{Reason: reason}
}

// Evaluate runs the fixed decision order: principal presence, account
// active, role membership, then permission possession. The first failing
// check decides the verdict; later checks are not consulted.
func Evaluate(principal *users.Principal, req Requirement) Verdict {
	if principal == nil {
		return deny(DenyUnauthenticated)
	}
	if !principal.Active {
		return deny(DenyAccountInactive)
	}
	if len(req.Roles) > 0 && !principal.HasRole(req.Roles) {
		return deny(DenyInsufficientRole)
	}
	if len(req.Permissions) > 0 {
		switch req.Mode {
		case ModeAll:
			if !principal.HasAllPermissions(req.Permissions) {
				return deny(DenyInsufficientPermission)
			}
		default:
			if !principal.HasAnyPermission(req.Permissions) {
				return deny(DenyInsufficientPermission)
			}
		}
	}
	return allow
}

// StatusFor maps a deny reason to its HTTP status. Authentication failures
// map to 401, authorization failures to 403.
func StatusFor(reason DenyReason) int {
	switch reason {
	case DenyUnauthenticated, DenyAccountInactive:
		return http.StatusUnauthorized
	default:
		return http.StatusForbidden
	}
}
