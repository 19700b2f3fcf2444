package authz

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"log/slog"

	"github.com/aegis-admin/aegis/internal/observability"
	"github.com/aegis-admin/aegis/internal/platform/httpx"
	"github.com/aegis-admin/aegis/internal/shared"
	"github.com/aegis-admin/aegis/internal/users"
)

type principalContextKey struct{}

// ContextWithPrincipal attaches a loaded principal to the context.
func ContextWithPrincipal(ctx context.Context, p *users.Principal) context.Context {
	return context.WithValue(ctx, principalContextKey{}, p)
}

// PrincipalFromContext returns the principal the gate loaded for this
// request, or nil outside a gated route.
func PrincipalFromContext(ctx context.Context) *users.Principal {
	p, _ := ctx.Value(principalContextKey{}).(*users.Principal)
	return p
}

// PrincipalLoader materializes the authorization context for a user ID.
type PrincipalLoader interface {
	LoadPrincipal(ctx context.Context, userID int64) (*users.Principal, error)
}

// Gate wires requirement evaluation into the HTTP stack. Every gated route
// loads the principal fresh, so role and permission changes apply to the
// very next request.
type Gate struct {
	Loader   PrincipalLoader
	Sessions *shared.SessionManager
	Logger   *slog.Logger
	Metrics  *observability.Metrics
}

// Require gates a route on the given requirement.
func (g Gate) Require(req Requirement) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, sess := g.currentPrincipal(r)
			verdict := Evaluate(principal, req)
			if !verdict.Allowed {
				g.deny(w, r, sess, verdict)
				return
			}
			ctx := ContextWithPrincipal(r.Context(), principal)
			ctx = shared.ContextWithActorID(ctx, principal.UserID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAuthenticated gates a route on presence of an active principal only.
func (g Gate) RequireAuthenticated() func(http.Handler) http.Handler {
	return g.Require(Requirement{})
}

// RequirePermissions gates a route on a pipe-delimited permission spec,
// e.g. "edit-users|delete-users" or "edit-users|delete-users|all".
func (g Gate) RequirePermissions(spec string) func(http.Handler) http.Handler {
	return g.Require(ParsePermissionSpec(spec))
}

// RequireRoles gates a route on a comma-delimited role identifier spec,
// e.g. "admin,moderator".
func (g Gate) RequireRoles(spec string) func(http.Handler) http.Handler {
	return g.Require(ParseRoleSpec(spec))
}

func (g Gate) currentPrincipal(r *http.Request) (*users.Principal, *shared.Session) {
	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		return nil, nil
	}
	raw := strings.TrimSpace(sess.User())
	if raw == "" {
		return nil, sess
	}
	userID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		if g.Logger != nil {
			g.Logger.Error("authz parse user id", slog.String("value", raw))
		}
		return nil, sess
	}
	principal, err := g.Loader.LoadPrincipal(r.Context(), userID)
	if err != nil {
		if g.Logger != nil {
			g.Logger.Error("authz load principal", slog.Int64("user_id", userID), slog.Any("error", err))
		}
		return nil, sess
	}
	return principal, sess
}

func (g Gate) deny(w http.ResponseWriter, r *http.Request, sess *shared.Session, verdict Verdict) {
	// A deactivated account keeps no credentials: the stale session is
	// destroyed before the response goes out.
	if verdict.Reason == DenyAccountInactive && sess != nil && g.Sessions != nil {
		g.Sessions.Destroy(sess)
	}
	g.Metrics.CountDenial(string(verdict.Reason))
	status := StatusFor(verdict.Reason)
	httpx.Problem(w, status, http.StatusText(status), denyDetail(verdict.Reason))
}

func denyDetail(reason DenyReason) string {
	switch reason {
	case DenyUnauthenticated:
		return "Authentication required."
	case DenyAccountInactive:
		return "Your account has been deactivated."
	case DenyInsufficientRole:
		return "You do not have the required role."
	case DenyInsufficientPermission:
		return "You do not have the required permission."
	default:
		return "Access denied."
	}
}
