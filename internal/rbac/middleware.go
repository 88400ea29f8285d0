package rbac

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/shapeup-labs/shapeup/internal/platform/httpx"
	"github.com/shapeup-labs/shapeup/internal/shared"
)

// Middleware wires the authorization engine into HTTP route guards.
type Middleware struct {
	Engine *Engine
	Logger *slog.Logger
}

// RequireAuthenticated admits any signed-in subject.
func (m Middleware) RequireAuthenticated() func(http.Handler) http.Handler {
	return m.require(Requirement{}, "")
}

// RequirePermissions admits subjects whose resolved permission set
// intersects the given IDs.
func (m Middleware) RequirePermissions(permissionIDs ...string) func(http.Handler) http.Handler {
	return m.require(Requirement{Permissions: permissionIDs}, "You do not have the permissions required for this section.")
}

// RequireGrants admits subjects holding any of the given grant IDs.
// This is the role/group co-membership check; permission checks are
// preferred for new routes.
func (m Middleware) RequireGrants(grantIDs ...string) func(http.Handler) http.Handler {
	return m.require(Requirement{Grants: grantIDs}, "You must belong to one of the required groups for this section.")
}

func (m Middleware) require(req Requirement, reason string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sub := shared.SubjectFromContext(r.Context())
			err := m.Engine.Authorize(r.Context(), sub, req)
			switch {
			case err == nil:
				next.ServeHTTP(w, r)
			case errors.Is(err, ErrUnauthenticated):
				httpx.Problem(w, http.StatusUnauthorized, "Unauthenticated", "Sign in to access this section.")
			default:
				if m.Logger != nil {
					m.Logger.Warn("access denied",
						slog.String("path", r.URL.Path),
						slog.String("subject", subjectID(sub)))
				}
				httpx.Problem(w, http.StatusForbidden, "Forbidden", reason)
			}
		})
	}
}

func subjectID(sub *shared.Subject) string {
	if sub == nil {
		return ""
	}
	return sub.ID
}
