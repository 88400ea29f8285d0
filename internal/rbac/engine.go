package rbac

import (
	"context"
	"errors"
	"log/slog"

	"github.com/shapeup-labs/shapeup/internal/shared"
)

// Guard-level denials.
var (
	ErrUnauthenticated = errors.New("rbac: no authenticated subject")
	ErrForbidden       = errors.New("rbac: access denied")
)

// PermissionResolver resolves a set of grant IDs to the permissions they
// confer. The registry is the production implementation; the error
// return exists so a failing resolver denies instead of allowing.
type PermissionResolver interface {
	PermissionsForGrants(ctx context.Context, grantIDs []string) ([]Permission, error)
}

// Engine answers allow/deny queries for the current subject. Every
// route guard and administrative capability check terminates here.
type Engine struct {
	resolver PermissionResolver
	logger   *slog.Logger
}

// NewEngine constructs an Engine.
func NewEngine(resolver PermissionResolver, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{resolver: resolver, logger: logger}
}

// HasRole reports whether the subject's grant list contains the ID.
// Pure set membership with no resolution through the registry.
//
// Deprecated: role checks are the legacy special case of permission
// checks; use HasPermission. Calls are logged so remaining users can be
// migrated.
func (e *Engine) HasRole(sub *shared.Subject, grantID string) bool {
	e.logger.Warn("deprecated role-based check, prefer permission checks", slog.String("grant", grantID))
	return sub.HasGrant(grantID)
}

// HasPermission resolves the subject's grants and checks membership of
// the permission. Resolution failure means no.
func (e *Engine) HasPermission(ctx context.Context, sub *shared.Subject, permissionID string) bool {
	if sub == nil {
		return false
	}
	perms, err := e.resolver.PermissionsForGrants(ctx, sub.Grants)
	if err != nil {
		e.logger.Error("permission resolution failed", slog.Any("error", err))
		return false
	}
	for _, p := range perms {
		if p.ID == permissionID {
			return true
		}
	}
	return false
}

// Requirement declares what a protected action accepts: a set of grant
// IDs (role/group co-membership, any-of), a set of permission IDs
// (any-of), or both, in which case either passing check allows. An
// empty requirement only demands an authenticated subject.
type Requirement struct {
	Grants      []string
	Permissions []string
}

// Authorize runs the guard decision procedure. No subject yields
// ErrUnauthenticated; a subject failing every configured check yields
// ErrForbidden. Any ambiguity during resolution denies.
func (e *Engine) Authorize(ctx context.Context, sub *shared.Subject, req Requirement) error {
	if sub == nil {
		return ErrUnauthenticated
	}
	if len(req.Grants) == 0 && len(req.Permissions) == 0 {
		return nil
	}

	for _, id := range req.Grants {
		if sub.HasGrant(id) {
			return nil
		}
	}

	if len(req.Permissions) > 0 {
		perms, err := e.resolver.PermissionsForGrants(ctx, sub.Grants)
		if err != nil {
			e.logger.Error("permission resolution failed, denying", slog.Any("error", err))
			return ErrForbidden
		}
		held := make(map[string]struct{}, len(perms))
		for _, p := range perms {
			held[p.ID] = struct{}{}
		}
		for _, id := range req.Permissions {
			if _, ok := held[id]; ok {
				return nil
			}
		}
	}

	return ErrForbidden
}
