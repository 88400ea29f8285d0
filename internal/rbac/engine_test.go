package rbac

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shapeup-labs/shapeup/internal/shared"
)

type failingResolver struct{}

func (failingResolver) PermissionsForGrants(ctx context.Context, grantIDs []string) ([]Permission, error) {
	return nil, errors.New("backing store unavailable")
}

func newTestEngine() (*Catalog, *Registry, *Engine) {
	catalog, registry := newTestRegistry()
	return catalog, registry, NewEngine(registry, nil)
}

func TestAuthorizeRequiresSubject(t *testing.T) {
	_, _, e := newTestEngine()

	err := e.Authorize(context.Background(), nil, Requirement{})
	assert.True(t, errors.Is(err, ErrUnauthenticated))

	err = e.Authorize(context.Background(), nil, Requirement{Permissions: []string{PermMember}})
	assert.True(t, errors.Is(err, ErrUnauthenticated))
}

func TestAuthorizeEmptyRequirement(t *testing.T) {
	_, _, e := newTestEngine()
	sub := &shared.Subject{ID: "1", Grants: nil}

	// Authenticated-only routes admit any subject, grants or not.
	assert.NoError(t, e.Authorize(context.Background(), sub, Requirement{}))
}

func TestAuthorizeByGrantMembership(t *testing.T) {
	_, _, e := newTestEngine()
	sub := &shared.Subject{ID: "1", Grants: []string{GroupBuilder}}

	req := Requirement{Grants: []string{GroupDesigner, GroupBuilder}}
	assert.NoError(t, e.Authorize(context.Background(), sub, req))

	req = Requirement{Grants: []string{GroupDesigner}}
	assert.True(t, errors.Is(e.Authorize(context.Background(), sub, req), ErrForbidden))
}

func TestAuthorizeByResolvedPermission(t *testing.T) {
	_, _, e := newTestEngine()
	ctx := context.Background()

	guest := &shared.Subject{ID: "1", Grants: []string{GrantGuest}}
	assert.NoError(t, e.Authorize(ctx, guest, Requirement{Permissions: []string{PermMember}}))
	assert.True(t, errors.Is(
		e.Authorize(ctx, guest, Requirement{Permissions: []string{PermFullAdministration}}),
		ErrForbidden))

	admin := &shared.Subject{ID: "2", Grants: []string{GrantAdministrator}}
	assert.NoError(t, e.Authorize(ctx, admin, Requirement{Permissions: []string{PermFullAdministration}}))
}

func TestAuthorizeEitherCheckAllows(t *testing.T) {
	_, _, e := newTestEngine()
	ctx := context.Background()

	// Holds the grant but not the permission.
	sub := &shared.Subject{ID: "1", Grants: []string{GroupQA}}
	req := Requirement{Grants: []string{GroupQA}, Permissions: []string{PermFullAdministration}}
	assert.NoError(t, e.Authorize(ctx, sub, req))

	// Holds the permission but not the grant.
	sub = &shared.Subject{ID: "2", Grants: []string{GrantGuest}}
	req = Requirement{Grants: []string{GroupQA}, Permissions: []string{PermMember}}
	assert.NoError(t, e.Authorize(ctx, sub, req))
}

func TestAuthorizeDeniesOnResolutionFailure(t *testing.T) {
	e := NewEngine(failingResolver{}, nil)
	sub := &shared.Subject{ID: "1", Grants: []string{GrantAdministrator}}

	err := e.Authorize(context.Background(), sub, Requirement{Permissions: []string{PermFullAdministration}})
	assert.True(t, errors.Is(err, ErrForbidden))
}

func TestHasPermission(t *testing.T) {
	_, _, e := newTestEngine()
	ctx := context.Background()

	admin := &shared.Subject{ID: "1", Grants: []string{GrantAdministrator}}
	assert.True(t, e.HasPermission(ctx, admin, PermFullAdministration))
	assert.False(t, e.HasPermission(ctx, admin, PermMember))
	assert.False(t, e.HasPermission(ctx, nil, PermMember))

	failing := NewEngine(failingResolver{}, nil)
	assert.False(t, failing.HasPermission(ctx, admin, PermFullAdministration))
}

func TestHasRoleIsPureMembership(t *testing.T) {
	_, _, e := newTestEngine()

	sub := &shared.Subject{ID: "1", Grants: []string{GrantAdministrator}}
	assert.True(t, e.HasRole(sub, GrantAdministrator))
	// No closure: holding ADMINISTRATOR does not imply the GUEST grant.
	assert.False(t, e.HasRole(sub, GrantGuest))
}

func TestGuardEquivalenceAcrossGrantSources(t *testing.T) {
	catalog, registry, e := newTestEngine()
	ctx := context.Background()

	deploy, err := catalog.Add(ctx, "Deploy", "")
	require.NoError(t, err)
	ops, err := registry.Create(ctx, "Operators", "", GrantKindRole)
	require.NoError(t, err)
	_, err = registry.SetPermissions(ctx, ops.ID, []string{deploy.ID})
	require.NoError(t, err)

	// A permission check cannot tell which grant conferred it.
	viaRole := &shared.Subject{ID: "1", Grants: []string{ops.ID}}
	assert.True(t, e.HasPermission(ctx, viaRole, deploy.ID))

	group, err := registry.Create(ctx, "Pilots", "", GrantKindGroup)
	require.NoError(t, err)
	_, err = registry.SetPermissions(ctx, group.ID, []string{deploy.ID})
	require.NoError(t, err)

	viaGroup := &shared.Subject{ID: "2", Grants: []string{group.ID}}
	assert.True(t, e.HasPermission(ctx, viaGroup, deploy.ID))
}
