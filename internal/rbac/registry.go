package rbac

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/shapeup-labs/shapeup/internal/shared"
)

// Registry owns every grant (role or group) and resolves grant sets to
// permission sets. Grants hold permission IDs only; values come from the
// catalog at read time.
type Registry struct {
	mu       sync.RWMutex
	grants   []Grant
	catalog  *Catalog
	notifier *shared.Notifier
}

// NewRegistry constructs a registry seeded with the two reserved grants
// and the Shape Up delivery groups.
func NewRegistry(catalog *Catalog, notifier *shared.Notifier) *Registry {
	grants := []Grant{
		{ID: GrantAdministrator, Kind: GrantKindRole, Name: "Administrator", Description: "Holds every capability of the system", PermissionIDs: []string{PermFullAdministration}},
		{ID: GrantGuest, Kind: GrantKindRole, Name: "Guest", Description: "Baseline role of every registered user", PermissionIDs: []string{PermMember}},
	}
	for _, id := range []string{GroupShaper, GroupStakeholder, GroupBuilder, GroupDesigner, GroupQA, GroupTeamLead, GroupTechLead} {
		grants = append(grants, Grant{
			ID:          id,
			Kind:        GrantKindGroup,
			Name:        id,
			Description: fmt.Sprintf("%s group in Shape Up", id),
		})
	}
	return &Registry{grants: grants, catalog: catalog, notifier: notifier}
}

// ListAll returns every grant in insertion order.
func (r *Registry) ListAll(ctx context.Context) []Grant {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Grant, len(r.grants))
	for i, g := range r.grants {
		out[i] = cloneGrant(g)
	}
	return out
}

// GetByID fetches one grant.
func (r *Registry) GetByID(ctx context.Context, id string) (Grant, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, g := range r.grants {
		if g.ID == id {
			return cloneGrant(g), nil
		}
	}
	return Grant{}, ErrNotFound
}

// Create adds a grant with an ID derived from the name and no
// permissions.
func (r *Registry) Create(ctx context.Context, name, description string, kind GrantKind) (Grant, error) {
	name = strings.TrimSpace(name)
	id := DeriveID(name)
	if kind == "" {
		kind = GrantKindRole
	}

	r.mu.Lock()
	for _, g := range r.grants {
		if g.ID == id {
			r.mu.Unlock()
			return Grant{}, ErrDuplicateID
		}
	}
	grant := Grant{ID: id, Kind: kind, Name: name, Description: strings.TrimSpace(description)}
	r.grants = append(r.grants, grant)
	r.mu.Unlock()

	r.notifier.Publish(shared.Event{Kind: shared.EventRegistryChanged, Entity: id})
	return grant, nil
}

// GrantUpdate carries the fields an update may change. Permissions are
// replaced through SetPermissions, never here.
type GrantUpdate struct {
	Name        *string
	Description *string
}

// Update merges fields into a non-reserved grant.
func (r *Registry) Update(ctx context.Context, id string, update GrantUpdate) (Grant, error) {
	if IsReservedGrant(id) {
		return Grant{}, ErrReservedGrantImmutable
	}

	r.mu.Lock()
	idx := r.indexOf(id)
	if idx == -1 {
		r.mu.Unlock()
		return Grant{}, ErrNotFound
	}
	if update.Name != nil && strings.TrimSpace(*update.Name) != "" {
		r.grants[idx].Name = strings.TrimSpace(*update.Name)
	}
	if update.Description != nil {
		r.grants[idx].Description = strings.TrimSpace(*update.Description)
	}
	grant := cloneGrant(r.grants[idx])
	r.mu.Unlock()

	r.notifier.Publish(shared.Event{Kind: shared.EventRegistryChanged, Entity: id})
	return grant, nil
}

// Delete removes a non-reserved grant.
func (r *Registry) Delete(ctx context.Context, id string) error {
	if IsReservedGrant(id) {
		return ErrReservedGrantImmutable
	}

	r.mu.Lock()
	idx := r.indexOf(id)
	if idx == -1 {
		r.mu.Unlock()
		return ErrNotFound
	}
	r.grants = append(r.grants[:idx], r.grants[idx+1:]...)
	r.mu.Unlock()

	r.notifier.Publish(shared.Event{Kind: shared.EventRegistryChanged, Entity: id})
	return nil
}

// SetPermissions replaces a grant's permission list wholesale. For
// reserved grants only the exact mandated set is accepted, as a no-op;
// anything else is rejected. For other grants unknown permission IDs are
// silently dropped and the survivors are stored in catalog order.
func (r *Registry) SetPermissions(ctx context.Context, grantID string, permissionIDs []string) (Grant, error) {
	if mandated, ok := mandatedPermission(grantID); ok {
		if len(permissionIDs) != 1 || permissionIDs[0] != mandated {
			return Grant{}, ErrReservedGrantImmutable
		}
		return r.GetByID(ctx, grantID)
	}

	requested := make(map[string]struct{}, len(permissionIDs))
	for _, id := range permissionIDs {
		requested[id] = struct{}{}
	}
	kept := make([]string, 0, len(requested))
	for _, p := range r.catalog.List(ctx) {
		if _, ok := requested[p.ID]; ok {
			kept = append(kept, p.ID)
		}
	}

	r.mu.Lock()
	idx := r.indexOf(grantID)
	if idx == -1 {
		r.mu.Unlock()
		return Grant{}, ErrNotFound
	}
	r.grants[idx].PermissionIDs = kept
	grant := cloneGrant(r.grants[idx])
	r.mu.Unlock()

	r.notifier.Publish(shared.Event{Kind: shared.EventRegistryChanged, Entity: grantID})
	return grant, nil
}

// AssignPermission adds a single catalog permission to a non-reserved
// grant, failing when the grant already holds it.
func (r *Registry) AssignPermission(ctx context.Context, grantID, permissionID string) (Grant, error) {
	if IsReservedGrant(grantID) {
		return Grant{}, ErrReservedGrantImmutable
	}
	if _, err := r.catalog.GetByID(ctx, permissionID); err != nil {
		return Grant{}, err
	}
	grant, err := r.GetByID(ctx, grantID)
	if err != nil {
		return Grant{}, err
	}
	for _, id := range grant.PermissionIDs {
		if id == permissionID {
			return Grant{}, fmt.Errorf("%w: grant %s already holds %s", ErrDuplicateID, grantID, permissionID)
		}
	}
	return r.SetPermissions(ctx, grantID, append(grant.PermissionIDs, permissionID))
}

// RemovePermission drops a single permission from a non-reserved grant,
// failing when the grant does not hold it.
func (r *Registry) RemovePermission(ctx context.Context, grantID, permissionID string) (Grant, error) {
	if IsReservedGrant(grantID) {
		return Grant{}, ErrReservedGrantImmutable
	}
	grant, err := r.GetByID(ctx, grantID)
	if err != nil {
		return Grant{}, err
	}
	kept := make([]string, 0, len(grant.PermissionIDs))
	found := false
	for _, id := range grant.PermissionIDs {
		if id == permissionID {
			found = true
			continue
		}
		kept = append(kept, id)
	}
	if !found {
		return Grant{}, fmt.Errorf("%w: grant %s does not hold %s", ErrNotFound, grantID, permissionID)
	}
	return r.SetPermissions(ctx, grantID, kept)
}

// PermissionsForGrants resolves the union of permissions across the
// named grants, de-duplicated by ID in first-occurrence order. Grant IDs
// absent from the registry contribute nothing; they are not an error.
func (r *Registry) PermissionsForGrants(ctx context.Context, grantIDs []string) ([]Permission, error) {
	byID := make(map[string]Permission)
	for _, p := range r.catalog.List(ctx) {
		byID[p.ID] = p
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	seen := make(map[string]struct{})
	var out []Permission
	for _, grantID := range grantIDs {
		idx := r.indexOf(grantID)
		if idx == -1 {
			continue
		}
		for _, permID := range r.grants[idx].PermissionIDs {
			if _, dup := seen[permID]; dup {
				continue
			}
			perm, ok := byID[permID]
			if !ok {
				// Referenced permission no longer in the catalog.
				continue
			}
			seen[permID] = struct{}{}
			out = append(out, perm)
		}
	}
	return out, nil
}

// HasPermission reports whether the union across grantIDs contains the
// permission.
func (r *Registry) HasPermission(ctx context.Context, grantIDs []string, permissionID string) bool {
	perms, err := r.PermissionsForGrants(ctx, grantIDs)
	if err != nil {
		return false
	}
	for _, p := range perms {
		if p.ID == permissionID {
			return true
		}
	}
	return false
}

// indexOf requires r.mu held.
func (r *Registry) indexOf(id string) int {
	for i, g := range r.grants {
		if g.ID == id {
			return i
		}
	}
	return -1
}

func cloneGrant(g Grant) Grant {
	g.PermissionIDs = append([]string(nil), g.PermissionIDs...)
	return g
}
