package rbac

import (
	"context"
	"strings"
	"sync"

	"github.com/shapeup-labs/shapeup/internal/shared"
)

// Catalog is the flat set of grantable capabilities available
// system-wide. State lives in process memory, rebuilt from seed data on
// every start; the mutex makes mutation safe for concurrent callers.
type Catalog struct {
	mu          sync.RWMutex
	permissions []Permission
	notifier    *shared.Notifier
}

// NewCatalog constructs a catalog seeded with the reserved permissions.
func NewCatalog(notifier *shared.Notifier) *Catalog {
	return &Catalog{
		permissions: []Permission{
			{ID: PermFullAdministration, Name: "Full administration", Description: "Unrestricted administration of the whole system"},
			{ID: PermMember, Name: "Member", Description: "Baseline capability of every enabled user"},
		},
		notifier: notifier,
	}
}

// List returns all permissions in insertion order.
func (c *Catalog) List(ctx context.Context) []Permission {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]Permission(nil), c.permissions...)
}

// GetByID fetches one permission.
func (c *Catalog) GetByID(ctx context.Context, id string) (Permission, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, p := range c.permissions {
		if p.ID == id {
			return p, nil
		}
	}
	return Permission{}, ErrNotFound
}

// Add creates a permission whose ID is derived from the name. Name
// collisions are checked case-insensitively, ID collisions exactly.
func (c *Catalog) Add(ctx context.Context, name, description string) (Permission, error) {
	name = strings.TrimSpace(name)
	id := DeriveID(name)

	c.mu.Lock()
	for _, p := range c.permissions {
		if strings.EqualFold(p.Name, name) {
			c.mu.Unlock()
			return Permission{}, ErrDuplicateName
		}
		if p.ID == id {
			c.mu.Unlock()
			return Permission{}, ErrDuplicateID
		}
	}
	perm := Permission{ID: id, Name: name, Description: strings.TrimSpace(description)}
	c.permissions = append(c.permissions, perm)
	c.mu.Unlock()

	// Published outside the lock so subscribers may read back.
	c.notifier.Publish(shared.Event{Kind: shared.EventCatalogChanged, Entity: perm.ID})
	return perm, nil
}

// PermissionUpdate carries the fields a catalog update may change. Nil
// fields are left untouched.
type PermissionUpdate struct {
	Name        *string
	Description *string
}

// Update applies a partial field merge. Renames re-check the
// case-insensitive name rule against all other permissions; the ID is
// stable and never re-derived.
func (c *Catalog) Update(ctx context.Context, id string, update PermissionUpdate) (Permission, error) {
	c.mu.Lock()
	idx := -1
	for i, p := range c.permissions {
		if p.ID == id {
			idx = i
			break
		}
	}
	if idx == -1 {
		c.mu.Unlock()
		return Permission{}, ErrNotFound
	}

	if update.Name != nil && strings.TrimSpace(*update.Name) != "" {
		name := strings.TrimSpace(*update.Name)
		for i, p := range c.permissions {
			if i != idx && strings.EqualFold(p.Name, name) {
				c.mu.Unlock()
				return Permission{}, ErrDuplicateName
			}
		}
		c.permissions[idx].Name = name
	}
	if update.Description != nil {
		c.permissions[idx].Description = strings.TrimSpace(*update.Description)
	}
	perm := c.permissions[idx]
	c.mu.Unlock()

	c.notifier.Publish(shared.Event{Kind: shared.EventCatalogChanged, Entity: id})
	return perm, nil
}

// Delete removes a permission. Reserved permissions are protected even
// though grants reference them only by ID.
func (c *Catalog) Delete(ctx context.Context, id string) error {
	if IsReservedPermission(id) {
		return ErrReservedPermissionProtected
	}

	c.mu.Lock()
	removed := false
	for i, p := range c.permissions {
		if p.ID == id {
			c.permissions = append(c.permissions[:i], c.permissions[i+1:]...)
			removed = true
			break
		}
	}
	c.mu.Unlock()

	if !removed {
		return ErrNotFound
	}
	c.notifier.Publish(shared.Event{Kind: shared.EventCatalogChanged, Entity: id})
	return nil
}
