// Package rbac holds the permission catalog, the grant registry and the
// authorization engine that route guards consult.
package rbac

import (
	"errors"
	"strings"
)

// Reserved permission IDs. Both exist in every catalog and cannot be
// deleted through the admin surface.
const (
	// PermFullAdministration is the catalog-wide administration capability.
	PermFullAdministration = "FULL_ADMINISTRATION"
	// PermMember is the baseline capability every enabled user resolves to.
	PermMember = "MEMBER"
)

// Reserved grant IDs. Their permission sets are fixed: ADMINISTRATOR
// holds exactly {FULL_ADMINISTRATION}, GUEST exactly {MEMBER}.
const (
	GrantAdministrator = "ADMINISTRATOR"
	GrantGuest         = "GUEST"
)

// Shape Up delivery groups, seeded as mutable grants of kind "group".
const (
	GroupShaper      = "SHAPER"
	GroupStakeholder = "STAKEHOLDER"
	GroupBuilder     = "BUILDER"
	GroupDesigner    = "DESIGNER"
	GroupQA          = "QA"
	GroupTeamLead    = "TEAM_LEAD"
	GroupTechLead    = "TECH_LEAD"
)

// Domain errors surfaced to callers.
var (
	ErrNotFound                    = errors.New("rbac: not found")
	ErrDuplicateName               = errors.New("rbac: name already in use")
	ErrDuplicateID                 = errors.New("rbac: id already in use")
	ErrReservedGrantImmutable      = errors.New("rbac: reserved grant is immutable")
	ErrReservedPermissionProtected = errors.New("rbac: reserved permission cannot be deleted")
)

// Permission represents an atomic capability.
type Permission struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// GrantKind tags a grant as a role or a group. The tag is purely a
// category for callers; resolution never branches on it.
type GrantKind string

const (
	GrantKindRole  GrantKind = "role"
	GrantKindGroup GrantKind = "group"
)

// Grant is a named bundle of permissions assignable to a user. It keeps
// permission references by ID; the catalog resolves them at read time so
// renamed permissions never go stale inside a grant.
type Grant struct {
	ID            string    `json:"id"`
	Kind          GrantKind `json:"kind"`
	Name          string    `json:"name"`
	Description   string    `json:"description,omitempty"`
	PermissionIDs []string  `json:"permission_ids"`
}

// DeriveID builds a stable identifier from a human-entered name:
// uppercased, whitespace runs collapsed to single underscores.
func DeriveID(name string) string {
	return strings.Join(strings.Fields(strings.ToUpper(strings.TrimSpace(name))), "_")
}

// IsReservedPermission reports whether id names a protected permission.
func IsReservedPermission(id string) bool {
	return id == PermFullAdministration || id == PermMember
}

// IsReservedGrant reports whether id names a reserved grant.
func IsReservedGrant(id string) bool {
	return id == GrantAdministrator || id == GrantGuest
}

// mandatedPermission returns the single permission a reserved grant is
// allowed to hold.
func mandatedPermission(grantID string) (string, bool) {
	switch grantID {
	case GrantAdministrator:
		return PermFullAdministration, true
	case GrantGuest:
		return PermMember, true
	default:
		return "", false
	}
}
