// Package roles exposes the grant registry admin API.
package roles

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/shapeup-labs/shapeup/internal/platform/httpx"
	"github.com/shapeup-labs/shapeup/internal/rbac"
	"github.com/shapeup-labs/shapeup/internal/shared"
)

// Handler manages grant management endpoints.
type Handler struct {
	logger   *slog.Logger
	registry *rbac.Registry
	guard    rbac.Middleware
	audit    *shared.AuditLogger
	validate *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, registry *rbac.Registry, guard rbac.Middleware, audit *shared.AuditLogger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, registry: registry, guard: guard, audit: audit, validate: validator.New()}
}

// MountRoutes registers grant routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.guard.RequirePermissions(rbac.PermMember))
		r.Get("/", h.listGrants)
		r.Get("/{id}", h.getGrant)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.guard.RequirePermissions(rbac.PermFullAdministration))
		r.Post("/", h.createGrant)
		r.Patch("/{id}", h.updateGrant)
		r.Delete("/{id}", h.deleteGrant)
		r.Put("/{id}/permissions", h.setPermissions)
		r.Post("/{id}/permissions/{permissionID}", h.assignPermission)
		r.Delete("/{id}/permissions/{permissionID}", h.removePermission)
	})
}

type grantForm struct {
	Name        string `json:"name" validate:"required,min=2,max=80"`
	Description string `json:"description" validate:"max=400"`
	Kind        string `json:"kind" validate:"omitempty,oneof=role group"`
}

type grantPatch struct {
	Name        *string `json:"name" validate:"omitempty,min=2,max=80"`
	Description *string `json:"description" validate:"omitempty,max=400"`
}

type setPermissionsForm struct {
	PermissionIDs []string `json:"permission_ids" validate:"required"`
}

// grantView resolves permission references for API consumers.
type grantView struct {
	rbac.Grant
	Permissions []rbac.Permission `json:"permissions"`
}

func (h *Handler) listGrants(w http.ResponseWriter, r *http.Request) {
	grants := h.registry.ListAll(r.Context())
	views := make([]grantView, len(grants))
	for i, g := range grants {
		views[i] = h.view(r, g)
	}
	httpx.JSON(w, http.StatusOK, views)
}

func (h *Handler) getGrant(w http.ResponseWriter, r *http.Request) {
	grant, err := h.registry.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, h.view(r, grant))
}

func (h *Handler) createGrant(w http.ResponseWriter, r *http.Request) {
	var form grantForm
	if err := httpx.DecodeJSON(r, &form); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(form); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	grant, err := h.registry.Create(r.Context(), form.Name, form.Description, rbac.GrantKind(form.Kind))
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.recordAudit(r, "grant.create", grant.ID, nil)
	httpx.JSON(w, http.StatusCreated, h.view(r, grant))
}

func (h *Handler) updateGrant(w http.ResponseWriter, r *http.Request) {
	var patch grantPatch
	if err := httpx.DecodeJSON(r, &patch); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(patch); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	grant, err := h.registry.Update(r.Context(), chi.URLParam(r, "id"), rbac.GrantUpdate{Name: patch.Name, Description: patch.Description})
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.recordAudit(r, "grant.update", grant.ID, nil)
	httpx.JSON(w, http.StatusOK, h.view(r, grant))
}

func (h *Handler) deleteGrant(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.registry.Delete(r.Context(), id); err != nil {
		h.respondError(w, err)
		return
	}
	h.recordAudit(r, "grant.delete", id, nil)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) setPermissions(w http.ResponseWriter, r *http.Request) {
	var form setPermissionsForm
	if err := httpx.DecodeJSON(r, &form); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	grant, err := h.registry.SetPermissions(r.Context(), chi.URLParam(r, "id"), form.PermissionIDs)
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.recordAudit(r, "grant.permissions", grant.ID, map[string]any{"permission_ids": grant.PermissionIDs})
	httpx.JSON(w, http.StatusOK, h.view(r, grant))
}

func (h *Handler) assignPermission(w http.ResponseWriter, r *http.Request) {
	grant, err := h.registry.AssignPermission(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "permissionID"))
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.recordAudit(r, "grant.permissions", grant.ID, map[string]any{"permission_ids": grant.PermissionIDs})
	httpx.JSON(w, http.StatusOK, h.view(r, grant))
}

func (h *Handler) removePermission(w http.ResponseWriter, r *http.Request) {
	grant, err := h.registry.RemovePermission(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "permissionID"))
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.recordAudit(r, "grant.permissions", grant.ID, map[string]any{"permission_ids": grant.PermissionIDs})
	httpx.JSON(w, http.StatusOK, h.view(r, grant))
}

func (h *Handler) view(r *http.Request, grant rbac.Grant) grantView {
	perms, err := h.registry.PermissionsForGrants(r.Context(), []string{grant.ID})
	if err != nil {
		perms = nil
	}
	return grantView{Grant: grant, Permissions: perms}
}

func (h *Handler) recordAudit(r *http.Request, action, entityID string, meta map[string]any) {
	if h.audit == nil {
		return
	}
	actor := ""
	if sub := shared.SubjectFromContext(r.Context()); sub != nil {
		actor = sub.ID
	}
	if err := h.audit.Record(r.Context(), shared.AuditLog{Actor: actor, Action: action, Entity: "grant", EntityID: entityID, Meta: meta}); err != nil {
		h.logger.Warn("audit record", slog.Any("error", err))
	}
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, rbac.ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, rbac.ErrDuplicateID), errors.Is(err, rbac.ErrDuplicateName):
		httpx.Problem(w, http.StatusConflict, "Duplicate", err.Error())
	case errors.Is(err, rbac.ErrReservedGrantImmutable):
		httpx.Problem(w, http.StatusUnprocessableEntity, "Reserved Grant", err.Error())
	default:
		h.logger.Error("grant registry", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
