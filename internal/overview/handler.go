// Package overview assembles the administrator landing data in one
// round trip.
package overview

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"

	"github.com/shapeup-labs/shapeup/internal/platform/httpx"
	"github.com/shapeup-labs/shapeup/internal/rbac"
	"github.com/shapeup-labs/shapeup/internal/shared"
	"github.com/shapeup-labs/shapeup/internal/users"
)

// Handler aggregates directory, registry and catalog state for the
// admin overview screen.
type Handler struct {
	logger   *slog.Logger
	users    *users.Service
	registry *rbac.Registry
	catalog  *rbac.Catalog
	audit    *shared.AuditLogger
	guard    rbac.Middleware
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, userService *users.Service, registry *rbac.Registry, catalog *rbac.Catalog, audit *shared.AuditLogger, guard rbac.Middleware) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, users: userService, registry: registry, catalog: catalog, audit: audit, guard: guard}
}

// MountRoutes registers overview routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.guard.RequirePermissions(rbac.PermFullAdministration))
		r.Get("/", h.showOverview)
	})
}

type overviewData struct {
	Users       []users.User      `json:"users"`
	Grants      []rbac.Grant      `json:"grants"`
	Permissions []rbac.Permission `json:"permissions"`
	RecentAudit []shared.AuditLog `json:"recent_audit,omitempty"`
}

func (h *Handler) showOverview(w http.ResponseWriter, r *http.Request) {
	caller := shared.SubjectFromContext(r.Context())

	var data overviewData
	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() error {
		list, err := h.users.List(ctx, caller)
		if err != nil {
			return err
		}
		data.Users = list
		return nil
	})
	g.Go(func() error {
		data.Grants = h.registry.ListAll(ctx)
		return nil
	})
	g.Go(func() error {
		data.Permissions = h.catalog.List(ctx)
		return nil
	})
	if h.audit != nil {
		g.Go(func() error {
			recent, err := h.audit.Recent(ctx, 20)
			if err != nil {
				// Overview stays useful without the trail.
				h.logger.Warn("audit trail unavailable", slog.Any("error", err))
				return nil
			}
			data.RecentAudit = recent
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		h.logger.Error("overview", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	httpx.JSON(w, http.StatusOK, data)
}
