package cycles

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/shapeup-labs/shapeup/internal/platform/httpx"
	"github.com/shapeup-labs/shapeup/internal/rbac"
)

// Handler exposes the cycle read model. Listing is open to any member;
// project details require one of the delivery groups.
type Handler struct {
	service *Service
	guard   rbac.Middleware
}

// NewHandler builds Handler instance.
func NewHandler(service *Service, guard rbac.Middleware) *Handler {
	return &Handler{service: service, guard: guard}
}

// MountRoutes registers cycle routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.guard.RequirePermissions(rbac.PermMember))
		r.Get("/", h.listCycles)
		r.Get("/current", h.currentCycle)
		r.Get("/{id}", h.getCycle)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.guard.RequireGrants(
			rbac.GroupBuilder, rbac.GroupDesigner, rbac.GroupQA,
			rbac.GroupTeamLead, rbac.GroupTechLead,
		))
		r.Get("/{id}/projects", h.cycleProjects)
	})
}

type cycleView struct {
	Cycle
	RemainingDays int `json:"remaining_days"`
}

func (h *Handler) listCycles(w http.ResponseWriter, r *http.Request) {
	list := h.service.ListCycles(r.Context())
	views := make([]cycleView, len(list))
	for i, c := range list {
		views[i] = cycleView{Cycle: c, RemainingDays: h.service.RemainingDays(c)}
	}
	httpx.JSON(w, http.StatusOK, views)
}

func (h *Handler) currentCycle(w http.ResponseWriter, r *http.Request) {
	cycle, err := h.service.CurrentCycle(r.Context())
	if err != nil {
		httpx.Problem(w, http.StatusNotFound, "Not Found", "no active cycle")
		return
	}
	httpx.JSON(w, http.StatusOK, cycleView{Cycle: cycle, RemainingDays: h.service.RemainingDays(cycle)})
}

func (h *Handler) getCycle(w http.ResponseWriter, r *http.Request) {
	cycle, err := h.service.GetCycle(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
			return
		}
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	httpx.JSON(w, http.StatusOK, cycleView{Cycle: cycle, RemainingDays: h.service.RemainingDays(cycle)})
}

func (h *Handler) cycleProjects(w http.ResponseWriter, r *http.Request) {
	if _, err := h.service.GetCycle(r.Context(), chi.URLParam(r, "id")); err != nil {
		httpx.Problem(w, http.StatusNotFound, "Not Found", "cycle not found")
		return
	}
	projects := h.service.ProjectsByCycle(r.Context(), chi.URLParam(r, "id"))
	httpx.JSON(w, http.StatusOK, projects)
}
