package users

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/shapeup-labs/shapeup/internal/platform/httpx"
	"github.com/shapeup-labs/shapeup/internal/shared"
)

// Handler exposes the user directory admin API. The capability check
// lives in the service so a non-administrator caller is denied even if
// a route is mounted without a guard.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	guard    func(http.Handler) http.Handler
	validate *validator.Validate
}

// NewHandler builds Handler instance. guard is the authenticated-only
// route guard.
func NewHandler(logger *slog.Logger, service *Service, guard func(http.Handler) http.Handler) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, guard: guard, validate: validator.New()}
}

// MountRoutes registers user directory routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Use(h.guard)
	r.Get("/", h.listUsers)
	r.Post("/", h.createUser)
	r.Put("/{id}/grants", h.updateGrants)
}

type createUserForm struct {
	Username string `json:"username" validate:"required,min=3,max=64"`
	Password string `json:"password" validate:"required,min=8,max=128"`
}

type updateGrantsForm struct {
	Grants []string `json:"grants" validate:"required"`
}

func (h *Handler) listUsers(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.List(r.Context(), shared.SubjectFromContext(r.Context()))
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, list)
}

func (h *Handler) createUser(w http.ResponseWriter, r *http.Request) {
	var form createUserForm
	if err := httpx.DecodeJSON(r, &form); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(form); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	user, err := h.service.CreateByAdmin(r.Context(), shared.SubjectFromContext(r.Context()), form.Username, form.Password)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, user.Sanitized())
}

func (h *Handler) updateGrants(w http.ResponseWriter, r *http.Request) {
	var form updateGrantsForm
	if err := httpx.DecodeJSON(r, &form); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	targetID := chi.URLParam(r, "id")
	user, err := h.service.UpdateGrants(r.Context(), shared.SubjectFromContext(r.Context()), targetID, form.Grants)
	if err != nil {
		h.respondError(w, err)
		return
	}

	// When the mutation hits the current subject, the session snapshot
	// is refreshed first; the commit middleware persists it before the
	// response body reaches the caller.
	if sess := shared.SessionFromContext(r.Context()); sess != nil {
		if sub := sess.Subject(); sub != nil && sub.ID == targetID {
			sess.SetSubject(user.Subject())
		}
	}

	httpx.JSON(w, http.StatusOK, user.Sanitized())
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrPermissionDenied):
		httpx.Problem(w, http.StatusForbidden, "Forbidden", "You do not have permission to manage users.")
	case errors.Is(err, ErrTargetIsSuperuser):
		httpx.Problem(w, http.StatusUnprocessableEntity, "Superuser Protected", "The superuser's grants cannot be changed.")
	case errors.Is(err, ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrUsernameTaken), errors.Is(err, ErrReservedUsername):
		httpx.Problem(w, http.StatusConflict, "Username Unavailable", err.Error())
	case errors.Is(err, ErrInvalidUsername):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	default:
		h.logger.Error("user directory", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
