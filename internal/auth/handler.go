package auth

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
	"github.com/go-playground/validator/v10"

	"github.com/shapeup-labs/shapeup/internal/platform/httpx"
	"github.com/shapeup-labs/shapeup/internal/shared"
	"github.com/shapeup-labs/shapeup/internal/users"
)

// Handler wires HTTP endpoints for authentication flows.
type Handler struct {
	logger         *slog.Logger
	service        *Service
	sessionManager *shared.SessionManager
	validate       *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, sessions *shared.SessionManager) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:         logger,
		service:        service,
		sessionManager: sessions,
		validate:       validator.New(),
	}
}

// MountRoutes registers auth routes on provided router. Credential
// endpoints carry a tighter rate limit than the global one.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(httprate.Limit(10, time.Minute, httprate.WithKeyFuncs(httprate.KeyByIP)))
		r.Post("/login", h.handleLogin)
		r.Post("/register", h.handleRegister)
		r.Post("/forgot-password", h.handleForgotPassword)
		r.Post("/reset-password", h.handleResetPassword)
	})
	r.Post("/logout", h.handleLogout)
	r.Get("/me", h.handleMe)
}

type credentialsForm struct {
	Username string `json:"username" validate:"required,min=3,max=64"`
	Password string `json:"password" validate:"required,min=8,max=128"`
}

type forgotPasswordForm struct {
	Username string `json:"username" validate:"required"`
}

type resetPasswordForm struct {
	Username    string `json:"username" validate:"required"`
	Token       string `json:"token" validate:"required"`
	NewPassword string `json:"new_password" validate:"required,min=8,max=128"`
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	form, ok := h.decodeCredentials(w, r)
	if !ok {
		return
	}
	user, err := h.service.Login(r.Context(), form.Username, form.Password)
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.startSession(r, user)
	httpx.JSON(w, http.StatusOK, user.Sanitized())
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	form, ok := h.decodeCredentials(w, r)
	if !ok {
		return
	}
	user, err := h.service.Register(r.Context(), form.Username, form.Password)
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.startSession(r, user)
	httpx.JSON(w, http.StatusCreated, user.Sanitized())
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	if sess != nil {
		h.service.Logout(r.Context(), sess.Subject())
		h.sessionManager.Destroy(sess)
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	user, err := h.service.CurrentUser(r.Context(), shared.SubjectFromContext(r.Context()))
	if err != nil {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthenticated", "Sign in to access this section.")
		return
	}
	httpx.JSON(w, http.StatusOK, user.Sanitized())
}

// handleForgotPassword always answers 200 with the same shape so the
// endpoint cannot be used to probe which usernames exist.
func (h *Handler) handleForgotPassword(w http.ResponseWriter, r *http.Request) {
	var form forgotPasswordForm
	if err := httpx.DecodeJSON(r, &form); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(form); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	token, err := h.service.ForgotPassword(r.Context(), form.Username)
	if err != nil {
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
		return
	}
	// Without an email channel the token is returned to the caller.
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok", "reset_token": token})
}

func (h *Handler) handleResetPassword(w http.ResponseWriter, r *http.Request) {
	var form resetPasswordForm
	if err := httpx.DecodeJSON(r, &form); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(form); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	if err := h.service.ResetPassword(r.Context(), form.Username, form.Token, form.NewPassword); err != nil {
		h.respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) decodeCredentials(w http.ResponseWriter, r *http.Request) (credentialsForm, bool) {
	var form credentialsForm
	if err := httpx.DecodeJSON(r, &form); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return form, false
	}
	if err := h.validate.Struct(form); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return form, false
	}
	return form, true
}

func (h *Handler) startSession(r *http.Request, user users.User) {
	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		h.logger.Error("session missing during sign-in")
		return
	}
	sess.SetSubject(user.Subject())
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, users.ErrInvalidCredentials):
		httpx.Problem(w, http.StatusUnauthorized, "Invalid Credentials", "Username or password is incorrect.")
	case errors.Is(err, users.ErrUserDisabled):
		httpx.Problem(w, http.StatusForbidden, "Account Disabled", "This account has been disabled by an administrator.")
	case errors.Is(err, users.ErrUsernameTaken), errors.Is(err, users.ErrReservedUsername):
		httpx.Problem(w, http.StatusConflict, "Username Unavailable", err.Error())
	case errors.Is(err, users.ErrInvalidUsername):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.Is(err, users.ErrResetTokenInvalid):
		httpx.Problem(w, http.StatusUnprocessableEntity, "Reset Failed", err.Error())
	default:
		h.logger.Error("auth", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
