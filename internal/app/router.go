package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/shapeup-labs/shapeup/internal/auth"
	"github.com/shapeup-labs/shapeup/internal/cycles"
	"github.com/shapeup-labs/shapeup/internal/overview"
	"github.com/shapeup-labs/shapeup/internal/rbac"
	"github.com/shapeup-labs/shapeup/internal/roles"
	"github.com/shapeup-labs/shapeup/internal/shared"
	"github.com/shapeup-labs/shapeup/internal/users"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger         *slog.Logger
	Config         *Config
	SessionManager *shared.SessionManager

	AuthHandler        *auth.Handler
	PermissionsHandler *rbac.PermissionsHandler
	RolesHandler       *roles.Handler
	UsersHandler       *users.Handler
	CyclesHandler      *cycles.Handler
	OverviewHandler    *overview.Handler
}

// NewRouter constructs the chi.Router with ShapeUp defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:         params.Logger,
		Config:         params.Config,
		SessionManager: params.SessionManager,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/auth", params.AuthHandler.MountRoutes)

	r.Route("/api", func(r chi.Router) {
		if params.PermissionsHandler != nil {
			r.Route("/permissions", params.PermissionsHandler.MountRoutes)
		}
		if params.RolesHandler != nil {
			r.Route("/grants", params.RolesHandler.MountRoutes)
		}
		if params.UsersHandler != nil {
			r.Route("/users", params.UsersHandler.MountRoutes)
		}
		if params.CyclesHandler != nil {
			r.Route("/cycles", params.CyclesHandler.MountRoutes)
		}
		if params.OverviewHandler != nil {
			r.Route("/overview", params.OverviewHandler.MountRoutes)
		}
	})

	return r
}
