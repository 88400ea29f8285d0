package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shapeup-labs/shapeup/internal/app"
	"github.com/shapeup-labs/shapeup/internal/auth"
	"github.com/shapeup-labs/shapeup/internal/cycles"
	"github.com/shapeup-labs/shapeup/internal/overview"
	"github.com/shapeup-labs/shapeup/internal/platform/cache"
	"github.com/shapeup-labs/shapeup/internal/rbac"
	"github.com/shapeup-labs/shapeup/internal/roles"
	"github.com/shapeup-labs/shapeup/internal/shared"
	"github.com/shapeup-labs/shapeup/internal/users"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	sessionManager := shared.NewSessionManager(redisClient, "shapeup_session", cfg.SessionSecret, cfg.SessionTTL, cfg.IsProduction())
	notifier := shared.NewNotifier()
	auditLogger := shared.NewAuditLogger(redisClient)

	catalog := rbac.NewCatalog(notifier)
	registry := rbac.NewRegistry(catalog, notifier)
	engine := rbac.NewEngine(registry, logger)
	guard := rbac.Middleware{Engine: engine, Logger: logger}

	userRepo := users.NewMemoryRepository()
	userService := users.NewService(userRepo, registry, auditLogger, notifier, logger)
	if _, err := userService.SeedSuperuser(ctx, cfg.SuperuserUsername, cfg.SuperuserPassword); err != nil {
		logger.Error("seed superuser", slog.Any("error", err))
		os.Exit(1)
	}

	authService := auth.NewService(userService, notifier)
	authHandler := auth.NewHandler(logger, authService, sessionManager)

	permissionsHandler := rbac.NewPermissionsHandler(logger, catalog, guard)
	rolesHandler := roles.NewHandler(logger, registry, guard, auditLogger)
	usersHandler := users.NewHandler(logger, userService, guard.RequireAuthenticated())

	cycleService := cycles.NewService()
	cyclesHandler := cycles.NewHandler(cycleService, guard)

	overviewHandler := overview.NewHandler(logger, userService, registry, catalog, auditLogger, guard)

	router := app.NewRouter(app.RouterParams{
		Logger:             logger,
		Config:             cfg,
		SessionManager:     sessionManager,
		AuthHandler:        authHandler,
		PermissionsHandler: permissionsHandler,
		RolesHandler:       rolesHandler,
		UsersHandler:       usersHandler,
		CyclesHandler:      cyclesHandler,
		OverviewHandler:    overviewHandler,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
