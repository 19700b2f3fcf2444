package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"log/slog"

	"github.com/hibiken/asynq"
	"golang.org/x/sync/errgroup"

	"github.com/aegis-admin/aegis/internal/activity"
	"github.com/aegis-admin/aegis/internal/app"
	"github.com/aegis-admin/aegis/internal/auth"
	"github.com/aegis-admin/aegis/internal/authz"
	"github.com/aegis-admin/aegis/internal/observability"
	"github.com/aegis-admin/aegis/internal/permissions"
	"github.com/aegis-admin/aegis/internal/platform/cache"
	"github.com/aegis-admin/aegis/internal/platform/db"
	"github.com/aegis-admin/aegis/internal/roles"
	"github.com/aegis-admin/aegis/internal/settings"
	"github.com/aegis-admin/aegis/internal/shared"
	"github.com/aegis-admin/aegis/internal/users"
	"github.com/aegis-admin/aegis/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	dbpool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

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

	sessionManager := shared.NewSessionManager(redisClient, cfg.SessionCookie, cfg.SessionSecret, cfg.SessionTTL, cfg.IsProduction())

	asynqClient := asynq.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := asynqClient.Close(); err != nil {
			logger.Warn("asynq close", slog.Any("error", err))
		}
	}()
	recorder := activity.NewQueueRecorder(asynqClient, logger)

	permissionRepo := permissions.NewRepository(dbpool)
	permissionService := permissions.NewService(permissionRepo)

	roleRepo := roles.NewRepository(dbpool)
	roleService := roles.NewService(roleRepo, permissionService, recorder)

	userRepo := users.NewRepository(dbpool)
	userService := users.NewService(userRepo, roleService, permissionService, recorder, sessionManager)

	settingsStore := settings.NewPgStore(dbpool)
	authService := auth.NewService(userService, roleService, settingsStore, recorder)

	metrics := observability.NewMetrics()
	gate := authz.Gate{Loader: userService, Sessions: sessionManager, Logger: logger, Metrics: metrics}

	authHandler := auth.NewHandler(logger, authService, sessionManager, gate)
	usersHandler := users.NewHandler(logger, userService, gate)
	rolesHandler := roles.NewHandler(logger, roleService, gate)
	permissionsHandler := permissions.NewHandler(logger, permissionService, gate)

	activityRepo := activity.NewRepository(dbpool)
	activityHandler := activity.NewHandler(logger, activityRepo, gate)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobsHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:             logger,
		Config:             cfg,
		SessionManager:     sessionManager,
		AuthHandler:        authHandler,
		UsersHandler:       usersHandler,
		RolesHandler:       rolesHandler,
		PermissionsHandler: permissionsHandler,
		ActivityHandler:    activityHandler,
		JobsHandler:        jobsHandler,
		Metrics:            metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("http server", slog.Any("error", err))
		os.Exit(1)
	}
}
