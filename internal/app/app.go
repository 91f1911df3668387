package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/robfig/cron/v3"

	"dashboard-kiosk/internal/config"
	"dashboard-kiosk/internal/database"
	"dashboard-kiosk/internal/handler"
	"dashboard-kiosk/internal/metrics"
	"dashboard-kiosk/internal/middleware"
	"dashboard-kiosk/internal/repository"
	"dashboard-kiosk/internal/router"
	"dashboard-kiosk/internal/service"
)

type App struct {
	server       *http.Server
	db           *database.DB
	cron         *cron.Cron
	cleanupFuncs []func()
}

func New() (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	slog.Info("connecting to PostgreSQL")
	db, err := database.Connect(context.Background(), cfg.DatabaseURL, database.PoolOptions{
		MaxConns: cfg.DBMaxConns,
		MinConns: cfg.DBMinConns,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.EnsureSchema(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ensure database schema: %w", err)
	}

	pool := db.Pool
	userRepo := repository.NewUserRepository(pool)
	sessionRepo := repository.NewSessionRepository(pool)
	groupRepo := repository.NewGroupRepository(pool)
	dashboardRepo := repository.NewDashboardRepository(pool)
	slog.Info("database ready")

	m := metrics.New(prometheus.NewRegistry())

	authService := service.NewAuthService(userRepo, sessionRepo, cfg.SessionTTL, m)
	userService := service.NewUserService(userRepo, sessionRepo, m)
	groupService := service.NewGroupService(groupRepo)
	dashboardService := service.NewDashboardService(dashboardRepo)

	if err := userService.EnsureAdmin(context.Background(), cfg.AdminUsername, cfg.AdminPassword); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to bootstrap admin user: %w", err)
	}

	authMiddleware := middleware.NewAuthMiddleware(authService)

	appRouter := router.New(cfg, authMiddleware, m, router.Handlers{
		Auth:      handler.NewAuthHandler(authService),
		User:      handler.NewUserHandler(userService),
		Group:     handler.NewGroupHandler(groupService),
		Dashboard: handler.NewDashboardHandler(dashboardService),
	}, func(r *http.Request) error {
		return db.Health(r.Context())
	})

	scheduler := cron.New()
	if _, err := scheduler.AddFunc(cfg.SessionSweepSchedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		authService.SweepExpired(ctx)

		acquired, idle, total := db.Stat()
		slog.Debug("db pool stats", "acquired", acquired, "idle", idle, "total", total)
	}); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to schedule session sweep: %w", err)
	}
	scheduler.Start()
	slog.Info("session sweep scheduled", "schedule", cfg.SessionSweepSchedule)

	server := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           appRouter,
		ReadHeaderTimeout: cfg.ServerReadHeaderTimeout,
		WriteTimeout:      cfg.ServerWriteTimeout,
		IdleTimeout:       cfg.ServerIdleTimeout,
	}

	return &App{
		server: server,
		db:     db,
		cron:   scheduler,
		cleanupFuncs: []func(){
			func() {
				<-scheduler.Stop().Done()
			},
			func() {
				db.Close()
			},
		},
	}, nil
}

func (a *App) Run() error {
	go func() {
		slog.Info("server starting", "addr", a.server.Addr)
		if serveErr := a.server.ListenAndServe(); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			slog.Error("server failed", "error", serveErr)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := a.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}

	// Run cleanup functions
	for _, cleanup := range a.cleanupFuncs {
		cleanup()
	}

	slog.Info("server stopped")
	return nil
}
