package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"

	"github.com/realtreasury/rt-gate/internal/config"
	"github.com/realtreasury/rt-gate/internal/handlers"
	"github.com/realtreasury/rt-gate/internal/logging"
	"github.com/realtreasury/rt-gate/internal/middleware"
	"github.com/realtreasury/rt-gate/internal/ratelimit"
	"github.com/realtreasury/rt-gate/internal/repository"
	"github.com/realtreasury/rt-gate/internal/server"
	"github.com/realtreasury/rt-gate/internal/service"
	"github.com/realtreasury/rt-gate/internal/tokens"
	"github.com/realtreasury/rt-gate/internal/webhook"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	// Initialize structured logging
	logger := logging.New(
		logging.ParseLevel(cfg.Logging.Level),
		cfg.Logging.Format,
	).With(logging.Service("gate"))
	logging.SetDefault(logger)

	slog.Info("Starting gate service",
		slog.Int("port", cfg.Server.Port),
		slog.String("database", cfg.Database.Type),
		slog.Bool("redis", cfg.Redis.Enabled),
	)

	// Repository: postgres in production, memory for local development.
	var (
		repo      repository.Repository
		catalog   repository.Catalog
		readiness []handlers.ReadinessChecker
	)
	switch cfg.Database.Type {
	case "postgres":
		slog.Info("Running database migrations")
		m, err := migrate.New(cfg.Database.MigrationsPath, cfg.Database.URL)
		if err != nil {
			slog.Error("Failed to initialize migrations", slog.String("error", err.Error()))
			os.Exit(1)
		}
		if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			slog.Error("Failed to run migrations", slog.String("error", err.Error()))
			os.Exit(1)
		}
		slog.Info("Database migrations completed")

		pg, err := repository.NewPostgresRepository(context.Background(), cfg.Database.URL)
		if err != nil {
			log.Fatalf("connect postgres: %v", err)
		}
		defer pg.Close()
		repo, catalog = pg, pg
		readiness = append(readiness, pg.Ping)
	default:
		mem := repository.NewMemoryRepository()
		repo, catalog = mem, mem
		slog.Warn("Using in-memory repository; data will not survive restarts")
	}

	// Rate limiter: redis when enabled, otherwise per-process memory.
	var limiter ratelimit.RateLimiter
	if cfg.Redis.Enabled {
		limiter, err = ratelimit.NewRedisRateLimiter(cfg.Redis.URL, cfg.RateLimit.Limit, cfg.RateLimit.Window)
		if err != nil {
			log.Fatalf("connect redis: %v", err)
		}
	} else {
		limiter = ratelimit.NewMemoryRateLimiter(cfg.RateLimit.Limit, cfg.RateLimit.Window)
	}
	defer limiter.Close()

	// Webhook delivery is optional; without a URL events only hit the log.
	var channels []webhook.Channel
	if cfg.Webhook.URL != "" {
		channels = append(channels, webhook.NewHTTPChannel(cfg.Webhook.URL, cfg.Webhook.Secret, cfg.Webhook.Timeout))
	}
	dispatcher := webhook.NewDispatcher(channels, cfg.Webhook.Events, cfg.Webhook.Timeout, logger.Logger)

	issuer := tokens.NewIssuer(repo, cfg.Gate.TokenTTL)
	svc := service.NewGateService(repo, catalog, issuer, dispatcher, cfg.Gate.HoneypotField, logger)
	handler := handlers.NewGateHandler(svc, readiness...)
	guard := middleware.NewOriginGuard(cfg.CORS.OwnHost, cfg.CORS.AllowedHosts)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      server.NewRouter(handler, guard, limiter),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		slog.Info("Gate service listening", slog.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("Shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("server forced to shutdown: %v", err)
	}

	slog.Info("Server stopped")
}
