package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"github.com/nezasa/credstore/internal/app/httpapi"
	"github.com/nezasa/credstore/internal/authz"
	"github.com/nezasa/credstore/internal/domain"
	"github.com/nezasa/credstore/internal/infra/audit"
	"github.com/nezasa/credstore/internal/infra/config"
	"github.com/nezasa/credstore/internal/infra/persistence"
	"github.com/nezasa/credstore/internal/secrets"
	"github.com/nezasa/credstore/internal/service"
	"github.com/nezasa/credstore/internal/validation"
)

func main() {
	_ = godotenv.Load()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	cfg, err := config.Load(os.Getenv("CREDSTORE_CONFIG_PATH"))
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, err := openStore(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to open storage backend", "backend", cfg.Storage.Backend, "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error("failed to close store", "error", err)
		}
	}()

	svc := service.New(
		store,
		authz.New(),
		secrets.NewGenerator(),
		validation.NewRequestValidator(),
		audit.NewLogger(logger),
		logger,
	)

	app := fiber.New(fiber.Config{
		AppName:               "credstore " + cfg.ServiceVersion,
		DisableStartupMessage: cfg.Server.Mode == "production",
	})
	httpapi.RegisterRoutes(app, httpapi.NewHandler(logger, svc), cfg.APIKeys, logger)

	go func() {
		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		logger.Info("starting server",
			"addr", addr,
			"backend", cfg.Storage.Backend,
			"version", cfg.ServiceVersion,
			"commit", cfg.BuildCommit,
		)
		if err := app.Listen(addr); err != nil {
			logger.Error("server stopped", "error", err)
			cancel()
		}
	}()

	signalChan := make(chan os.Signal, 1)
	signal.Notify(signalChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case s := <-signalChan:
		logger.Info("received shutdown signal", "signal", s.String())
	case <-ctx.Done():
		logger.Info("context cancelled, initiating shutdown")
	}

	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		logger.Error("error during shutdown", "error", err)
	}
	logger.Info("shutdown complete")
}

func openStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (domain.Store, error) {
	switch cfg.Storage.Backend {
	case "memory":
		return persistence.NewMemoryStore(), nil
	case "sqlite":
		return persistence.NewSQLiteStore(cfg.Storage.SQLite.Path, logger)
	case "postgres":
		dsn := cfg.Storage.Postgres.DSN()
		if err := persistence.MigratePostgres(dsn); err != nil {
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}
		pool, err := pgxpool.New(ctx, dsn)
		if err != nil {
			return nil, fmt.Errorf("failed to create connection pool: %w", err)
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return nil, fmt.Errorf("failed to reach database: %w", err)
		}
		return persistence.NewPostgresStore(pool, logger), nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
}
