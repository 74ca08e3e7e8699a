package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	_ "time/tzdata"

	"github.com/hongminglow/syncink-attendance/internal/attendance"
	"github.com/hongminglow/syncink-attendance/internal/config"
	"github.com/hongminglow/syncink-attendance/internal/logging"
	"github.com/hongminglow/syncink-attendance/internal/scheduler"
	"github.com/hongminglow/syncink-attendance/internal/server"
	"github.com/hongminglow/syncink-attendance/internal/storage"
	"github.com/hongminglow/syncink-attendance/internal/storage/memory"
	"github.com/hongminglow/syncink-attendance/internal/storage/postgres"
)

func main() {
	envErr := godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}
	logger := logging.New(cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)
	if envErr != nil {
		logger.Debug("no .env file found; relying on existing environment")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := openStore(ctx, cfg)
	if err != nil {
		logger.Error("init storage", "driver", cfg.StorageDriver, "error", err)
		os.Exit(1)
	}
	defer store.Close()

	settings := attendance.NewSettingsService(store, cfg.DefaultTimeZone, logger)
	if _, err := settings.Init(ctx); err != nil {
		logger.Error("init settings", "error", err)
		os.Exit(1)
	}
	engine := attendance.NewEngine(store, settings, logger, nil)
	workflow := attendance.NewWorkflow(store, settings, logger, nil)
	directory := attendance.NewDirectory(store, logger, nil)

	if cfg.SeedDefaultUsers {
		n, err := directory.SeedDefaults(ctx)
		if err != nil {
			logger.Error("seed default users", "error", err)
			os.Exit(1)
		}
		if n > 0 {
			logger.Warn("seeded default accounts; change their passwords", "count", n)
		}
	}

	sweeper := scheduler.NewSweeper(engine.Sweep, cfg.SweepInterval, logger)
	sweeper.Start(ctx)
	defer sweeper.Stop()

	srv := server.New(cfg, server.Services{
		Users:     store,
		Settings:  settings,
		Engine:    engine,
		Workflow:  workflow,
		Directory: directory,
	}, logger)

	go func() {
		logger.Info("attendance server listening", "addr", cfg.HTTPAddress(), "storage", cfg.StorageDriver)
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctxShutdown); err != nil {
		logger.Error("graceful shutdown error", "error", err)
	}
}

func openStore(ctx context.Context, cfg config.Config) (storage.Store, error) {
	switch cfg.StorageDriver {
	case config.DriverPostgres:
		pg, err := postgres.NewStore(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		return pg, nil
	default:
		return memory.NewStore(), nil
	}
}
