package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/frostlabs/frostgate/internal/config"
	"github.com/frostlabs/frostgate/internal/ratelimit"
	"github.com/frostlabs/frostgate/internal/seed"
	"github.com/frostlabs/frostgate/internal/server"
	"github.com/frostlabs/frostgate/internal/service"
	"github.com/frostlabs/frostgate/internal/storage"
	"github.com/frostlabs/frostgate/internal/telemetry"
	"github.com/frostlabs/frostgate/migrations"
)

// version is set at build time via -ldflags.
var version = "dev"

func main() {
	os.Exit(run0())
}

func run0() int {
	level := slog.LevelInfo
	if os.Getenv("FG_LOG_LEVEL") == "debug" {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, logger); err != nil {
		slog.Error("fatal error", "error", err)
		return 1
	}
	return 0
}

func run(ctx context.Context, logger *slog.Logger) error {
	// Load .env file if present (non-fatal; production won't have one).
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	slog.Info("frostgate starting", "version", version, "port", cfg.Port, "env", cfg.Env)

	// Initialize OpenTelemetry.
	otelShutdown, err := telemetry.Init(ctx, cfg.OTELEndpoint, cfg.Service, version, cfg.OTELInsecure)
	if err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	defer func() { _ = otelShutdown(context.Background()) }()

	// The state directory must exist before SQLite can create the file.
	if dir := filepath.Dir(cfg.DBPath); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("create state dir: %w", err)
		}
	}

	db, err := storage.Open(ctx, cfg.DBPath, cfg.DBPoolSize, logger)
	if err != nil {
		return fmt.Errorf("storage: %w", err)
	}
	defer func() { _ = db.Close() }()

	if err := db.RunMigrations(ctx, migrations.FS); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}

	defender := service.NewDefender(db, logger,
		time.Duration(cfg.ClockStaleMS)*time.Millisecond)
	seeder := seed.New(defender, logger)

	limiter := ratelimit.NewMemoryLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
	defer func() { _ = limiter.Close() }()

	srv := server.New(server.ServerConfig{
		Config:   cfg,
		DB:       db,
		Defender: defender,
		Seeder:   seeder,
		Limiter:  limiter,
		Logger:   logger,
		Version:  version,
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("frostgate shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	slog.Info("frostgate stopped")
	return nil
}
