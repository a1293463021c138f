package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jonboulle/clockwork"

	"github.com/Phineas-bot/PHINSECOLANG/internal/app"
	"github.com/Phineas-bot/PHINSECOLANG/internal/config"
	"github.com/Phineas-bot/PHINSECOLANG/internal/database"
	"github.com/Phineas-bot/PHINSECOLANG/internal/interp"
	"github.com/Phineas-bot/PHINSECOLANG/internal/logging"
	"github.com/Phineas-bot/PHINSECOLANG/internal/metrics"
	"github.com/Phineas-bot/PHINSECOLANG/internal/retry"
	"github.com/Phineas-bot/PHINSECOLANG/internal/server"
	"github.com/Phineas-bot/PHINSECOLANG/internal/version"
)

func setupConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		// Use log before slog is initialized
		log.Fatalf("Failed to load config: %v", err)
	}
	return cfg
}

func setupDB(cfg *config.Config) *pgxpool.Pool {
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	policy := retry.Policy{
		MaxAttempts:      5,
		InitialBackoff:   time.Second,
		RateLimitBackoff: 5 * time.Second,
		OnRetry: func(attempt int, err error, backoff time.Duration) {
			slog.Warn("Database connect failed, retrying", "attempt", attempt, "backoff", backoff, "error", err)
		},
	}
	transient := func(error) retry.Action { return retry.Retry }

	pool, err := retry.Do(ctx, policy, transient, func() (*pgxpool.Pool, error) {
		return database.Connect(ctx, cfg.DatabaseURL)
	})
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}

	if err := database.RunMigrationsWithLock(ctx, pool); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}

	return pool
}

func serverLimits(cfg *config.Config) interp.Limits {
	limits := interp.DefaultLimits()
	limits.MaxSteps = cfg.MaxSteps
	limits.MaxLoop = cfg.MaxLoop
	limits.MaxTime = cfg.MaxRunTime
	limits.MaxOutputChars = cfg.MaxOutputChars
	return limits
}

func runGracefulShutdown(srv *server.Server) <-chan struct{} {
	done := make(chan struct{})
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		slog.Info("Shutdown signal received, cleaning up...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("Server shutdown error", "error", err)
		}

		close(done)
	}()

	return done
}

func main() {
	cfg := setupConfig()

	logging.InitLogger(cfg.LogLevel, cfg.LogFormat)
	slog.Info("Application starting", "env", cfg.AppEnv, "port", cfg.Port)

	info := version.Get()
	metrics.BuildInfo.WithLabelValues(info.Version, info.Commit, info.BuildTime, info.GoVersion).Set(1)

	pool := setupDB(cfg)
	defer pool.Close()

	scriptRepo := database.NewScriptRepo(pool)
	runRepo := database.NewRunRepo(pool)

	svc := app.NewService(scriptRepo, runRepo, serverLimits(cfg), clockwork.NewRealClock())
	srv := server.New(cfg, svc, pool)

	done := runGracefulShutdown(srv)

	if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("Server error", "error", err)
		os.Exit(1)
	}

	<-done
}
