package database

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/tern/v2/migrate"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// Connect creates a connection pool with query metrics enabled and verifies
// connectivity.
func Connect(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}
	poolCfg.ConnConfig.Tracer = &MetricsTracer{}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	slog.Info("Database connected", "min_conns", poolCfg.MinConns, "max_conns", poolCfg.MaxConns)
	return pool, nil
}

const (
	// migrationLockID is a PostgreSQL advisory lock ID for coordinating migrations.
	// Value: 0x65636f6c616e67 ("ecolang" in ASCII hex)
	migrationLockID             = 0x65636f6c616e67
	migrationLockReleaseTimeout = 5 * time.Second
)

// RunMigrationsWithLock applies pending schema migrations under an advisory
// lock so concurrent instances never race.
func RunMigrationsWithLock(ctx context.Context, pool *pgxpool.Pool) error {
	conn, err := pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("failed to acquire connection for migration: %w", err)
	}
	defer conn.Release()

	cancel, err := migrationLock(ctx, conn.Conn(), migrationLockReleaseTimeout)
	if err != nil {
		return err
	}
	defer cancel()

	slog.Info("running database migrations")
	return runMigrations(ctx, conn.Conn())
}

func runMigrations(ctx context.Context, conn *pgx.Conn) error {
	migrationFS, err := fs.Sub(migrationFiles, "migrations")
	if err != nil {
		return fmt.Errorf("failed to read migrations: %w", err)
	}

	migrator, err := migrate.NewMigrator(ctx, conn, "public.schema_version")
	if err != nil {
		return fmt.Errorf("failed to create migrator: %w", err)
	}

	if err := migrator.LoadMigrations(migrationFS); err != nil {
		return fmt.Errorf("failed to load migrations: %w", err)
	}

	currentVersion, err := migrator.GetCurrentVersion(ctx)
	if err != nil {
		slog.Debug("could not get current DB version (likely fresh DB)", "error", err)
	} else {
		slog.Info("current DB version", "version", currentVersion)
	}

	if err := migrator.Migrate(ctx); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	return nil
}

func migrationLock(ctx context.Context, conn *pgx.Conn, releaseTimeout time.Duration) (cancel func(), err error) {
	cancel = func() { /* EMPTY */ }

	if _, err = conn.Exec(ctx, "SELECT pg_advisory_lock($1)", migrationLockID); err != nil {
		err = fmt.Errorf("failed to acquire migration lock: %w", err)
		return
	}

	cancel = func() {
		ctx, cancel := context.WithTimeout(context.Background(), releaseTimeout)
		defer cancel()

		if _, err := conn.Exec(ctx, "SELECT pg_advisory_unlock($1)", migrationLockID); err != nil {
			slog.Error("failed to release migration lock", "error", err)
		}
	}
	return
}
