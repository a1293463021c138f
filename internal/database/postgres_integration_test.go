package database

import (
	"context"
	"flag"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/Phineas-bot/PHINSECOLANG/internal/domain"
)

var testPool *pgxpool.Pool

func TestMain(m *testing.M) {
	flag.Parse()

	// Skip container setup if running in short mode
	if testing.Short() {
		os.Exit(m.Run())
	}

	ctx := context.Background()

	postgresContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to start postgres container: %v\n", err)
		os.Exit(1)
	}

	defer func() {
		if err := postgresContainer.Terminate(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to terminate postgres container: %v\n", err)
		}
	}()

	connStr, err := postgresContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to get connection string: %v\n", err)
		os.Exit(1)
	}

	testPool, err = Connect(ctx, connStr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to connect to test database: %v\n", err)
		os.Exit(1)
	}
	defer testPool.Close()

	if err := RunMigrationsWithLock(ctx, testPool); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to run migrations: %v\n", err)
		os.Exit(1)
	}

	os.Exit(m.Run())
}

func skipIfShort(t *testing.T) {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
}

func TestScriptRepoSaveAndGet(t *testing.T) {
	skipIfShort(t)
	ctx := context.Background()
	repo := NewScriptRepo(testPool)

	saved, err := repo.Save(ctx, "fib", "let a = 1\nsay a")
	require.NoError(t, err)
	assert.Equal(t, "fib", saved.Title)
	assert.False(t, saved.CreatedAt.IsZero())

	loaded, err := repo.Get(ctx, saved.ID)
	require.NoError(t, err)
	assert.Equal(t, saved.ID, loaded.ID)
	assert.Equal(t, "let a = 1\nsay a", loaded.Code)
}

func TestScriptRepoGetMissing(t *testing.T) {
	skipIfShort(t)
	repo := NewScriptRepo(testPool)

	_, err := repo.Get(context.Background(), uuid.New())
	assert.ErrorIs(t, err, domain.ErrScriptNotFound)
}

func TestScriptRepoListNewestFirst(t *testing.T) {
	skipIfShort(t)
	ctx := context.Background()
	repo := NewScriptRepo(testPool)

	first, err := repo.Save(ctx, "older", "say 1")
	require.NoError(t, err)
	second, err := repo.Save(ctx, "newer", "say 2")
	require.NoError(t, err)

	scripts, err := repo.List(ctx)
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(scripts), 2)

	idxFirst, idxSecond := -1, -1
	for i, s := range scripts {
		switch s.ID {
		case first.ID:
			idxFirst = i
		case second.ID:
			idxSecond = i
		}
	}
	require.NotEqual(t, -1, idxFirst)
	require.NotEqual(t, -1, idxSecond)
	assert.Less(t, idxSecond, idxFirst, "newest script should sort first")
}

func TestRunRepoRecordAndSummary(t *testing.T) {
	skipIfShort(t)
	ctx := context.Background()
	scripts := NewScriptRepo(testPool)
	runs := NewRunRepo(testPool)

	script, err := scripts.Save(ctx, "tracked", "say 1")
	require.NoError(t, err)

	before, err := runs.Summary(ctx, nil)
	require.NoError(t, err)

	recorded, err := runs.Record(ctx, &domain.Run{
		ScriptID: &script.ID,
		Status:   "ok",
		Ops:      120,
		EnergyJ:  0.5,
		CO2Grams: 0.01,
		Duration: 0.02,
	})
	require.NoError(t, err)
	assert.False(t, recorded.CreatedAt.IsZero())

	adhoc, err := runs.Record(ctx, &domain.Run{Status: "timeout", Ops: 30})
	require.NoError(t, err)
	assert.Nil(t, adhoc.ScriptID)

	after, err := runs.Summary(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, before.TotalRuns+2, after.TotalRuns)
	assert.Equal(t, before.TotalOps+150, after.TotalOps)
	assert.InDelta(t, before.TotalEnergyJ+0.5, after.TotalEnergyJ, 1e-9)

	scoped, err := runs.Summary(ctx, &script.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), scoped.TotalRuns)
	assert.Equal(t, int64(120), scoped.TotalOps)

	recent, err := runs.Recent(ctx, &script.ID, 10)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, recorded.ID, recent[0].ID)

	all, err := runs.Recent(ctx, nil, 100)
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(all), 2)
	ids := make([]uuid.UUID, 0, len(all))
	for _, run := range all {
		ids = append(ids, run.ID)
	}
	assert.Contains(t, ids, adhoc.ID)
	assert.Contains(t, ids, recorded.ID)
}

func TestMigrationsAreIdempotent(t *testing.T) {
	skipIfShort(t)
	assert.NoError(t, RunMigrationsWithLock(context.Background(), testPool))
}
