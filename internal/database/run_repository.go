package database

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Phineas-bot/PHINSECOLANG/internal/domain"
)

// RunRepo stores run outcomes in PostgreSQL.
type RunRepo struct {
	pool *pgxpool.Pool
}

var _ domain.RunRepository = (*RunRepo)(nil)

func NewRunRepo(pool *pgxpool.Pool) *RunRepo {
	return &RunRepo{pool: pool}
}

func (r *RunRepo) Record(ctx context.Context, run *domain.Run) (*domain.Run, error) {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO runs (script_id, status, ops, energy_j, co2_g, duration_s)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`, run.ScriptID, run.Status, run.Ops, run.EnergyJ, run.CO2Grams, run.Duration).
		Scan(&run.ID, &run.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to insert run: %w", err)
	}
	return run, nil
}

func (r *RunRepo) Summary(ctx context.Context, scriptID *uuid.UUID) (*domain.StatsSummary, error) {
	var s domain.StatsSummary
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*),
		       COALESCE(SUM(ops), 0),
		       COALESCE(SUM(energy_j), 0),
		       COALESCE(SUM(co2_g), 0),
		       COALESCE(AVG(ops), 0)
		FROM runs
		WHERE $1::uuid IS NULL OR script_id = $1
	`, scriptID).Scan(&s.TotalRuns, &s.TotalOps, &s.TotalEnergyJ, &s.TotalCO2G, &s.AvgOps)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate runs: %w", err)
	}
	return &s, nil
}

func (r *RunRepo) Recent(ctx context.Context, scriptID *uuid.UUID, limit int) ([]domain.Run, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, script_id, status, ops, energy_j, co2_g, duration_s, created_at
		FROM runs
		WHERE $1::uuid IS NULL OR script_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, scriptID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	runs := make([]domain.Run, 0)
	for rows.Next() {
		var run domain.Run
		if err := rows.Scan(&run.ID, &run.ScriptID, &run.Status, &run.Ops, &run.EnergyJ, &run.CO2Grams, &run.Duration, &run.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read runs: %w", err)
	}
	return runs, nil
}
