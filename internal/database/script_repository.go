package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Phineas-bot/PHINSECOLANG/internal/domain"
)

// ScriptRepo stores scripts in PostgreSQL.
type ScriptRepo struct {
	pool *pgxpool.Pool
}

var _ domain.ScriptRepository = (*ScriptRepo)(nil)

func NewScriptRepo(pool *pgxpool.Pool) *ScriptRepo {
	return &ScriptRepo{pool: pool}
}

func (r *ScriptRepo) Save(ctx context.Context, title, code string) (*domain.Script, error) {
	var script domain.Script
	err := r.pool.QueryRow(ctx, `
		INSERT INTO scripts (title, code)
		VALUES ($1, $2)
		RETURNING id, title, code, created_at, updated_at
	`, title, code).Scan(&script.ID, &script.Title, &script.Code, &script.CreatedAt, &script.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to insert script: %w", err)
	}
	return &script, nil
}

func (r *ScriptRepo) List(ctx context.Context) ([]domain.Script, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, title, code, created_at, updated_at
		FROM scripts
		ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query scripts: %w", err)
	}
	defer rows.Close()

	scripts := []domain.Script{}
	for rows.Next() {
		var s domain.Script
		if err := rows.Scan(&s.ID, &s.Title, &s.Code, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan script: %w", err)
		}
		scripts = append(scripts, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read scripts: %w", err)
	}
	return scripts, nil
}

func (r *ScriptRepo) Get(ctx context.Context, id uuid.UUID) (*domain.Script, error) {
	var script domain.Script
	err := r.pool.QueryRow(ctx, `
		SELECT id, title, code, created_at, updated_at
		FROM scripts
		WHERE id = $1
	`, id).Scan(&script.ID, &script.Title, &script.Code, &script.CreatedAt, &script.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrScriptNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load script: %w", err)
	}
	return &script, nil
}
