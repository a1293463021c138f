package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Run records the outcome of one interpreter execution. ScriptID is nil for
// ad-hoc runs that were never saved.
type Run struct {
	ID        uuid.UUID  `json:"id"`
	ScriptID  *uuid.UUID `json:"script_id,omitempty"`
	Status    string     `json:"status"`
	Ops       int        `json:"ops"`
	EnergyJ   float64    `json:"energy_J"`
	CO2Grams  float64    `json:"co2_g"`
	Duration  float64    `json:"duration_s"`
	CreatedAt time.Time  `json:"created_at"`
}

// StatsSummary aggregates recorded runs, optionally scoped to one script.
type StatsSummary struct {
	TotalRuns    int64   `json:"total_runs"`
	TotalOps     int64   `json:"total_ops"`
	TotalEnergyJ float64 `json:"total_energy_J"`
	TotalCO2G    float64 `json:"total_co2_g"`
	AvgOps       float64 `json:"avg_ops_per_run"`
}

// StatsReport is the /api/stats payload: the aggregate plus the most
// recent runs, newest first.
type StatsReport struct {
	Summary StatsSummary `json:"summary"`
	Runs    []Run        `json:"runs"`
}

// RunRepository persists run outcomes and reads them back for /api/stats.
// A nil scriptID means all runs.
type RunRepository interface {
	Record(ctx context.Context, run *Run) (*Run, error)
	Summary(ctx context.Context, scriptID *uuid.UUID) (*StatsSummary, error)
	Recent(ctx context.Context, scriptID *uuid.UUID, limit int) ([]Run, error)
}
