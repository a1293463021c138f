package app

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/Phineas-bot/PHINSECOLANG/internal/domain"
	"github.com/Phineas-bot/PHINSECOLANG/internal/eco"
	"github.com/Phineas-bot/PHINSECOLANG/internal/errors"
	"github.com/Phineas-bot/PHINSECOLANG/internal/interp"
	"github.com/Phineas-bot/PHINSECOLANG/internal/metrics"
)

const (
	maxCodeChars    = 20_000
	maxTitleChars   = 120
	defaultTitle    = "Untitled"
	recentRunsLimit = 50
)

// RunRequest carries one execution request. Zero-valued Params fields fall
// back to the defaults; Caps may lower the server limits but never raise them.
type RunRequest struct {
	Code     string
	Inputs   map[string]any
	Params   eco.Params
	Caps     interp.Limits
	ScriptID *uuid.UUID
}

// Service executes scripts and persists scripts and run outcomes.
type Service struct {
	scripts domain.ScriptRepository
	runs    domain.RunRepository
	limits  interp.Limits
	clock   clockwork.Clock
}

func NewService(scripts domain.ScriptRepository, runs domain.RunRepository, limits interp.Limits, clock clockwork.Clock) *Service {
	if limits == (interp.Limits{}) {
		limits = interp.DefaultLimits()
	}
	return &Service{scripts: scripts, runs: runs, limits: limits, clock: clock}
}

// Run executes the given code with a fresh interpreter. Interpreter failures
// are part of the result, not an error; the error return covers request
// validation only.
func (s *Service) Run(ctx context.Context, req RunRequest) (*interp.Result, error) {
	if strings.TrimSpace(req.Code) == "" {
		return nil, errors.ValidationError("code is required")
	}
	if utf8.RuneCountInString(req.Code) > maxCodeChars {
		return nil, errors.ValidationError(fmt.Sprintf("code exceeds %d characters", maxCodeChars))
	}

	it := interp.New(interp.Options{
		Limits: s.limits.Clamp(req.Caps),
		Params: mergeParams(req.Params),
		Clock:  s.clock,
	})

	start := s.clock.Now()
	res := it.Run(ctx, req.Code, req.Inputs)
	elapsed := s.clock.Now().Sub(start)

	status := runStatus(res)
	metrics.RunsTotal.WithLabelValues(status).Inc()
	metrics.RunDuration.Observe(elapsed.Seconds())
	if res.Eco != nil {
		metrics.RunOps.Observe(float64(res.Eco.TotalOps))
		metrics.RunEnergyJoules.Observe(res.Eco.EnergyJ)
	}

	s.recordRun(ctx, req.ScriptID, status, res, elapsed.Seconds())
	return res, nil
}

// recordRun persists the outcome best-effort; a storage failure never fails
// the run itself.
func (s *Service) recordRun(ctx context.Context, scriptID *uuid.UUID, status string, res *interp.Result, seconds float64) {
	run := &domain.Run{
		ScriptID: scriptID,
		Status:   status,
		Duration: seconds,
	}
	if res.Eco != nil {
		run.Ops = res.Eco.TotalOps
		run.EnergyJ = res.Eco.EnergyJ
		run.CO2Grams = res.Eco.CO2Grams
	}
	if _, err := s.runs.Record(ctx, run); err != nil {
		slog.Warn("Failed to record run", "error", err)
	}
}

// SaveScript validates and stores a script.
func (s *Service) SaveScript(ctx context.Context, title, code string) (*domain.Script, error) {
	if strings.TrimSpace(code) == "" {
		return nil, errors.ValidationError("code is required")
	}
	if utf8.RuneCountInString(code) > maxCodeChars {
		return nil, errors.ValidationError(fmt.Sprintf("code exceeds %d characters", maxCodeChars))
	}
	title = strings.TrimSpace(title)
	if title == "" {
		title = defaultTitle
	}
	if utf8.RuneCountInString(title) > maxTitleChars {
		return nil, errors.ValidationError(fmt.Sprintf("title exceeds %d characters", maxTitleChars))
	}

	script, err := s.scripts.Save(ctx, title, code)
	if err != nil {
		return nil, errors.InternalError("failed to save script", err)
	}
	metrics.ScriptsSavedTotal.Inc()
	return script, nil
}

// ListScripts returns all saved scripts, newest first.
func (s *Service) ListScripts(ctx context.Context) ([]domain.Script, error) {
	scripts, err := s.scripts.List(ctx)
	if err != nil {
		return nil, errors.InternalError("failed to list scripts", err)
	}
	return scripts, nil
}

// GetScript fetches a single script by ID.
func (s *Service) GetScript(ctx context.Context, id uuid.UUID) (*domain.Script, error) {
	script, err := s.scripts.Get(ctx, id)
	if err != nil {
		if stderrors.Is(err, domain.ErrScriptNotFound) {
			return nil, errors.NotFoundError("script not found").WithField("script_id", id.String())
		}
		return nil, errors.InternalError("failed to load script", err)
	}
	return script, nil
}

// Stats aggregates recorded runs and returns the most recent ones, scoped
// to one script when scriptID is non-nil.
func (s *Service) Stats(ctx context.Context, scriptID *uuid.UUID) (*domain.StatsReport, error) {
	summary, err := s.runs.Summary(ctx, scriptID)
	if err != nil {
		return nil, errors.InternalError("failed to aggregate stats", err)
	}
	runs, err := s.runs.Recent(ctx, scriptID, recentRunsLimit)
	if err != nil {
		return nil, errors.InternalError("failed to list runs", err)
	}
	return &domain.StatsReport{Summary: *summary, Runs: runs}, nil
}

func mergeParams(p eco.Params) eco.Params {
	merged := eco.DefaultParams()
	if p.EnergyPerOpJ > 0 {
		merged.EnergyPerOpJ = p.EnergyPerOpJ
	}
	if p.IdlePowerW > 0 {
		merged.IdlePowerW = p.IdlePowerW
	}
	if p.CO2PerKWhG > 0 {
		merged.CO2PerKWhG = p.CO2PerKWhG
	}
	return merged
}

func runStatus(res *interp.Result) string {
	if res.Err == nil {
		return "ok"
	}
	return strings.ToLower(string(res.Err.Code))
}
