package server

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/Phineas-bot/PHINSECOLANG/internal/app"
	"github.com/Phineas-bot/PHINSECOLANG/internal/eco"
	"github.com/Phineas-bot/PHINSECOLANG/internal/errors"
	"github.com/Phineas-bot/PHINSECOLANG/internal/interp"
)

type runRequest struct {
	Code     string         `json:"code"`
	Inputs   map[string]any `json:"inputs"`
	ScriptID *uuid.UUID     `json:"script_id"`
	Settings *runSettings   `json:"settings"`
}

// runSettings lets clients tune the energy model and tighten the safety caps.
// Caps above the server limits are clamped down, never honoured.
type runSettings struct {
	EnergyPerOpJ   float64 `json:"energy_per_op_J"`
	IdlePowerW     float64 `json:"idle_power_W"`
	CO2PerKWhG     float64 `json:"co2_per_kwh_g"`
	MaxSteps       int     `json:"max_steps"`
	MaxLoop        int     `json:"max_loop"`
	MaxTimeMS      int     `json:"max_time_ms"`
	MaxOutputChars int     `json:"max_output_chars"`
}

func (s *Server) handleRun(c echo.Context) error {
	var req runRequest
	if err := c.Bind(&req); err != nil {
		return errors.ValidationError("invalid request body")
	}

	appReq := app.RunRequest{
		Code:     req.Code,
		Inputs:   req.Inputs,
		ScriptID: req.ScriptID,
	}
	if req.Settings != nil {
		appReq.Params = eco.Params{
			EnergyPerOpJ: req.Settings.EnergyPerOpJ,
			IdlePowerW:   req.Settings.IdlePowerW,
			CO2PerKWhG:   req.Settings.CO2PerKWhG,
		}
		appReq.Caps = interp.Limits{
			MaxSteps:       req.Settings.MaxSteps,
			MaxLoop:        req.Settings.MaxLoop,
			MaxTime:        time.Duration(req.Settings.MaxTimeMS) * time.Millisecond,
			MaxOutputChars: req.Settings.MaxOutputChars,
		}
	}

	res, err := s.svc.Run(c.Request().Context(), appReq)
	if err != nil {
		return err
	}

	// Interpreter failures are reported in the payload, not as HTTP errors.
	return c.JSON(http.StatusOK, res)
}
