package server

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/Phineas-bot/PHINSECOLANG/internal/errors"
)

type saveScriptRequest struct {
	Title string `json:"title"`
	Code  string `json:"code"`
}

func (s *Server) handleSaveScript(c echo.Context) error {
	var req saveScriptRequest
	if err := c.Bind(&req); err != nil {
		return errors.ValidationError("invalid request body")
	}

	script, err := s.svc.SaveScript(c.Request().Context(), req.Title, req.Code)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, script)
}

func (s *Server) handleListScripts(c echo.Context) error {
	scripts, err := s.svc.ListScripts(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{"scripts": scripts})
}

func (s *Server) handleGetScript(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return errors.ValidationError("invalid script id")
	}

	script, err := s.svc.GetScript(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, script)
}

func (s *Server) handleStats(c echo.Context) error {
	var scriptID *uuid.UUID
	if raw := c.QueryParam("script_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return errors.ValidationError("invalid script id")
		}
		scriptID = &id
	}

	report, err := s.svc.Stats(c.Request().Context(), scriptID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, report)
}
