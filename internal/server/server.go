package server

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/Phineas-bot/PHINSECOLANG/internal/app"
	"github.com/Phineas-bot/PHINSECOLANG/internal/config"
	"github.com/Phineas-bot/PHINSECOLANG/internal/domain"
	"github.com/Phineas-bot/PHINSECOLANG/internal/errors"
	"github.com/Phineas-bot/PHINSECOLANG/internal/interp"
)

// Service is the application surface the HTTP layer needs.
type Service interface {
	Run(ctx context.Context, req app.RunRequest) (*interp.Result, error)
	SaveScript(ctx context.Context, title, code string) (*domain.Script, error)
	ListScripts(ctx context.Context) ([]domain.Script, error)
	GetScript(ctx context.Context, id uuid.UUID) (*domain.Script, error)
	Stats(ctx context.Context, scriptID *uuid.UUID) (*domain.StatsReport, error)
}

// Pinger is a minimal interface for database health checks.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Server struct {
	echo      *echo.Echo
	config    *config.Config
	svc       Service
	db        Pinger
	startTime time.Time
}

func New(cfg *config.Config, svc Service, db Pinger) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(correlationMiddleware())
	e.Use(middleware.Logger())
	e.Use(errors.Middleware())

	srv := &Server{
		echo:      e,
		config:    cfg,
		svc:       svc,
		db:        db,
		startTime: time.Now(),
	}

	srv.registerRoutes()
	return srv
}

func (s *Server) Start() error {
	slog.Info("Starting server", "port", s.config.Port)
	return s.echo.Start(fmt.Sprintf(":%s", s.config.Port))
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}
