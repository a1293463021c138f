package server

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func (s *Server) registerRoutes() {
	// Observability endpoints
	s.echo.GET("/health/live", s.handleLiveness)
	s.echo.GET("/health/ready", s.handleReadiness)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	s.echo.GET("/version", s.handleVersion)

	// API routes; only execution is rate limited
	api := s.echo.Group("/api")
	api.POST("/run", s.handleRun, newRunRateLimiter(s.config.RunRatePerSecond, s.config.RunRateBurst))
	api.POST("/scripts", s.handleSaveScript)
	api.GET("/scripts", s.handleListScripts)
	api.GET("/scripts/:id", s.handleGetScript)
	api.GET("/stats", s.handleStats)
}
