// Package config loads and validates environment configuration.
package config

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/joho/godotenv"
	"go-simpler.org/env"
)

type Config struct {
	AppEnv      string `env:"APP_ENV" default:"development"`
	Port        string `env:"PORT" default:"8080"`
	DatabaseURL string `env:"DATABASE_URL"`
	LogLevel    string `env:"LOG_LEVEL" default:"info"`
	LogFormat   string `env:"LOG_FORMAT" default:"text"`

	// Per-IP rate limit for POST /api/run
	RunRatePerSecond float64 `env:"RUN_RATE_PER_SECOND" default:"5"`
	RunRateBurst     int     `env:"RUN_RATE_BURST" default:"10"`

	// Interpreter safety caps; requests may lower these but never raise them
	MaxSteps       int           `env:"ECOLANG_MAX_STEPS" default:"100000"`
	MaxLoop        int           `env:"ECOLANG_MAX_LOOP" default:"10000"`
	MaxRunTime     time.Duration `env:"ECOLANG_MAX_RUN_TIME" default:"1500ms"`
	MaxOutputChars int           `env:"ECOLANG_MAX_OUTPUT_CHARS" default:"5000"`
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	var cfg Config
	if err := env.Load(&cfg, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func validate(cfg *Config) error {
	if cfg.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.RunRatePerSecond <= 0 {
		return fmt.Errorf("RUN_RATE_PER_SECOND must be positive, got %v", cfg.RunRatePerSecond)
	}
	if cfg.RunRateBurst <= 0 {
		return fmt.Errorf("RUN_RATE_BURST must be positive, got %d", cfg.RunRateBurst)
	}
	if cfg.MaxSteps <= 0 || cfg.MaxLoop <= 0 || cfg.MaxOutputChars <= 0 {
		return fmt.Errorf("interpreter caps must be positive")
	}
	if cfg.MaxRunTime <= 0 {
		return fmt.Errorf("ECOLANG_MAX_RUN_TIME must be positive, got %v", cfg.MaxRunTime)
	}
	return nil
}
