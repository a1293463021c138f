package domain

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrScriptNotFound is returned when a script lookup misses.
var ErrScriptNotFound = errors.New("script not found")

// Script is a saved EcoLang program.
type Script struct {
	ID        uuid.UUID `json:"id"`
	Title     string    `json:"title"`
	Code      string    `json:"code"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ScriptRepository persists scripts.
type ScriptRepository interface {
	Save(ctx context.Context, title, code string) (*Script, error)
	List(ctx context.Context) ([]Script, error)
	Get(ctx context.Context, id uuid.UUID) (*Script, error)
}
