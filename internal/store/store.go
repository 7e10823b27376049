package store

import (
	"context"

	"github.com/inesp/standup-report/internal/models"
)

// Health describes the state of the override database.
type Health struct {
	Status    string         `json:"status"`
	Path      string         `json:"path"`
	Tables    []string       `json:"tables"`
	RowCounts map[string]int `json:"row_counts"`
	Error     string         `json:"error,omitempty"`
}

// Store defines the persistence interface for user overrides.
type Store interface {
	// Ignore-list
	AddIgnoredItem(ctx context.Context, item models.IgnoredItem) error
	RemoveIgnoredItem(ctx context.Context, key models.ItemKey) error
	ListIgnoredItems(ctx context.Context) ([]models.IgnoredItem, error)

	// Notes
	SetNote(ctx context.Context, note models.Note) error
	RemoveNote(ctx context.Context, key models.NoteKey) error
	ListNotes(ctx context.Context) ([]models.Note, error)
	DeleteAllNotes(ctx context.Context) (int64, error)

	// Lifecycle
	Health(ctx context.Context) Health
	Recreate(ctx context.Context) error
	Migrate(ctx context.Context) error
	Close() error
}
