package store

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/inesp/standup-report/internal/models"

	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// overrideTables are the tables Recreate drops and Health counts.
var overrideTables = []string{"ignored_items", "notes"}

// SQLiteStore implements Store using modernc.org/sqlite (pure Go, no CGO).
type SQLiteStore struct {
	db   *sql.DB
	path string
}

// NewSQLiteStore opens (or creates) a SQLite database at the given path.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// One connection serializes writers; the HTTP server and MCP server may
	// both touch the store.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}

	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}

	return &SQLiteStore{db: db, path: dbPath}, nil
}

// Migrate runs all embedded SQL migration files in order.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		filename TEXT PRIMARY KEY,
		applied_at DATETIME NOT NULL DEFAULT (datetime('now'))
	)`)
	if err != nil {
		return fmt.Errorf("create migrations table: %w", err)
	}

	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("read migrations dir: %w", err)
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		name := entry.Name()

		var count int
		err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM schema_migrations WHERE filename = ?", name).Scan(&count)
		if err != nil {
			return fmt.Errorf("check migration %s: %w", name, err)
		}
		if count > 0 {
			continue
		}

		data, err := migrationsFS.ReadFile("migrations/" + name)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", name, err)
		}

		if _, err := s.db.ExecContext(ctx, string(data)); err != nil {
			return fmt.Errorf("apply migration %s: %w", name, err)
		}

		if _, err := s.db.ExecContext(ctx, "INSERT INTO schema_migrations (filename) VALUES (?)", name); err != nil {
			return fmt.Errorf("record migration %s: %w", name, err)
		}
	}

	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// --- Ignored items ---

// AddIgnoredItem inserts or replaces the entry for the item's key.
func (s *SQLiteStore) AddIgnoredItem(ctx context.Context, item models.IgnoredItem) error {
	if item.IgnoredAt.IsZero() {
		item.IgnoredAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO ignored_items (item_type, item_id, item_title, ignored_at)
		VALUES (?, ?, ?, ?)`,
		string(item.Type), item.ID, item.Title, item.IgnoredAt,
	)
	if err != nil {
		return fmt.Errorf("add ignored item: %w", err)
	}
	slog.Info("ignored item", "type", item.Type, "id", item.ID, "title", item.Title)
	return nil
}

// RemoveIgnoredItem deletes the entry if present. Removing an absent key is
// not an error.
func (s *SQLiteStore) RemoveIgnoredItem(ctx context.Context, key models.ItemKey) error {
	_, err := s.db.ExecContext(ctx,
		"DELETE FROM ignored_items WHERE item_type = ? AND item_id = ?",
		string(key.Type), key.ID,
	)
	if err != nil {
		return fmt.Errorf("remove ignored item: %w", err)
	}
	slog.Info("unignored item", "type", key.Type, "id", key.ID)
	return nil
}

// ListIgnoredItems returns every ignored item, most recently ignored first.
func (s *SQLiteStore) ListIgnoredItems(ctx context.Context) ([]models.IgnoredItem, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT item_type, item_id, item_title, ignored_at
		FROM ignored_items ORDER BY ignored_at DESC, item_id`)
	if err != nil {
		return nil, fmt.Errorf("list ignored items: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var items []models.IgnoredItem
	for rows.Next() {
		var it models.IgnoredItem
		var itemType string
		if err := rows.Scan(&itemType, &it.ID, &it.Title, &it.IgnoredAt); err != nil {
			return nil, fmt.Errorf("scan ignored item: %w", err)
		}
		it.Type = models.ItemType(itemType)
		items = append(items, it)
	}
	return items, rows.Err()
}

// --- Notes ---

// SetNote stores the trimmed note text. Blank text deletes the note instead.
func (s *SQLiteStore) SetNote(ctx context.Context, note models.Note) error {
	text := strings.TrimSpace(note.Text)
	if text == "" {
		return s.RemoveNote(ctx, note.Key())
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO notes (item_type, item_id, category, note, updated_at)
		VALUES (?, ?, ?, ?, ?)`,
		string(note.Type), note.ID, string(note.Category), text, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("set note: %w", err)
	}
	slog.Info("set note", "type", note.Type, "id", note.ID, "category", note.Category)
	return nil
}

func (s *SQLiteStore) RemoveNote(ctx context.Context, key models.NoteKey) error {
	_, err := s.db.ExecContext(ctx,
		"DELETE FROM notes WHERE item_type = ? AND item_id = ? AND category = ?",
		string(key.Type), key.ID, string(key.Category),
	)
	if err != nil {
		return fmt.Errorf("remove note: %w", err)
	}
	slog.Info("removed note", "type", key.Type, "id", key.ID, "category", key.Category)
	return nil
}

func (s *SQLiteStore) ListNotes(ctx context.Context) ([]models.Note, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT item_type, item_id, category, note FROM notes
		ORDER BY item_type, item_id, category`)
	if err != nil {
		return nil, fmt.Errorf("list notes: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var notes []models.Note
	for rows.Next() {
		var n models.Note
		var itemType, category string
		if err := rows.Scan(&itemType, &n.ID, &category, &n.Text); err != nil {
			return nil, fmt.Errorf("scan note: %w", err)
		}
		n.Type = models.ItemType(itemType)
		n.Category = models.NoteCategory(category)
		notes = append(notes, n)
	}
	return notes, rows.Err()
}

// DeleteAllNotes removes every note and returns how many were deleted.
func (s *SQLiteStore) DeleteAllNotes(ctx context.Context) (int64, error) {
	result, err := s.db.ExecContext(ctx, "DELETE FROM notes")
	if err != nil {
		return 0, fmt.Errorf("delete all notes: %w", err)
	}
	n, _ := result.RowsAffected()
	slog.Info("deleted all notes", "count", n)
	return n, nil
}

// --- Lifecycle ---

// Health checks the connection and reports tables and row counts. It never
// fails; problems are reported in the returned value.
func (s *SQLiteStore) Health(ctx context.Context) Health {
	h := Health{Status: "healthy", Path: s.path, RowCounts: map[string]int{}}

	var one int
	if err := s.db.QueryRowContext(ctx, "SELECT 1").Scan(&one); err != nil || one != 1 {
		h.Status = "error"
		if err != nil {
			h.Error = err.Error()
		}
		return h
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name")
	if err != nil {
		return Health{Status: "error", Path: s.path, Error: err.Error()}
	}
	defer func() { _ = rows.Close() }()
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return Health{Status: "error", Path: s.path, Error: err.Error()}
		}
		h.Tables = append(h.Tables, name)
	}
	if err := rows.Err(); err != nil {
		return Health{Status: "error", Path: s.path, Error: err.Error()}
	}

	for _, table := range overrideTables {
		var count int
		// table names come from a fixed list
		if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table).Scan(&count); err != nil {
			h.Status = "error"
			h.Error = fmt.Sprintf("count %s: %v", table, err)
			continue
		}
		h.RowCounts[table] = count
	}
	return h
}

// Recreate drops the override tables and re-runs every migration.
func (s *SQLiteStore) Recreate(ctx context.Context) error {
	for _, table := range overrideTables {
		if _, err := s.db.ExecContext(ctx, "DROP TABLE IF EXISTS "+table); err != nil {
			return fmt.Errorf("drop %s: %w", table, err)
		}
	}
	if _, err := s.db.ExecContext(ctx, "DELETE FROM schema_migrations"); err != nil {
		return fmt.Errorf("reset migrations: %w", err)
	}
	slog.Warn("recreated override tables", "path", s.path)
	return s.Migrate(ctx)
}
