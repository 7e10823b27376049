package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inesp/standup-report/internal/models"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "test.db")

	s, err := NewSQLiteStore(dbPath)
	require.NoError(t, err)

	err = s.Migrate(context.Background())
	require.NoError(t, err)

	t.Cleanup(func() { s.Close() })
	return s
}

func TestNewSQLiteStore_CreatesDirectory(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "subdir", "test.db")

	s, err := NewSQLiteStore(dbPath)
	require.NoError(t, err)
	defer s.Close()

	_, err = os.Stat(filepath.Join(dir, "subdir"))
	assert.NoError(t, err, "should create parent directory")
}

func TestMigrate_Idempotent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	err := s.Migrate(ctx)
	assert.NoError(t, err)
}

// --- Ignored items ---

func TestIgnoredItems_Idempotent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	item := models.IgnoredItem{Type: models.ItemTypePR, ID: "acme/app/pull/1", Title: "Fix login"}
	require.NoError(t, s.AddIgnoredItem(ctx, item))

	item.Title = "Fix login (renamed)"
	require.NoError(t, s.AddIgnoredItem(ctx, item))

	items, err := s.ListIgnoredItems(ctx)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Fix login (renamed)", items[0].Title)
	assert.Equal(t, models.ItemTypePR, items[0].Type)
	assert.False(t, items[0].IgnoredAt.IsZero())
}

func TestIgnoredItems_SameIDDifferentType(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.AddIgnoredItem(ctx, models.IgnoredItem{Type: models.ItemTypePR, ID: "X"}))
	require.NoError(t, s.AddIgnoredItem(ctx, models.IgnoredItem{Type: models.ItemTypeIssue, ID: "X"}))

	items, err := s.ListIgnoredItems(ctx)
	require.NoError(t, err)
	assert.Len(t, items, 2)
}

func TestIgnoredItems_OrderedNewestFirst(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	base := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, s.AddIgnoredItem(ctx, models.IgnoredItem{Type: models.ItemTypeIssue, ID: "OLD", IgnoredAt: base}))
	require.NoError(t, s.AddIgnoredItem(ctx, models.IgnoredItem{Type: models.ItemTypeIssue, ID: "NEW", IgnoredAt: base.Add(time.Hour)}))

	items, err := s.ListIgnoredItems(ctx)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "NEW", items[0].ID)
	assert.Equal(t, "OLD", items[1].ID)
}

func TestRemoveIgnoredItem(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	// never ignored: no-op
	require.NoError(t, s.RemoveIgnoredItem(ctx, models.ItemKey{Type: models.ItemTypePR, ID: "nope"}))

	require.NoError(t, s.AddIgnoredItem(ctx, models.IgnoredItem{Type: models.ItemTypeMeeting, ID: "m1", Title: "Standup"}))
	require.NoError(t, s.RemoveIgnoredItem(ctx, models.ItemKey{Type: models.ItemTypeMeeting, ID: "m1"}))

	items, err := s.ListIgnoredItems(ctx)
	require.NoError(t, err)
	assert.Empty(t, items)
}

// --- Notes ---

func TestSetNote_UpsertAndTrim(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	n := models.Note{Type: models.ItemTypeIssue, ID: "ENG-1", Category: models.NoteCategoryDone, Text: "  first  "}
	require.NoError(t, s.SetNote(ctx, n))

	n.Text = "second"
	require.NoError(t, s.SetNote(ctx, n))

	require.NoError(t, s.SetNote(ctx, models.Note{Type: models.ItemTypeIssue, ID: "ENG-1", Category: models.NoteCategoryNext, Text: "later"}))

	notes, err := s.ListNotes(ctx)
	require.NoError(t, err)
	require.Len(t, notes, 2)
	assert.Equal(t, "second", notes[0].Text)
	assert.Equal(t, models.NoteCategoryDone, notes[0].Category)
	assert.Equal(t, "later", notes[1].Text)
}

func TestSetNote_DeleteOnEmpty(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	n := models.Note{Type: models.ItemTypePR, ID: "acme/app/pull/1", Category: models.NoteCategoryNext, Text: "follow up"}
	require.NoError(t, s.SetNote(ctx, n))

	for _, blank := range []string{"", "   ", "\n\t"} {
		n.Text = blank
		require.NoError(t, s.SetNote(ctx, n))

		notes, err := s.ListNotes(ctx)
		require.NoError(t, err)
		assert.Empty(t, notes)
	}
}

func TestDeleteAllNotes(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for _, id := range []string{"A", "B", "C"} {
		require.NoError(t, s.SetNote(ctx, models.Note{Type: models.ItemTypeIssue, ID: id, Category: models.NoteCategoryDone, Text: "x"}))
	}

	n, err := s.DeleteAllNotes(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	notes, err := s.ListNotes(ctx)
	require.NoError(t, err)
	assert.Empty(t, notes)
}

// --- Lifecycle ---

func TestHealth(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.AddIgnoredItem(ctx, models.IgnoredItem{Type: models.ItemTypePR, ID: "x"}))

	h := s.Health(ctx)
	assert.Equal(t, "healthy", h.Status)
	assert.Contains(t, h.Tables, "ignored_items")
	assert.Contains(t, h.Tables, "notes")
	assert.Equal(t, 1, h.RowCounts["ignored_items"])
	assert.Equal(t, 0, h.RowCounts["notes"])
}

func TestRecreate(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.AddIgnoredItem(ctx, models.IgnoredItem{Type: models.ItemTypePR, ID: "x"}))
	require.NoError(t, s.SetNote(ctx, models.Note{Type: models.ItemTypePR, ID: "x", Category: models.NoteCategoryDone, Text: "y"}))

	require.NoError(t, s.Recreate(ctx))

	items, err := s.ListIgnoredItems(ctx)
	require.NoError(t, err)
	assert.Empty(t, items)

	notes, err := s.ListNotes(ctx)
	require.NoError(t, err)
	assert.Empty(t, notes)

	require.NoError(t, s.AddIgnoredItem(ctx, models.IgnoredItem{Type: models.ItemTypePR, ID: "x"}))
}
