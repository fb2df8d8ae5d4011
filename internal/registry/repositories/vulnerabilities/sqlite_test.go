package vulnerabilities

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vulnreg/internal/common"
	"vulnreg/internal/registry/models"

	_ "modernc.org/sqlite"
)

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(`
CREATE TABLE vulnerabilities (
  id TEXT PRIMARY KEY,
  program_id TEXT NOT NULL,
  title TEXT NOT NULL,
  severity TEXT NOT NULL,
  status TEXT NOT NULL,
  description TEXT NOT NULL DEFAULT '',
  reference TEXT NOT NULL DEFAULT '',
  created_at INTEGER NOT NULL,
  updated_at INTEGER NOT NULL
);
`)
	require.NoError(t, err)
	return db
}

func sampleVuln(id, programID, title string, created time.Time) *models.Vulnerability {
	return &models.Vulnerability{
		ID:          id,
		ProgramID:   programID,
		Title:       title,
		Severity:    models.SeverityHigh,
		Status:      models.StatusOpen,
		Description: "stack overflow in parser",
		Reference:   "CVE-2025-0001",
		CreatedAt:   created,
		UpdatedAt:   created,
	}
}

func TestSQLiteRepository_CreateGet(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)
	ctx := context.Background()

	v := sampleVuln("v1", "p1", "Parser crash", time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	require.NoError(t, r.Create(ctx, v))

	got, err := r.GetByID(ctx, "v1")
	require.NoError(t, err)
	assert.Equal(t, v, got)
}

func TestSQLiteRepository_GetByID_NotFound(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)

	_, err := r.GetByID(context.Background(), "missing")
	require.ErrorIs(t, err, common.ErrorNotFound)
}

func TestSQLiteRepository_ListByProgram_OrderedByCreation(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)
	ctx := context.Background()

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, r.Create(ctx, sampleVuln("v2", "p1", "Second", base.Add(time.Hour))))
	require.NoError(t, r.Create(ctx, sampleVuln("v1", "p1", "First", base)))
	require.NoError(t, r.Create(ctx, sampleVuln("v3", "p2", "Other program", base)))

	list, err := r.ListByProgram(ctx, "p1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "v1", list[0].ID)
	assert.Equal(t, "v2", list[1].ID)
}

func TestSQLiteRepository_Update(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)
	ctx := context.Background()

	v := sampleVuln("v1", "p1", "Parser crash", time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	require.NoError(t, r.Create(ctx, v))

	v.Status = models.StatusResolved
	v.UpdatedAt = v.UpdatedAt.Add(time.Hour)
	require.NoError(t, r.Update(ctx, v))

	got, err := r.GetByID(ctx, "v1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusResolved, got.Status)

	require.ErrorIs(t, r.Update(ctx, sampleVuln("missing", "p1", "X", v.CreatedAt)), common.ErrorNotFound)
}

func TestSQLiteRepository_DeleteByProgram(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)
	ctx := context.Background()

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, r.Create(ctx, sampleVuln("v1", "p1", "First", base)))
	require.NoError(t, r.Create(ctx, sampleVuln("v2", "p1", "Second", base)))
	require.NoError(t, r.Create(ctx, sampleVuln("v3", "p2", "Keep", base)))

	require.NoError(t, r.DeleteByProgram(ctx, "p1"))
	// Deleting an empty set is fine.
	require.NoError(t, r.DeleteByProgram(ctx, "p1"))

	list, err := r.ListByProgram(ctx, "p1")
	require.NoError(t, err)
	assert.Empty(t, list)

	kept, err := r.ListByProgram(ctx, "p2")
	require.NoError(t, err)
	assert.Len(t, kept, 1)
}

func TestSQLiteRepository_Search_TitleAndDescription(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)
	ctx := context.Background()

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	a := sampleVuln("v1", "p1", "Heap overflow", base)
	b := sampleVuln("v2", "p1", "Auth bypass", base.Add(time.Minute))
	b.Description = "missing check in login handler"
	require.NoError(t, r.Create(ctx, a))
	require.NoError(t, r.Create(ctx, b))

	got, err := r.Search(ctx, "OVERFLOW")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "v1", got[0].ID)

	got, err = r.Search(ctx, "login")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "v2", got[0].ID)
}
