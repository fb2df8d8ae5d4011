package repomanager

import (
	"context"
	"database/sql"

	"github.com/pressly/goose/v3"

	"vulnreg/internal/dbx"
	"vulnreg/internal/registry/migrations"
	"vulnreg/internal/registry/repositories/programs"
	"vulnreg/internal/registry/repositories/vulnerabilities"
)

// SQLiteRepositoryManager vends SQLite-backed repository implementations
// and exposes a schema migration hook.
type SQLiteRepositoryManager struct{}

// NewSQLiteRepositoryManager constructs an SQLite-backed RepositoryManager.
func NewSQLiteRepositoryManager() *SQLiteRepositoryManager {
	return &SQLiteRepositoryManager{}
}

// Programs returns a programs.Repository bound to the provided DBTX.
func (m *SQLiteRepositoryManager) Programs(db dbx.DBTX) programs.Repository {
	return programs.NewSQLiteRepository(db)
}

// Vulnerabilities returns a vulnerabilities.Repository bound to the provided DBTX.
func (m *SQLiteRepositoryManager) Vulnerabilities(db dbx.DBTX) vulnerabilities.Repository {
	return vulnerabilities.NewSQLiteRepository(db)
}

// gooseUpContext is a seam for testing goose.UpContext.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// RunMigrations sets up goose with the embedded migrations and runs them
// against the provided database connection.
func (m *SQLiteRepositoryManager) RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("sqlite3"); err != nil {
		return err
	}
	return gooseUpContext(ctx, db, ".")
}
