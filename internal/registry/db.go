// Package registry implements the SQLite-backed catalog of programs and
// vulnerabilities served by the admin interface. It is entirely independent
// of authentication; callers gate access before reaching it.
package registry

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite" // pure-Go SQLite driver

	"vulnreg/internal/registry/repositories/repomanager"
)

// InitDatabase opens the SQLite database at dsn and applies the embedded
// schema migrations.
func InitDatabase(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	rm := repomanager.NewSQLiteRepositoryManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return db, nil
}
