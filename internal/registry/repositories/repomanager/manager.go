// Package repomanager wires repository constructors and schema migrations
// behind a single interface, so services can stay storage-agnostic.
package repomanager

import (
	"context"
	"database/sql"

	"vulnreg/internal/dbx"
	"vulnreg/internal/registry/repositories/programs"
	"vulnreg/internal/registry/repositories/vulnerabilities"
)

type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Programs(db dbx.DBTX) programs.Repository
	Vulnerabilities(db dbx.DBTX) vulnerabilities.Repository
}
