// Package repomanager wires repository constructors and database
// migrations behind a single manager interface.
package repomanager

import (
	"context"
	"database/sql"

	"github.com/passbeam/passbeam/internal/dbx"
	"github.com/passbeam/passbeam/internal/server/repositories/passes"
	"github.com/passbeam/passbeam/internal/server/repositories/registrations"
)

// RepositoryManager vends repositories bound to a DBTX (a *sql.DB or an
// open transaction) and exposes the schema migration hook.
type RepositoryManager interface {
	Passes(db dbx.DBTX) passes.Repository
	Registrations(db dbx.DBTX) registrations.Repository
	RunMigrations(ctx context.Context, db *sql.DB) error
}
