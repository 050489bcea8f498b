package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/gophmsg/internal/dbx"
	"github.com/dmitrijs2005/gophmsg/internal/server/migrations"
	"github.com/dmitrijs2005/gophmsg/internal/server/repositories/envelopes"
	"github.com/dmitrijs2005/gophmsg/internal/server/repositories/identities"
	"github.com/pressly/goose/v3"
)

// SQLiteRepositoryManager is the local single-file backend.
type SQLiteRepositoryManager struct{}

func NewSQLiteRepositoryManager() *SQLiteRepositoryManager {
	return &SQLiteRepositoryManager{}
}

func (m *SQLiteRepositoryManager) Identities(db dbx.DBTX) identities.Repository {
	return identities.NewSQLiteRepository(db)
}

func (m *SQLiteRepositoryManager) Envelopes(db dbx.DBTX) envelopes.Repository {
	return envelopes.NewSQLiteRepository(db)
}

func (m *SQLiteRepositoryManager) RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("sqlite3"); err != nil {
		return err
	}
	return gooseUpContext(ctx, db, migrations.SQLiteDir)
}
