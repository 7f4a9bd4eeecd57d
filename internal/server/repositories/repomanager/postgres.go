// Package repomanager provides a concrete RepositoryManager for PostgreSQL,
// wiring together repository constructors and database migrations (via goose).
package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/barcodekeeper/internal/dbx"
	"github.com/dmitrijs2005/barcodekeeper/internal/server/migrations"
	"github.com/dmitrijs2005/barcodekeeper/internal/server/repositories/collected"
	"github.com/dmitrijs2005/barcodekeeper/internal/server/repositories/keys"
	"github.com/dmitrijs2005/barcodekeeper/internal/server/repositories/masterdata"
	"github.com/dmitrijs2005/barcodekeeper/internal/server/repositories/tokens"
	"github.com/dmitrijs2005/barcodekeeper/internal/server/repositories/xmlstaging"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

// PostgresRepositoryManager vends PostgreSQL-backed repository implementations
// and exposes a schema migration hook.
type PostgresRepositoryManager struct{}

func (m *PostgresRepositoryManager) Keys(db dbx.DBTX) keys.Repository {
	return keys.NewPostgresRepository(db)
}

func (m *PostgresRepositoryManager) Tokens(db dbx.DBTX) tokens.Repository {
	return tokens.NewPostgresRepository(db)
}

func (m *PostgresRepositoryManager) MasterData(db dbx.DBTX) masterdata.Repository {
	return masterdata.NewPostgresRepository(db)
}

func (m *PostgresRepositoryManager) Collected(db dbx.DBTX) collected.Repository {
	return collected.NewPostgresRepository(db)
}

func (m *PostgresRepositoryManager) XMLStaging(db dbx.DBTX) xmlstaging.Repository {
	return xmlstaging.NewPostgresRepository(db)
}

// gooseUpContext is a seam for testing goose.UpContext.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// RunMigrations applies the embedded migrations to db.
func (m *PostgresRepositoryManager) RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("pgx"); err != nil {
		return err
	}
	return gooseUpContext(ctx, db, ".")
}

// NewPostgresRepositoryManager constructs a PostgreSQL-backed RepositoryManager.
func NewPostgresRepositoryManager() *PostgresRepositoryManager {
	return &PostgresRepositoryManager{}
}

// Open opens a pgx-backed connection pool and verifies it with a ping.
func Open(ctx context.Context, dsn string, maxOpenConns int) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	if maxOpenConns > 0 {
		db.SetMaxOpenConns(maxOpenConns)
		db.SetMaxIdleConns(maxOpenConns / 2)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}
