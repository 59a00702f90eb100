package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/sagarc03/stashbox"

	_ "modernc.org/sqlite" // SQLite driver
)

// DB is the single-file metadata backend used by default and by the tests,
// usually with ":memory:".
type DB struct {
	db     *sql.DB
	tables stashbox.Tables
}

// Connect opens dsn with the modernc driver. Table names are trusted as
// given; run tables.Validate first.
func Connect(ctx context.Context, dsn string, tables stashbox.Tables) (*DB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("connect sqlite: %w", err)
	}

	// Every :memory: connection is its own database, and SQLite allows one
	// writer at a time anyway.
	db.SetMaxOpenConns(1)

	// Let a concurrent `stashbox add` wait for the server's write instead of
	// failing with SQLITE_BUSY.
	if _, err := db.ExecContext(ctx, `PRAGMA busy_timeout = 5000`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("connect sqlite: %w", err)
	}

	return &DB{db: db, tables: tables}, nil
}

func (d *DB) Ping(ctx context.Context) error {
	return d.db.PingContext(ctx)
}

// Migrate creates the object metadata table if the file does not have it yet.
func (d *DB) Migrate(ctx context.Context) error {
	return Migrate(ctx, d.db, d.tables)
}

// Validate reports a metadata table whose columns the repo cannot read.
func (d *DB) Validate(ctx context.Context) error {
	return ValidateSchema(ctx, d.db, d.tables)
}

func (d *DB) GetRepo() stashbox.MetaDataRepo {
	return &repo{db: d.db, tableName: d.tables.MetaData}
}

func (d *DB) Close() error {
	return d.db.Close()
}
