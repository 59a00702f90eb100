package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sagarc03/stashbox"
)

// DB holds the pgx pool behind stashbox's object metadata.
type DB struct {
	pool   *pgxpool.Pool
	tables stashbox.Tables
}

// Connect builds a pool for dsn. The pool dials lazily, so a bad host only
// shows up on Ping or the first query. Table names are trusted as given;
// run tables.Validate first.
func Connect(ctx context.Context, dsn string, tables stashbox.Tables) (*DB, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &DB{pool: pool, tables: tables}, nil
}

func (d *DB) Ping(ctx context.Context) error {
	return d.pool.Ping(ctx)
}

// Migrate creates the object metadata table. It is safe to run on every start.
func (d *DB) Migrate(ctx context.Context) error {
	if err := createObjectTable(ctx, d.pool, d.tables.MetaData); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

// Validate fails when the metadata table lacks a column the repo reads. The
// CLI runs it on every start, after any migration.
func (d *DB) Validate(ctx context.Context) error {
	return ValidateSchema(ctx, d.pool, d.tables)
}

// GetRepo returns the repo the filesystem store keeps object metadata in.
func (d *DB) GetRepo() stashbox.MetaDataRepo {
	return &repo{pool: d.pool, tableName: d.tables.MetaData}
}

// Close drains the pool. It never fails.
func (d *DB) Close() error {
	d.pool.Close()
	return nil
}
