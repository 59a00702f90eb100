package database

import (
	"context"
	"fmt"

	"github.com/sagarc03/stashbox"
	"github.com/sagarc03/stashbox/database/postgres"
	"github.com/sagarc03/stashbox/database/sqlite"
)

// Config holds the configuration for connecting to a metadata backend.
type Config struct {
	Type   string          `mapstructure:"type" validate:"required,oneof=sqlite postgres"`
	DSN    string          `mapstructure:"dsn" validate:"required"`
	Tables stashbox.Tables `mapstructure:"tables"`
	// AutoMigrate creates missing tables on startup.
	AutoMigrate bool `mapstructure:"auto_migrate"`
}

// Database is an open metadata backend.
type Database interface {
	Ping(ctx context.Context) error
	Migrate(ctx context.Context) error
	Validate(ctx context.Context) error
	GetRepo() stashbox.MetaDataRepo
	Close() error
}

// Connect opens the configured backend. It does not migrate or validate;
// callers run Migrate and Validate as needed.
func Connect(ctx context.Context, cfg Config) (Database, error) {
	if err := cfg.Tables.Validate(); err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}

	switch cfg.Type {
	case "sqlite":
		db, err := sqlite.Connect(ctx, cfg.DSN, cfg.Tables)
		if err != nil {
			return nil, err
		}
		return db, nil
	case "postgres":
		db, err := postgres.Connect(ctx, cfg.DSN, cfg.Tables)
		if err != nil {
			return nil, err
		}
		return db, nil
	default:
		return nil, fmt.Errorf("unsupported database type: %s", cfg.Type)
	}
}
