// Package database provides a unified interface for connecting to the
// metadata backends used by the filesystem object store.
//
// The package supports PostgreSQL and SQLite and handles connection
// management, migrations and schema validation.
//
// # Supported Backends
//
//   - PostgreSQL: shared deployments, using a pgx connection pool
//   - SQLite: single-node and development use, using modernc.org/sqlite
//
// # Usage
//
//	cfg := database.Config{
//	    Type:   "sqlite",
//	    DSN:    "stashbox.db",
//	    Tables: stashbox.Tables{MetaData: "stashbox_objects"},
//	}
//
//	db, err := database.Connect(ctx, cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	repo := db.GetRepo()
//
// # Subpackages
//
//   - database/postgres: PostgreSQL implementation using pgx
//   - database/sqlite: SQLite implementation using modernc.org/sqlite
package database
