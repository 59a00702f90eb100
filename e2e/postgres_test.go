package e2e_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/testcontainers/testcontainers-go"
	pgcontainer "github.com/testcontainers/testcontainers-go/modules/postgres"
)

var (
	pgOnce      sync.Once
	pgDSN       string
	pgStartErr  error
	testCleanup func()
)

// getSharedPostgresDatabase starts one PostgreSQL container for the whole run
// and returns its DSN.
func getSharedPostgresDatabase(t *testing.T) string {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping postgres e2e test in short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	pgOnce.Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()

		container, err := pgcontainer.Run(ctx,
			"postgres:18-alpine",
			pgcontainer.WithDatabase("stashbox"),
			pgcontainer.WithUsername("stashbox"),
			pgcontainer.WithPassword("stashbox"),
			pgcontainer.BasicWaitStrategies(),
		)
		if err != nil {
			pgStartErr = err
			return
		}

		testCleanup = func() {
			_ = testcontainers.TerminateContainer(container)
		}

		dsn, err := container.ConnectionString(ctx, "sslmode=disable")
		if err != nil {
			pgStartErr = err
			return
		}

		conn, err := pgx.Connect(ctx, dsn)
		if err != nil {
			pgStartErr = err
			return
		}
		defer func() { _ = conn.Close(ctx) }()

		if pgStartErr = conn.Ping(ctx); pgStartErr != nil {
			return
		}

		pgDSN = dsn
	})

	if pgStartErr != nil {
		t.Fatalf("start postgres container: %v", pgStartErr)
	}

	return pgDSN
}
