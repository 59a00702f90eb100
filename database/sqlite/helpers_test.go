package sqlite_test

import (
	"context"
	"crypto/rand"
	"fmt"
	"math"
	"math/big"
	"testing"

	"github.com/sagarc03/stashbox"
	"github.com/sagarc03/stashbox/database/sqlite"
	"github.com/stretchr/testify/require"
)

func getRandomString(t *testing.T) string {
	t.Helper()
	n, err := rand.Int(rand.Reader, big.NewInt(math.MaxInt64))
	require.NoError(t, err, "random string")
	return fmt.Sprintf("test%x", n.Int64())
}

// setupTestRepo creates a migrated in-memory repo on a unique table.
func setupTestRepo(t *testing.T) stashbox.MetaDataRepo {
	t.Helper()

	ctx := context.Background()
	tables := stashbox.Tables{MetaData: "objects_" + getRandomString(t)}

	db, err := sqlite.Connect(ctx, ":memory:", tables)
	require.NoError(t, err, "connect")
	require.NoError(t, db.Migrate(ctx), "migrate")

	t.Cleanup(func() { _ = db.Close() })

	return db.GetRepo()
}
