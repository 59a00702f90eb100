package sqlite_test

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/sagarc03/stashbox"
	"github.com/sagarc03/stashbox/database/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

func TestDatabase_Lifecycle(t *testing.T) {
	ctx := context.Background()

	db, err := sqlite.Connect(ctx, ":memory:", stashbox.Tables{MetaData: "objects"})
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	assert.NoError(t, db.Ping(ctx))

	err = db.Validate(ctx)
	require.Error(t, err, "validate before migrate")
	assert.Contains(t, err.Error(), "does not exist")

	require.NoError(t, db.Migrate(ctx))
	require.NoError(t, db.Migrate(ctx), "migrate is idempotent")
	assert.NoError(t, db.Validate(ctx))
	assert.NotNil(t, db.GetRepo())
}

func TestConnect_SharedFile(t *testing.T) {
	ctx := context.Background()
	dsn := filepath.Join(t.TempDir(), "stashbox.db")
	tables := stashbox.Tables{MetaData: "objects"}

	server, err := sqlite.Connect(ctx, dsn, tables)
	require.NoError(t, err)
	defer func() { _ = server.Close() }()
	require.NoError(t, server.Migrate(ctx))

	cli, err := sqlite.Connect(ctx, dsn, tables)
	require.NoError(t, err)
	defer func() { _ = cli.Close() }()
	require.NoError(t, cli.Validate(ctx))

	_, _, err = cli.GetRepo().Upsert(ctx, stashbox.StoredObject{Key: "a.txt", Size: 1, ContentType: "text/plain", ETag: "e"})
	require.NoError(t, err)

	got, err := server.GetRepo().Get(ctx, "a.txt")
	require.NoError(t, err)
	assert.Equal(t, "e", got.ETag)
}

func TestValidateSchema(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		ddl     string
		wantErr string
	}{
		{
			name:    "missing column",
			ddl:     `CREATE TABLE %s (id TEXT NOT NULL, key TEXT NOT NULL)`,
			wantErr: "missing columns: content_type, created_at, etag, size_bytes, updated_at",
		},
		{
			name: "nullable column",
			ddl: `CREATE TABLE %s (id TEXT NOT NULL, key TEXT NOT NULL, content_type TEXT NOT NULL,
				etag TEXT, size_bytes INTEGER NOT NULL, created_at TEXT NOT NULL, updated_at TEXT NOT NULL)`,
			wantErr: "etag: expected nullable=false, got nullable=true",
		},
		{
			name: "wrong type",
			ddl: `CREATE TABLE %s (id TEXT NOT NULL, key TEXT NOT NULL, content_type TEXT NOT NULL,
				etag TEXT NOT NULL, size_bytes TEXT NOT NULL, created_at TEXT NOT NULL, updated_at TEXT NOT NULL)`,
			wantErr: "size_bytes: expected integer, got text",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, err := sql.Open("sqlite", ":memory:")
			require.NoError(t, err)
			db.SetMaxOpenConns(1)
			defer func() { _ = db.Close() }()

			_, err = db.ExecContext(ctx, fmt.Sprintf(tt.ddl, `"objects"`))
			require.NoError(t, err)

			err = sqlite.ValidateSchema(ctx, db, stashbox.Tables{MetaData: "objects"})
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestDropTables(t *testing.T) {
	ctx := context.Background()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	defer func() { _ = db.Close() }()

	tables := stashbox.Tables{MetaData: "objects"}
	require.NoError(t, sqlite.Migrate(ctx, db, tables))
	require.NoError(t, sqlite.ValidateSchema(ctx, db, tables))

	require.NoError(t, sqlite.DropTables(ctx, db, tables))
	assert.Error(t, sqlite.ValidateSchema(ctx, db, tables))
}

func TestRepo_Upsert(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	first, created, err := repo.Upsert(ctx, stashbox.StoredObject{
		Key: "a.txt", ContentType: "text/plain", ETag: "e1", Size: 5,
	})
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "a.txt", first.Key)
	assert.False(t, first.LastModified.IsZero())

	second, created, err := repo.Upsert(ctx, stashbox.StoredObject{
		Key: "a.txt", ContentType: "text/markdown", ETag: "e2", Size: 9,
	})
	require.NoError(t, err)
	assert.False(t, created, "second upsert updates")
	assert.Equal(t, int64(9), second.Size)

	got, err := repo.Get(ctx, "a.txt")
	require.NoError(t, err)
	assert.Equal(t, "e2", got.ETag)
	assert.Equal(t, "text/markdown", got.ContentType)
	assert.True(t, second.LastModified.Equal(got.LastModified))
}

func TestRepo_Get_NotFound(t *testing.T) {
	repo := setupTestRepo(t)

	_, err := repo.Get(context.Background(), "missing.txt")
	assert.ErrorIs(t, err, stashbox.ErrNotFound)
}

func TestRepo_Delete(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	_, _, err := repo.Upsert(ctx, stashbox.StoredObject{Key: "a.txt", ContentType: "text/plain", ETag: "e", Size: 1})
	require.NoError(t, err)

	require.NoError(t, repo.Delete(ctx, "a.txt"))
	assert.ErrorIs(t, repo.Delete(ctx, "a.txt"), stashbox.ErrNotFound)

	_, err = repo.Get(ctx, "a.txt")
	assert.ErrorIs(t, err, stashbox.ErrNotFound)
}

func TestRepo_List(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	items, err := repo.List(ctx)
	require.NoError(t, err)
	assert.NotNil(t, items)
	assert.Empty(t, items)

	for _, key := range []string{"one.txt", "two.txt", "three.txt"} {
		_, _, err := repo.Upsert(ctx, stashbox.StoredObject{Key: key, ContentType: "text/plain", ETag: key, Size: 1})
		require.NoError(t, err)
		time.Sleep(2 * time.Millisecond)
	}

	items, err = repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.Equal(t, []string{"three.txt", "two.txt", "one.txt"},
		[]string{items[0].Key, items[1].Key, items[2].Key})
}
