// Package postgres stores object metadata in PostgreSQL.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sagarc03/stashbox"
)

type repo struct {
	pool      *pgxpool.Pool
	tableName string
}

func (r *repo) Get(ctx context.Context, key string) (stashbox.StoredObject, error) {
	query := fmt.Sprintf(`
		SELECT key, content_type, etag, size_bytes, updated_at
		FROM %s
		WHERE key = $1
	`, pgx.Identifier{r.tableName}.Sanitize())

	var o stashbox.StoredObject
	err := r.pool.QueryRow(ctx, query, key).Scan(&o.Key, &o.ContentType, &o.ETag, &o.Size, &o.LastModified)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return stashbox.StoredObject{}, fmt.Errorf("get: %w", stashbox.ErrNotFound)
		}
		return stashbox.StoredObject{}, fmt.Errorf("get: %w", err)
	}

	return o, nil
}

func (r *repo) Upsert(ctx context.Context, obj stashbox.StoredObject) (stashbox.StoredObject, bool, error) {
	query := fmt.Sprintf(`
		INSERT INTO %s (key, content_type, etag, size_bytes)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (key) DO UPDATE
		SET content_type = EXCLUDED.content_type,
			etag = EXCLUDED.etag,
			size_bytes = EXCLUDED.size_bytes,
			updated_at = NOW()
		RETURNING key, content_type, etag, size_bytes, updated_at, (xmax = 0) AS inserted
	`, pgx.Identifier{r.tableName}.Sanitize())

	var o stashbox.StoredObject
	var inserted bool

	err := r.pool.QueryRow(ctx, query, obj.Key, obj.ContentType, obj.ETag, obj.Size).Scan(
		&o.Key, &o.ContentType, &o.ETag, &o.Size, &o.LastModified, &inserted,
	)
	if err != nil {
		return stashbox.StoredObject{}, false, fmt.Errorf("upsert: %w", err)
	}

	return o, inserted, nil
}

func (r *repo) Delete(ctx context.Context, key string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE key = $1`, pgx.Identifier{r.tableName}.Sanitize())

	tag, err := r.pool.Exec(ctx, query, key)
	if err != nil {
		return fmt.Errorf("delete: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("delete: %w", stashbox.ErrNotFound)
	}

	return nil
}

func (r *repo) List(ctx context.Context) ([]stashbox.StoredObject, error) {
	query := fmt.Sprintf(`
		SELECT key, content_type, etag, size_bytes, updated_at
		FROM %s
		ORDER BY updated_at DESC, key
	`, pgx.Identifier{r.tableName}.Sanitize())

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list: %w", err)
	}
	defer rows.Close()

	items := make([]stashbox.StoredObject, 0)
	for rows.Next() {
		var o stashbox.StoredObject
		if err := rows.Scan(&o.Key, &o.ContentType, &o.ETag, &o.Size, &o.LastModified); err != nil {
			return nil, fmt.Errorf("list: scan: %w", err)
		}
		items = append(items, o)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list: rows: %w", err)
	}

	return items, nil
}
