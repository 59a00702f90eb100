// Package sqlite stores object metadata in SQLite.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sagarc03/stashbox"
)

// timeFormat is fixed width so that text comparison orders timestamps.
const timeFormat = "2006-01-02T15:04:05.000000000Z"

type repo struct {
	db        *sql.DB
	tableName string
}

func (r *repo) Get(ctx context.Context, key string) (stashbox.StoredObject, error) {
	query := fmt.Sprintf( //nolint:gosec // G201: table name is validated
		`SELECT key, content_type, etag, size_bytes, updated_at FROM %s WHERE key = ?`,
		quoteIdentifier(r.tableName))

	o, err := scanObject(r.db.QueryRowContext(ctx, query, key))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return stashbox.StoredObject{}, fmt.Errorf("get: %w", stashbox.ErrNotFound)
		}
		return stashbox.StoredObject{}, fmt.Errorf("get: %w", err)
	}

	return o, nil
}

func (r *repo) Upsert(ctx context.Context, obj stashbox.StoredObject) (stashbox.StoredObject, bool, error) {
	now := time.Now().UTC().Round(0)
	stamp := now.Format(timeFormat)

	query := fmt.Sprintf( //nolint:gosec // G201: table name is validated
		`INSERT INTO %s (id, key, content_type, etag, size_bytes, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (key) DO UPDATE
		SET content_type = excluded.content_type,
			etag = excluded.etag,
			size_bytes = excluded.size_bytes,
			updated_at = excluded.updated_at
		RETURNING id`, quoteIdentifier(r.tableName))

	newID := uuid.NewString()
	var id string
	err := r.db.QueryRowContext(ctx, query,
		newID, obj.Key, obj.ContentType, obj.ETag, obj.Size, stamp, stamp,
	).Scan(&id)
	if err != nil {
		return stashbox.StoredObject{}, false, fmt.Errorf("upsert: %w", err)
	}

	obj.LastModified = now
	return obj, id == newID, nil
}

func (r *repo) Delete(ctx context.Context, key string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE key = ?`, quoteIdentifier(r.tableName)) //nolint:gosec // table name is validated

	result, err := r.db.ExecContext(ctx, query, key)
	if err != nil {
		return fmt.Errorf("delete: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete: rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("delete: %w", stashbox.ErrNotFound)
	}

	return nil
}

func (r *repo) List(ctx context.Context) ([]stashbox.StoredObject, error) {
	query := fmt.Sprintf( //nolint:gosec // G201: table name is validated
		`SELECT key, content_type, etag, size_bytes, updated_at FROM %s ORDER BY updated_at DESC, key`,
		quoteIdentifier(r.tableName))

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list: %w", err)
	}
	defer func() { _ = rows.Close() }()

	items := make([]stashbox.StoredObject, 0)
	for rows.Next() {
		o, err := scanObject(rows)
		if err != nil {
			return nil, fmt.Errorf("list: %w", err)
		}
		items = append(items, o)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list: rows: %w", err)
	}

	return items, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanObject(s scanner) (stashbox.StoredObject, error) {
	var o stashbox.StoredObject
	var updatedAt string

	if err := s.Scan(&o.Key, &o.ContentType, &o.ETag, &o.Size, &updatedAt); err != nil {
		return stashbox.StoredObject{}, err
	}

	t, err := time.Parse(timeFormat, updatedAt)
	if err != nil {
		return stashbox.StoredObject{}, fmt.Errorf("parse updated_at: %w", err)
	}
	o.LastModified = t

	return o, nil
}
