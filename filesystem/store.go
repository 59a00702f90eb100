// Package filesystem provides a local-disk ObjectStore for stashbox.
// Object bytes live under a sandboxed os.Root and are written atomically
// through a temp file. Metadata lives in a stashbox.MetaDataRepo, and
// download links are signed with a stashbox.LinkSigner.
package filesystem

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sagarc03/stashbox"
)

const tmpPrefix = ".t"

const restoreTimeout = 5 * time.Second

// Store keeps objects as flat files in a single directory.
type Store struct {
	root   *os.Root
	repo   stashbox.MetaDataRepo
	signer *stashbox.LinkSigner
}

// New creates a Store. The root provides sandboxed file operations preventing
// path traversal. signer may be nil, in which case PresignGet reports
// stashbox.ErrPresignUnsupported.
func New(root *os.Root, repo stashbox.MetaDataRepo, signer *stashbox.LinkSigner) *Store {
	return &Store{root: root, repo: repo, signer: signer}
}

// Put writes body to key and records its metadata. An existing object is
// replaced. The bytes only take the key's place once the metadata is stored,
// and the previous metadata is put back if that final rename fails.
func (s *Store) Put(ctx context.Context, key, contentType string, body io.Reader, _ int64) (stashbox.StoredObject, error) {
	if !stashbox.IsValidKey(key) {
		return stashbox.StoredObject{}, stashbox.NewStoreError("put", key, stashbox.ErrInvalidFilename)
	}
	if err := ctx.Err(); err != nil {
		return stashbox.StoredObject{}, stashbox.NewStoreError("put", key, err)
	}

	prev, err := s.repo.Get(ctx, key)
	hadPrev := err == nil
	if err != nil && !errors.Is(err, stashbox.ErrNotFound) {
		return stashbox.StoredObject{}, stashbox.NewStoreError("put", key, err)
	}

	tmpFile, size, etag, err := s.writeTemp(ctx, body)
	if err != nil {
		return stashbox.StoredObject{}, stashbox.NewStoreError("put", key, err)
	}

	if contentType == "" {
		contentType = detectContentType(key)
	}

	obj, _, err := s.repo.Upsert(ctx, stashbox.StoredObject{
		Key:         key,
		Size:        size,
		ContentType: contentType,
		ETag:        etag,
	})
	if err != nil {
		s.removeTemp(tmpFile)
		return stashbox.StoredObject{}, stashbox.NewStoreError("put", key, err)
	}

	if err := s.root.Rename(tmpFile, key); err != nil {
		s.removeTemp(tmpFile)
		s.restoreMeta(key, prev, hadPrev)
		return stashbox.StoredObject{}, stashbox.NewStoreError("put", key, fmt.Errorf("failed to rename file: %w", err))
	}

	return obj, nil
}

// Get opens key for reading. The caller must close the returned reader.
func (s *Store) Get(ctx context.Context, key string) (stashbox.StoredObject, io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return stashbox.StoredObject{}, nil, stashbox.NewStoreError("get", key, err)
	}

	obj, err := s.repo.Get(ctx, key)
	if err != nil {
		return stashbox.StoredObject{}, nil, stashbox.NewStoreError("get", key, err)
	}

	f, err := s.root.Open(key)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return stashbox.StoredObject{}, nil, stashbox.NewStoreError("get", key, stashbox.ErrNotFound)
		}
		return stashbox.StoredObject{}, nil, stashbox.NewStoreError("get", key, fmt.Errorf("open file: %w", err))
	}

	return obj, f, nil
}

// List returns the metadata of every stored object.
func (s *Store) List(ctx context.Context) ([]stashbox.StoredObject, error) {
	objects, err := s.repo.List(ctx)
	if err != nil {
		return nil, stashbox.NewStoreError("list", "", err)
	}
	return objects, nil
}

// Delete removes the metadata and then the file. A key without metadata is
// reported as stashbox.ErrNotFound. If the file cannot be removed the
// metadata is restored.
func (s *Store) Delete(ctx context.Context, key string) error {
	prev, err := s.repo.Get(ctx, key)
	if err != nil {
		return stashbox.NewStoreError("delete", key, err)
	}

	if err := s.repo.Delete(ctx, key); err != nil {
		return stashbox.NewStoreError("delete", key, err)
	}

	if err := s.root.Remove(key); err != nil && !errors.Is(err, os.ErrNotExist) {
		s.restoreMeta(key, prev, true)
		return stashbox.NewStoreError("delete", key, fmt.Errorf("remove file: %w", err))
	}

	return nil
}

// restoreMeta puts key's metadata back to prev, or drops it when there was
// none. It runs after the request may have been canceled, so it uses its own
// context.
func (s *Store) restoreMeta(key string, prev stashbox.StoredObject, hadPrev bool) {
	ctx, cancel := context.WithTimeout(context.Background(), restoreTimeout)
	defer cancel()

	var err error
	if hadPrev {
		_, _, err = s.repo.Upsert(ctx, prev)
	} else {
		err = s.repo.Delete(ctx, key)
	}
	if err != nil && !errors.Is(err, stashbox.ErrNotFound) {
		slog.Error("failed to restore metadata", "key", key, "err", err)
	}
}

// PresignGet returns a signed /shared/ link to key.
func (s *Store) PresignGet(_ context.Context, key string, ttl time.Duration) (string, error) {
	if s.signer == nil {
		return "", stashbox.NewStoreError("presign", key, stashbox.ErrPresignUnsupported)
	}

	link, err := s.signer.Sign(key, ttl)
	if err != nil {
		return "", stashbox.NewStoreError("presign", key, err)
	}

	return link, nil
}

// ReindexResult reports what Reindex changed.
type ReindexResult struct {
	Indexed int
	Pruned  int
}

// Reindex rebuilds metadata from the files on disk. Every regular file in the
// root is hashed and upserted; metadata for files that no longer exist is
// removed. Subdirectories and in-flight temp files are skipped.
func (s *Store) Reindex(ctx context.Context) (ReindexResult, error) {
	var result ReindexResult

	entries, err := fs.ReadDir(s.root.FS(), ".")
	if err != nil {
		return result, fmt.Errorf("reindex: read dir: %w", err)
	}

	seen := make(map[string]struct{}, len(entries))
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return result, fmt.Errorf("reindex: %w", err)
		}

		name := entry.Name()
		if !entry.Type().IsRegular() || strings.HasPrefix(name, tmpPrefix) || !stashbox.IsValidKey(name) {
			continue
		}

		obj, err := s.scan(name)
		if err != nil {
			return result, fmt.Errorf("reindex: %w", err)
		}

		if _, _, err := s.repo.Upsert(ctx, obj); err != nil {
			return result, fmt.Errorf("reindex: upsert %s: %w", name, err)
		}

		seen[name] = struct{}{}
		result.Indexed++
	}

	indexed, err := s.repo.List(ctx)
	if err != nil {
		return result, fmt.Errorf("reindex: %w", err)
	}

	for _, obj := range indexed {
		if _, ok := seen[obj.Key]; ok {
			continue
		}
		if err := s.repo.Delete(ctx, obj.Key); err != nil && !errors.Is(err, stashbox.ErrNotFound) {
			return result, fmt.Errorf("reindex: prune %s: %w", obj.Key, err)
		}
		result.Pruned++
	}

	slog.Info("reindex complete", "indexed", result.Indexed, "pruned", result.Pruned)

	return result, nil
}

func (s *Store) scan(name string) (stashbox.StoredObject, error) {
	f, err := s.root.Open(name)
	if err != nil {
		return stashbox.StoredObject{}, err
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil {
			slog.Warn("failed to close file", "key", name, "err", closeErr)
		}
	}()

	h := sha256.New()
	size, err := io.Copy(h, f)
	if err != nil {
		return stashbox.StoredObject{}, fmt.Errorf("hash %s: %w", name, err)
	}

	return stashbox.StoredObject{
		Key:         name,
		Size:        size,
		ContentType: detectContentType(name),
		ETag:        hex.EncodeToString(h.Sum(nil)),
	}, nil
}

type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (r *ctxReader) Read(p []byte) (n int, err error) {
	if err := r.ctx.Err(); err != nil {
		return 0, err
	}
	return r.r.Read(p)
}

// writeTemp copies content to a new temp file in the root. It returns the
// temp file's name, the number of bytes written and the hex SHA256 of the
// content. On error nothing is left behind; otherwise the caller renames or
// removes the temp file.
func (s *Store) writeTemp(ctx context.Context, content io.Reader) (string, int64, string, error) {
	if err := ctx.Err(); err != nil {
		return "", 0, "", err
	}

	tmpFile := tmpFileName()
	t, err := s.root.Create(tmpFile)
	if err != nil {
		return "", 0, "", fmt.Errorf("could not open temp file: %w", err)
	}

	success := false
	defer func() {
		if closeErr := t.Close(); closeErr != nil && !errors.Is(closeErr, os.ErrClosed) {
			slog.Warn("failed to close tmp file", "err", closeErr)
		}
		if !success {
			s.removeTemp(tmpFile)
		}
	}()

	h := sha256.New()
	n, err := io.Copy(io.MultiWriter(h, t), &ctxReader{ctx: ctx, r: content})
	if err != nil {
		return "", 0, "", fmt.Errorf("could not copy file contents: %w", err)
	}

	if err := t.Sync(); err != nil {
		return "", 0, "", fmt.Errorf("could not sync written file: %w", err)
	}

	success = true
	return tmpFile, n, hex.EncodeToString(h.Sum(nil)), nil
}

func (s *Store) removeTemp(name string) {
	if err := s.root.Remove(name); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("failed to remove tmp file", "err", err)
	}
}

func detectContentType(key string) string {
	if contentType := mime.TypeByExtension(filepath.Ext(key)); contentType != "" {
		return contentType
	}
	return "application/octet-stream"
}

func tmpFileName() string {
	return tmpPrefix + uuid.NewString()
}
