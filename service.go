package stashbox

import (
	"cmp"
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"time"
)

// DefaultPresignTTL is how long upload and share links stay valid unless configured otherwise.
const DefaultPresignTTL = time.Hour

// ObjectStore defines the operations stashbox needs from the backing object store.
// Implementations must be safe for concurrent use.
//
// Every failure should be reported as a *StoreError (see NewStoreError) carrying
// the backend's own message. A missing key must satisfy errors.Is(err, ErrNotFound).
type ObjectStore interface {
	// Put writes body under key, replacing any existing object.
	//
	// Parameters:
	//   - ctx: Context for cancellation and timeout
	//   - key: Sanitized storage key
	//   - contentType: MIME type recorded with the object
	//   - body: Object content
	//   - size: Length of body in bytes, or -1 when unknown
	//
	// Returns:
	//   - StoredObject: The object as stored
	//   - error: Any store error
	Put(ctx context.Context, key, contentType string, body io.Reader, size int64) (StoredObject, error)

	// Get opens an object for reading.
	// The caller is responsible for closing the returned ReadCloser.
	Get(ctx context.Context, key string) (StoredObject, io.ReadCloser, error)

	// List returns every object in the bucket. Order is unspecified.
	// An empty bucket yields an empty slice and a nil error.
	List(ctx context.Context) ([]StoredObject, error)

	// Delete removes an object. Deleting a missing key is an error.
	Delete(ctx context.Context, key string) error

	// PresignGet returns a time-limited URL granting read access to key.
	// Stores without link support return ErrPresignUnsupported.
	PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error)
}

// MetaDataRepo persists object metadata for stores that keep it outside the
// object bytes (the filesystem store). Implementations must be safe for
// concurrent use.
type MetaDataRepo interface {
	// Get returns the metadata for key, or ErrNotFound.
	Get(ctx context.Context, key string) (StoredObject, error)

	// Upsert creates or replaces the metadata for obj.Key. LastModified is set
	// by the repo. The bool reports whether a new row was created.
	Upsert(ctx context.Context, obj StoredObject) (StoredObject, bool, error)

	// Delete removes the metadata for key, or returns ErrNotFound.
	Delete(ctx context.Context, key string) error

	// List returns all metadata entries.
	List(ctx context.Context) ([]StoredObject, error)
}

// ServiceConfig holds configuration options for Service.
type ServiceConfig struct {
	PresignTTL time.Duration // Lifetime of upload and share links (default: 1h)
}

// Service validates uploads and forwards them to an ObjectStore.
// It holds no mutable state and is safe for concurrent use.
type Service struct {
	store      ObjectStore
	policy     *AcceptancePolicy
	presignTTL time.Duration
}

func NewService(store ObjectStore, policy *AcceptancePolicy, cfg ServiceConfig) *Service {
	ttl := cfg.PresignTTL
	if ttl <= 0 {
		ttl = DefaultPresignTTL
	}
	return &Service{
		store:      store,
		policy:     policy,
		presignTTL: ttl,
	}
}

// Policy returns the acceptance policy the service enforces.
func (s *Service) Policy() *AcceptancePolicy {
	return s.policy
}

// Upload validates req and writes it to the store under its sanitized name.
//
// The method performs the following steps:
//  1. Rejects an empty filename (ErrNoFileSelected)
//  2. Sanitizes the filename into a key (ErrInvalidFilename if nothing is left)
//  3. Runs the acceptance policy (ErrDisallowedExtension, ErrPayloadTooLarge)
//  4. Puts the object; an existing object with the same key is overwritten
//  5. Presigns a download link; a failure here is logged and ignored
func (s *Service) Upload(ctx context.Context, req UploadRequest) (UploadResult, error) {
	if req.Filename == "" {
		return UploadResult{}, fmt.Errorf("upload: %w", ErrNoFileSelected)
	}

	key := SanitizeFilename(req.Filename)
	if key == "" {
		return UploadResult{}, fmt.Errorf("upload %q: %w", req.Filename, ErrInvalidFilename)
	}

	if err := s.policy.Check(key, req.Size); err != nil {
		return UploadResult{}, fmt.Errorf("upload: %w", err)
	}

	if _, err := s.store.Put(ctx, key, req.ContentType, req.Body, req.Size); err != nil {
		return UploadResult{}, fmt.Errorf("upload %q: %w", key, err)
	}

	result := UploadResult{Key: key}

	url, err := s.store.PresignGet(ctx, key, s.presignTTL)
	if err != nil {
		slog.Warn("presign after upload failed", "key", key, "err", err)
		return result, nil
	}
	result.URL = url

	return result, nil
}

// List reads the whole bucket and returns it newest first.
// Objects with equal timestamps keep the order the store returned them in.
func (s *Service) List(ctx context.Context) ([]ListedFile, error) {
	objects, err := s.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list: %w", err)
	}

	files := make([]ListedFile, 0, len(objects))
	for _, obj := range objects {
		files = append(files, ListedFile{
			StoredObject: obj,
			SizeStr:      FormatSize(obj.Size),
		})
	}

	slices.SortStableFunc(files, func(a, b ListedFile) int {
		return cmp.Compare(b.LastModified.UnixNano(), a.LastModified.UnixNano())
	})

	return files, nil
}

// Download opens key for reading. The caller must close the returned reader.
func (s *Service) Download(ctx context.Context, key string) (StoredObject, io.ReadCloser, error) {
	if !IsValidKey(key) {
		return StoredObject{}, nil, fmt.Errorf("download %q: %w", key, ErrNotFound)
	}

	obj, body, err := s.store.Get(ctx, key)
	if err != nil {
		return StoredObject{}, nil, fmt.Errorf("download %q: %w", key, err)
	}

	return obj, body, nil
}

// Delete removes key from the store.
func (s *Service) Delete(ctx context.Context, key string) error {
	if !IsValidKey(key) {
		return fmt.Errorf("delete %q: %w", key, ErrNotFound)
	}

	if err := s.store.Delete(ctx, key); err != nil {
		return fmt.Errorf("delete %q: %w", key, err)
	}

	return nil
}

// Share returns a presigned link to key valid for the configured TTL.
func (s *Service) Share(ctx context.Context, key string) (ShareLink, error) {
	if !IsValidKey(key) {
		return ShareLink{}, fmt.Errorf("share %q: %w", key, ErrNotFound)
	}

	url, err := s.store.PresignGet(ctx, key, s.presignTTL)
	if err != nil {
		return ShareLink{}, fmt.Errorf("share %q: %w", key, err)
	}

	return ShareLink{
		Key:       key,
		URL:       url,
		ExpiresIn: int(s.presignTTL / time.Second),
	}, nil
}
