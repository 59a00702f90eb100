package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/sagarc03/stashbox"
	"github.com/sagarc03/stashbox/config"
	"github.com/sagarc03/stashbox/database"
	"github.com/sagarc03/stashbox/filesystem"
	"github.com/sagarc03/stashbox/s3store"
)

// backend is an opened object store plus whatever must be closed with it.
type backend struct {
	store stashbox.ObjectStore
	// fs is set when the filesystem store is selected.
	fs *filesystem.Store
	// signer is set when the filesystem store signs its own links.
	signer  *stashbox.LinkSigner
	closers []func() error
}

func (b *backend) Close() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		_ = b.closers[i]()
	}
}

// openBackend builds the configured object store.
func openBackend(ctx context.Context, cfg *config.Config) (*backend, error) {
	switch cfg.Store.Type {
	case config.StoreS3:
		store, err := s3store.New(ctx, cfg.Store.S3)
		if err != nil {
			return nil, fmt.Errorf("create s3 store: %w", err)
		}
		slog.Info("using s3 store", "bucket", cfg.Store.S3.Bucket, "region", cfg.Store.S3.Region)
		return &backend{store: store}, nil
	case config.StoreFilesystem:
		return openFilesystem(ctx, cfg)
	default:
		return nil, fmt.Errorf("unknown store type: %q", cfg.Store.Type)
	}
}

func openFilesystem(ctx context.Context, cfg *config.Config) (*backend, error) {
	b := &backend{}

	db, err := database.Connect(ctx, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	b.closers = append(b.closers, db.Close)

	if err = db.Ping(ctx); err != nil {
		b.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if cfg.Database.AutoMigrate {
		if err = db.Migrate(ctx); err != nil {
			b.Close()
			return nil, fmt.Errorf("migrate database: %w", err)
		}
		slog.Info("database migration complete")
	}

	if err = db.Validate(ctx); err != nil {
		b.Close()
		return nil, fmt.Errorf("validate database schema: %w", err)
	}
	slog.Info("connected to database", "type", cfg.Database.Type)

	storagePath := cfg.Store.Filesystem.Path
	if err = os.MkdirAll(storagePath, 0o750); err != nil {
		b.Close()
		return nil, fmt.Errorf("create storage directory: %w", err)
	}

	root, err := os.OpenRoot(storagePath)
	if err != nil {
		b.Close()
		return nil, fmt.Errorf("open storage root: %w", err)
	}
	b.closers = append(b.closers, root.Close)

	if secret := cfg.Store.Filesystem.LinkSecret; secret != "" {
		b.signer, err = stashbox.NewLinkSigner(baseURL(cfg), secret)
		if err != nil {
			b.Close()
			return nil, fmt.Errorf("create link signer: %w", err)
		}
	} else {
		slog.Warn("store.filesystem.link_secret is empty, share links are disabled")
	}

	b.fs = filesystem.New(root, db.GetRepo(), b.signer)
	b.store = b.fs

	slog.Info("using filesystem store", "path", storagePath)
	return b, nil
}

// requireFilesystem returns the filesystem store or an error naming the command.
func (b *backend) requireFilesystem(command string) (*filesystem.Store, error) {
	if b.fs == nil {
		return nil, errors.New(command + " only works with the filesystem store")
	}
	return b.fs, nil
}

func baseURL(cfg *config.Config) string {
	if cfg.Server.BaseURL != "" {
		return cfg.Server.BaseURL
	}
	return fmt.Sprintf("http://localhost:%d", cfg.Server.Port)
}

// newService builds the upload service for the configured store.
func newService(cfg *config.Config, store stashbox.ObjectStore) (*stashbox.Service, error) {
	policy, err := stashbox.NewAcceptancePolicy(cfg.Upload.AllowedExtensions, cfg.Server.MaxUploadSize)
	if err != nil {
		return nil, fmt.Errorf("create acceptance policy: %w", err)
	}

	return stashbox.NewService(store, policy, stashbox.ServiceConfig{
		PresignTTL: cfg.PresignTTL(),
	}), nil
}
