package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sagarc03/stashbox/config"
)

func TestFile_SaveThenLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", config.DefaultFile)

	f := &config.File{
		Server: config.FileServer{Port: 9000, BaseURL: "https://stash.example.com"},
		Upload: config.FileUpload{AllowedExtensions: []string{"csv", "txt"}},
		Store: config.FileStore{
			Type:       config.StoreFilesystem,
			Filesystem: &config.FileFilesystem{Path: "/srv/stash", LinkSecret: "s3cret"},
		},
	}
	require.NoError(t, f.Save(path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
	assert.True(t, config.FileExists(path))

	read, err := config.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, f, read)

	cfg, err := config.Load([]string{path}, nil)
	require.NoError(t, err)
	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, "https://stash.example.com", cfg.Server.BaseURL)
	assert.Equal(t, []string{"csv", "txt"}, cfg.Upload.AllowedExtensions)
	assert.Equal(t, config.StoreFilesystem, cfg.Store.Type)
	assert.Equal(t, "/srv/stash", cfg.Store.Filesystem.Path)
	assert.Equal(t, "s3cret", cfg.Store.Filesystem.LinkSecret)
}

func TestFile_SaveS3(t *testing.T) {
	path := filepath.Join(t.TempDir(), config.DefaultFile)

	f := &config.File{
		Server: config.FileServer{Port: 5000},
		Store: config.FileStore{
			Type: config.StoreS3,
			S3:   &config.FileS3{Bucket: "uploads", Region: "eu-west-1"},
		},
	}
	require.NoError(t, f.Save(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "filesystem")
	assert.NotContains(t, string(data), "secret_access_key")

	cfg, err := config.Load([]string{path}, nil)
	require.NoError(t, err)
	assert.Equal(t, "uploads", cfg.Store.S3.Bucket)
	assert.Equal(t, "eu-west-1", cfg.Store.S3.Region)
}

func TestFile_SaveRejectsUnknownStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), config.DefaultFile)

	err := (&config.File{Store: config.FileStore{Type: "ftp"}}).Save(path)
	require.Error(t, err)
	assert.False(t, config.FileExists(path))
}

func TestReadFile_Errors(t *testing.T) {
	_, err := config.ReadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	path := writeConfig(t, "bad.yaml", "server: [unclosed")
	_, err = config.ReadFile(path)
	assert.ErrorContains(t, err, "parse config file")
}
