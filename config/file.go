package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// DefaultFile is the config file Load looks for when none is given.
const DefaultFile = "config.yaml"

// File is the on-disk layout written by `stashbox configure`. It covers the
// settings a first deployment needs; everything else keeps its default.
type File struct {
	Server FileServer `yaml:"server"`
	Upload FileUpload `yaml:"upload,omitempty"`
	Store  FileStore  `yaml:"store"`
}

type FileServer struct {
	Port    int    `yaml:"port"`
	BaseURL string `yaml:"base_url,omitempty"`
}

type FileUpload struct {
	AllowedExtensions []string `yaml:"allowed_extensions,omitempty"`
}

type FileStore struct {
	Type       string          `yaml:"type"`
	S3         *FileS3         `yaml:"s3,omitempty"`
	Filesystem *FileFilesystem `yaml:"filesystem,omitempty"`
}

type FileS3 struct {
	Bucket          string `yaml:"bucket"`
	Region          string `yaml:"region"`
	AccessKeyID     string `yaml:"access_key_id,omitempty"`
	SecretAccessKey string `yaml:"secret_access_key,omitempty"`
	Endpoint        string `yaml:"endpoint,omitempty"`
	UsePathStyle    bool   `yaml:"use_path_style,omitempty"`
}

type FileFilesystem struct {
	Path       string `yaml:"path"`
	LinkSecret string `yaml:"link_secret,omitempty"`
}

// Save writes f as YAML. The file may hold credentials, so it is created 0600.
func (f *File) Save(path string) error {
	if f.Store.Type != StoreS3 && f.Store.Type != StoreFilesystem {
		return fmt.Errorf("unknown store type: %q", f.Store.Type)
	}

	data, err := yaml.Marshal(f)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	cleanPath := filepath.Clean(path)
	if dir := filepath.Dir(cleanPath); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(cleanPath, data, 0o600); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}

	return nil
}

// ReadFile parses a config file written by Save.
func ReadFile(path string) (*File, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	return &f, nil
}

// FileExists reports whether path names an existing file.
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return !errors.Is(err, os.ErrNotExist)
}
