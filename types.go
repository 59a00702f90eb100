package stashbox

import (
	"errors"
	"fmt"
	"io"
	"regexp"
	"time"
)

// UploadRequest is one inbound file, built once at the transport boundary.
type UploadRequest struct {
	Filename    string
	ContentType string
	Body        io.Reader
	Size        int64
}

// StoredObject describes an object as reported by the store.
type StoredObject struct {
	Key          string    `json:"key"`
	Size         int64     `json:"size"`
	LastModified time.Time `json:"last_modified"`
	ContentType  string    `json:"content_type"`
	ETag         string    `json:"etag,omitempty"`
}

// ListedFile is a StoredObject prepared for display.
type ListedFile struct {
	StoredObject
	SizeStr string `json:"size_str"`
}

type UploadResult struct {
	Key string `json:"key"`
	// URL is a presigned download link, empty when presigning failed.
	URL string `json:"url,omitempty"`
}

type ShareLink struct {
	Key       string `json:"key"`
	URL       string `json:"url"`
	ExpiresIn int    `json:"expires_in"`
}

// Tables holds configurable table names for metadata storage.
type Tables struct {
	MetaData string `mapstructure:"meta_data"`
}

var validTableNameRegex = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// IsValidTableName checks if a table name is valid (lowercase, alphanumeric with underscores, max 63 chars).
func IsValidTableName(name string) bool {
	return validTableNameRegex.MatchString(name) && len(name) <= 63
}

// Validate checks that all required table names are set and valid.
func (t Tables) Validate() error {
	if t.MetaData == "" {
		return errors.New("validate tables: metadata table name cannot be empty")
	}

	if !IsValidTableName(t.MetaData) {
		return fmt.Errorf("validate tables: invalid metadata table name: %s (must match ^[a-z_][a-z0-9_]*$ and be <= 63 chars)", t.MetaData)
	}

	return nil
}
