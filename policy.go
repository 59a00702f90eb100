package stashbox

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// AcceptancePolicy decides whether an uploaded file is accepted.
// It is built once at startup and never mutated.
type AcceptancePolicy struct {
	allowed  map[string]struct{}
	maxBytes int64
}

// NewAcceptancePolicy builds a policy from an extension list and a maximum
// request size. Extensions are matched case-insensitively; a leading dot is
// ignored and blank entries are skipped.
func NewAcceptancePolicy(extensions []string, maxBytes int64) (*AcceptancePolicy, error) {
	if maxBytes <= 0 {
		return nil, fmt.Errorf("new acceptance policy: max bytes must be positive, got %d", maxBytes)
	}

	allowed := make(map[string]struct{}, len(extensions))
	for _, ext := range extensions {
		ext = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
		if ext == "" {
			continue
		}
		allowed[ext] = struct{}{}
	}

	if len(allowed) == 0 {
		return nil, errors.New("new acceptance policy: at least one allowed extension is required")
	}

	return &AcceptancePolicy{allowed: allowed, maxBytes: maxBytes}, nil
}

// Check returns nil when the file is accepted. A missing or unknown extension
// yields ErrDisallowedExtension; a size over the limit yields ErrPayloadTooLarge.
func (p *AcceptancePolicy) Check(filename string, size int64) error {
	ext, ok := Extension(filename)
	if !ok {
		return fmt.Errorf("check %q: %w", filename, ErrDisallowedExtension)
	}

	if _, found := p.allowed[ext]; !found {
		return fmt.Errorf("check %q: extension %q: %w", filename, ext, ErrDisallowedExtension)
	}

	if size > p.maxBytes {
		return fmt.Errorf("check %q: %d bytes exceeds %d: %w", filename, size, p.maxBytes, ErrPayloadTooLarge)
	}

	return nil
}

// Allowed returns the allowed extensions in sorted order.
func (p *AcceptancePolicy) Allowed() []string {
	exts := make([]string, 0, len(p.allowed))
	for ext := range p.allowed {
		exts = append(exts, ext)
	}
	slices.Sort(exts)
	return exts
}

// MaxBytes returns the maximum accepted request size.
func (p *AcceptancePolicy) MaxBytes() int64 {
	return p.maxBytes
}

// MaxSizeMB returns the maximum request size in megabytes.
func (p *AcceptancePolicy) MaxSizeMB() float64 {
	return float64(p.maxBytes) / (1024 * 1024)
}

// TooLargeMessage is the user-facing text for an oversized request.
func (p *AcceptancePolicy) TooLargeMessage() string {
	return fmt.Sprintf("File is too large. Maximum size is %.1fMB", p.MaxSizeMB())
}

// Extension returns the lower-cased text after the last dot of filename.
// It reports false when there is no dot or nothing follows it.
func Extension(filename string) (string, bool) {
	i := strings.LastIndexByte(filename, '.')
	if i < 0 || i == len(filename)-1 {
		return "", false
	}
	return strings.ToLower(filename[i+1:]), true
}
