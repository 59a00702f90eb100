package stashbox

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	MaxExpiresSeconds = 604800 // 7 days
	DateTimeFormat    = "20060102T150405Z"

	// SharedPathPrefix is the route signed links point at.
	SharedPathPrefix = "/shared/"

	paramDate      = "X-Stash-Date"
	paramExpires   = "X-Stash-Expires"
	paramSignature = "X-Stash-Signature"
)

// LinkSigner produces and verifies time-limited download links for stores
// that have no presigning of their own.
type LinkSigner struct {
	baseURL string
	secret  []byte
}

// NewLinkSigner creates a signer for links rooted at baseURL
// (e.g. "https://files.example.com"). The secret must not be empty.
func NewLinkSigner(baseURL, secret string) (*LinkSigner, error) {
	if secret == "" {
		return nil, errors.New("new link signer: secret cannot be empty")
	}

	if baseURL != "" {
		u, err := url.Parse(baseURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return nil, fmt.Errorf("new link signer: invalid base url: %q", baseURL)
		}
	}

	return &LinkSigner{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		secret:  []byte(secret),
	}, nil
}

// Sign returns a link to key that stays valid for ttl.
func (s *LinkSigner) Sign(key string, ttl time.Duration) (string, error) {
	expires := int(ttl / time.Second)
	if expires <= 0 || expires > MaxExpiresSeconds {
		return "", fmt.Errorf("sign %q: ttl must be between 1s and %ds", key, MaxExpiresSeconds)
	}

	date := time.Now().UTC().Format(DateTimeFormat)

	query := url.Values{}
	query.Set(paramDate, date)
	query.Set(paramExpires, strconv.Itoa(expires))
	query.Set(paramSignature, s.signature(key, date, expires))

	return s.baseURL + SharedPathPrefix + url.PathEscape(key) + "?" + query.Encode(), nil
}

// Verify checks the signature parameters of a link to key.
// All failures wrap ErrUnauthorized.
func (s *LinkSigner) Verify(key string, query url.Values) error {
	date := query.Get(paramDate)
	expiresStr := query.Get(paramExpires)
	signature := query.Get(paramSignature)

	if date == "" || expiresStr == "" || signature == "" {
		return fmt.Errorf("missing required signature parameters: %w", ErrUnauthorized)
	}

	signedAt, err := time.Parse(DateTimeFormat, date)
	if err != nil {
		return fmt.Errorf("invalid %s format: %w", paramDate, ErrUnauthorized)
	}

	expires, err := strconv.Atoi(expiresStr)
	if err != nil || expires <= 0 || expires > MaxExpiresSeconds {
		return fmt.Errorf("invalid %s: must be between 1 and %d: %w", paramExpires, MaxExpiresSeconds, ErrUnauthorized)
	}

	if time.Now().After(signedAt.Add(time.Duration(expires) * time.Second)) {
		return fmt.Errorf("signature expired: %w", ErrUnauthorized)
	}

	expected := s.signature(key, date, expires)
	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return fmt.Errorf("signature mismatch: %w", ErrUnauthorized)
	}

	return nil
}

func (s *LinkSigner) signature(key, date string, expires int) string {
	stringToSign := fmt.Sprintf("GET\n%s%s\n%s\n%d", SharedPathPrefix, key, date, expires)
	h := hmac.New(sha256.New, s.secret)
	h.Write([]byte(stringToSign))
	return hex.EncodeToString(h.Sum(nil))
}
