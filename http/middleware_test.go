package http_test

import (
	"bytes"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/sagarc03/stashbox"
	stashhttp "github.com/sagarc03/stashbox/http"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubVerifier struct {
	err     error
	gotKey  string
	gotSigs url.Values
}

func (v *stubVerifier) Verify(key string, query url.Values) error {
	v.gotKey = key
	v.gotSigs = query
	return v.err
}

func okHandler(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

func TestSignedLinkMiddleware_Disabled(t *testing.T) {
	wrapped := stashhttp.SignedLinkMiddleware(nil)(http.HandlerFunc(okHandler))

	rec := httptest.NewRecorder()
	wrapped.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/shared/a.txt", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestSignedLinkMiddleware(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
	}{
		{name: "valid", err: nil, wantCode: http.StatusOK},
		{name: "rejected", err: errors.Join(errors.New("signature expired"), stashbox.ErrUnauthorized), wantCode: http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			verifier := &stubVerifier{err: tt.err}
			r := chi.NewRouter()
			r.With(stashhttp.SignedLinkMiddleware(verifier)).Get("/shared/{filename}", okHandler)

			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/shared/a.txt?X-Stash-Signature=abc", nil))

			assert.Equal(t, tt.wantCode, rec.Code)
			assert.Equal(t, "a.txt", verifier.gotKey)
			assert.Equal(t, "abc", verifier.gotSigs.Get("X-Stash-Signature"))
		})
	}
}

func TestRateLimitMiddleware(t *testing.T) {
	t.Run("disabled", func(t *testing.T) {
		wrapped := stashhttp.RateLimitMiddleware(0, 0)(http.HandlerFunc(okHandler))

		for range 5 {
			rec := httptest.NewRecorder()
			wrapped.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/upload", nil))
			assert.Equal(t, http.StatusOK, rec.Code)
		}
	})

	t.Run("burst then reject", func(t *testing.T) {
		wrapped := stashhttp.RateLimitMiddleware(0.01, 2)(http.HandlerFunc(okHandler))

		var codes []int
		for range 3 {
			rec := httptest.NewRecorder()
			wrapped.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/upload", nil))
			codes = append(codes, rec.Code)
		}

		assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
	})
}

func TestRateLimitRedirectMiddleware(t *testing.T) {
	wrapped := stashhttp.RateLimitRedirectMiddleware(0.01, 1, "/")(http.HandlerFunc(okHandler))

	rec := httptest.NewRecorder()
	wrapped.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/upload", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	wrapped.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/upload", nil))
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))
	assert.Equal(t, "Too many requests, try again shortly", flashFrom(t, rec).Message)
}

func TestCrossOriginMiddleware(t *testing.T) {
	t.Run("rejects malformed trusted origin", func(t *testing.T) {
		_, err := stashhttp.CrossOriginMiddleware([]string{"admin.example.com"})
		assert.Error(t, err)
	})

	tests := []struct {
		name     string
		method   string
		headers  map[string]string
		wantCode int
	}{
		{name: "safe method", method: http.MethodGet, headers: map[string]string{"Sec-Fetch-Site": "cross-site"}, wantCode: http.StatusOK},
		{name: "no browser headers", method: http.MethodPost, wantCode: http.StatusOK},
		{name: "same origin", method: http.MethodPost, headers: map[string]string{"Sec-Fetch-Site": "same-origin"}, wantCode: http.StatusOK},
		{name: "matching origin host", method: http.MethodPost, headers: map[string]string{"Origin": "http://example.com"}, wantCode: http.StatusOK},
		{name: "cross-site post", method: http.MethodPost, headers: map[string]string{"Sec-Fetch-Site": "cross-site"}, wantCode: http.StatusSeeOther},
		{name: "same-site post", method: http.MethodPost, headers: map[string]string{"Sec-Fetch-Site": "same-site"}, wantCode: http.StatusSeeOther},
		{name: "foreign origin delete", method: http.MethodDelete, headers: map[string]string{"Origin": "https://evil.example"}, wantCode: http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mw, err := stashhttp.CrossOriginMiddleware(nil)
			require.NoError(t, err)
			wrapped := mw(http.HandlerFunc(okHandler))

			req := httptest.NewRequest(tt.method, "/upload", nil)
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			rec := httptest.NewRecorder()
			wrapped.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantCode, rec.Code)
		})
	}
}

func TestRequestLogger(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewJSONHandler(&buf, nil)))
	t.Cleanup(func() { slog.SetDefault(prev) })

	r := chi.NewRouter()
	r.Use(stashhttp.RequestLogger)
	r.Get("/download/{filename}", okHandler)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/download/a.txt", nil))

	out := buf.String()
	assert.Contains(t, out, `"msg":"http request"`)
	assert.Contains(t, out, `"status":200`)
	assert.Contains(t, out, `"bytes":2`)
	assert.Contains(t, out, `"route":"/download/{filename}"`)
}
