package http

import (
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/time/rate"
)

// LinkVerifier checks the signature query of a shared link.
type LinkVerifier interface {
	Verify(key string, query url.Values) error
}

// SignedLinkMiddleware rejects requests whose {filename} link signature does not verify.
// Pass nil to disable verification.
func SignedLinkMiddleware(verifier LinkVerifier) func(http.Handler) http.Handler {
	if verifier == nil {
		return func(next http.Handler) http.Handler {
			return next
		}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key, ok := keyParam(r)
			if !ok {
				WriteError(w, http.StatusBadRequest, "invalid_input", "Invalid filename")
				return
			}

			if err := verifier.Verify(key, r.URL.Query()); err != nil {
				HandleError(w, err)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RateLimitMiddleware allows limit requests per second with the given burst,
// shared by every client. A limit of zero or less disables limiting.
// Rejected requests get a JSON 429.
func RateLimitMiddleware(limit float64, burst int) func(http.Handler) http.Handler {
	return rateLimit(limit, burst, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Retry-After", "1")
		WriteError(w, http.StatusTooManyRequests, "rate_limited", msgRateLimited)
	})
}

// RateLimitRedirectMiddleware limits like RateLimitMiddleware but answers a
// rejected form post with a 303 to path carrying a danger flash.
func RateLimitRedirectMiddleware(limit float64, burst int, path string) func(http.Handler) http.Handler {
	return rateLimit(limit, burst, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "1")
		redirectWithFlash(w, r, path, FlashDanger, msgRateLimited)
	})
}

func rateLimit(limit float64, burst int, reject http.HandlerFunc) func(http.Handler) http.Handler {
	if limit <= 0 {
		return func(next http.Handler) http.Handler {
			return next
		}
	}

	limiter := rate.NewLimiter(rate.Limit(limit), max(burst, 1))

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow() {
				reject(w, r)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// CrossOriginMiddleware rejects state-changing requests sent from another
// origin, judged by Sec-Fetch-Site or, failing that, Origin against Host.
// Form posts are sent back to / with a danger flash; other methods get a
// JSON 403. trustedOrigins are "scheme://host[:port]" values allowed through.
func CrossOriginMiddleware(trustedOrigins []string) (func(http.Handler) http.Handler, error) {
	cop := http.NewCrossOriginProtection()
	for _, origin := range trustedOrigins {
		if err := cop.AddTrustedOrigin(origin); err != nil {
			return nil, fmt.Errorf("trusted origin %q: %w", origin, err)
		}
	}

	cop.SetDenyHandler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		slog.Warn("cross-origin request rejected",
			"method", r.Method,
			"path", r.URL.Path,
			"origin", r.Header.Get("Origin"),
			"sec_fetch_site", r.Header.Get("Sec-Fetch-Site"),
		)
		if r.Method == http.MethodPost {
			redirectWithFlash(w, r, "/", FlashDanger, msgFormInvalid)
			return
		}
		_ = WriteJSON(w, http.StatusForbidden, ResultResponse{Error: msgFormInvalid})
	}))

	return cop.Handler, nil
}

// RequestLogger logs one line per request at info level.
func RequestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		defer func() {
			route := r.URL.Path
			if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
				route = rctx.RoutePattern()
			}

			slog.Info("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"route", route,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
				"request_id", middleware.GetReqID(r.Context()),
			)
		}()

		next.ServeHTTP(ww, r)
	})
}
