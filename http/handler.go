package http

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/sagarc03/stashbox"
)

// multipartMemory is how much of an upload is buffered in memory before
// spilling to a temp file.
const multipartMemory = 32 << 20

const (
	msgNoFilePart     = "No file part"
	msgNoSelectedFile = "No selected file"
	msgTypeNotAllowed = "File type not allowed"
	msgUploaded       = "File uploaded successfully!"
	msgFormInvalid    = "Form validation failed."
	msgRateLimited    = "Too many requests, try again shortly"
)

type Service interface {
	Upload(ctx context.Context, req stashbox.UploadRequest) (stashbox.UploadResult, error)
	List(ctx context.Context) ([]stashbox.ListedFile, error)
	Download(ctx context.Context, key string) (stashbox.StoredObject, io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
	Share(ctx context.Context, key string) (stashbox.ShareLink, error)
}

type CORSConfig struct {
	Enabled          bool     `mapstructure:"enabled"`
	AllowedOrigins   []string `mapstructure:"allowed_origins"`
	AllowedMethods   []string `mapstructure:"allowed_methods"`
	AllowedHeaders   []string `mapstructure:"allowed_headers"`
	ExposedHeaders   []string `mapstructure:"exposed_headers"`
	AllowCredentials bool     `mapstructure:"allow_credentials"`
	MaxAge           int      `mapstructure:"max_age"`
}

type HandlerConfig struct {
	// Policy supplies the upload page hints and the request size limit.
	Policy *stashbox.AcceptancePolicy
	// LinkVerifier enables GET /shared/{filename}. Nil leaves the route unregistered.
	LinkVerifier LinkVerifier
	// UploadRateLimit is the number of uploads per second accepted across all
	// clients. Zero disables limiting.
	UploadRateLimit float64
	UploadBurst     int
	// TrustedOrigins may post forms and delete files from another origin.
	TrustedOrigins []string
	CORS           CORSConfig
}

// Handler serves the upload pages and the file endpoints.
type Handler struct {
	config  HandlerConfig
	service Service
}

// NewHandler creates a new Handler with the given configuration and service.
func NewHandler(config *HandlerConfig, service Service) *Handler {
	return &Handler{
		config:  *config,
		service: service,
	}
}

// Validate reports configuration Router cannot serve with.
func (c *HandlerConfig) Validate() error {
	_, err := CrossOriginMiddleware(c.TrustedOrigins)
	return err
}

// Router returns an http.Handler with every route registered.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger)
	r.Use(middleware.Recoverer)

	if h.config.CORS.Enabled {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   h.config.CORS.AllowedOrigins,
			AllowedMethods:   h.config.CORS.AllowedMethods,
			AllowedHeaders:   h.config.CORS.AllowedHeaders,
			ExposedHeaders:   h.config.CORS.ExposedHeaders,
			AllowCredentials: h.config.CORS.AllowCredentials,
			MaxAge:           h.config.CORS.MaxAge,
		}))
	}

	crossOrigin, err := CrossOriginMiddleware(h.config.TrustedOrigins)
	if err != nil {
		slog.Error("ignoring trusted origins", "err", err)
		crossOrigin, _ = CrossOriginMiddleware(nil)
	}
	r.Use(crossOrigin)

	r.NotFound(writeDefaultNotFound)

	r.Get("/", h.handleIndex)
	r.Get("/uploads", h.handleUploads)
	r.Get("/download/{filename}", h.handleDownload)
	r.Delete("/delete/{filename}", h.handleDelete)
	r.Get("/share/{filename}", h.handleShare)
	r.Get("/healthz", h.handleHealth)
	r.Handle("/static/*", staticHandler())

	r.Group(func(r chi.Router) {
		r.Use(RateLimitRedirectMiddleware(h.config.UploadRateLimit, h.config.UploadBurst, "/"))
		r.Post("/upload", h.handleUpload)
	})

	if h.config.LinkVerifier != nil {
		r.Group(func(r chi.Router) {
			r.Use(SignedLinkMiddleware(h.config.LinkVerifier))
			r.Get(stashbox.SharedPathPrefix+"{filename}", h.handleShared)
		})
	}

	return r
}

func (h *Handler) handleIndex(w http.ResponseWriter, r *http.Request) {
	renderPage(w, indexPage, http.StatusOK, indexData{
		Flash:             PopFlash(w, r),
		AllowedExtensions: h.config.Policy.Allowed(),
		MaxSizeMB:         h.config.Policy.MaxSizeMB(),
	})
}

func (h *Handler) handleUpload(w http.ResponseWriter, r *http.Request) {
	maxBytes := h.config.Policy.MaxBytes()
	tooLarge := h.config.Policy.TooLargeMessage()

	if r.ContentLength > maxBytes {
		redirectWithFlash(w, r, "/", FlashDanger, tooLarge)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			redirectWithFlash(w, r, "/", FlashDanger, tooLarge)
			return
		}
		slog.Warn("parse upload form failed", "err", err)
		redirectWithFlash(w, r, "/", FlashDanger, msgNoFilePart)
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	headers := r.MultipartForm.File["file"]
	if len(headers) == 0 {
		// Browsers send an empty filename when nothing was chosen, which the
		// multipart reader files under values instead of files.
		if _, ok := r.MultipartForm.Value["file"]; ok {
			redirectWithFlash(w, r, "/", FlashDanger, msgNoSelectedFile)
			return
		}
		redirectWithFlash(w, r, "/", FlashDanger, msgNoFilePart)
		return
	}

	fh := headers[0]
	f, err := fh.Open()
	if err != nil {
		redirectWithFlash(w, r, "/", FlashDanger, "Error uploading file: "+err.Error())
		return
	}
	defer func() { _ = f.Close() }()

	result, err := h.service.Upload(r.Context(), stashbox.UploadRequest{
		Filename:    fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Body:        f,
		Size:        fh.Size,
	})
	if err != nil {
		switch {
		case errors.Is(err, stashbox.ErrNoFileSelected):
			redirectWithFlash(w, r, "/", FlashDanger, msgNoSelectedFile)
		case errors.Is(err, stashbox.ErrValidation):
			redirectWithFlash(w, r, "/", FlashDanger, msgTypeNotAllowed)
		case errors.Is(err, stashbox.ErrPayloadTooLarge):
			redirectWithFlash(w, r, "/", FlashDanger, tooLarge)
		default:
			slog.Error("upload failed", "filename", fh.Filename, "err", err)
			redirectWithFlash(w, r, "/", FlashDanger, "Error uploading file: "+errorMessage(err))
		}
		return
	}

	slog.Info("file uploaded", "key", result.Key, "size", fh.Size)
	redirectWithFlash(w, r, "/uploads", FlashSuccess, msgUploaded)
}

func (h *Handler) handleUploads(w http.ResponseWriter, r *http.Request) {
	files, err := h.service.List(r.Context())
	if err != nil {
		slog.Error("list failed", "err", err)
		redirectWithFlash(w, r, "/", FlashDanger, "Error retrieving files: "+errorMessage(err))
		return
	}

	renderPage(w, uploadsPage, http.StatusOK, uploadsData{
		Flash: PopFlash(w, r),
		Files: files,
	})
}

func (h *Handler) handleDownload(w http.ResponseWriter, r *http.Request) {
	key, ok := keyParam(r)
	if !ok {
		redirectWithFlash(w, r, "/uploads", FlashDanger, "Error downloading file: invalid filename")
		return
	}

	obj, body, err := h.service.Download(r.Context(), key)
	if err != nil {
		slog.Error("download failed", "key", key, "err", err)
		redirectWithFlash(w, r, "/uploads", FlashDanger, "Error downloading file: "+errorMessage(err))
		return
	}
	defer func() { _ = body.Close() }()

	writeAttachment(w, key, obj, body)
}

func (h *Handler) handleShared(w http.ResponseWriter, r *http.Request) {
	key, _ := keyParam(r)

	obj, body, err := h.service.Download(r.Context(), key)
	if err != nil {
		HandleError(w, err)
		return
	}
	defer func() { _ = body.Close() }()

	writeAttachment(w, key, obj, body)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	key, ok := keyParam(r)
	if !ok {
		_ = WriteJSON(w, http.StatusInternalServerError, ResultResponse{Error: "invalid filename"})
		return
	}

	if err := h.service.Delete(r.Context(), key); err != nil {
		slog.Error("delete failed", "key", key, "err", err)
		_ = WriteJSON(w, http.StatusInternalServerError, ResultResponse{Error: errorMessage(err)})
		return
	}

	slog.Info("file deleted", "key", key)
	_ = WriteJSON(w, http.StatusOK, ResultResponse{Success: true})
}

func (h *Handler) handleShare(w http.ResponseWriter, r *http.Request) {
	key, ok := keyParam(r)
	if !ok {
		_ = WriteJSON(w, http.StatusInternalServerError, ResultResponse{Error: "invalid filename"})
		return
	}

	link, err := h.service.Share(r.Context(), key)
	if err != nil {
		slog.Error("share failed", "key", key, "err", err)
		_ = WriteJSON(w, http.StatusInternalServerError, ResultResponse{Error: errorMessage(err)})
		return
	}

	_ = WriteJSON(w, http.StatusOK, link)
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	_ = WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// keyParam returns the decoded {filename} route parameter. chi matches on
// RawPath when the request carries one, so only then is the value still escaped.
func keyParam(r *http.Request) (string, bool) {
	key := chi.URLParam(r, "filename")
	if r.URL.RawPath != "" {
		unescaped, err := url.PathUnescape(key)
		if err != nil {
			return "", false
		}
		key = unescaped
	}
	if key == "" {
		return "", false
	}
	return key, true
}

func writeAttachment(w http.ResponseWriter, key string, obj stashbox.StoredObject, body io.Reader) {
	contentType := obj.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": key}))
	if obj.Size > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(obj.Size, 10))
	}
	if obj.ETag != "" {
		w.Header().Set("ETag", `"`+obj.ETag+`"`)
	}
	w.WriteHeader(http.StatusOK)

	if _, err := io.Copy(w, body); err != nil {
		slog.Warn("download interrupted", "key", key, "err", err)
	}
}
