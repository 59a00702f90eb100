package http

import (
	"bytes"
	"embed"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/sagarc03/stashbox"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

const timeLayout = "2006-01-02 15:04:05"

var pageFuncs = template.FuncMap{
	"join": strings.Join,
	"formatTime": func(t time.Time) string {
		return t.UTC().Format(timeLayout)
	},
}

var (
	indexPage    = template.Must(template.New("index").Funcs(pageFuncs).ParseFS(templateFS, "templates/base.html", "templates/index.html"))
	uploadsPage  = template.Must(template.New("uploads").Funcs(pageFuncs).ParseFS(templateFS, "templates/base.html", "templates/uploads.html"))
	notFoundPage = template.Must(template.New("notfound").Funcs(pageFuncs).ParseFS(templateFS, "templates/base.html", "templates/notfound.html"))
)

type indexData struct {
	Flash             *Flash
	AllowedExtensions []string
	MaxSizeMB         float64
}

type uploadsData struct {
	Flash *Flash
	Files []stashbox.ListedFile
}

// renderPage executes the "base" layout of page into a buffer first so a
// template error never leaves a half-written response.
func renderPage(w http.ResponseWriter, page *template.Template, status int, data any) {
	var buf bytes.Buffer
	if err := page.ExecuteTemplate(&buf, "base", data); err != nil {
		slog.Error("render page failed", "page", page.Name(), "err", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func staticHandler() http.Handler {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err)
	}
	return http.StripPrefix("/static/", http.FileServerFS(sub))
}
