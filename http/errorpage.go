package http

import (
	"net/http"
)

type notFoundData struct {
	Flash *Flash
	Path  string
}

// writeDefaultNotFound renders the 404 page for routes chi does not know.
func writeDefaultNotFound(w http.ResponseWriter, r *http.Request) {
	renderPage(w, notFoundPage, http.StatusNotFound, notFoundData{Path: r.URL.Path})
}
