package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/sagarc03/stashbox"
)

// ErrorResponse represents a JSON error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// ResultResponse is the body of the delete and share endpoints on failure,
// and of delete on success.
type ResultResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// WriteError writes a JSON error response
func WriteError(w http.ResponseWriter, code int, errCode, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(ErrorResponse{
		Error:   errCode,
		Message: message,
	}); err != nil {
		slog.Error("failed to encode error response", "error", err)
	}
}

// HandleError writes appropriate error response based on error type
func HandleError(w http.ResponseWriter, err error) {
	slog.Error("request error", "error", err)

	if errors.Is(err, stashbox.ErrNotFound) {
		WriteError(w, http.StatusNotFound, "not_found", "Object not found")
		return
	}

	if errors.Is(err, stashbox.ErrValidation) {
		WriteError(w, http.StatusBadRequest, "invalid_input", "Invalid input")
		return
	}

	if errors.Is(err, stashbox.ErrUnauthorized) {
		WriteError(w, http.StatusForbidden, "unauthorized", err.Error())
		return
	}

	WriteError(w, http.StatusInternalServerError, "internal_error", "Internal server error")
}

// WriteJSON writes a JSON response
func WriteJSON(w http.ResponseWriter, code int, data any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	return json.NewEncoder(w).Encode(data)
}

// errorMessage returns the text shown to users for err: the store's own
// message when the failure came from the store, err's text otherwise.
func errorMessage(err error) string {
	var se *stashbox.StoreError
	if errors.As(err, &se) {
		return se.Error()
	}
	return err.Error()
}
