package http

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
)

// FlashCookieName is the cookie that carries a one-shot message to the next page.
const FlashCookieName = "stashbox_flash"

const (
	FlashSuccess = "success"
	FlashDanger  = "danger"
)

// Flash is a message shown once on the next rendered page.
type Flash struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// SetFlash stores a flash message for the next request.
func SetFlash(w http.ResponseWriter, kind, message string) {
	raw, err := json.Marshal(Flash{Kind: kind, Message: message})
	if err != nil {
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     FlashCookieName,
		Value:    base64.RawURLEncoding.EncodeToString(raw),
		Path:     "/",
		MaxAge:   60,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// PopFlash returns the pending flash message, if any, and clears it.
// A malformed cookie is cleared and ignored.
func PopFlash(w http.ResponseWriter, r *http.Request) *Flash {
	c, err := r.Cookie(FlashCookieName)
	if err != nil {
		return nil
	}

	http.SetCookie(w, &http.Cookie{
		Name:     FlashCookieName,
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	raw, err := base64.RawURLEncoding.DecodeString(c.Value)
	if err != nil {
		return nil
	}

	var f Flash
	if err := json.Unmarshal(raw, &f); err != nil || f.Message == "" {
		return nil
	}

	return &f
}

// redirectWithFlash sets a flash message and sends a 303 to location.
func redirectWithFlash(w http.ResponseWriter, r *http.Request, location, kind, message string) {
	SetFlash(w, kind, message)
	http.Redirect(w, r, location, http.StatusSeeOther)
}
