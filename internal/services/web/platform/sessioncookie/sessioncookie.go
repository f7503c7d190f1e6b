// Package sessioncookie centralizes web cookie behavior.
package sessioncookie

import (
	"net/http"
	"strings"
	"time"

	"github.com/prestigeprep/prep/internal/services/web/platform/requestmeta"
)

const (
	// Name is the signed session cookie.
	Name = "prep_session"
	// StateName carries the signed OAuth state during sign-in.
	StateName = "prep_oauth"
)

// Read returns the trimmed session cookie value when present.
func Read(r *http.Request) (string, bool) {
	return ReadNamed(r, Name)
}

// ReadNamed returns the trimmed value of cookie name when present.
func ReadNamed(r *http.Request, name string) (string, bool) {
	if r == nil {
		return "", false
	}
	cookie, err := r.Cookie(name)
	if err != nil || cookie == nil {
		return "", false
	}
	value := strings.TrimSpace(cookie.Value)
	if value == "" {
		return "", false
	}
	return value, true
}

// Write sets an HttpOnly, Lax cookie that expires after ttl.
func Write(w http.ResponseWriter, r *http.Request, name, value string, ttl time.Duration, policy requestmeta.SchemePolicy) {
	if w == nil {
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    strings.TrimSpace(value),
		Path:     "/",
		MaxAge:   int(ttl / time.Second),
		HttpOnly: true,
		Secure:   requestmeta.IsHTTPS(r, policy),
		SameSite: http.SameSiteLaxMode,
	})
}

// Clear expires cookie name.
func Clear(w http.ResponseWriter, r *http.Request, name string, policy requestmeta.SchemePolicy) {
	if w == nil {
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   requestmeta.IsHTTPS(r, policy),
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	})
}
