// Package flash carries one-time admin notices across redirects.
package flash

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/prestigeprep/prep/internal/services/web/platform/requestmeta"
)

// CookieName is the cookie holding the pending notice.
const CookieName = "prep_flash"

// maxMessageBytes keeps the encoded cookie well under browser limits.
const maxMessageBytes = 1024

// Kind classifies notice presentation.
type Kind string

const (
	KindSuccess Kind = "success"
	KindError   Kind = "error"
)

// Notice is one pending message.
type Notice struct {
	Kind    Kind   `json:"kind"`
	Message string `json:"message"`
}

// Success returns a success notice.
func Success(message string) Notice { return Notice{Kind: KindSuccess, Message: message} }

// Error returns an error notice.
func Error(message string) Notice { return Notice{Kind: KindError, Message: message} }

// Write stores notice for the next page render.
func Write(w http.ResponseWriter, r *http.Request, notice Notice, policy requestmeta.SchemePolicy) {
	if w == nil {
		return
	}
	normalized, ok := normalizeNotice(notice)
	if !ok {
		return
	}
	payload, err := json.Marshal(normalized)
	if err != nil {
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    base64.RawURLEncoding.EncodeToString(payload),
		Path:     "/",
		HttpOnly: true,
		Secure:   requestmeta.IsHTTPS(r, policy),
		SameSite: http.SameSiteLaxMode,
	})
}

// ReadAndClear returns the pending notice, if any, and expires the cookie.
func ReadAndClear(w http.ResponseWriter, r *http.Request, policy requestmeta.SchemePolicy) (Notice, bool) {
	if r == nil {
		return Notice{}, false
	}
	cookie, err := r.Cookie(CookieName)
	if err != nil || cookie == nil {
		return Notice{}, false
	}
	if w != nil {
		http.SetCookie(w, &http.Cookie{
			Name:     CookieName,
			Value:    "",
			Path:     "/",
			HttpOnly: true,
			Secure:   requestmeta.IsHTTPS(r, policy),
			SameSite: http.SameSiteLaxMode,
			MaxAge:   -1,
		})
	}
	return decodeNotice(cookie.Value)
}

// Split returns the notice as the flash and error strings pages render.
func Split(notice Notice, ok bool) (string, string) {
	if !ok {
		return "", ""
	}
	if notice.Kind == KindError {
		return "", notice.Message
	}
	return notice.Message, ""
}

func decodeNotice(raw string) (Notice, bool) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return Notice{}, false
	}
	decoded, err := base64.RawURLEncoding.DecodeString(value)
	if err != nil {
		return Notice{}, false
	}
	var notice Notice
	if err := json.Unmarshal(decoded, &notice); err != nil {
		return Notice{}, false
	}
	return normalizeNotice(notice)
}

func normalizeNotice(notice Notice) (Notice, bool) {
	notice.Message = truncate(strings.TrimSpace(notice.Message), maxMessageBytes)
	if notice.Message == "" {
		return Notice{}, false
	}
	notice.Kind = Kind(strings.ToLower(strings.TrimSpace(string(notice.Kind))))
	switch notice.Kind {
	case KindSuccess, KindError:
		return notice, true
	default:
		return Notice{}, false
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
