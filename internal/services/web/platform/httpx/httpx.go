// Package httpx provides HTTP middleware and response helpers used by web
// modules.
package httpx

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/prestigeprep/prep/internal/platform/id"
	apperrors "github.com/prestigeprep/prep/internal/services/web/platform/errors"
)

// RequestIDHeader carries the request correlation id.
const RequestIDHeader = "X-Request-ID"

// Middleware wraps an HTTP handler.
type Middleware func(http.Handler) http.Handler

// MethodNotAllowed writes a 405 response with an Allow header.
func MethodNotAllowed(allow string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		if w == nil {
			return
		}
		w.Header().Set("Allow", strings.TrimSpace(allow))
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// Chain applies middleware in declaration order.
func Chain(handler http.Handler, middleware ...Middleware) http.Handler {
	if handler == nil {
		handler = http.NotFoundHandler()
	}
	wrapped := handler
	for idx := len(middleware) - 1; idx >= 0; idx-- {
		if middleware[idx] == nil {
			continue
		}
		wrapped = middleware[idx](wrapped)
	}
	return wrapped
}

// RequestID injects and echoes a request id for correlation.
func RequestID() Middleware {
	return func(next http.Handler) http.Handler {
		if next == nil {
			next = http.NotFoundHandler()
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := strings.TrimSpace(r.Header.Get(RequestIDHeader))
			if requestID == "" {
				generated, err := id.NewID()
				if err != nil {
					generated = "web-unknown"
				}
				requestID = "web-" + generated
				r.Header.Set(RequestIDHeader, requestID)
			}
			w.Header().Set(RequestIDHeader, requestID)
			next.ServeHTTP(w, r)
		})
	}
}

// RecoverPanic converts panics into HTTP 500 responses and logs the stack.
func RecoverPanic(logger *zap.Logger) Middleware {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(next http.Handler) http.Handler {
		if next == nil {
			next = http.NotFoundHandler()
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				recovered := recover()
				if recovered == nil {
					return
				}
				if recovered == http.ErrAbortHandler {
					panic(recovered)
				}
				logger.Error("panic recovered",
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.String("request_id", r.Header.Get(RequestIDHeader)),
					zap.Any("panic", recovered),
					zap.StackSkip("stack", 1),
				)
				w.WriteHeader(http.StatusInternalServerError)
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// CORS answers preflight requests with 204 and marks every response as
// readable from any origin. Used for the agent JSON APIs only.
func CORS() Middleware {
	return func(next http.Handler) http.Handler {
		if next == nil {
			next = http.NotFoundHandler()
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			h.Set("Access-Control-Allow-Origin", "*")
			h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			h.Set("Access-Control-Allow-Headers", "Authorization, Content-Type")
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// BearerToken rejects requests whose Authorization header does not carry
// token. An empty token disables the check.
func BearerToken(token string) Middleware {
	token = strings.TrimSpace(token)
	return func(next http.Handler) http.Handler {
		if next == nil {
			next = http.NotFoundHandler()
		}
		if token == "" {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || subtle.ConstantTimeCompare([]byte(strings.TrimSpace(got)), []byte(token)) != 1 {
				_ = WriteJSONError(w, http.StatusUnauthorized, "Unauthorized")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// WriteJSON writes a JSON response with the provided status code.
func WriteJSON(w http.ResponseWriter, status int, payload any) error {
	if w == nil {
		return fmt.Errorf("response writer is required")
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(payload)
}

// WriteJSONError writes {"ok": false, "error": message}.
func WriteJSONError(w http.ResponseWriter, statusCode int, message string) error {
	return WriteJSON(w, statusCode, map[string]any{"ok": false, "error": message})
}

// WriteJSONFailure writes err as a JSON error using typed status mapping.
func WriteJSONFailure(w http.ResponseWriter, err error) {
	if err == nil {
		_ = WriteJSON(w, http.StatusOK, map[string]any{"ok": true})
		return
	}
	_ = WriteJSONError(w, apperrors.HTTPStatus(err), err.Error())
}

// WriteError writes a plain-text error response using typed status mapping.
func WriteError(w http.ResponseWriter, err error) {
	if w == nil {
		return
	}
	if err == nil {
		w.WriteHeader(http.StatusOK)
		return
	}
	http.Error(w, err.Error(), apperrors.HTTPStatus(err))
}

// DecodeJSON decodes a request body of at most maxBytes into dst.
func DecodeJSON(w http.ResponseWriter, r *http.Request, maxBytes int64, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return apperrors.E(apperrors.KindInvalidInput, "invalid JSON body")
	}
	return nil
}

// RequestContext returns r.Context() with a nil-safe fallback to context.Background().
func RequestContext(r *http.Request) context.Context {
	if r == nil {
		return context.Background()
	}
	return r.Context()
}

// WriteRedirect writes a 303 redirect, which browsers follow with GET
// after a form POST.
func WriteRedirect(w http.ResponseWriter, r *http.Request, location string) {
	if w == nil {
		return
	}
	if r == nil {
		w.Header().Set("Location", location)
		w.WriteHeader(http.StatusSeeOther)
		return
	}
	http.Redirect(w, r, location, http.StatusSeeOther)
}
