// Package authz gates pages and JSON endpoints on the signed-in principal.
package authz

import (
	"net/http"
	"strings"

	"github.com/prestigeprep/prep/internal/platform/requestctx"
	"github.com/prestigeprep/prep/internal/services/web/platform/httpx"
	"github.com/prestigeprep/prep/internal/services/web/routepath"
)

// Policy decides who may use admin surfaces. With no listed emails every
// signed-in user is an admin.
type Policy struct {
	admins map[string]struct{}
}

// NewPolicy builds a policy from an admin email allowlist.
func NewPolicy(adminEmails []string) Policy {
	p := Policy{admins: make(map[string]struct{}, len(adminEmails))}
	for _, email := range adminEmails {
		if email = strings.ToLower(strings.TrimSpace(email)); email != "" {
			p.admins[email] = struct{}{}
		}
	}
	return p
}

// Restricted reports whether an allowlist is configured.
func (p Policy) Restricted() bool { return len(p.admins) > 0 }

// IsAdmin reports whether principal may use admin surfaces.
func (p Policy) IsAdmin(principal requestctx.Principal) bool {
	if !principal.Authenticated() {
		return false
	}
	if len(p.admins) == 0 {
		return true
	}
	_, ok := p.admins[strings.ToLower(strings.TrimSpace(principal.Email))]
	return ok
}

// IsAdminRequest reports whether the request's principal is an admin.
func (p Policy) IsAdminRequest(r *http.Request) bool {
	principal, _ := requestctx.PrincipalFromContext(r.Context())
	return p.IsAdmin(principal)
}

// Authenticated reports whether the request carries a principal.
func Authenticated(r *http.Request) bool {
	if r == nil {
		return false
	}
	_, ok := requestctx.PrincipalFromContext(r.Context())
	return ok
}

// RequireUserPage redirects anonymous page requests to the login page.
func RequireUserPage() httpx.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !Authenticated(r) {
				httpx.WriteRedirect(w, r, routepath.LoginWithNext(r.URL.RequestURI()))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAdminPage answers 403 to signed-in non-admins. Anonymous requests
// are redirected to login.
func (p Policy) RequireAdminPage() httpx.Middleware {
	return func(next http.Handler) http.Handler {
		return RequireUserPage()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !p.IsAdminRequest(r) {
				http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		}))
	}
}

// RequireUserJSON answers 401 JSON to anonymous requests.
func RequireUserJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !Authenticated(r) {
			_ = httpx.WriteJSONError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAdminJSON answers 401 JSON to anonymous requests and 403 JSON to
// non-admins.
func (p Policy) RequireAdminJSON(next http.Handler) http.Handler {
	return RequireUserJSON(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !p.IsAdminRequest(r) {
			_ = httpx.WriteJSONError(w, http.StatusForbidden, "Forbidden")
			return
		}
		next.ServeHTTP(w, r)
	}))
}
