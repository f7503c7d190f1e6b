// Package app composes web modules into the root handler.
package app

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/prestigeprep/prep/internal/services/web/module"
	"github.com/prestigeprep/prep/internal/services/web/platform/authz"
	"github.com/prestigeprep/prep/internal/services/web/platform/httpx"
	"github.com/prestigeprep/prep/internal/services/web/platform/requestmeta"
	"github.com/prestigeprep/prep/internal/services/web/platform/sessioncookie"
	"github.com/prestigeprep/prep/internal/services/web/routepath"
)

const adminPathPrefix = "/admin/"

// ComposeInput carries module groups and shared composition contracts.
type ComposeInput struct {
	// PublicModules are served to anyone.
	PublicModules []module.Module
	// ProtectedModules redirect anonymous visitors to login.
	ProtectedModules []module.Module
	// AdminModules additionally require the admin policy.
	AdminModules []module.Module
	// APIModules live under /api/ and authorize per route.
	APIModules []module.Module

	Access              authz.Policy
	RequestSchemePolicy requestmeta.SchemePolicy
	// NotFound serves paths no module owns.
	NotFound http.Handler
}

type group struct {
	name    string
	modules []module.Module
	allow   func(path string) bool
	wrap    httpx.Middleware
}

// Compose builds a root HTTP handler from module groups.
func Compose(input ComposeInput) (http.Handler, error) {
	root := http.NewServeMux()
	sameOrigin := requireCookieSessionSameOrigin(input.RequestSchemePolicy)
	groups := []group{
		{
			name:    "public",
			modules: input.PublicModules,
			allow:   func(p string) bool { return !isAdminPath(p) && !isAPIPath(p) },
		},
		{
			name:    "protected",
			modules: input.ProtectedModules,
			allow:   func(p string) bool { return !isAdminPath(p) && !isAPIPath(p) },
			wrap:    chain(authz.RequireUserPage(), sameOrigin),
		},
		{
			name:    "admin",
			modules: input.AdminModules,
			allow:   isAdminPath,
			wrap:    chain(input.Access.RequireAdminPage(), sameOrigin),
		},
		{
			name:    "api",
			modules: input.APIModules,
			allow:   isAPIPath,
			wrap:    sameOrigin,
		},
	}

	seen := make(map[string]string)
	for _, g := range groups {
		for _, feature := range g.modules {
			if feature == nil {
				return nil, fmt.Errorf("%s module is nil", g.name)
			}
			if err := mountModule(root, g, feature, seen); err != nil {
				return nil, err
			}
		}
	}
	if input.NotFound != nil {
		if _, taken := seen[routepath.Home]; !taken {
			root.Handle(routepath.Home, input.NotFound)
		}
	}
	return root, nil
}

func mountModule(root *http.ServeMux, g group, feature module.Module, seen map[string]string) error {
	mount, patterns, err := resolveMount(feature)
	if err != nil {
		return err
	}
	handler := mount.Handler
	if g.wrap != nil {
		handler = g.wrap(handler)
	}
	for _, pattern := range patterns {
		if !g.allow(pattern) {
			return fmt.Errorf("module %q path %q is not allowed in the %s group", feature.ID(), pattern, g.name)
		}
		if previous, ok := seen[pattern]; ok {
			return fmt.Errorf("module %q duplicates path %q owned by module %q", feature.ID(), pattern, previous)
		}
		seen[pattern] = feature.ID()
		root.Handle(pattern, handler)
	}
	return nil
}

func resolveMount(feature module.Module) (module.Mount, []string, error) {
	mount, err := feature.Mount()
	if err != nil {
		return module.Mount{}, nil, fmt.Errorf("mount module %q: %w", feature.ID(), err)
	}
	if mount.Handler == nil {
		return module.Mount{}, nil, fmt.Errorf("mount module %q: handler is required", feature.ID())
	}
	var patterns []string
	if mount.Prefix != "" {
		if err := validatePrefix(mount.Prefix); err != nil {
			return module.Mount{}, nil, fmt.Errorf("mount module %q has invalid prefix %q: %w", feature.ID(), mount.Prefix, err)
		}
		patterns = append(patterns, mount.Prefix)
	}
	for _, path := range mount.Paths {
		if err := validatePath(path); err != nil {
			return module.Mount{}, nil, fmt.Errorf("mount module %q has invalid path %q: %w", feature.ID(), path, err)
		}
		patterns = append(patterns, path)
	}
	if len(patterns) == 0 {
		return module.Mount{}, nil, fmt.Errorf("mount module %q: prefix or paths required", feature.ID())
	}
	return mount, patterns, nil
}

func validatePrefix(prefix string) error {
	if strings.TrimSpace(prefix) != prefix {
		return fmt.Errorf("prefix must not include surrounding whitespace")
	}
	if !strings.HasPrefix(prefix, "/") {
		return fmt.Errorf("prefix must begin with /")
	}
	if !strings.HasSuffix(prefix, "/") {
		return fmt.Errorf("prefix must end with /")
	}
	return nil
}

func validatePath(path string) error {
	if path == "" || strings.TrimSpace(path) != path {
		return fmt.Errorf("path must be non-empty without surrounding whitespace")
	}
	if !strings.HasPrefix(path, "/") {
		return fmt.Errorf("path must begin with /")
	}
	if strings.HasSuffix(path, "/") {
		return fmt.Errorf("exact path must not end with /")
	}
	return nil
}

func isAdminPath(path string) bool {
	return strings.HasPrefix(path, adminPathPrefix) || path+"/" == adminPathPrefix
}

func isAPIPath(path string) bool {
	return strings.HasPrefix(path, routepath.APIPrefix)
}

func chain(middleware ...httpx.Middleware) httpx.Middleware {
	return func(next http.Handler) http.Handler {
		return httpx.Chain(next, middleware...)
	}
}

func requireCookieSessionSameOrigin(policy requestmeta.SchemePolicy) httpx.Middleware {
	return func(next http.Handler) http.Handler {
		if next == nil {
			next = http.NotFoundHandler()
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !isMutationMethod(r) || !hasSessionCookie(r) {
				next.ServeHTTP(w, r)
				return
			}
			if !requestmeta.HasSameOriginProof(r, policy) {
				http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func isMutationMethod(r *http.Request) bool {
	if r == nil {
		return false
	}
	switch r.Method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	default:
		return false
	}
}

func hasSessionCookie(r *http.Request) bool {
	_, ok := sessioncookie.Read(r)
	return ok
}
