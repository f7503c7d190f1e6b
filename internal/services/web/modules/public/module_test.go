package public

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prestigeprep/prep/internal/services/web/module"
	"github.com/prestigeprep/prep/internal/services/web/routepath"
)

func mountPublic(t *testing.T, deps module.Dependencies) http.Handler {
	t.Helper()
	mount, err := New(deps).Mount()
	if err != nil {
		t.Fatalf("Mount() error = %v", err)
	}
	if mount.Prefix != routepath.MethodsPrefix {
		t.Fatalf("Prefix = %q, want %q", mount.Prefix, routepath.MethodsPrefix)
	}
	return mount.Handler
}

func TestModuleIDReturnsPublic(t *testing.T) {
	t.Parallel()

	if got := New(module.Dependencies{}).ID(); got != "public" {
		t.Fatalf("ID() = %q, want %q", got, "public")
	}
}

func TestPublicRoutes(t *testing.T) {
	t.Parallel()

	h := mountPublic(t, module.Dependencies{ContactEmail: "help@prep.test"})
	tests := []struct {
		name       string
		method     string
		path       string
		wantStatus int
		wantBody   string
	}{
		{name: "home", method: http.MethodGet, path: "/", wantStatus: http.StatusOK, wantBody: "Drill Runner"},
		{name: "home head", method: http.MethodHead, path: "/", wantStatus: http.StatusOK},
		{name: "methods", method: http.MethodGet, path: routepath.Methods, wantStatus: http.StatusOK, wantBody: "/methods/error-logging"},
		{name: "method", method: http.MethodGet, path: routepath.Method("interleaving"), wantStatus: http.StatusOK, wantBody: "Rotate sections"},
		{name: "unknown method", method: http.MethodGet, path: routepath.Method("cramming"), wantStatus: http.StatusNotFound, wantBody: "Method not found"},
		{name: "privacy", method: http.MethodGet, path: routepath.Privacy, wantStatus: http.StatusOK, wantBody: "Privacy"},
		{name: "contact", method: http.MethodGet, path: routepath.Contact, wantStatus: http.StatusOK, wantBody: "mailto:help@prep.test"},
		{name: "post rejected", method: http.MethodPost, path: routepath.Privacy, wantStatus: http.StatusMethodNotAllowed},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, httptest.NewRequest(tc.method, tc.path, nil))
			if rr.Code != tc.wantStatus {
				t.Fatalf("status = %d, want %d", rr.Code, tc.wantStatus)
			}
			if tc.wantBody != "" && !strings.Contains(rr.Body.String(), tc.wantBody) {
				t.Fatalf("body missing %q", tc.wantBody)
			}
		})
	}
}

func TestContactFallsBackToDefaultEmail(t *testing.T) {
	t.Parallel()

	rr := httptest.NewRecorder()
	mountPublic(t, module.Dependencies{}).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, routepath.Contact, nil))
	if !strings.Contains(rr.Body.String(), DefaultContactEmail) {
		t.Fatal("expected default contact email")
	}
}

func TestMethodsCatalogHasTenUniqueSlugs(t *testing.T) {
	t.Parallel()

	seen := map[string]bool{}
	for _, m := range methods {
		if seen[m.Slug] {
			t.Fatalf("duplicate slug %q", m.Slug)
		}
		seen[m.Slug] = true
		if len(m.How) == 0 || len(m.HowApp) == 0 {
			t.Fatalf("method %q has empty copy", m.Slug)
		}
	}
	if len(seen) != 10 {
		t.Fatalf("methods = %d, want 10", len(seen))
	}
}
