package admincontent

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/prestigeprep/prep/internal/services/web/module"
	"github.com/prestigeprep/prep/internal/services/web/routepath"
	"github.com/prestigeprep/prep/internal/testkit/webkit"
)

const item = `{"id":"r1","exam":"SAT","section":"Reading","stem":"Main idea?","choices":{"A":"x","B":"y"},"answer":"A"}`

func mountAdmin(t *testing.T, env *webkit.Env) http.Handler {
	t.Helper()
	mount, err := New(env.Deps).Mount()
	if err != nil {
		t.Fatalf("Mount() error = %v", err)
	}
	return mount.Handler
}

func importSet(h http.Handler, set string) *httptest.ResponseRecorder {
	form := url.Values{"set": {set}}
	req := httptest.NewRequest(http.MethodPost, routepath.AdminContentImport, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, webkit.As(req, webkit.Admin))
	return rr
}

// followFlash renders the admin page carrying the cookies set by rr.
func followFlash(t *testing.T, h http.Handler, rr *httptest.ResponseRecorder) string {
	t.Helper()
	if rr.Code != http.StatusSeeOther || rr.Header().Get("Location") != routepath.AdminContent {
		t.Fatalf("expected redirect to admin content, got %d %q", rr.Code, rr.Header().Get("Location"))
	}
	req := httptest.NewRequest(http.MethodGet, routepath.AdminContent, nil)
	for _, c := range rr.Result().Cookies() {
		req.AddCookie(c)
	}
	page := httptest.NewRecorder()
	h.ServeHTTP(page, webkit.As(req, webkit.Admin))
	return page.Body.String()
}

func TestMountRequiresContent(t *testing.T) {
	t.Parallel()

	if _, err := New(module.Dependencies{}).Mount(); err == nil {
		t.Fatal("expected error without content service")
	}
}

func TestPageListsSetsFromBucket(t *testing.T) {
	t.Parallel()

	env := webkit.New(t, webkit.Options{})
	env.WriteSet(t, "sat-2026-02-01", item)
	env.WriteSet(t, "act-2026-01-15", item)

	rr := httptest.NewRecorder()
	mountAdmin(t, env).ServeHTTP(rr, webkit.As(httptest.NewRequest(http.MethodGet, routepath.AdminContent, nil), webkit.Admin))
	body := rr.Body.String()
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	for _, want := range []string{"prep-test", "sat-2026-02-01", "act-2026-01-15", `action="/admin/content/import"`} {
		if !strings.Contains(body, want) {
			t.Fatalf("body missing %q", want)
		}
	}
	if strings.Index(body, "sat-2026-02-01") > strings.Index(body, "act-2026-01-15") {
		t.Fatal("expected newest-first ordering")
	}
}

func TestImportLoadsSetAndFlashes(t *testing.T) {
	t.Parallel()

	env := webkit.New(t, webkit.Options{})
	env.WriteSet(t, "sat-1", item)
	h := mountAdmin(t, env)

	body := followFlash(t, h, importSet(h, "sat-1"))
	if !strings.Contains(body, "Loaded sat-1 (1 items).") {
		t.Fatalf("expected success flash in %q", body)
	}
	if got := env.Deps.Content.Current(); got.Set != "sat-1" || got.Count != 1 {
		t.Fatalf("current = %+v", got)
	}
}

func TestImportMissingSetFlashesError(t *testing.T) {
	t.Parallel()

	env := webkit.New(t, webkit.Options{})
	h := mountAdmin(t, env)

	body := followFlash(t, h, importSet(h, "nope"))
	if !strings.Contains(body, `class="error"`) || !strings.Contains(body, "nope") {
		t.Fatalf("expected error flash in %q", body)
	}
	if env.Deps.Content.Current().Set != "" {
		t.Fatal("current set should stay empty")
	}
}

func TestImportRejectsGet(t *testing.T) {
	t.Parallel()

	rr := httptest.NewRecorder()
	mountAdmin(t, webkit.New(t, webkit.Options{})).ServeHTTP(rr,
		webkit.As(httptest.NewRequest(http.MethodGet, routepath.AdminContentImport, nil), webkit.Admin))
	if rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d, want 405", rr.Code)
	}
}
