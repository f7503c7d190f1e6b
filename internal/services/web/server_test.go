package web

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prestigeprep/prep/internal/services/web/module"
	"github.com/prestigeprep/prep/internal/services/web/platform/httpx"
	"github.com/prestigeprep/prep/internal/testkit/webkit"
)

func newTestHandler(t *testing.T) (http.Handler, *webkit.Env) {
	t.Helper()
	env := webkit.New(t, webkit.Options{})
	h, err := NewHandler(Config{Dependencies: env.Deps})
	if err != nil {
		t.Fatalf("NewHandler() error = %v", err)
	}
	return h, env
}

func serve(h http.Handler, r *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, r)
	return rec
}

func TestNewHandlerRoutes(t *testing.T) {
	t.Parallel()
	h, _ := newTestHandler(t)

	tests := []struct {
		name       string
		path       string
		wantStatus int
		wantBody   string
	}{
		{name: "health", path: "/up", wantStatus: http.StatusOK, wantBody: "OK"},
		{name: "static", path: "/static/app.css", wantStatus: http.StatusOK},
		{name: "home", path: "/", wantStatus: http.StatusOK},
		{name: "privacy", path: "/privacy", wantStatus: http.StatusOK},
		{name: "unknown page", path: "/nope", wantStatus: http.StatusNotFound, wantBody: "Page not found."},
		{name: "protected page", path: "/dashboard", wantStatus: http.StatusSeeOther},
		{name: "admin page", path: "/admin/content", wantStatus: http.StatusSeeOther},
		{name: "session api", path: "/api/locks", wantStatus: http.StatusUnauthorized},
		{name: "unknown api", path: "/api/nope", wantStatus: http.StatusNotFound},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			rec := serve(h, httptest.NewRequest(http.MethodGet, tc.path, nil))
			if rec.Code != tc.wantStatus {
				t.Fatalf("GET %s status = %d, want %d", tc.path, rec.Code, tc.wantStatus)
			}
			if tc.wantBody != "" && !strings.Contains(rec.Body.String(), tc.wantBody) {
				t.Fatalf("GET %s body = %q, want substring %q", tc.path, rec.Body.String(), tc.wantBody)
			}
		})
	}
}

func TestNewHandlerRedirectsAnonymousToLogin(t *testing.T) {
	t.Parallel()
	h, _ := newTestHandler(t)

	rec := serve(h, httptest.NewRequest(http.MethodGet, "/drills?page=2", nil))
	if got, want := rec.Header().Get("Location"), "/login?next=%2Fdrills%3Fpage%3D2"; got != want {
		t.Fatalf("Location = %q, want %q", got, want)
	}
}

func TestNewHandlerSetsRequestID(t *testing.T) {
	t.Parallel()
	h, _ := newTestHandler(t)

	rec := serve(h, httptest.NewRequest(http.MethodGet, "/up", nil))
	if got := rec.Header().Get(httpx.RequestIDHeader); !strings.HasPrefix(got, "web-") {
		t.Fatalf("request id = %q, want web- prefix", got)
	}

	req := httptest.NewRequest(http.MethodGet, "/up", nil)
	req.Header.Set(httpx.RequestIDHeader, "caller-1")
	rec = serve(h, req)
	if got := rec.Header().Get(httpx.RequestIDHeader); got != "caller-1" {
		t.Fatalf("request id = %q, want caller-1", got)
	}
}

func TestNewHandlerResolvesSessionCookie(t *testing.T) {
	t.Parallel()
	h, env := newTestHandler(t)

	issue := httptest.NewRecorder()
	if err := env.Deps.Sessions.Issue(issue, httptest.NewRequest(http.MethodGet, "/", nil), webkit.Student); err != nil {
		t.Fatalf("issue session: %v", err)
	}
	cookies := issue.Result().Cookies()

	withSession := func(method, path string) *http.Request {
		req := httptest.NewRequest(method, path, nil)
		for _, c := range cookies {
			req.AddCookie(c)
		}
		return req
	}

	rec := serve(h, withSession(http.MethodGet, "/api/locks"))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"canDrill":false`) {
		t.Fatalf("GET /api/locks = %d %q, want 200 before check-in", rec.Code, rec.Body.String())
	}

	rec = serve(h, withSession(http.MethodGet, "/dashboard"))
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /dashboard status = %d, want 200", rec.Code)
	}

	rec = serve(h, withSession(http.MethodGet, "/admin/content"))
	if rec.Code != http.StatusForbidden {
		t.Fatalf("GET /admin/content as student status = %d, want 403", rec.Code)
	}

	rec = serve(h, withSession(http.MethodPost, "/api/checkin"))
	if rec.Code != http.StatusForbidden {
		t.Fatalf("cross-site POST /api/checkin status = %d, want 403", rec.Code)
	}
}

func TestNewHandlerRequiresContent(t *testing.T) {
	t.Parallel()
	env := webkit.New(t, webkit.Options{})
	deps := env.Deps
	deps.Content = nil

	if _, err := NewHandler(Config{Dependencies: deps}); err == nil {
		t.Fatal("expected missing content service error")
	}
}

func TestNewHandlerRequiresSessions(t *testing.T) {
	t.Parallel()
	if _, err := NewHandler(Config{Dependencies: module.Dependencies{}}); err == nil {
		t.Fatal("expected missing session manager error")
	}
}

func TestNewServerRequiresAddress(t *testing.T) {
	t.Parallel()
	env := webkit.New(t, webkit.Options{})
	if _, err := NewServer(context.Background(), Config{HTTPAddr: "  ", Dependencies: env.Deps}); err == nil {
		t.Fatal("expected missing address error")
	}
}

func TestServerListenAndServeStopsOnCancel(t *testing.T) {
	t.Parallel()
	env := webkit.New(t, webkit.Options{})
	srv, err := NewServer(context.Background(), Config{HTTPAddr: "127.0.0.1:0", Dependencies: env.Deps})
	if err != nil {
		t.Fatalf("NewServer() error = %v", err)
	}
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.ListenAndServe(ctx) }()
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("ListenAndServe() error = %v, want nil", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("ListenAndServe did not return after cancel")
	}
}

func TestServerNilSafety(t *testing.T) {
	t.Parallel()
	var srv *Server
	if err := srv.ListenAndServe(context.Background()); err == nil {
		t.Fatal("expected nil server error")
	}
	srv.Close()
	if got := srv.Addr(); got != "" {
		t.Fatalf("Addr() = %q, want empty", got)
	}
}

func TestStaticAssetsServeLiveLog(t *testing.T) {
	t.Parallel()
	h, _ := newTestHandler(t)

	rec := serve(h, httptest.NewRequest(http.MethodGet, "/static/livelog.js", nil))
	body, _ := io.ReadAll(rec.Result().Body)
	if rec.Code != http.StatusOK || len(body) == 0 {
		t.Fatalf("GET livelog.js = %d (%d bytes), want 200 with body", rec.Code, len(body))
	}
}
