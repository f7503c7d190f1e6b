package publicauth

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/prestigeprep/prep/internal/services/web/module"
	"github.com/prestigeprep/prep/internal/services/web/platform/session"
	"github.com/prestigeprep/prep/internal/services/web/platform/sessioncookie"
	"github.com/prestigeprep/prep/internal/services/web/routepath"
)

func newSessions(t *testing.T) *session.Manager {
	t.Helper()
	m, err := session.NewManager(session.Config{
		Secret: []byte("publicauth-test-secret-0123456789"),
		Now:    func() time.Time { return time.Date(2025, 3, 4, 5, 6, 7, 0, time.UTC) },
	})
	if err != nil {
		t.Fatalf("NewManager() error = %v", err)
	}
	return m
}

func mountAuth(t *testing.T, deps module.Dependencies, opts ...Option) http.Handler {
	t.Helper()
	mount, err := New(deps, opts...).Mount()
	if err != nil {
		t.Fatalf("Mount() error = %v", err)
	}
	return mount.Handler
}

func cookieNamed(rr *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rr.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func TestMountRequiresSessions(t *testing.T) {
	t.Parallel()

	if _, err := New(module.Dependencies{}).Mount(); err == nil {
		t.Fatal("expected missing session manager error")
	}
}

func TestLoginPageShowsConfiguredMethods(t *testing.T) {
	t.Parallel()

	h := mountAuth(t, module.Dependencies{Sessions: newSessions(t), DevLogin: true, GoogleClientID: "id", GoogleClientSecret: "secret"})
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, routepath.Login+"?next=/drills&error=state", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusOK)
	}
	body := rr.Body.String()
	for _, want := range []string{"Continue with Google", "/auth/google/start?next=%2Fdrills", "Dev sign in", "link expired"} {
		if !strings.Contains(body, want) {
			t.Fatalf("body missing %q", want)
		}
	}
}

func TestDevLoginIssuesSession(t *testing.T) {
	t.Parallel()

	sessions := newSessions(t)
	h := mountAuth(t, module.Dependencies{Sessions: sessions, DevLogin: true})
	form := url.Values{"email": {" Ada@Prep.test "}, "name": {"Ada"}, "next": {"/attendance"}}
	req := httptest.NewRequest(http.MethodPost, routepath.LoginDev, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusSeeOther || rr.Header().Get("Location") != "/attendance" {
		t.Fatalf("response = %d %q", rr.Code, rr.Header().Get("Location"))
	}
	cookie := cookieNamed(rr, sessioncookie.Name)
	if cookie == nil {
		t.Fatal("expected session cookie")
	}
	check := httptest.NewRequest(http.MethodGet, "/", nil)
	check.AddCookie(cookie)
	principal, ok := sessions.Read(check)
	if !ok || principal.Email != "ada@prep.test" || principal.UserID != "dev:ada@prep.test" {
		t.Fatalf("principal = %+v ok=%v", principal, ok)
	}
}

func TestDevLoginDisabled(t *testing.T) {
	t.Parallel()

	h := mountAuth(t, module.Dependencies{Sessions: newSessions(t)})
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, routepath.LoginDev, strings.NewReader("email=a@b.c")))
	if rr.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusNotFound)
	}
}

func TestLogoutClearsSession(t *testing.T) {
	t.Parallel()

	h := mountAuth(t, module.Dependencies{Sessions: newSessions(t)})
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, routepath.Logout, nil))
	if rr.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusSeeOther)
	}
	cookie := cookieNamed(rr, sessioncookie.Name)
	if cookie == nil || cookie.MaxAge >= 0 {
		t.Fatalf("expected expired session cookie, got %+v", cookie)
	}
}

func TestGoogleStartDisabledWithoutCredentials(t *testing.T) {
	t.Parallel()

	h := mountAuth(t, module.Dependencies{Sessions: newSessions(t)})
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, routepath.GoogleStart, nil))
	if rr.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusNotFound)
	}
}

func TestGoogleRoundTrip(t *testing.T) {
	t.Parallel()

	var gotVerifier string
	google := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/token":
			_ = r.ParseForm()
			gotVerifier = r.PostForm.Get("code_verifier")
			if r.PostForm.Get("code") != "the-code" || r.PostForm.Get("redirect_uri") != "https://prep.test/auth/google/callback" {
				w.WriteHeader(http.StatusBadRequest)
				return
			}
			_ = json.NewEncoder(w).Encode(map[string]any{"access_token": "tok", "expires_in": 3600})
		case "/userinfo":
			if r.Header.Get("Authorization") != "Bearer tok" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			_ = json.NewEncoder(w).Encode(Profile{Sub: "g-1", Email: "ada@prep.test", Name: "Ada", Picture: "https://img"})
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(google.Close)

	sessions := newSessions(t)
	provider := Provider{AuthURL: google.URL + "/auth", TokenURL: google.URL + "/token", UserInfoURL: google.URL + "/userinfo", Scopes: []string{"openid"}}
	h := mountAuth(t, module.Dependencies{
		Sessions:           sessions,
		GoogleClientID:     "client",
		GoogleClientSecret: "secret",
		PublicBaseURL:      "https://prep.test/",
	}, WithProvider(provider), WithHTTPClient(google.Client()))

	start := httptest.NewRecorder()
	h.ServeHTTP(start, httptest.NewRequest(http.MethodGet, routepath.GoogleStart+"?next=/recommended", nil))
	if start.Code != http.StatusFound {
		t.Fatalf("start status = %d, want %d", start.Code, http.StatusFound)
	}
	target, err := url.Parse(start.Header().Get("Location"))
	if err != nil {
		t.Fatalf("parse location: %v", err)
	}
	q := target.Query()
	if q.Get("client_id") != "client" || q.Get("code_challenge_method") != "S256" || q.Get("redirect_uri") != "https://prep.test/auth/google/callback" {
		t.Fatalf("unexpected auth query %v", q)
	}
	stateCookie := cookieNamed(start, sessioncookie.StateName)
	if stateCookie == nil {
		t.Fatal("expected state cookie")
	}

	cb := httptest.NewRequest(http.MethodGet, routepath.GoogleCallback+"?code=the-code&state="+url.QueryEscape(q.Get("state")), nil)
	cb.AddCookie(stateCookie)
	done := httptest.NewRecorder()
	h.ServeHTTP(done, cb)
	if done.Code != http.StatusSeeOther || done.Header().Get("Location") != "/recommended" {
		t.Fatalf("callback = %d %q", done.Code, done.Header().Get("Location"))
	}
	if s256Challenge(gotVerifier) != q.Get("code_challenge") {
		t.Fatal("code verifier does not match challenge")
	}
	sessionCookie := cookieNamed(done, sessioncookie.Name)
	if sessionCookie == nil {
		t.Fatal("expected session cookie")
	}
	check := httptest.NewRequest(http.MethodGet, "/", nil)
	check.AddCookie(sessionCookie)
	if principal, ok := sessions.Read(check); !ok || principal.UserID != "g-1" || principal.Picture != "https://img" {
		t.Fatalf("principal = %+v ok=%v", principal, ok)
	}
}

func TestGoogleCallbackRejectsStateMismatch(t *testing.T) {
	t.Parallel()

	sessions := newSessions(t)
	h := mountAuth(t, module.Dependencies{Sessions: sessions, GoogleClientID: "c", GoogleClientSecret: "s"})

	issue := httptest.NewRecorder()
	if err := sessions.IssueOAuthState(issue, httptest.NewRequest(http.MethodGet, "/", nil), session.OAuthState{State: "good", Verifier: "v"}); err != nil {
		t.Fatalf("IssueOAuthState() error = %v", err)
	}
	req := httptest.NewRequest(http.MethodGet, routepath.GoogleCallback+"?code=x&state=bad", nil)
	req.AddCookie(cookieNamed(issue, sessioncookie.StateName))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if got := rr.Header().Get("Location"); got != routepath.Login+"?error=state" {
		t.Fatalf("Location = %q", got)
	}
}

func TestS256ChallengeKnownVector(t *testing.T) {
	t.Parallel()

	// RFC 7636 appendix B.
	if got := s256Challenge("dBjftJeZ4CVP-mB92K27uhbUJU1p1r_wW1gFWFOEjXk"); got != "E9Melhoa2OwvFrEMTJguCHaoeK1t8URWbuGJSstw-cM" {
		t.Fatalf("challenge = %q", got)
	}
}
