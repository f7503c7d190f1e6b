package adminagent

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

const item = `{"id":"g1","exam":"SAT","section":"Math","stem":"x?","choices":{"A":"1","B":"2"},"answer":"B"}`

type fixture struct {
	env   *webkit.Env
	agent *webkit.Agent
	h     http.Handler
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	env := webkit.New(t, webkit.Options{})
	ag := webkit.NewAgent(t, "generator", "generate-")
	env.Deps.Generator = ag.Sup
	mount, err := New(env.Deps).Mount()
	if err != nil {
		t.Fatalf("Mount() error = %v", err)
	}
	return fixture{env: env, agent: ag, h: mount.Handler}
}

func (f fixture) post(t *testing.T, path string, form url.Values) string {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rr := httptest.NewRecorder()
	f.h.ServeHTTP(rr, webkit.As(req, webkit.Admin))
	if rr.Code != http.StatusSeeOther || rr.Header().Get("Location") != routepath.AdminAgent {
		t.Fatalf("POST %s = %d %q, want redirect", path, rr.Code, rr.Header().Get("Location"))
	}
	page := httptest.NewRequest(http.MethodGet, routepath.AdminAgent, nil)
	for _, c := range rr.Result().Cookies() {
		page.AddCookie(c)
	}
	return f.get(t, page)
}

func (f fixture) get(t *testing.T, req *http.Request) string {
	t.Helper()
	rr := httptest.NewRecorder()
	f.h.ServeHTTP(rr, webkit.As(req, webkit.Admin))
	if rr.Code != http.StatusOK {
		t.Fatalf("GET %s = %d", req.URL.Path, rr.Code)
	}
	return rr.Body.String()
}

func TestMountRequiresSupervisor(t *testing.T) {
	t.Parallel()

	env := webkit.New(t, webkit.Options{})
	if _, err := New(env.Deps).Mount(); err == nil {
		t.Fatal("expected error without generator")
	}
	if _, err := New(module.Dependencies{Generator: webkit.NewAgent(t, "g", "generate-").Sup}).Mount(); err == nil {
		t.Fatal("expected error without content")
	}
}

func TestPageShowsStatusFromLog(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.agent.Running(t, 4242)
	f.agent.WriteLog(t, "generate-20260210-140000.log", "boot\nStart set=sat-auto-1 scale=10\nwriting items\n")

	body := f.get(t, httptest.NewRequest(http.MethodGet, routepath.AdminAgent, nil))
	for _, want := range []string{"running", "pid 4242", "sat-auto-1", "writing items", "generate-20260210-140000.log"} {
		if !strings.Contains(body, want) {
			t.Fatalf("body missing %q", want)
		}
	}
}

func TestPageWithoutLog(t *testing.T) {
	t.Parallel()

	body := newFixture(t).get(t, httptest.NewRequest(http.MethodGet, routepath.AdminAgent, nil))
	if !strings.Contains(body, "stopped") || !strings.Contains(body, "(no log yet)") {
		t.Fatalf("unexpected body %q", body)
	}
}

func TestStartPassesSetAndScale(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	body := f.post(t, startPath, url.Values{"set": {"sat-auto-7"}, "scale": {"25"}})
	if !strings.Contains(body, "Agent started.") {
		t.Fatalf("expected flash, got %q", body)
	}
	cmds := f.agent.Runner.Commands()
	if len(cmds) != 1 {
		t.Fatalf("commands = %d, want 1", len(cmds))
	}
	if cmds[0].Env["SET_NAME"] != "sat-auto-7" || cmds[0].Env["SCALE"] != "25" {
		t.Fatalf("env = %v", cmds[0].Env)
	}
}

func TestStartDefaultsScaleAndOmitsSet(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.post(t, startPath, url.Values{"scale": {"lots"}})
	env := f.agent.Runner.Commands()[0].Env
	if _, ok := env["SET_NAME"]; ok {
		t.Fatalf("SET_NAME should be unset, env = %v", env)
	}
	if env["SCALE"] != "10" {
		t.Fatalf("SCALE = %q, want 10", env["SCALE"])
	}
}

func TestStartRejectsUnsafeSetName(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	body := f.post(t, startPath, url.Values{"set": {"../etc"}})
	if !strings.Contains(body, `class="error"`) {
		t.Fatalf("expected error flash, got %q", body)
	}
	if len(f.agent.Runner.Commands()) != 0 {
		t.Fatal("launcher should not run")
	}
}

func TestStartRefusesWhileRunning(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.agent.Running(t, 77)
	body := f.post(t, startPath, url.Values{})
	if !strings.Contains(body, "already running") {
		t.Fatalf("expected conflict flash, got %q", body)
	}
}

func TestStopSignalsProcess(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.agent.Running(t, 88)
	body := f.post(t, stopPath, url.Values{})
	if !strings.Contains(body, "Stop signal sent.") {
		t.Fatalf("expected flash, got %q", body)
	}
	if f.agent.Alive(88) {
		t.Fatal("expected process to be terminated")
	}
}

func TestStopWithoutProcess(t *testing.T) {
	t.Parallel()

	body := newFixture(t).post(t, stopPath, url.Values{})
	if !strings.Contains(body, "not running") {
		t.Fatalf("expected error flash, got %q", body)
	}
}

func TestImportResolvesSetFromRunFile(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.agent.WriteRun(t, "sat-auto-9")
	f.env.WriteSet(t, "sat-auto-9", item)

	body := f.post(t, importPath, url.Values{})
	if !strings.Contains(body, "Imported sat-auto-9 (1 items).") {
		t.Fatalf("expected flash, got %q", body)
	}
	if f.env.Deps.Content.Current().Set != "sat-auto-9" {
		t.Fatal("expected set to become current")
	}
}

func TestImportWithoutSetName(t *testing.T) {
	t.Parallel()

	body := newFixture(t).post(t, importPath, url.Values{})
	if !strings.Contains(body, "could not determine set name") {
		t.Fatalf("expected error flash, got %q", body)
	}
}

func TestUnknownSubpathIsNotFound(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	rr := httptest.NewRecorder()
	f.h.ServeHTTP(rr, webkit.As(httptest.NewRequest(http.MethodGet, routepath.AdminAgentPrefix+"nope", nil), webkit.Admin))
	if rr.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rr.Code)
	}
}
