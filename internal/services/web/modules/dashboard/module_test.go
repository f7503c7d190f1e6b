package dashboard

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prestigeprep/prep/internal/practice"
	"github.com/prestigeprep/prep/internal/services/web/module"
	"github.com/prestigeprep/prep/internal/services/web/routepath"
	"github.com/prestigeprep/prep/internal/testkit/webkit"
)

func TestMountRequiresServices(t *testing.T) {
	t.Parallel()

	if _, err := New(module.Dependencies{}).Mount(); err == nil {
		t.Fatal("expected missing services error")
	}
}

func TestDashboardShowsStreakAndCurrentSet(t *testing.T) {
	t.Parallel()

	env := webkit.New(t, webkit.Options{StrictLocks: true})
	env.LoadSet(t, "sat-1", `{"id":"q1"}`, `{"id":"q2"}`)
	ctx := context.Background()
	for _, daysAgo := range []int{2, 1, 0} {
		env.Clock.T = webkit.Now.Add(-time.Duration(daysAgo) * 24 * time.Hour)
		if _, err := env.Deps.Practice.Checkin(ctx, webkit.Student, practice.CheckinInput{}); err != nil {
			t.Fatalf("Checkin() error = %v", err)
		}
	}
	env.Clock.T = webkit.Now

	mount, err := New(env.Deps).Mount()
	if err != nil {
		t.Fatalf("Mount() error = %v", err)
	}
	rr := httptest.NewRecorder()
	mount.Handler.ServeHTTP(rr, webkit.As(httptest.NewRequest(http.MethodGet, routepath.Dashboard, nil), webkit.Student))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusOK)
	}
	body := rr.Body.String()
	for _, want := range []string{"3 day streak", "10 questions a day", "sat-1", "2 items", "unlock after today"} {
		if !strings.Contains(body, want) {
			t.Fatalf("body missing %q", want)
		}
	}
	if strings.Contains(body, "check in</a> to keep it going") {
		t.Fatal("checked-in student should not be nudged")
	}
}

func TestDashboardWithoutHistory(t *testing.T) {
	t.Parallel()

	env := webkit.New(t, webkit.Options{})
	mount, _ := New(env.Deps).Mount()
	rr := httptest.NewRecorder()
	mount.Handler.ServeHTTP(rr, webkit.As(httptest.NewRequest(http.MethodGet, routepath.Dashboard, nil), webkit.Student))
	body := rr.Body.String()
	if !strings.Contains(body, "No streak yet") || !strings.Contains(body, "always unlocked") {
		t.Fatalf("unexpected body %q", body)
	}
}

func TestAccountShowsProfile(t *testing.T) {
	t.Parallel()

	env := webkit.New(t, webkit.Options{})
	mount, _ := New(env.Deps).Mount()
	rr := httptest.NewRecorder()
	mount.Handler.ServeHTTP(rr, webkit.As(httptest.NewRequest(http.MethodGet, routepath.Account, nil), webkit.Student))
	if !strings.Contains(rr.Body.String(), webkit.Student.Email) || !strings.Contains(rr.Body.String(), `action="/logout"`) {
		t.Fatalf("unexpected body %q", rr.Body.String())
	}
}
