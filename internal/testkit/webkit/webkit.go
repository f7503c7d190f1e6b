// Package webkit builds real, disk-backed web dependencies for handler tests.
package webkit

import (
	"context"
	"errors"
	"net/http"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prestigeprep/prep/internal/content"
	"github.com/prestigeprep/prep/internal/platform/requestctx"
	"github.com/prestigeprep/prep/internal/practice"
	"github.com/prestigeprep/prep/internal/services/web/module"
	"github.com/prestigeprep/prep/internal/services/web/platform/authz"
	"github.com/prestigeprep/prep/internal/services/web/platform/session"
	"github.com/prestigeprep/prep/internal/storage/docstore"
	"github.com/prestigeprep/prep/internal/storage/docstore/sqlite"
	"github.com/prestigeprep/prep/internal/storage/objectstore/localfs"
)

// Now is the fixed clock every Env starts at.
var Now = time.Date(2026, 2, 10, 15, 0, 0, 0, time.UTC)

// Student is a signed-in non-admin when Env restricts admins.
var Student = requestctx.Principal{UserID: "u-student", Email: "student@prep.test", Name: "Sam Student"}

// Admin is on the Env admin allowlist.
var Admin = requestctx.Principal{UserID: "u-admin", Email: "admin@prep.test", Name: "Ari Admin"}

// Clock is an adjustable time source.
type Clock struct{ T time.Time }

// Now returns the current fake time.
func (c *Clock) Now() time.Time { return c.T }

// Env holds wired dependencies over a temp sqlite db and local bucket.
type Env struct {
	Deps   module.Dependencies
	Bucket *localfs.Bucket
	Store  docstore.Store
	Clock  *Clock
}

// Options tweak an Env.
type Options struct {
	// Store wraps the sqlite store, e.g. to inject failures.
	Store       func(docstore.Store) docstore.Store
	StrictLocks bool
}

// New returns an Env with admin access limited to Admin.
func New(t testing.TB, opts Options) *Env {
	t.Helper()
	dir := t.TempDir()
	db, err := sqlite.Open(filepath.Join(dir, "prep.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	var store docstore.Store = db
	if opts.Store != nil {
		store = opts.Store(db)
	}
	bucket, err := localfs.Open(filepath.Join(dir, "bucket"), "prep-test")
	if err != nil {
		t.Fatalf("open bucket: %v", err)
	}
	clock := &Clock{T: Now}
	contentSvc, err := content.NewService(content.ServiceConfig{Bucket: bucket, Store: store, Now: clock.Now})
	if err != nil {
		t.Fatalf("content service: %v", err)
	}
	practiceSvc, err := practice.NewService(practice.Config{Store: store, Now: clock.Now, StrictLocks: opts.StrictLocks})
	if err != nil {
		t.Fatalf("practice service: %v", err)
	}
	sessions, err := session.NewManager(session.Config{Secret: []byte("webkit-session-secret-0123456789"), Now: clock.Now})
	if err != nil {
		t.Fatalf("session manager: %v", err)
	}
	return &Env{
		Deps: module.Dependencies{
			Content:  contentSvc,
			Practice: practiceSvc,
			Sessions: sessions,
			Access:   authz.NewPolicy([]string{Admin.Email}),
			Bucket:   bucket,
			Store:    store,
			Now:      clock.Now,
		},
		Bucket: bucket,
		Store:  store,
		Clock:  clock,
	}
}

// WriteSet stores a generated set as JSONL without loading it.
func (e *Env) WriteSet(t testing.TB, id string, items ...string) {
	t.Helper()
	data := strings.Join(items, "\n") + "\n"
	if err := e.Bucket.Write(context.Background(), content.SetItemsPath(id), []byte(data), "application/jsonl"); err != nil {
		t.Fatalf("write set: %v", err)
	}
}

// LoadSet stores and loads a set so it becomes current.
func (e *Env) LoadSet(t testing.TB, id string, items ...string) {
	t.Helper()
	e.WriteSet(t, id, items...)
	if _, err := e.Deps.Content.LoadSet(context.Background(), id); err != nil {
		t.Fatalf("load set: %v", err)
	}
}

// As returns r carrying principal, as the session middleware would.
func As(r *http.Request, principal requestctx.Principal) *http.Request {
	return r.WithContext(requestctx.WithPrincipal(r.Context(), principal))
}

// ErrStoreDown is returned by FailingStore.
var ErrStoreDown = errors.New("document store unavailable")

// FailingStore fails every read of attempts and attendance.
type FailingStore struct {
	docstore.Store
}

// GetAttendance fails.
func (FailingStore) GetAttendance(context.Context, string, string) (docstore.Attendance, error) {
	return docstore.Attendance{}, ErrStoreDown
}

// RecentAttempts fails.
func (FailingStore) RecentAttempts(context.Context, string, int) ([]docstore.Attempt, error) {
	return nil, ErrStoreDown
}

// ListAttemptSessions fails.
func (FailingStore) ListAttemptSessions(context.Context, int) ([]string, error) {
	return nil, ErrStoreDown
}

// Ping fails.
func (FailingStore) Ping(context.Context) error { return ErrStoreDown }
