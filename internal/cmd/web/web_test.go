package web

import (
	"context"
	"flag"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prestigeprep/prep/internal/cmd/backend"
	"github.com/prestigeprep/prep/internal/content"
	"github.com/prestigeprep/prep/internal/storage/docstore"
)

func TestParseConfigDefaults(t *testing.T) {
	fs := flag.NewFlagSet("web", flag.ContinueOnError)
	cfg, err := ParseConfig(fs, nil)
	if err != nil {
		t.Fatalf("ParseConfig() error = %v", err)
	}
	if cfg.HTTPAddr != ":8080" {
		t.Fatalf("HTTPAddr = %q, want %q", cfg.HTTPAddr, ":8080")
	}
	if cfg.SessionTTL != 720*time.Hour {
		t.Fatalf("SessionTTL = %v, want 720h", cfg.SessionTTL)
	}
	if cfg.Storage.DocStore != backend.DriverFirestore {
		t.Fatalf("DocStore = %q, want %q", cfg.Storage.DocStore, backend.DriverFirestore)
	}
	if cfg.WebAgentPublish != "pnpm build;sudo /usr/bin/systemctl restart prestige-prep" {
		t.Fatalf("WebAgentPublish = %q", cfg.WebAgentPublish)
	}
	if cfg.Logging.Level != "info" {
		t.Fatalf("Logging.Level = %q, want info", cfg.Logging.Level)
	}
	if cfg.DevLogin {
		t.Fatal("DevLogin = true, want false")
	}
}

func TestParseConfigEnvAndFlags(t *testing.T) {
	t.Setenv("PREP_WEB_ADDR", "0.0.0.0:9000")
	t.Setenv("PREP_ADMIN_EMAILS", " admin@prep.test, ,coach@prep.test ")
	t.Setenv("PREP_GCS_BUCKET", "prep-content")
	t.Setenv("PREP_SESSION_TTL", "2h")

	fs := flag.NewFlagSet("web", flag.ContinueOnError)
	cfg, err := ParseConfig(fs, []string{"-http-addr", "127.0.0.1:9001", "-docstore", "sqlite", "-dev-login"})
	if err != nil {
		t.Fatalf("ParseConfig() error = %v", err)
	}
	if cfg.HTTPAddr != "127.0.0.1:9001" {
		t.Fatalf("HTTPAddr = %q, want flag override", cfg.HTTPAddr)
	}
	if got := cfg.AdminEmails; len(got) != 2 || got[0] != "admin@prep.test" || got[1] != "coach@prep.test" {
		t.Fatalf("AdminEmails = %q", got)
	}
	if cfg.Storage.Bucket != "prep-content" {
		t.Fatalf("Storage.Bucket = %q, want prep-content", cfg.Storage.Bucket)
	}
	if cfg.Storage.DocStore != backend.DriverSQLite {
		t.Fatalf("DocStore = %q, want sqlite", cfg.Storage.DocStore)
	}
	if !cfg.DevLogin {
		t.Fatal("DevLogin = false, want true")
	}
	if cfg.SessionTTL != 2*time.Hour {
		t.Fatalf("SessionTTL = %v, want 2h", cfg.SessionTTL)
	}
}

func TestParseConfigRejectsBadEnv(t *testing.T) {
	t.Setenv("PREP_SESSION_TTL", "forever")

	fs := flag.NewFlagSet("web", flag.ContinueOnError)
	if _, err := ParseConfig(fs, nil); err == nil {
		t.Fatal("expected env parse error")
	}
}

func localConfig(t *testing.T) Config {
	t.Helper()
	dir := t.TempDir()
	return Config{
		SessionTTL: time.Hour,
		Storage: backend.Config{
			Bucket:     "prep-dev",
			LocalDir:   filepath.Join(dir, "bucket"),
			DocStore:   backend.DriverSQLite,
			SQLitePath: filepath.Join(dir, "prep.db"),
		},
	}
}

func TestDependenciesLocal(t *testing.T) {
	cfg := localConfig(t)
	cfg.AdminEmails = []string{"admin@prep.test"}
	cfg.AgentToken = "tok"

	deps, closeDeps, err := Dependencies(context.Background(), cfg, nil)
	if err != nil {
		t.Fatalf("Dependencies() error = %v", err)
	}
	defer closeDeps()

	if deps.Sessions == nil || deps.Content == nil || deps.Practice == nil {
		t.Fatal("expected sessions, content, and practice")
	}
	if deps.Generator != nil || deps.WebAgent != nil {
		t.Fatal("agents should be disabled without dirs")
	}
	if !deps.Access.Restricted() {
		t.Fatal("expected restricted admin access")
	}
	if deps.HTTPClient == nil || deps.AgentToken != "tok" || len(deps.DiagEnv) == 0 {
		t.Fatalf("unexpected deps: client=%v token=%q diag=%v", deps.HTTPClient, deps.AgentToken, deps.DiagEnv)
	}
}

func TestDependenciesRestoresCurrentSet(t *testing.T) {
	cfg := localConfig(t)

	seed, err := backend.Open(context.Background(), cfg.Storage, backend.Options{})
	if err != nil {
		t.Fatalf("open backend: %v", err)
	}
	ctx := context.Background()
	items := `{"id":"q1","stem":"2+2?","choices":{"A":"3","B":"4"},"answer":"B"}` + "\n"
	if err := seed.Bucket.Write(ctx, content.SetItemsPath("sat-1"), []byte(items), "application/jsonl"); err != nil {
		t.Fatalf("write set: %v", err)
	}
	if err := seed.Store.SetCurrentSet(ctx, docstore.CurrentSet{Set: "sat-1", At: time.Now()}); err != nil {
		t.Fatalf("set current: %v", err)
	}
	if err := seed.Close(); err != nil {
		t.Fatalf("close seed: %v", err)
	}

	deps, closeDeps, err := Dependencies(ctx, cfg, nil)
	if err != nil {
		t.Fatalf("Dependencies() error = %v", err)
	}
	defer closeDeps()
	if got := deps.Content.Current(); got.Set != "sat-1" || got.Count != 1 {
		t.Fatalf("Current() = %+v, want sat-1 with 1 item", got)
	}
}

func TestDependenciesBuildsAgents(t *testing.T) {
	cfg := localConfig(t)
	cfg.GeneratorDir = t.TempDir()
	cfg.WebAgentDir = t.TempDir()
	cfg.WebAgentPublish = "make build"

	deps, closeDeps, err := Dependencies(context.Background(), cfg, nil)
	if err != nil {
		t.Fatalf("Dependencies() error = %v", err)
	}
	defer closeDeps()
	if deps.Generator == nil || deps.WebAgent == nil {
		t.Fatal("expected both agent supervisors")
	}
}

func TestDependenciesRejectsBadStorage(t *testing.T) {
	cfg := localConfig(t)
	cfg.Storage.DocStore = "mongo"
	if _, _, err := Dependencies(context.Background(), cfg, nil); err == nil {
		t.Fatal("expected storage error")
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	cfg := localConfig(t)
	cfg.HTTPAddr = "127.0.0.1:0"
	cfg.Logging.Level = "error"

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := Run(ctx, cfg); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if _, err := os.Stat(cfg.Storage.SQLitePath); err != nil {
		t.Fatalf("expected sqlite db to be created: %v", err)
	}
}
