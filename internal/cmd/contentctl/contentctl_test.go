package contentctl

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prestigeprep/prep/internal/cmd/backend"
	"github.com/prestigeprep/prep/internal/content"
)

func localConfig(t *testing.T) backend.Config {
	t.Helper()
	dir := t.TempDir()
	return backend.Config{
		Bucket:     "prep-dev",
		LocalDir:   filepath.Join(dir, "bucket"),
		DocStore:   backend.DriverSQLite,
		SQLitePath: filepath.Join(dir, "prep.db"),
	}
}

func run(t *testing.T, cfg backend.Config, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := NewRootCommand(BackendOpener(cfg, nil))
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func writeObject(t *testing.T, cfg backend.Config, key, data string) {
	t.Helper()
	b, err := backend.Open(context.Background(), cfg, backend.Options{})
	if err != nil {
		t.Fatalf("open backend: %v", err)
	}
	defer func() { _ = b.Close() }()
	if err := b.Bucket.Write(context.Background(), key, []byte(data), "application/octet-stream"); err != nil {
		t.Fatalf("write %s: %v", key, err)
	}
}

func TestSetsListScansBucket(t *testing.T) {
	t.Parallel()
	cfg := localConfig(t)
	writeObject(t, cfg, content.SetItemsPath("sat-1"), `{"id":"q1"}`+"\n")
	writeObject(t, cfg, content.SetMetadataPath("sat-1"), `{"exam":"SAT","count":3}`)

	out, err := run(t, cfg, "sets", "list")
	if err != nil {
		t.Fatalf("sets list: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 2 {
		t.Fatalf("output = %q, want header and one row", out)
	}
	if fields := strings.Fields(lines[1]); len(fields) != 4 || fields[0] != "sat-1" || fields[1] != "SAT" || fields[2] != "3" || fields[3] != "-" {
		t.Fatalf("row = %q", lines[1])
	}
}

func TestSetsLoad(t *testing.T) {
	t.Parallel()
	cfg := localConfig(t)
	writeObject(t, cfg, content.SetItemsPath("sat-1"), `{"id":"q1"}`+"\n"+`{"id":"q2"}`+"\n")

	out, err := run(t, cfg, "sets", "load", "sat-1")
	if err != nil {
		t.Fatalf("sets load: %v", err)
	}
	if strings.TrimSpace(out) != "Loaded sat-1 (2 items)" {
		t.Fatalf("output = %q", out)
	}

	if _, err := run(t, cfg, "sets", "load", "missing"); err == nil {
		t.Fatal("expected missing set error")
	}
}

func TestDraftsPushAndBuild(t *testing.T) {
	t.Parallel()
	cfg := localConfig(t)
	itemsFile := filepath.Join(t.TempDir(), "items.json")
	if err := os.WriteFile(itemsFile, []byte(`[{"id":"a1","exam":"ACT","stem":"?"}]`), 0o644); err != nil {
		t.Fatalf("write items: %v", err)
	}

	out, err := run(t, cfg, "drafts", "push", "act-1", itemsFile)
	if err != nil {
		t.Fatalf("drafts push: %v", err)
	}
	if !strings.Contains(out, "Pushed act-1 (1 item)") || !strings.Contains(out, content.DraftItemsPath("act-1")) {
		t.Fatalf("push output = %q", out)
	}

	out, err = run(t, cfg, "drafts", "build", "act-1")
	if err != nil {
		t.Fatalf("drafts build: %v", err)
	}
	if !strings.Contains(out, "Built act-1 (1 item)") || !strings.Contains(out, content.PromotedItemsPath("act-1")) {
		t.Fatalf("build output = %q", out)
	}
}

func TestDraftsPushRejectsInput(t *testing.T) {
	t.Parallel()
	cfg := localConfig(t)
	notArray := filepath.Join(t.TempDir(), "items.json")
	if err := os.WriteFile(notArray, []byte(`{"id":"a1"}`), 0o644); err != nil {
		t.Fatalf("write items: %v", err)
	}

	tests := []struct {
		name string
		args []string
	}{
		{name: "missing file", args: []string{"drafts", "push", "act-1", filepath.Join(t.TempDir(), "nope.json")}},
		{name: "not an array", args: []string{"drafts", "push", "act-1", notArray}},
		{name: "unsafe name", args: []string{"drafts", "push", "../act", notArray}},
		{name: "missing args", args: []string{"drafts", "push", "act-1"}},
		{name: "build without draft", args: []string{"drafts", "build", "act-2"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := run(t, cfg, tc.args...); err == nil {
				t.Fatalf("%v: expected error", tc.args)
			}
		})
	}
}

func TestIngestRegistersSet(t *testing.T) {
	t.Parallel()
	cfg := localConfig(t)

	out, err := run(t, cfg, "ingest", "gs://prep-dev/uploads/batch.jsonl", "--count", "5")
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	id := strings.TrimSpace(out)
	if id == "" {
		t.Fatal("expected an id")
	}

	out, err = run(t, cfg, "sets", "list")
	if err != nil {
		t.Fatalf("sets list: %v", err)
	}
	if !strings.Contains(out, id) || !strings.Contains(out, "5") {
		t.Fatalf("list output = %q, want registered set %s", out, id)
	}

	if _, err := run(t, cfg, "ingest", " "); err == nil {
		t.Fatal("expected gcsPath required error")
	}
}

func TestDiag(t *testing.T) {
	t.Parallel()
	cfg := localConfig(t)

	out, err := run(t, cfg, "diag")
	if err != nil {
		t.Fatalf("diag: %v (%s)", err, out)
	}
	if !strings.Contains(out, `"objects"`) || !strings.Contains(out, `"bucket": "prep-dev"`) || strings.Contains(out, `"ok": false`) {
		t.Fatalf("diag output = %q", out)
	}
}

func TestOpenerFailure(t *testing.T) {
	t.Parallel()
	want := errors.New("no credentials")
	root := NewRootCommand(func(context.Context) (*backend.Backend, error) { return nil, want })
	root.SetOut(&bytes.Buffer{})
	root.SetArgs([]string{"sets", "list"})
	if err := root.ExecuteContext(context.Background()); !errors.Is(err, want) {
		t.Fatalf("error = %v, want %v", err, want)
	}
}

func TestNilOpener(t *testing.T) {
	t.Parallel()
	root := NewRootCommand(nil)
	root.SetOut(&bytes.Buffer{})
	root.SetArgs([]string{"diag"})
	if err := root.ExecuteContext(context.Background()); err == nil {
		t.Fatal("expected missing opener error")
	}
}
