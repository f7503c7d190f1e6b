package webkit

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prestigeprep/prep/internal/agent"
)

// Runner records commands and answers from canned outputs.
type Runner struct {
	mu       sync.Mutex
	commands []agent.Command
	// Outputs maps a command string prefix to its output.
	Outputs map[string]string
	// Failures maps a command string prefix to its error.
	Failures map[string]error
}

// Run records cmd and returns the matching canned result.
func (r *Runner) Run(_ context.Context, cmd agent.Command) ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.commands = append(r.commands, cmd)
	key := cmd.String()
	var out string
	for prefix, text := range r.Outputs {
		if strings.HasPrefix(key, prefix) {
			out = text
		}
	}
	for prefix, err := range r.Failures {
		if strings.HasPrefix(key, prefix) {
			return []byte(out), err
		}
	}
	return []byte(out), nil
}

// Commands returns the recorded commands.
func (r *Runner) Commands() []agent.Command {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]agent.Command(nil), r.commands...)
}

// Agent is a supervisor over a temp directory with fake processes.
type Agent struct {
	Sup     *agent.Supervisor
	Runner  *Runner
	Profile agent.Profile

	mu    sync.Mutex
	alive map[int32]bool
}

// NewAgent returns a supervisor named name whose logs use prefix.
func NewAgent(t testing.TB, name, prefix string, publish ...[]string) *Agent {
	t.Helper()
	dir := t.TempDir()
	reports := filepath.Join(dir, "reports")
	if err := os.MkdirAll(reports, 0o755); err != nil {
		t.Fatalf("mkdir reports: %v", err)
	}
	a := &Agent{
		Runner: &Runner{},
		Profile: agent.Profile{
			Name:            name,
			WorkDir:         dir,
			StartScript:     filepath.Join(dir, "run_agent.sh"),
			PIDFile:         filepath.Join(dir, "run.pid"),
			RunFile:         filepath.Join(dir, "run.json"),
			ReportsDir:      reports,
			LogPrefix:       prefix,
			PublishCommands: publish,
		},
		alive: map[int32]bool{},
	}
	sup, err := agent.NewSupervisor(a.Profile,
		agent.WithRunner(a.Runner),
		agent.WithClock(func() time.Time { return Now }),
		agent.WithProcessProbe(
			func(_ context.Context, pid int32) (bool, error) {
				a.mu.Lock()
				defer a.mu.Unlock()
				return a.alive[pid], nil
			},
			func(context.Context, int32) (time.Time, error) { return Now.Add(-time.Hour), nil },
			func(_ context.Context, pid int32) error {
				a.mu.Lock()
				defer a.mu.Unlock()
				a.alive[pid] = false
				return nil
			},
		))
	if err != nil {
		t.Fatalf("new supervisor: %v", err)
	}
	a.Sup = sup
	return a
}

// Running writes the PID file and marks pid alive.
func (a *Agent) Running(t testing.TB, pid int32) {
	t.Helper()
	a.mu.Lock()
	a.alive[pid] = true
	a.mu.Unlock()
	a.write(t, a.Profile.PIDFile, []byte(strconv.Itoa(int(pid))+"\n"))
}

// Alive reports whether pid is still marked alive.
func (a *Agent) Alive(pid int32) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.alive[pid]
}

// WriteLog writes a report log named name.
func (a *Agent) WriteLog(t testing.TB, name, text string) string {
	t.Helper()
	path := filepath.Join(a.Profile.ReportsDir, name)
	a.write(t, path, []byte(text))
	return path
}

// WriteRun writes the run file.
func (a *Agent) WriteRun(t testing.TB, set string) {
	t.Helper()
	a.write(t, a.Profile.RunFile, []byte(`{"set":"`+set+`"}`))
}

func (a *Agent) write(t testing.TB, path string, data []byte) {
	t.Helper()
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}
