package agent

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofrs/flock"
	"github.com/stretchr/testify/require"
)

type fakeRunner struct {
	mu       sync.Mutex
	commands []Command
	outputs  map[string]string
	failures map[string]error
}

func (r *fakeRunner) Run(_ context.Context, cmd Command) ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.commands = append(r.commands, cmd)
	key := cmd.String()
	for prefix, err := range r.failures {
		if strings.HasPrefix(key, prefix) {
			return []byte(r.outputs[prefix]), err
		}
	}
	return []byte(r.outputs[key]), nil
}

func (r *fakeRunner) Commands() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.commands))
	for _, cmd := range r.commands {
		out = append(out, cmd.String())
	}
	return out
}

type fakeProcs struct {
	alive      map[int32]bool
	terminated []int32
}

func (p *fakeProcs) option() Option {
	return WithProcessProbe(
		func(_ context.Context, pid int32) (bool, error) { return p.alive[pid], nil },
		func(_ context.Context, pid int32) (time.Time, error) {
			return time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC), nil
		},
		func(_ context.Context, pid int32) error {
			p.terminated = append(p.terminated, pid)
			return nil
		},
	)
}

func testProfile(t *testing.T) Profile {
	t.Helper()
	dir := t.TempDir()
	reports := filepath.Join(dir, "reports")
	require.NoError(t, os.MkdirAll(reports, 0o755))
	return Profile{
		Name:        "generator",
		WorkDir:     dir,
		StartScript: filepath.Join(dir, "start.sh"),
		PIDFile:     filepath.Join(dir, "agent.pid"),
		RunFile:     filepath.Join(dir, "run.json"),
		ReportsDir:  reports,
		LogPrefix:   "generate-",
	}
}

func newTestSupervisor(t *testing.T, profile Profile, runner Runner, procs *fakeProcs) *Supervisor {
	t.Helper()
	sup, err := NewSupervisor(profile, WithRunner(runner), procs.option(),
		WithClock(func() time.Time { return time.Date(2025, 3, 4, 5, 6, 7, 0, time.UTC) }))
	require.NoError(t, err)
	return sup
}

func writeFile(t *testing.T, path, content string, mtime time.Time) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	if !mtime.IsZero() {
		require.NoError(t, os.Chtimes(path, mtime, mtime))
	}
}

func TestNewSupervisorValidatesProfile(t *testing.T) {
	_, err := NewSupervisor(Profile{Name: "x"})
	require.Error(t, err)
}

func TestStartRunsScriptWithEnv(t *testing.T) {
	profile := testProfile(t)
	runner := &fakeRunner{}
	sup := newTestSupervisor(t, profile, runner, &fakeProcs{})

	require.NoError(t, sup.Start(context.Background(), map[string]string{"SET_NAME": "sat-1"}))

	require.Len(t, runner.commands, 1)
	cmd := runner.commands[0]
	require.Equal(t, "bash", cmd.Name)
	require.Equal(t, []string{"-lc", `exec "$0"`, profile.StartScript}, cmd.Args)
	require.Equal(t, profile.WorkDir, cmd.Dir)
	require.Equal(t, "sat-1", cmd.Env["SET_NAME"])
}

func TestStartRefusesWhenAlive(t *testing.T) {
	profile := testProfile(t)
	writeFile(t, profile.PIDFile, "4242\n", time.Time{})
	runner := &fakeRunner{}
	sup := newTestSupervisor(t, profile, runner, &fakeProcs{alive: map[int32]bool{4242: true}})

	err := sup.Start(context.Background(), nil)
	require.ErrorIs(t, err, ErrAlreadyRunning)
	require.Empty(t, runner.commands)
}

func TestStartIgnoresStalePID(t *testing.T) {
	profile := testProfile(t)
	writeFile(t, profile.PIDFile, "4242", time.Time{})
	runner := &fakeRunner{}
	sup := newTestSupervisor(t, profile, runner, &fakeProcs{})

	require.NoError(t, sup.Start(context.Background(), nil))
	require.Len(t, runner.commands, 1)
}

func TestStartBusyWhenLockHeld(t *testing.T) {
	profile := testProfile(t)
	held := flock.New(profile.lockPath())
	ok, err := held.TryLock()
	require.NoError(t, err)
	require.True(t, ok)
	defer func() { _ = held.Unlock() }()

	runner := &fakeRunner{}
	sup := newTestSupervisor(t, profile, runner, &fakeProcs{})
	require.ErrorIs(t, sup.Start(context.Background(), nil), ErrBusy)
	require.Empty(t, runner.commands)
}

func TestStartWrapsScriptFailure(t *testing.T) {
	profile := testProfile(t)
	runner := &fakeRunner{failures: map[string]error{"bash": &ExitError{Command: "bash", ExitCode: 2}}}
	sup := newTestSupervisor(t, profile, runner, &fakeProcs{})

	err := sup.Start(context.Background(), nil)
	var exitErr *ExitError
	require.ErrorAs(t, err, &exitErr)
	require.Equal(t, 2, exitErr.ExitCode)
}

func TestStopSignalsPID(t *testing.T) {
	profile := testProfile(t)
	writeFile(t, profile.PIDFile, "77", time.Time{})
	procs := &fakeProcs{alive: map[int32]bool{77: true}}
	sup := newTestSupervisor(t, profile, &fakeRunner{}, procs)

	require.NoError(t, sup.Stop(context.Background()))
	require.Equal(t, []int32{77}, procs.terminated)
}

func TestStopWithoutPID(t *testing.T) {
	profile := testProfile(t)
	sup := newTestSupervisor(t, profile, &fakeRunner{}, &fakeProcs{})
	require.ErrorIs(t, sup.Stop(context.Background()), ErrNotRunning)

	writeFile(t, profile.PIDFile, "not-a-pid", time.Time{})
	require.ErrorIs(t, sup.Stop(context.Background()), ErrNotRunning)
}

func TestStopRunsStopScript(t *testing.T) {
	profile := testProfile(t)
	profile.StopScript = filepath.Join(profile.WorkDir, "stop.sh")
	runner := &fakeRunner{}
	procs := &fakeProcs{}
	sup := newTestSupervisor(t, profile, runner, procs)

	require.NoError(t, sup.Stop(context.Background()))
	require.Equal(t, []string{`bash -lc exec "$0" ` + profile.StopScript}, runner.Commands())
	require.Empty(t, procs.terminated)
}

func TestStatusReadsNewestLog(t *testing.T) {
	profile := testProfile(t)
	base := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	writeFile(t, filepath.Join(profile.ReportsDir, "generate-20250301-000000.log"), "Start set=old\n", base)
	writeFile(t, filepath.Join(profile.ReportsDir, "generate-20250302-101112.log"),
		"Start set=first\nretry\nStart set=sat-2025-03-02\nwriting items\n## FINISHED\n", base.Add(time.Hour))
	writeFile(t, filepath.Join(profile.ReportsDir, "webagent-20250309-000000.log"), "Start set=other\n", base.Add(2*time.Hour))
	writeFile(t, profile.PIDFile, "12", time.Time{})
	writeFile(t, profile.RunFile, `{"set":" sat-run "}`, time.Time{})

	sup := newTestSupervisor(t, profile, &fakeRunner{}, &fakeProcs{})
	status, err := sup.Status(context.Background())
	require.NoError(t, err)

	require.Equal(t, 12, status.PID)
	require.False(t, status.Alive)
	require.Equal(t, filepath.Join(profile.ReportsDir, "generate-20250302-101112.log"), status.LogPath)
	require.Equal(t, "sat-2025-03-02", status.Set)
	require.True(t, status.Finished)
	require.Equal(t, "finished", status.Phase())
	require.Equal(t, time.Date(2025, 3, 2, 10, 11, 12, 0, time.UTC), status.StartedAt)
	require.Equal(t, "sat-run", status.Run.Set)
}

func TestStatusTailIsBounded(t *testing.T) {
	profile := testProfile(t)
	long := strings.Repeat("x", 9000) + "\nStart set=tail-set\n"
	writeFile(t, filepath.Join(profile.ReportsDir, "generate-1.log"), long, time.Time{})

	sup := newTestSupervisor(t, profile, &fakeRunner{}, &fakeProcs{})
	status, err := sup.Status(context.Background())
	require.NoError(t, err)
	require.Len(t, status.Tail, statusTailBytes)
	require.Equal(t, "tail-set", status.Set)
	require.Equal(t, "stopped", status.Phase())
}

func TestStatusWithoutReportsDir(t *testing.T) {
	profile := testProfile(t)
	profile.ReportsDir = filepath.Join(profile.WorkDir, "missing")
	sup := newTestSupervisor(t, profile, &fakeRunner{}, &fakeProcs{})
	status, err := sup.Status(context.Background())
	require.NoError(t, err)
	require.Empty(t, status.LogPath)
}

func TestStatusAliveUsesProcessStartTime(t *testing.T) {
	profile := testProfile(t)
	writeFile(t, profile.PIDFile, "5", time.Time{})
	sup := newTestSupervisor(t, profile, &fakeRunner{}, &fakeProcs{alive: map[int32]bool{5: true}})
	status, err := sup.Status(context.Background())
	require.NoError(t, err)
	require.True(t, status.Alive)
	require.Equal(t, "running", status.Phase())
	require.Equal(t, time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC), status.StartedAt)
}

func TestResolveImportSet(t *testing.T) {
	profile := testProfile(t)
	sup := newTestSupervisor(t, profile, &fakeRunner{}, &fakeProcs{})
	ctx := context.Background()

	_, err := sup.ResolveImportSet(ctx, "")
	require.ErrorIs(t, err, ErrNoSet)

	writeFile(t, filepath.Join(profile.ReportsDir, "generate-a.log"), "Start set=from-log\n", time.Time{})
	got, err := sup.ResolveImportSet(ctx, "")
	require.NoError(t, err)
	require.Equal(t, "from-log", got)

	writeFile(t, profile.RunFile, `{"set":"from-run"}`, time.Time{})
	got, err = sup.ResolveImportSet(ctx, "")
	require.NoError(t, err)
	require.Equal(t, "from-run", got)

	got, err = sup.ResolveImportSet(ctx, "  explicit ")
	require.NoError(t, err)
	require.Equal(t, "explicit", got)
}

func TestSetFromLog(t *testing.T) {
	require.Equal(t, "", SetFromLog("nothing here"))
	require.Equal(t, "b", SetFromLog("Start set=a\nStart set=b\n"))
}

func TestParseCommand(t *testing.T) {
	require.Equal(t, []string{"npm", "run", "build"}, ParseCommand("  npm run   build "))
	require.Empty(t, ParseCommand("   "))
}

func TestLockPathDefaultsBesidePIDFile(t *testing.T) {
	p := Profile{Name: "webagent", PIDFile: "/var/run/prep/webagent.pid"}
	require.Equal(t, "/var/run/prep/.webagent.lock", p.lockPath())
	p.LockFile = "/tmp/x.lock"
	require.Equal(t, "/tmp/x.lock", p.lockPath())
}

func TestMergeEnvOverrides(t *testing.T) {
	got := mergeEnv([]string{"A=1", "B=2"}, map[string]string{"B": "3", "C": "4"})
	require.Equal(t, []string{"A=1", "B=3", "C=4"}, got)
	require.Equal(t, []string{"A=1"}, mergeEnv([]string{"A=1"}, nil))
}

func TestExecRunnerReportsExitCode(t *testing.T) {
	if _, err := os.Stat("/bin/sh"); err != nil {
		t.Skip("no /bin/sh")
	}
	out, err := ExecRunner{}.Run(context.Background(), Command{Name: "/bin/sh", Args: []string{"-c", "echo oops; exit 3"}})
	var exitErr *ExitError
	require.True(t, errors.As(err, &exitErr))
	require.Equal(t, 3, exitErr.ExitCode)
	require.Equal(t, "oops\n", string(out))
	require.Contains(t, exitErr.Error(), "exit status 3: oops")
}

func TestExecRunnerReturnsWhenChildHoldsOutput(t *testing.T) {
	if _, err := os.Stat("/bin/sh"); err != nil {
		t.Skip("no /bin/sh")
	}
	start := time.Now()
	out, err := ExecRunner{PipeWait: 100 * time.Millisecond}.Run(context.Background(),
		Command{Name: "/bin/sh", Args: []string{"-c", "sleep 3 & echo launched"}})
	require.NoError(t, err)
	require.Equal(t, "launched\n", string(out))
	require.Less(t, time.Since(start), 2*time.Second)
}

func TestStartReturnsWhenLauncherBackgroundsAgent(t *testing.T) {
	if _, err := os.Stat("/bin/bash"); err != nil {
		t.Skip("no bash")
	}
	profile := testProfile(t)
	writeFile(t, profile.StartScript, "#!/bin/bash\nsleep 3 &\necho $! > \"$PID_FILE\"\necho launched\n", time.Time{})
	require.NoError(t, os.Chmod(profile.StartScript, 0o755))

	sup, err := NewSupervisor(profile, WithProcessProbe(
		func(context.Context, int32) (bool, error) { return false, nil },
		func(context.Context, int32) (time.Time, error) { return time.Time{}, nil },
		func(context.Context, int32) error { return nil },
	))
	require.NoError(t, err)

	start := time.Now()
	require.NoError(t, sup.Start(context.Background(), map[string]string{"PID_FILE": profile.PIDFile}))
	require.Less(t, time.Since(start), 2*time.Second)

	pid, ok := sup.readPID()
	require.True(t, ok)
	require.Positive(t, pid)
}
