package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/gofrs/flock"
	"github.com/shirou/gopsutil/v3/process"
	"go.uber.org/zap"

	"github.com/prestigeprep/prep/internal/platform/logging"
	"github.com/prestigeprep/prep/internal/platform/timeouts"
)

var (
	// ErrAlreadyRunning is returned by Start when the recorded PID is alive.
	ErrAlreadyRunning = errors.New("agent is already running")
	// ErrNotRunning is returned by Stop when there is no PID to signal.
	ErrNotRunning = errors.New("agent is not running")
	// ErrBusy is returned when another start or stop holds the lock.
	ErrBusy = errors.New("agent start or stop already in progress")
	// ErrNoSet is returned when no set name can be resolved for import.
	ErrNoSet = errors.New("could not determine set name")
	// ErrInvalidBranch is returned for branch names git would read as flags.
	ErrInvalidBranch = errors.New("invalid branch name")
)

const (
	statusTailBytes = 8000
	finishedMarker  = "## FINISHED"
)

var startSetPattern = regexp.MustCompile(`Start set=(\S+)`)

// Status is a point-in-time view of an agent.
type Status struct {
	PID       int       `json:"pid,omitempty"`
	Alive     bool      `json:"alive"`
	LogPath   string    `json:"logPath,omitempty"`
	Tail      string    `json:"tail"`
	Set       string    `json:"set,omitempty"`
	Finished  bool      `json:"finished"`
	StartedAt time.Time `json:"startedAt,omitzero"`
	Run       RunInfo   `json:"run,omitzero"`
}

// Phase summarizes the status for display.
func (s Status) Phase() string {
	switch {
	case s.Finished:
		return "finished"
	case s.Alive:
		return "running"
	default:
		return "stopped"
	}
}

// RunInfo is the optional run file written by an agent.
type RunInfo struct {
	Set string `json:"set,omitempty"`
}

// Supervisor starts, stops, and inspects one agent.
type Supervisor struct {
	profile      Profile
	runner       Runner
	logger       *zap.Logger
	now          func() time.Time
	launchWait   time.Duration
	pidAlive     func(ctx context.Context, pid int32) (bool, error)
	pidStarted   func(ctx context.Context, pid int32) (time.Time, error)
	pidTerminate func(ctx context.Context, pid int32) error
}

// Option customizes a Supervisor.
type Option func(*Supervisor)

// WithRunner replaces the subprocess runner.
func WithRunner(runner Runner) Option {
	return func(s *Supervisor) { s.runner = runner }
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Supervisor) { s.logger = logging.OrNop(logger) }
}

// WithClock sets the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Supervisor) { s.now = now }
}

// WithProcessProbe replaces process liveness, start time, and termination.
func WithProcessProbe(
	alive func(ctx context.Context, pid int32) (bool, error),
	started func(ctx context.Context, pid int32) (time.Time, error),
	terminate func(ctx context.Context, pid int32) error,
) Option {
	return func(s *Supervisor) {
		s.pidAlive = alive
		s.pidStarted = started
		s.pidTerminate = terminate
	}
}

// NewSupervisor validates profile and returns a Supervisor.
func NewSupervisor(profile Profile, opts ...Option) (*Supervisor, error) {
	if err := profile.validate(); err != nil {
		return nil, err
	}
	s := &Supervisor{
		profile:      profile,
		runner:       ExecRunner{},
		logger:       zap.NewNop(),
		now:          time.Now,
		launchWait:   timeouts.AgentLaunch,
		pidAlive:     process.PidExistsWithContext,
		pidStarted:   processStartTime,
		pidTerminate: terminateProcess,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With(zap.String("agent", profile.Name))
	return s, nil
}

// Profile returns the supervised profile.
func (s *Supervisor) Profile() Profile { return s.profile }

func (s *Supervisor) lock() (*flock.Flock, error) {
	path := s.profile.lockPath()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create lock dir: %w", err)
	}
	lock := flock.New(path)
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("lock %s: %w", path, err)
	}
	if !ok {
		return nil, ErrBusy
	}
	return lock, nil
}

// Start runs the launcher script with env layered over the process
// environment and waits for the launcher to exit.
func (s *Supervisor) Start(ctx context.Context, env map[string]string) error {
	lock, err := s.lock()
	if err != nil {
		return err
	}
	defer func() { _ = lock.Unlock() }()

	if pid, ok := s.readPID(); ok {
		alive, err := s.pidAlive(ctx, int32(pid))
		if err != nil {
			return fmt.Errorf("probe pid %d: %w", pid, err)
		}
		if alive {
			return fmt.Errorf("%w (pid %d)", ErrAlreadyRunning, pid)
		}
	}

	launchCtx, cancel := context.WithTimeout(ctx, s.launchWait)
	defer cancel()
	out, err := s.runner.Run(launchCtx, scriptCommand(s.profile.StartScript, s.profile.workDir(), env))
	if err != nil {
		return fmt.Errorf("start %s: %w", s.profile.Name, err)
	}
	s.logger.Info("agent launched", zap.Int("output_bytes", len(out)))
	return nil
}

// Stop runs the stop script when configured, otherwise sends SIGTERM to
// the recorded PID.
func (s *Supervisor) Stop(ctx context.Context) error {
	lock, err := s.lock()
	if err != nil {
		return err
	}
	defer func() { _ = lock.Unlock() }()

	if s.profile.StopScript != "" {
		stopCtx, cancel := context.WithTimeout(ctx, s.launchWait)
		defer cancel()
		if _, err := s.runner.Run(stopCtx, scriptCommand(s.profile.StopScript, s.profile.workDir(), nil)); err != nil {
			return fmt.Errorf("stop %s: %w", s.profile.Name, err)
		}
		s.logger.Info("agent stop script finished")
		return nil
	}

	pid, ok := s.readPID()
	if !ok {
		return ErrNotRunning
	}
	alive, err := s.pidAlive(ctx, int32(pid))
	if err != nil {
		return fmt.Errorf("probe pid %d: %w", pid, err)
	}
	if !alive {
		return fmt.Errorf("%w (stale pid %d)", ErrNotRunning, pid)
	}
	if err := s.pidTerminate(ctx, int32(pid)); err != nil {
		return fmt.Errorf("terminate pid %d: %w", pid, err)
	}
	s.logger.Info("agent signalled", zap.Int("pid", pid))
	return nil
}

// Status reads the PID file, newest log, and run file.
func (s *Supervisor) Status(ctx context.Context) (Status, error) {
	var status Status
	if pid, ok := s.readPID(); ok {
		status.PID = pid
		alive, err := s.pidAlive(ctx, int32(pid))
		if err != nil {
			s.logger.Debug("probe pid", zap.Int("pid", pid), zap.Error(err))
		}
		status.Alive = alive
		if alive {
			if started, err := s.pidStarted(ctx, int32(pid)); err == nil {
				status.StartedAt = started
			}
		}
	}

	logPath, err := s.newestLog()
	if err != nil {
		return Status{}, err
	}
	if logPath != "" {
		status.LogPath = logPath
		tail, err := readTailBytes(logPath, statusTailBytes)
		if err != nil {
			return Status{}, err
		}
		status.Tail = tail
		status.Set = SetFromLog(tail)
		status.Finished = strings.Contains(tail, finishedMarker)
		if status.StartedAt.IsZero() {
			if stamp, ok := ParseLogStamp(filepath.Base(logPath)); ok {
				status.StartedAt = stamp
			}
		}
	}

	if run, ok := s.readRunFile(); ok {
		status.Run = run
	}
	return status, nil
}

// ResolveImportSet picks the set to import: the explicit value, then the
// run file, then the newest log.
func (s *Supervisor) ResolveImportSet(ctx context.Context, explicit string) (string, error) {
	if set := strings.TrimSpace(explicit); set != "" {
		return set, nil
	}
	if run, ok := s.readRunFile(); ok && run.Set != "" {
		return run.Set, nil
	}
	status, err := s.Status(ctx)
	if err != nil {
		return "", err
	}
	if status.Set != "" {
		return status.Set, nil
	}
	return "", ErrNoSet
}

func (s *Supervisor) readPID() (int, bool) {
	data, err := os.ReadFile(s.profile.PIDFile)
	if err != nil {
		return 0, false
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid <= 0 {
		return 0, false
	}
	return pid, true
}

func (s *Supervisor) readRunFile() (RunInfo, bool) {
	if s.profile.RunFile == "" {
		return RunInfo{}, false
	}
	data, err := os.ReadFile(s.profile.RunFile)
	if err != nil {
		return RunInfo{}, false
	}
	var run RunInfo
	if err := json.Unmarshal(data, &run); err != nil {
		s.logger.Debug("decode run file", zap.Error(err))
		return RunInfo{}, false
	}
	run.Set = strings.TrimSpace(run.Set)
	return run, true
}

// newestLog returns the most recently modified <prefix>*.log file.
func (s *Supervisor) newestLog() (string, error) {
	entries, err := os.ReadDir(s.profile.ReportsDir)
	if errors.Is(err, fs.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read reports dir: %w", err)
	}
	var newest string
	var newestTime time.Time
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, s.profile.LogPrefix) || !strings.HasSuffix(name, ".log") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if newest == "" || info.ModTime().After(newestTime) {
			newest = filepath.Join(s.profile.ReportsDir, name)
			newestTime = info.ModTime()
		}
	}
	return newest, nil
}

// SetFromLog returns the last "Start set=<name>" in text.
func SetFromLog(text string) string {
	matches := startSetPattern.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return ""
	}
	return matches[len(matches)-1][1]
}

func readTailBytes(path string, maxBytes int64) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open log: %w", err)
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return "", fmt.Errorf("stat log: %w", err)
	}
	start := max(info.Size()-maxBytes, 0)
	if _, err := f.Seek(start, io.SeekStart); err != nil {
		return "", fmt.Errorf("seek log: %w", err)
	}
	data, err := io.ReadAll(f)
	if err != nil {
		return "", fmt.Errorf("read log: %w", err)
	}
	return string(data), nil
}

func processStartTime(ctx context.Context, pid int32) (time.Time, error) {
	p, err := process.NewProcessWithContext(ctx, pid)
	if err != nil {
		return time.Time{}, err
	}
	millis, err := p.CreateTimeWithContext(ctx)
	if err != nil {
		return time.Time{}, err
	}
	return time.UnixMilli(millis).UTC(), nil
}

func terminateProcess(ctx context.Context, pid int32) error {
	p, err := process.NewProcessWithContext(ctx, pid)
	if err != nil {
		return err
	}
	return p.TerminateWithContext(ctx)
}
