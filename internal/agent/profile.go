package agent

import (
	"errors"
	"path/filepath"
	"strings"
)

// Profile locates one agent's scripts and state files.
type Profile struct {
	// Name identifies the agent in logs, e.g. "generator" or "webagent".
	Name string
	// WorkDir is the directory scripts and git commands run in.
	WorkDir string
	// StartScript launches the agent in the background and exits.
	StartScript string
	// StopScript is optional; without it Stop signals the PID directly.
	StopScript string
	PIDFile    string
	// RunFile is optional JSON written by the agent, e.g. {"set": "..."}.
	RunFile    string
	ReportsDir string
	// LogPrefix selects status logs, e.g. "generate-" or "webagent-".
	LogPrefix string
	// LockFile serializes start and stop across processes.
	LockFile string
	// PublishCommands run in order by Publish; each is an argv.
	PublishCommands [][]string
}

func (p Profile) validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return errors.New("agent name is required")
	}
	if strings.TrimSpace(p.StartScript) == "" {
		return errors.New("agent start script is required")
	}
	if strings.TrimSpace(p.PIDFile) == "" {
		return errors.New("agent pid file is required")
	}
	if strings.TrimSpace(p.ReportsDir) == "" {
		return errors.New("agent reports dir is required")
	}
	return nil
}

func (p Profile) lockPath() string {
	if p.LockFile != "" {
		return p.LockFile
	}
	return filepath.Join(filepath.Dir(p.PIDFile), "."+p.Name+".lock")
}

func (p Profile) workDir() string {
	if p.WorkDir != "" {
		return p.WorkDir
	}
	return filepath.Dir(p.StartScript)
}

// ParseCommand splits a configured command line into argv on whitespace.
// Quoting is not interpreted.
func ParseCommand(line string) []string {
	return strings.Fields(line)
}

// GeneratorProfile lays out the content generator checked out at dir.
func GeneratorProfile(dir string) Profile {
	state := filepath.Join(dir, ".agent")
	return Profile{
		Name:        "generator",
		WorkDir:     dir,
		StartScript: filepath.Join(dir, "run_agent.sh"),
		PIDFile:     filepath.Join(state, "run.pid"),
		RunFile:     filepath.Join(state, "run.json"),
		ReportsDir:  filepath.Join(state, "reports"),
		LogPrefix:   "generate-",
	}
}

// WebAgentProfile lays out the web agent for the app checked out at dir.
// publish is a semicolon separated list of commands run by Publish.
func WebAgentProfile(dir, publish string) Profile {
	state := filepath.Join(dir, ".agent-web")
	var commands [][]string
	for _, line := range strings.Split(publish, ";") {
		if argv := ParseCommand(line); len(argv) > 0 {
			commands = append(commands, argv)
		}
	}
	return Profile{
		Name:            "webagent",
		WorkDir:         dir,
		StartScript:     filepath.Join(state, "run_webagent.sh"),
		StopScript:      filepath.Join(state, "stop_webagent.sh"),
		PIDFile:         filepath.Join(state, "run_webagent.pid"),
		ReportsDir:      filepath.Join(state, "reports"),
		LogPrefix:       "webagent-",
		PublishCommands: commands,
	}
}
