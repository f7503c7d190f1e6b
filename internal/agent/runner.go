package agent

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"sort"
	"strings"
	"time"
)

// defaultPipeWait bounds how long Run keeps reading output after the command
// exits. Launchers that background an agent leave it holding the pipes.
const defaultPipeWait = 500 * time.Millisecond

// Command is one subprocess invocation. Args are passed as argv and never
// interpreted by a shell unless Name is a shell.
type Command struct {
	Name string
	Args []string
	Dir  string
	// Env overrides entries of the supervisor's environment.
	Env map[string]string
}

func (c Command) String() string {
	return strings.TrimSpace(c.Name + " " + strings.Join(c.Args, " "))
}

// Runner executes commands and returns combined output.
type Runner interface {
	Run(ctx context.Context, cmd Command) ([]byte, error)
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct {
	// PipeWait overrides defaultPipeWait.
	PipeWait time.Duration
}

// ExitError reports a non-zero exit with the command's output.
type ExitError struct {
	Command  string
	ExitCode int
	Output   string
}

func (e *ExitError) Error() string {
	output := strings.TrimSpace(e.Output)
	if output == "" {
		return fmt.Sprintf("%s: exit status %d", e.Command, e.ExitCode)
	}
	return fmt.Sprintf("%s: exit status %d: %s", e.Command, e.ExitCode, output)
}

// Run executes cmd and waits for it. A command that exits cleanly while a
// child it spawned still holds stdout counts as a success, returning the
// output read so far.
func (r ExecRunner) Run(ctx context.Context, cmd Command) ([]byte, error) {
	c := exec.CommandContext(ctx, cmd.Name, cmd.Args...)
	c.Dir = cmd.Dir
	c.Env = mergeEnv(os.Environ(), cmd.Env)
	c.WaitDelay = r.PipeWait
	if c.WaitDelay <= 0 {
		c.WaitDelay = defaultPipeWait
	}
	var out bytes.Buffer
	c.Stdout = &out
	c.Stderr = &out
	err := c.Run()
	if errors.Is(err, exec.ErrWaitDelay) {
		err = nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return out.Bytes(), &ExitError{Command: cmd.String(), ExitCode: exitErr.ExitCode(), Output: out.String()}
	}
	if err != nil {
		return out.Bytes(), fmt.Errorf("%s: %w", cmd.String(), err)
	}
	return out.Bytes(), nil
}

func mergeEnv(base []string, overrides map[string]string) []string {
	if len(overrides) == 0 {
		return base
	}
	env := make([]string, 0, len(base)+len(overrides))
	for _, entry := range base {
		key, _, _ := strings.Cut(entry, "=")
		if _, ok := overrides[key]; ok {
			continue
		}
		env = append(env, entry)
	}
	keys := make([]string, 0, len(overrides))
	for key := range overrides {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		env = append(env, key+"="+overrides[key])
	}
	return env
}

// scriptCommand runs a script path through a login shell without
// interpolating the path into the command string.
func scriptCommand(script, dir string, env map[string]string) Command {
	return Command{Name: "bash", Args: []string{"-lc", `exec "$0"`, script}, Dir: dir, Env: env}
}
