package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/prestigeprep/prep/internal/platform/timeouts"
)

// StepResult is the outcome of one publish or git command.
type StepResult struct {
	Command string `json:"command"`
	Output  string `json:"output"`
}

// CommitResult describes a pushed agent branch.
type CommitResult struct {
	Branch  string       `json:"branch"`
	Message string       `json:"message"`
	Steps   []StepResult `json:"steps"`
}

// Publish runs the profile's publish commands in order and stops at the
// first failure.
func (s *Supervisor) Publish(ctx context.Context) ([]StepResult, error) {
	if len(s.profile.PublishCommands) == 0 {
		return nil, errors.New("no publish commands configured")
	}
	steps := make([]StepResult, 0, len(s.profile.PublishCommands))
	for _, argv := range s.profile.PublishCommands {
		if len(argv) == 0 {
			continue
		}
		step, err := s.runStep(ctx, Command{Name: argv[0], Args: argv[1:], Dir: s.profile.workDir()})
		steps = append(steps, step)
		if err != nil {
			return steps, err
		}
	}
	s.logger.Info("agent publish finished", zap.Int("steps", len(steps)))
	return steps, nil
}

// CommitAndPush commits all changes in the work dir to branch and force
// pushes it to origin. Empty branch and message get timestamped defaults.
func (s *Supervisor) CommitAndPush(ctx context.Context, branch, message string) (CommitResult, error) {
	stamp := s.now().UTC().Format("20060102150405")
	branch = strings.TrimSpace(branch)
	if branch == "" {
		branch = "agent-" + stamp
	}
	if strings.HasPrefix(branch, "-") {
		return CommitResult{}, fmt.Errorf("%w %q", ErrInvalidBranch, branch)
	}
	message = strings.TrimSpace(message)
	if message == "" {
		message = "web-agent: patch " + stamp
	}
	result := CommitResult{Branch: branch, Message: message}

	git := func(args ...string) Command {
		return Command{Name: "git", Args: args, Dir: s.profile.workDir()}
	}
	steps := []Command{
		git("checkout", "-B", branch),
		git("add", "-A"),
		git("commit", "-m", message),
		git("push", "-u", "origin", branch, "--force"),
	}
	for i, cmd := range steps {
		step, err := s.runStep(ctx, cmd)
		result.Steps = append(result.Steps, step)
		if err != nil {
			if i == 2 && nothingToCommit(step.Output) {
				continue
			}
			return result, err
		}
	}
	s.logger.Info("agent branch pushed", zap.String("branch", branch))
	return result, nil
}

func (s *Supervisor) runStep(ctx context.Context, cmd Command) (StepResult, error) {
	stepCtx, cancel := context.WithTimeout(ctx, timeouts.GitStep)
	defer cancel()
	out, err := s.runner.Run(stepCtx, cmd)
	step := StepResult{Command: cmd.String(), Output: string(out)}
	if err != nil {
		s.logger.Warn("agent step failed", zap.String("command", step.Command), zap.Error(err))
	}
	return step, err
}

func nothingToCommit(output string) bool {
	output = strings.ToLower(output)
	return strings.Contains(output, "nothing to commit") || strings.Contains(output, "no changes added to commit")
}
