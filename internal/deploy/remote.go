package deploy

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"
)

// Runner executes an install script on a target host
type Runner interface {
	Run(ctx context.Context, host string, script []string) error
}

// MoshRunner runs the script inside a tmux session over mosh, so a
// dropped connection does not kill a deploy in progress. The session
// stays attached until the operator exits the trailing shell.
type MoshRunner struct {
	logger *slog.Logger
	dryRun bool
}

// NewMoshRunner creates a runner. With dryRun set, the full command
// line is logged instead of executed.
func NewMoshRunner(logger *slog.Logger, dryRun bool) *MoshRunner {
	return &MoshRunner{logger: logger, dryRun: dryRun}
}

// Run executes the script on host
func (r *MoshRunner) Run(ctx context.Context, host string, script []string) error {
	// The script runs under sh -e so the first failing step aborts it;
	// the trailing bash keeps the session open for inspection.
	command := "/bin/sh -e -c " + shellQuote(strings.Join(script, ";")) + ";/bin/bash"
	outer := "/bin/sh -c " + shellQuote(command)
	args := []string{host, "--", "tmux", "new-session", "-A", "-s", "ci-deploy", outer}

	if r.dryRun {
		r.logger.Info("[dry-run] would execute", "command", "mosh "+strings.Join(args, " "))
		return nil
	}

	cmd := exec.CommandContext(ctx, "mosh", args...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("remote session failed: %w", err)
	}
	return nil
}
