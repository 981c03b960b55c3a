// Package pkgmgr registers downloaded packages with the OS and drives the
// package manager's declarative configure subcommand. External process
// invocation sits behind the Runner interface so callers never depend on a
// specific invocation mechanism.
package pkgmgr

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
)

// Runner executes an external command to completion.
// It returns the exit code and captured stderr when the command ran,
// or a non-nil error when it could not be started at all.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (exitCode int, stderr string, err error)
}

// CommandRunner implements Runner with os/exec.
type CommandRunner struct{}

// Run executes name with args and waits for completion.
func (CommandRunner) Run(ctx context.Context, name string, args ...string) (int, string, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	cmd := exec.CommandContext(ctx, name, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	err := cmd.Run()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return exitErr.ExitCode(), stderr.String(), nil
		}
		return -1, stderr.String(), err
	}
	return 0, stderr.String(), nil
}
