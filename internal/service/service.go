// Package service issues the restore trigger for the OS-managed store
// component. Completion is asynchronous and not observable from this
// process; the pipeline inserts a settle delay instead of polling.
package service

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/conn-castle/pkgboot/internal/messages"
)

// Runner starts an external command without waiting for completion.
type Runner interface {
	Start(ctx context.Context, name string, args ...string) error
}

// CommandRunner implements Runner with os/exec.
type CommandRunner struct{}

// Start launches name with args and returns once the process has started.
// The child is reaped in the background; its outcome is not observed.
func (CommandRunner) Start(ctx context.Context, name string, args ...string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cmd := exec.CommandContext(ctx, name, args...)
	if err := cmd.Start(); err != nil {
		return err
	}
	go func() { _ = cmd.Wait() }()
	return nil
}

// Error is a typed restore-trigger failure. It only occurs when the trigger
// command itself cannot start; a trigger that starts and later fails is
// outside this system's observability.
type Error struct {
	Trigger []string
	Err     error
}

func (e *Error) Error() string {
	return fmt.Sprintf(messages.ServiceTriggerErrFmt, strings.Join(e.Trigger, " "), e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Restore issues the fire-and-forget restore trigger.
// trigger is the full argv of the trigger command.
func Restore(ctx context.Context, runner Runner, trigger []string) error {
	if len(trigger) == 0 {
		return errors.New(messages.ServiceTriggerRequired)
	}
	if err := runner.Start(ctx, trigger[0], trigger[1:]...); err != nil {
		return &Error{Trigger: trigger, Err: err}
	}
	return nil
}
