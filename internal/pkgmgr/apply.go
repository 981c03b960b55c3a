package pkgmgr

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/conn-castle/pkgboot/internal/messages"
)

// Flags passed to the configure subcommand. Unattended execution requires
// pre-accepting the document's license and source agreements; without them
// the call blocks on an interactive prompt.
var configureArgs = []string{
	"configure",
	"-f",
	// document path inserted here
	"--accept-configuration-agreements",
	"--accept-source-agreements",
}

// ApplyKind classifies a configuration-apply failure.
type ApplyKind int

const (
	// ApplyExecutableNotFound means the package manager could not be located.
	ApplyExecutableNotFound ApplyKind = iota
	// ApplyInvocationFailed means configure ran and exited non-zero.
	ApplyInvocationFailed
	// ApplyDocumentUnreadable means the fetched document cannot be read.
	ApplyDocumentUnreadable
)

// ApplyError is a typed configuration-apply failure.
type ApplyError struct {
	Executable string
	Document   string
	Kind       ApplyKind
	ExitCode   int
	Stderr     string
	Err        error
}

func (e *ApplyError) Error() string {
	switch e.Kind {
	case ApplyDocumentUnreadable:
		return fmt.Sprintf(messages.ApplyDocUnreadableFmt, e.Document, e.Err)
	case ApplyExecutableNotFound:
		return fmt.Sprintf(messages.ApplyExecNotFoundFmt, e.Executable, e.Err)
	default:
		stderr := strings.TrimSpace(e.Stderr)
		if stderr == "" {
			stderr = messages.InstallStderrNone
		}
		return fmt.Sprintf(messages.ApplyInvocationFmt, e.Executable, e.ExitCode, stderr)
	}
}

func (e *ApplyError) Unwrap() error {
	return e.Err
}

// Apply invokes the package manager's declarative configure subcommand
// against the fetched configuration document. executable may be a resolved
// path or a bare name left to OS lookup when resolution reported Absent.
func Apply(ctx context.Context, runner Runner, executable string, configDocument string) error {
	if strings.TrimSpace(executable) == "" {
		return errors.New(messages.ApplyExecutableRequired)
	}
	if err := checkReadable(configDocument); err != nil {
		return &ApplyError{Executable: executable, Document: configDocument, Kind: ApplyDocumentUnreadable, Err: err}
	}

	args := append([]string{configureArgs[0], configureArgs[1], configDocument}, configureArgs[2:]...)
	exitCode, stderr, err := runner.Run(ctx, executable, args...)
	if err != nil {
		kind := ApplyInvocationFailed
		if errors.Is(err, exec.ErrNotFound) {
			kind = ApplyExecutableNotFound
		}
		return &ApplyError{Executable: executable, Document: configDocument, Kind: kind, ExitCode: -1, Err: err}
	}
	if exitCode != 0 {
		return &ApplyError{Executable: executable, Document: configDocument, Kind: ApplyInvocationFailed, ExitCode: exitCode, Stderr: stderr}
	}
	return nil
}

// checkReadable verifies the document exists and is openable.
func checkReadable(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	return f.Close()
}
