package pkgmgr

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/conn-castle/pkgboot/internal/messages"
)

// InstallKind classifies an install failure.
type InstallKind int

const (
	// InstallInvalidPackage means the package file is missing or empty.
	InstallInvalidPackage InstallKind = iota
	// InstallRegistrationRejected means the OS installer refused the package.
	InstallRegistrationRejected
	// InstallAlreadyPresent means the package is already registered.
	// Policy: callers log and continue so reruns stay safe.
	InstallAlreadyPresent
)

// InstallError is a typed package registration failure.
type InstallError struct {
	Package  string
	Kind     InstallKind
	ExitCode int
	Stderr   string
	Err      error
}

func (e *InstallError) Error() string {
	switch e.Kind {
	case InstallInvalidPackage:
		return fmt.Sprintf(messages.InstallInvalidPackageFmt, e.Package, e.Err)
	case InstallAlreadyPresent:
		return fmt.Sprintf(messages.InstallAlreadyPresentFmt, e.Package)
	default:
		stderr := strings.TrimSpace(e.Stderr)
		if stderr == "" {
			stderr = messages.InstallStderrNone
		}
		return fmt.Sprintf(messages.InstallRejectedFmt, e.Package, e.ExitCode, stderr)
	}
}

func (e *InstallError) Unwrap() error {
	return e.Err
}

// IsAlreadyInstalled reports whether err is an already-registered conflict.
func IsAlreadyInstalled(err error) bool {
	var installErr *InstallError
	return errors.As(err, &installErr) && installErr.Kind == InstallAlreadyPresent
}

// Stderr markers that identify an already-registered package. The OS install
// command has no structured error channel, so classification is textual plus
// the dedicated HRESULT the platform installer emits for version conflicts.
var alreadyInstalledMarkers = []string{
	"already installed",
	"higher version",
	"0x80073D06",
	"0x80073CFB",
}

// Install registers the package at packagePath with the OS install command.
// command is the installer argv prefix; packagePath is appended as the final
// argument. Callers must invoke Install once per artifact in dependency order.
func Install(ctx context.Context, runner Runner, command []string, packagePath string) error {
	if len(command) == 0 {
		return errors.New(messages.InstallCommandRequired)
	}
	if strings.TrimSpace(packagePath) == "" {
		return errors.New(messages.InstallPackageRequired)
	}
	info, err := os.Stat(packagePath)
	if err != nil {
		return &InstallError{Package: packagePath, Kind: InstallInvalidPackage, Err: err}
	}
	if info.IsDir() || info.Size() == 0 {
		return &InstallError{Package: packagePath, Kind: InstallInvalidPackage, Err: errors.New(messages.InstallEmptyPackage)}
	}

	args := append(append([]string(nil), command[1:]...), packagePath)
	exitCode, stderr, err := runner.Run(ctx, command[0], args...)
	if err != nil {
		return &InstallError{Package: packagePath, Kind: InstallRegistrationRejected, ExitCode: -1, Err: err}
	}
	if exitCode == 0 {
		return nil
	}
	if matchesAlreadyInstalled(stderr) {
		return &InstallError{Package: packagePath, Kind: InstallAlreadyPresent, ExitCode: exitCode, Stderr: stderr}
	}
	return &InstallError{Package: packagePath, Kind: InstallRegistrationRejected, ExitCode: exitCode, Stderr: stderr}
}

// matchesAlreadyInstalled reports whether stderr carries a conflict marker.
func matchesAlreadyInstalled(stderr string) bool {
	lowered := strings.ToLower(stderr)
	for _, marker := range alreadyInstalledMarkers {
		if strings.Contains(lowered, strings.ToLower(marker)) {
			return true
		}
	}
	return false
}
