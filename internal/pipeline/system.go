package pipeline

import (
	"os"
	"time"
)

// System abstracts OS operations needed by the orchestrator.
// Other packages (fetch, pkgmgr, envpath) define their own seams with
// operations specific to their needs.
type System interface {
	RemoveAll(path string) error
	MkdirAll(path string, perm os.FileMode) error
	Sleep(d time.Duration)
}

// RealSystem implements System using the OS.
type RealSystem struct{}

// RemoveAll removes path and any children it contains.
func (RealSystem) RemoveAll(path string) error {
	return os.RemoveAll(path)
}

// MkdirAll creates path along with any necessary parents.
func (RealSystem) MkdirAll(path string, perm os.FileMode) error {
	return os.MkdirAll(path, perm)
}

// Sleep pauses the current goroutine for at least d.
func (RealSystem) Sleep(d time.Duration) {
	time.Sleep(d)
}
