package envpath

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/mitchellh/go-homedir"
)

// System abstracts OS operations needed by environment resolution.
type System interface {
	Environ() []string
	ReadFile(name string) ([]byte, error)
	Stat(name string) (os.FileInfo, error)
	Glob(pattern string) ([]string, error)
}

// RealSystem implements System using the OS.
type RealSystem struct{}

// Environ returns a copy of strings representing the environment.
func (RealSystem) Environ() []string {
	return os.Environ()
}

// ReadFile reads the named file and returns the contents.
func (RealSystem) ReadFile(name string) ([]byte, error) {
	return os.ReadFile(name)
}

// Stat returns file info for the named file.
func (RealSystem) Stat(name string) (os.FileInfo, error) {
	return os.Stat(name)
}

// Glob returns the names matching pattern.
func (RealSystem) Glob(pattern string) ([]string, error) {
	return filepath.Glob(pattern)
}

// Sources lists the environment definition file patterns to re-read,
// split by scope. User definitions override machine definitions.
type Sources struct {
	Machine []string
	User    []string
}

// DefaultSources returns the conventional machine- and user-scoped
// definition locations for the current user.
func DefaultSources() (Sources, error) {
	home, err := homedir.Dir()
	if err != nil {
		return Sources{}, err
	}
	return Sources{
		Machine: []string{"/etc/environment"},
		User:    []string{filepath.Join(home, ".config", "environment.d", "*.conf")},
	}, nil
}

// Resolve recomputes the merged environment view and searches it for the
// named executable. It returns the resolved path and true when found, or
// "" and false when the executable is still absent — a warning condition,
// never an error. Unreadable or malformed definition files are skipped;
// resolution is best-effort by contract.
func Resolve(sys System, sources Sources, executable string) (string, bool) {
	merged := environMap(sys.Environ())
	mergeDefinitions(sys, merged, sources.Machine)
	mergeDefinitions(sys, merged, sources.User)

	for _, dir := range candidateDirs(merged) {
		for _, name := range candidateNames(executable) {
			candidate := filepath.Join(dir, name)
			if isExecutable(sys, candidate) {
				return normalizePath(candidate), true
			}
		}
	}
	return "", false
}

// environMap converts KEY=value pairs into a map.
func environMap(environ []string) map[string]string {
	env := make(map[string]string, len(environ))
	for _, pair := range environ {
		idx := strings.Index(pair, "=")
		if idx <= 0 {
			continue
		}
		env[pair[:idx]] = pair[idx+1:]
	}
	return env
}

// mergeDefinitions folds every definition file matched by patterns into env.
func mergeDefinitions(sys System, env map[string]string, patterns []string) {
	for _, pattern := range patterns {
		matches, err := sys.Glob(pattern)
		if err != nil {
			continue
		}
		for _, name := range matches {
			data, err := sys.ReadFile(name)
			if err != nil {
				continue
			}
			defs, err := ParseDefinitions(string(data))
			if err != nil {
				continue
			}
			for key, value := range defs {
				env[key] = value
			}
		}
	}
}

// candidateDirs returns the conventional install locations followed by the
// merged PATH entries.
func candidateDirs(env map[string]string) []string {
	var dirs []string
	if local := env["LOCALAPPDATA"]; local != "" {
		dirs = append(dirs, filepath.Join(local, "Microsoft", "WindowsApps"))
	}
	if home := env["HOME"]; home != "" {
		dirs = append(dirs, filepath.Join(home, ".local", "bin"))
	}
	for _, dir := range filepath.SplitList(env["PATH"]) {
		if dir != "" {
			dirs = append(dirs, dir)
		}
	}
	return dirs
}

// candidateNames returns the executable name plus its .exe form when the
// name carries no extension.
func candidateNames(executable string) []string {
	if filepath.Ext(executable) != "" {
		return []string{executable}
	}
	return []string{executable, executable + ".exe"}
}

// isExecutable reports whether path is a regular file that can be executed.
func isExecutable(sys System, path string) bool {
	info, err := sys.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		return false
	}
	if strings.EqualFold(filepath.Ext(path), ".exe") {
		return true
	}
	return info.Mode().Perm()&0o111 != 0
}

// normalizePath returns the absolute, symlink-resolved form of path,
// falling back to the best result available.
func normalizePath(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	eval, err := filepath.EvalSymlinks(abs)
	if err == nil {
		return eval
	}
	return abs
}
