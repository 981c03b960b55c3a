package config

import (
	"fmt"
	"net/url"
	"path"
	"time"

	"github.com/conn-castle/pkgboot/internal/messages"
)

// Artifact names used by the bootstrap chain. Registration order matters:
// the dependency framework first, the UI framework next, and the package
// manager's own installer last.
const (
	ArtifactFramework = "framework"
	ArtifactUI        = "ui"
	ArtifactInstaller = "installer"
	ArtifactConfigDoc = "config"
)

// Duration wraps time.Duration with TOML text decoding.
type Duration time.Duration

// UnmarshalText parses a Go duration string such as "30s".
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf(messages.ConfigInvalidDurationFmt, string(text), err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Manifest is the declarative provisioning manifest (pkgboot.toml).
type Manifest struct {
	Artifacts ArtifactsSection `toml:"artifacts"`
	Workspace WorkspaceSection `toml:"workspace"`
	Commands  CommandsSection  `toml:"commands"`
	Timing    TimingSection    `toml:"timing"`
}

// ArtifactsSection holds the four remote locators consumed by the pipeline.
type ArtifactsSection struct {
	Framework string `toml:"framework"`
	UI        string `toml:"ui"`
	Installer string `toml:"installer"`
	Config    string `toml:"config"`
}

// WorkspaceSection controls where the per-run working area lives.
type WorkspaceSection struct {
	Root string `toml:"root"`
}

// CommandsSection names the external commands the pipeline shells out to.
type CommandsSection struct {
	Install    []string `toml:"install"`
	Restore    []string `toml:"restore"`
	Executable string   `toml:"executable"`
}

// TimingSection holds the settle delay and optional hardening timeouts.
// Zero timeouts leave fetches and the configure invocation unbounded.
type TimingSection struct {
	Settle       Duration `toml:"settle"`
	FetchTimeout Duration `toml:"fetch-timeout"`
	ApplyTimeout Duration `toml:"apply-timeout"`
}

// Artifact pairs a named remote locator with its destination file name.
// Immutable once built; consumed by the fetcher and installer.
type Artifact struct {
	Name    string
	Locator string
}

// FileName derives the destination file name from the locator path,
// falling back to the artifact name when the URL carries none.
func (a Artifact) FileName() string {
	parsed, err := url.Parse(a.Locator)
	if err == nil {
		base := path.Base(parsed.Path)
		if base != "" && base != "." && base != "/" {
			return base
		}
	}
	return a.Name
}

// BootstrapArtifacts returns the dependency artifacts in required
// registration order: framework, UI framework, installer last.
func (m *Manifest) BootstrapArtifacts() []Artifact {
	return []Artifact{
		{Name: ArtifactFramework, Locator: m.Artifacts.Framework},
		{Name: ArtifactUI, Locator: m.Artifacts.UI},
		{Name: ArtifactInstaller, Locator: m.Artifacts.Installer},
	}
}

// ConfigArtifact returns the remote configuration document artifact.
func (m *Manifest) ConfigArtifact() Artifact {
	return Artifact{Name: ArtifactConfigDoc, Locator: m.Artifacts.Config}
}

// Default command and timing values applied when the manifest omits them.
var (
	defaultInstallCommand = []string{"powershell", "-NoProfile", "-NonInteractive", "-Command", "Add-AppxPackage -Path"}
	defaultRestoreCommand = []string{"wsreset", "-i"}
)

const (
	defaultExecutable = "winget"
	defaultWorkRoot   = "~/.cache/pkgboot"
	defaultSettle     = Duration(30 * time.Second)
)

// applyDefaults fills omitted manifest sections with their defaults.
func (m *Manifest) applyDefaults() {
	if len(m.Commands.Install) == 0 {
		m.Commands.Install = append([]string(nil), defaultInstallCommand...)
	}
	if len(m.Commands.Restore) == 0 {
		m.Commands.Restore = append([]string(nil), defaultRestoreCommand...)
	}
	if m.Commands.Executable == "" {
		m.Commands.Executable = defaultExecutable
	}
	if m.Workspace.Root == "" {
		m.Workspace.Root = defaultWorkRoot
	}
	if m.Timing.Settle == 0 {
		m.Timing.Settle = defaultSettle
	}
}
