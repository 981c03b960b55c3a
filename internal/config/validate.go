package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/conn-castle/pkgboot/internal/messages"
)

// Validate checks the manifest for completeness after defaults are applied.
// source identifies the manifest in error messages.
func (m *Manifest) Validate(source string) error {
	locators := []struct {
		name    string
		locator string
	}{
		{ArtifactFramework, m.Artifacts.Framework},
		{ArtifactUI, m.Artifacts.UI},
		{ArtifactInstaller, m.Artifacts.Installer},
		{ArtifactConfigDoc, m.Artifacts.Config},
	}
	for _, entry := range locators {
		if strings.TrimSpace(entry.locator) == "" {
			return fmt.Errorf(messages.ConfigMissingArtifactFmt, source, entry.name)
		}
		if !validLocator(entry.locator) {
			return fmt.Errorf(messages.ConfigInvalidLocatorFmt, source, entry.name, entry.locator)
		}
	}
	if strings.TrimSpace(m.Workspace.Root) == "" {
		return fmt.Errorf(messages.ConfigMissingWorkRoot, source)
	}
	if m.Timing.Settle < 0 {
		return fmt.Errorf(messages.ConfigNegativeSettleFmt, source)
	}
	if len(m.Commands.Install) == 0 {
		return fmt.Errorf(messages.ConfigEmptyInstallCmd, source)
	}
	if len(m.Commands.Restore) == 0 {
		return fmt.Errorf(messages.ConfigEmptyRestoreCmd, source)
	}
	if strings.TrimSpace(m.Commands.Executable) == "" {
		return fmt.Errorf(messages.ConfigEmptyExecutable, source)
	}
	return nil
}

// validLocator reports whether locator is an absolute http(s) URI.
func validLocator(locator string) bool {
	parsed, err := url.Parse(locator)
	if err != nil {
		return false
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return false
	}
	return parsed.Host != ""
}
