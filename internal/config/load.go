package config

import (
	"bytes"
	"fmt"
	"os"

	"github.com/mitchellh/go-homedir"
	"github.com/pelletier/go-toml/v2"

	"github.com/conn-castle/pkgboot/internal/messages"
)

// Load reads the manifest at path, applies defaults, and validates it.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf(messages.ConfigMissingFileFmt, path, err)
	}
	return Parse(data, path)
}

// Parse parses and validates manifest TOML data from a source identifier.
// data is the TOML content; source is used in error messages.
func Parse(data []byte, source string) (*Manifest, error) {
	var m Manifest
	if err := toml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf(messages.ConfigInvalidManifestFmt, source, err)
	}
	if err := decodeStrict(data); err != nil {
		return nil, fmt.Errorf(messages.ConfigUnrecognizedKeysFmt, source, err)
	}
	m.applyDefaults()
	if err := m.expandWorkRoot(source); err != nil {
		return nil, err
	}
	if err := m.Validate(source); err != nil {
		return nil, err
	}
	return &m, nil
}

// decodeStrict re-decodes the TOML data with strict unknown-field rejection.
// This catches keys that toml.Unmarshal silently ignores.
func decodeStrict(data []byte) error {
	var m Manifest
	decoder := toml.NewDecoder(bytes.NewReader(data))
	decoder.DisallowUnknownFields()
	return decoder.Decode(&m)
}

// expandWorkRoot resolves a leading ~ in the workspace root.
func (m *Manifest) expandWorkRoot(source string) error {
	expanded, err := homedir.Expand(m.Workspace.Root)
	if err != nil {
		return fmt.Errorf(messages.ConfigExpandWorkRootFmt, source, err)
	}
	m.Workspace.Root = expanded
	return nil
}
