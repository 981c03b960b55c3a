package messages

// Manifest loading and validation messages.
const (
	ConfigMissingFileFmt      = "failed to read manifest %s: %w"
	ConfigInvalidManifestFmt  = "invalid manifest %s: %w"
	ConfigUnrecognizedKeysFmt = "manifest %s contains unrecognized keys: %w"

	ConfigMissingArtifactFmt = "manifest %s: artifacts.%s is required"
	ConfigInvalidLocatorFmt  = "manifest %s: artifacts.%s locator %q is not a valid http(s) URI"
	ConfigMissingWorkRoot    = "manifest %s: workspace.root must not be empty"
	ConfigExpandWorkRootFmt  = "manifest %s: failed to expand workspace.root: %w"
	ConfigNegativeSettleFmt  = "manifest %s: timing.settle must not be negative"
	ConfigEmptyInstallCmd    = "manifest %s: commands.install must not be empty"
	ConfigEmptyRestoreCmd    = "manifest %s: commands.restore must not be empty"
	ConfigEmptyExecutable    = "manifest %s: commands.executable must not be empty"

	ConfigInvalidDurationFmt = "invalid duration %q: %w"
)
