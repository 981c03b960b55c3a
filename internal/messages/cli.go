package messages

// CLI messages for user-facing commands and flags.
const (
	// RootUse is the CLI command name.
	RootUse = "pkgboot"
	// RootShort is the short description for the root command.
	RootShort = "Unattended package-manager bootstrap"
	RootLong  = "pkgboot bootstraps the package manager on a locked-down image and applies a remote declarative configuration."

	// VersionCommitFmt formats the commit hash for version display.
	VersionCommitFmt = "commit %s"
	VersionBuildFmt  = "built %s"
	VersionFullFmt   = "%s (%s)"
	VersionTemplate  = "{{.Version}}\n"

	// RunUse is the run command name.
	RunUse   = "run"
	RunShort = "Run the full provisioning pipeline"
	RunLong  = "run fetches the package-manager bootstrap artifacts, registers them with the OS in order, triggers a restore of the disabled store service, refreshes executable lookup state, and applies the remote configuration document."

	RunFlagManifest      = "Path to the provisioning manifest"
	RunFlagWorkRoot      = "Override the workspace root from the manifest"
	RunFlagSettle        = "Override the settle delay after the service restore trigger"
	RunFlagSkipConfigure = "Skip the configuration-apply stage"

	// RunFatalFmt is the single fatal message naming the failed stage and cause.
	RunFatalFmt = "provisioning failed at stage %s: %v"
	// RunSummarySuccess reports a run where no stage failed.
	RunSummarySuccess = "provisioning complete"
	// RunSummaryWarningsFmt reports a successful run with warning-class failures.
	RunSummaryWarningsFmt = "provisioning complete with %d warning(s)"

	RunStageLineFmt    = "%s %s%s\n"
	RunStageDetailFmt  = ": %v"
	RunStatusOKLabel   = "[ OK ]"
	RunStatusWarnLabel = "[WARN]"
	RunStatusFailLabel = "[FAIL]"
	RunProgressFmt     = "-> %s\n"

	// ValidateUse is the validate command name.
	ValidateUse   = "validate"
	ValidateShort = "Validate the provisioning manifest without running the pipeline"
	ValidateOKFmt = "manifest %s is valid\n"
)
