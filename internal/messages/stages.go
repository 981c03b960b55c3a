package messages

// Stage and component messages.
const (
	// Fetcher messages.
	FetchCreateRequestErrFmt = "failed to create request for %s: %w"
	FetchNetworkErrFmt       = "fetch %s: network unreachable: %v"
	FetchHTTPStatusErrFmt    = "fetch %s: unexpected status %d"
	FetchWriteErrFmt         = "fetch %s: failed to write %s: %v"

	// Installer messages.
	InstallPackageRequired   = "package path is required"
	InstallEmptyPackage      = "package file is empty or a directory"
	InstallCommandRequired   = "install command is required"
	InstallInvalidPackageFmt = "invalid package %s: %v"
	InstallRejectedFmt       = "package %s rejected by installer (exit %d): %s"
	InstallAlreadyPresentFmt = "package %s is already installed"
	InstallSkipConflictFmt   = "package already installed, continuing: %s"
	InstallRegisteringFmt    = "registering %s"
	InstallStderrNone        = "<no stderr>"

	// Service restore messages.
	ServiceTriggerRequired = "service restore trigger is required"
	ServiceTriggerErrFmt   = "failed to issue restore trigger %q: %v"
	ServiceSettlingFmt     = "waiting %s for the restored service to settle"

	// Environment resolver messages.
	EnvRefreshing         = "refreshing environment view"
	EnvResolvedFmt        = "resolved %s at %s"
	EnvAbsentFmt          = "executable %s not found after refresh; falling back to name lookup"
	EnvExpectedKeyValue   = "expected KEY=value"
	EnvUnterminatedQuote  = "unterminated quoted value"
	EnvInvalidQuoteSuffix = "unexpected content after quoted value"

	// Configuration applier messages.
	ApplyExecutableRequired = "executable is required"
	ApplyDocUnreadableFmt   = "configuration document %s is unreadable: %v"
	ApplyExecNotFoundFmt    = "executable %s not found: %v"
	ApplyInvocationFmt      = "%s configure exited with code %d: %s"
	ApplyingFmt             = "applying configuration %s with %s"

	// Pipeline messages.
	PipelineManifestRequired = "manifest is required"
	PipelineCleanupErrFmt    = "failed to reset working area %s: %v"
	PipelineCreateWorkErrFmt = "failed to create working area %s: %v"
	PipelineFetchingFmt      = "fetching %s"
	PipelineCanceled         = "pipeline canceled"
	PipelineConfigFetchFmt   = "failed to fetch configuration document: %v"
	PipelineConfigureSkipped = "configuration apply skipped"
)
