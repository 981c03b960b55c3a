package pipeline

// Stage identifies a step of the linear provisioning state machine.
type Stage string

const (
	StageInit           Stage = "init"
	StageCleanupPre     Stage = "cleanup-pre"
	StageBootstrap      Stage = "bootstrap"
	StageServiceRestore Stage = "service-restore"
	StageEnvRefresh     Stage = "env-refresh"
	StageConfigApply    Stage = "config-apply"
	StageCleanupPost    Stage = "cleanup-post"
)

// StageResult records one stage's outcome. Results are consumed only by the
// orchestrator's caller for reporting; they are never persisted.
type StageResult struct {
	Stage Stage
	Err   error
	// Warning marks a failure that does not alter the run classification.
	Warning bool
}

// Ok reports whether the stage completed without error.
func (r StageResult) Ok() bool {
	return r.Err == nil
}

// Report is the terminal outcome of one pipeline run.
type Report struct {
	Results []StageResult
	// Fatal is true when Bootstrap failed, or when the working area could
	// not be prepared and Bootstrap therefore never ran.
	Fatal bool
	// Executable is the locator handed to the configuration applier: the
	// resolved path, or the bare name when resolution reported Absent.
	Executable string
	// ExecutableResolved is false when the fallback bare name was used.
	ExecutableResolved bool
}

// ExitCode maps the run classification to the process exit contract:
// 1 for a fatal run, 0 for success and warning-class failures.
func (r Report) ExitCode() int {
	if r.Fatal {
		return 1
	}
	return 0
}

// Warnings returns the warning-class stage failures.
func (r Report) Warnings() []StageResult {
	var warnings []StageResult
	for _, result := range r.Results {
		if result.Err != nil && result.Warning {
			warnings = append(warnings, result)
		}
	}
	return warnings
}

// FatalResult returns the fatal stage result when the run failed.
func (r Report) FatalResult() (StageResult, bool) {
	if !r.Fatal {
		return StageResult{}, false
	}
	for _, result := range r.Results {
		if result.Err != nil && !result.Warning {
			return result, true
		}
	}
	return StageResult{}, false
}

// add appends a stage result.
func (r *Report) add(stage Stage, err error, warning bool) {
	r.Results = append(r.Results, StageResult{Stage: stage, Err: err, Warning: warning})
}
