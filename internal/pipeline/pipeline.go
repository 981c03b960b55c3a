// Package pipeline sequences the provisioning stages and owns the working
// area's lifecycle. The state machine is linear with no branching back-edges:
//
//	Init -> Cleanup(pre) -> Bootstrap -> ServiceRestore -> EnvRefresh ->
//	ConfigApply -> Cleanup(post) -> Terminal
//
// Bootstrap failures are fatal; every other stage failure degrades to a
// warning. Cleanup(post) runs on every exit path.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"

	"github.com/conn-castle/pkgboot/internal/config"
	"github.com/conn-castle/pkgboot/internal/envpath"
	"github.com/conn-castle/pkgboot/internal/fetch"
	"github.com/conn-castle/pkgboot/internal/messages"
	"github.com/conn-castle/pkgboot/internal/pkgmgr"
	"github.com/conn-castle/pkgboot/internal/service"
)

// workAreaName is the deterministic per-run working area directory name.
// Reusing one name lets Cleanup(pre) destroy stale state from a prior run.
const workAreaName = "pkgboot-work"

// FetchFunc retrieves a remote locator into a destination file.
type FetchFunc func(ctx context.Context, locator string, destination string) error

// InstallFunc registers one downloaded package with the OS.
type InstallFunc func(ctx context.Context, packagePath string) error

// RestoreFunc issues the fire-and-forget service restore trigger.
type RestoreFunc func(ctx context.Context) error

// ResolveFunc recomputes environment state and locates the executable.
// found is false when the executable is still absent after resolution.
type ResolveFunc func() (path string, found bool)

// ApplyFunc invokes the package manager against the configuration document.
type ApplyFunc func(ctx context.Context, executable string, configDocument string) error

// Options overrides the orchestrator's collaborators. Nil fields fall back
// to the real implementations bound to the manifest.
type Options struct {
	System        System
	Fetch         FetchFunc
	Install       InstallFunc
	Restore       RestoreFunc
	Resolve       ResolveFunc
	Apply         ApplyFunc
	Out           io.Writer
	SkipConfigure bool
}

// Pipeline executes one provisioning run. It is single-use and
// single-threaded; nothing in a run executes concurrently.
type Pipeline struct {
	manifest      *config.Manifest
	sys           System
	fetchFn       FetchFunc
	installFn     InstallFunc
	restoreFn     RestoreFunc
	resolveFn     ResolveFunc
	applyFn       ApplyFunc
	out           io.Writer
	skipConfigure bool
}

// New builds a pipeline for a validated manifest.
func New(manifest *config.Manifest, opts Options) (*Pipeline, error) {
	if manifest == nil {
		return nil, errors.New(messages.PipelineManifestRequired)
	}
	p := &Pipeline{
		manifest:      manifest,
		sys:           opts.System,
		fetchFn:       opts.Fetch,
		installFn:     opts.Install,
		restoreFn:     opts.Restore,
		resolveFn:     opts.Resolve,
		applyFn:       opts.Apply,
		out:           opts.Out,
		skipConfigure: opts.SkipConfigure,
	}
	if p.sys == nil {
		p.sys = RealSystem{}
	}
	if p.out == nil {
		p.out = io.Discard
	}
	if p.fetchFn == nil {
		p.fetchFn = p.defaultFetch()
	}
	if p.installFn == nil {
		p.installFn = p.defaultInstall()
	}
	if p.restoreFn == nil {
		p.restoreFn = p.defaultRestore()
	}
	if p.resolveFn == nil {
		p.resolveFn = p.defaultResolve()
	}
	if p.applyFn == nil {
		p.applyFn = p.defaultApply()
	}
	return p, nil
}

// WorkArea returns the scoped working area path for this run.
func (p *Pipeline) WorkArea() string {
	return filepath.Join(p.manifest.Workspace.Root, workAreaName)
}

// Run executes the full state machine and returns the terminal report.
// Cleanup(post) is guaranteed on every exit path, win or lose.
func (p *Pipeline) Run(ctx context.Context) (report Report) {
	if ctx == nil {
		ctx = context.Background()
	}
	report.Executable = p.manifest.Commands.Executable
	report.add(StageInit, nil, false)

	work := p.WorkArea()
	defer p.cleanupPost(&report, work)

	if err := p.resetWorkArea(work); err != nil {
		report.add(StageCleanupPre, err, false)
		report.Fatal = true
		return report
	}
	report.add(StageCleanupPre, nil, false)

	if err := p.bootstrap(ctx, work); err != nil {
		report.add(StageBootstrap, err, false)
		report.Fatal = true
		return report
	}
	report.add(StageBootstrap, nil, false)

	if p.canceled(ctx, StageServiceRestore, &report) {
		return report
	}
	p.serviceRestore(ctx, &report)

	if p.canceled(ctx, StageEnvRefresh, &report) {
		return report
	}
	p.envRefresh(&report)

	if p.canceled(ctx, StageConfigApply, &report) {
		return report
	}
	p.configApply(ctx, work, &report)

	return report
}

// resetWorkArea destroys any stale working area and recreates it.
// Stale state from a prior run is never trusted.
func (p *Pipeline) resetWorkArea(work string) error {
	if err := p.sys.RemoveAll(work); err != nil {
		return fmt.Errorf(messages.PipelineCleanupErrFmt, work, err)
	}
	if err := p.sys.MkdirAll(work, 0o755); err != nil {
		return fmt.Errorf(messages.PipelineCreateWorkErrFmt, work, err)
	}
	return nil
}

// bootstrap fetches the dependency artifacts and registers them in order:
// framework, UI framework, then the package-manager installer last. Any
// failure here is fatal; the package manager is a hard prerequisite for
// everything downstream. An already-registered package is logged and
// skipped so reruns on a provisioned machine stay safe.
func (p *Pipeline) bootstrap(ctx context.Context, work string) error {
	artifacts := p.manifest.BootstrapArtifacts()
	destinations := make([]string, len(artifacts))
	for i, artifact := range artifacts {
		if err := ctx.Err(); err != nil {
			return err
		}
		destinations[i] = filepath.Join(work, artifact.FileName())
		p.progress(fmt.Sprintf(messages.PipelineFetchingFmt, artifact.Locator))
		if err := p.fetchFn(ctx, artifact.Locator, destinations[i]); err != nil {
			return err
		}
	}
	for i, artifact := range artifacts {
		if err := ctx.Err(); err != nil {
			return err
		}
		p.progress(fmt.Sprintf(messages.InstallRegisteringFmt, artifact.Name))
		if err := p.installFn(ctx, destinations[i]); err != nil {
			if pkgmgr.IsAlreadyInstalled(err) {
				p.progress(fmt.Sprintf(messages.InstallSkipConflictFmt, destinations[i]))
				continue
			}
			return err
		}
	}
	return nil
}

// serviceRestore issues the restore trigger and, when it was issued, waits
// the fixed settle delay. The triggered service exposes no readiness signal,
// so the delay is an unconditional sleep rather than a poll. Failure is
// non-fatal.
func (p *Pipeline) serviceRestore(ctx context.Context, report *Report) {
	if err := p.restoreFn(ctx); err != nil {
		report.add(StageServiceRestore, err, true)
		return
	}
	settle := p.manifest.Timing.Settle.Std()
	if settle > 0 {
		p.progress(fmt.Sprintf(messages.ServiceSettlingFmt, settle))
		p.sys.Sleep(settle)
	}
	report.add(StageServiceRestore, nil, false)
}

// envRefresh recomputes the environment view and records the executable
// locator for the apply stage. Absence degrades to a bare-name fallback
// and a warning; the pipeline proceeds either way.
func (p *Pipeline) envRefresh(report *Report) {
	p.progress(messages.EnvRefreshing)
	name := p.manifest.Commands.Executable
	if path, found := p.resolveFn(); found {
		report.Executable = path
		report.ExecutableResolved = true
		p.progress(fmt.Sprintf(messages.EnvResolvedFmt, name, path))
		report.add(StageEnvRefresh, nil, false)
		return
	}
	report.add(StageEnvRefresh, fmt.Errorf(messages.EnvAbsentFmt, name), true)
}

// configApply fetches the configuration document and applies it with the
// executable recorded by envRefresh. Failure is recorded as a warning and
// does not change the run classification.
func (p *Pipeline) configApply(ctx context.Context, work string, report *Report) {
	if p.skipConfigure {
		p.progress(messages.PipelineConfigureSkipped)
		report.add(StageConfigApply, nil, false)
		return
	}
	artifact := p.manifest.ConfigArtifact()
	document := filepath.Join(work, artifact.FileName())
	p.progress(fmt.Sprintf(messages.PipelineFetchingFmt, artifact.Locator))
	if err := p.fetchFn(ctx, artifact.Locator, document); err != nil {
		report.add(StageConfigApply, fmt.Errorf(messages.PipelineConfigFetchFmt, err), true)
		return
	}
	p.progress(fmt.Sprintf(messages.ApplyingFmt, document, report.Executable))
	if err := p.applyFn(ctx, report.Executable, document); err != nil {
		report.add(StageConfigApply, err, true)
		return
	}
	report.add(StageConfigApply, nil, false)
}

// cleanupPost destroys the working area unconditionally. A cleanup failure
// is reported as a warning; it never alters the run classification.
func (p *Pipeline) cleanupPost(report *Report, work string) {
	if err := p.sys.RemoveAll(work); err != nil {
		report.add(StageCleanupPost, fmt.Errorf(messages.PipelineCleanupErrFmt, work, err), true)
		return
	}
	report.add(StageCleanupPost, nil, false)
}

// canceled honors context cancellation at a stage boundary. The canceled
// stage is recorded as a warning and the remaining stages are skipped;
// Cleanup(post) still runs via the deferred call in Run.
func (p *Pipeline) canceled(ctx context.Context, stage Stage, report *Report) bool {
	if err := ctx.Err(); err != nil {
		report.add(stage, fmt.Errorf("%s: %w", messages.PipelineCanceled, err), true)
		return true
	}
	return false
}

// progress writes one progress line to the configured writer.
func (p *Pipeline) progress(line string) {
	_, _ = fmt.Fprintf(p.out, messages.RunProgressFmt, line)
}

// defaultFetch binds the real fetcher, bounding each call with the
// manifest's fetch timeout when one is set.
func (p *Pipeline) defaultFetch() FetchFunc {
	timeout := p.manifest.Timing.FetchTimeout.Std()
	return func(ctx context.Context, locator string, destination string) error {
		if timeout > 0 {
			bounded, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()
			ctx = bounded
		}
		return fetch.Fetch(ctx, locator, destination)
	}
}

// defaultInstall binds the real installer to the manifest's install command.
func (p *Pipeline) defaultInstall() InstallFunc {
	runner := pkgmgr.CommandRunner{}
	command := p.manifest.Commands.Install
	return func(ctx context.Context, packagePath string) error {
		return pkgmgr.Install(ctx, runner, command, packagePath)
	}
}

// defaultRestore binds the real restorer to the manifest's trigger command.
func (p *Pipeline) defaultRestore() RestoreFunc {
	runner := service.CommandRunner{}
	trigger := p.manifest.Commands.Restore
	return func(ctx context.Context) error {
		return service.Restore(ctx, runner, trigger)
	}
}

// defaultResolve binds the real environment resolver.
func (p *Pipeline) defaultResolve() ResolveFunc {
	executable := p.manifest.Commands.Executable
	return func() (string, bool) {
		sources, err := envpath.DefaultSources()
		if err != nil {
			return "", false
		}
		return envpath.Resolve(envpath.RealSystem{}, sources, executable)
	}
}

// defaultApply binds the real applier, bounding the invocation with the
// manifest's apply timeout when one is set.
func (p *Pipeline) defaultApply() ApplyFunc {
	runner := pkgmgr.CommandRunner{}
	timeout := p.manifest.Timing.ApplyTimeout.Std()
	return func(ctx context.Context, executable string, configDocument string) error {
		if timeout > 0 {
			bounded, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()
			ctx = bounded
		}
		return pkgmgr.Apply(ctx, runner, executable, configDocument)
	}
}
