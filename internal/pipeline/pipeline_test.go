package pipeline

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conn-castle/pkgboot/internal/config"
	"github.com/conn-castle/pkgboot/internal/fetch"
	"github.com/conn-castle/pkgboot/internal/pkgmgr"
)

const manifestTemplate = `
[artifacts]
framework = "%[1]s/deps/framework.appx"
ui        = "%[1]s/deps/ui.appx"
installer = "%[1]s/deps/installer.msixbundle"
config    = "%[1]s/provision.dsc.yaml"

[workspace]
root = "%[2]s"

[timing]
settle = "10ms"
`

func testManifest(t *testing.T, base string, workRoot string) *config.Manifest {
	t.Helper()
	m, err := config.Parse([]byte(fmt.Sprintf(manifestTemplate, base, workRoot)), "test")
	require.NoError(t, err)
	return m
}

// testSystem delegates to the OS but records sleeps and can fail RemoveAll
// on a chosen call.
type testSystem struct {
	slept       []time.Duration
	removeCalls int
	failOnCall  int // 1-based RemoveAll call index to fail, 0 = never
}

func (s *testSystem) RemoveAll(p string) error {
	s.removeCalls++
	if s.failOnCall != 0 && s.removeCalls == s.failOnCall {
		return errors.New("remove denied")
	}
	return os.RemoveAll(p)
}

func (s *testSystem) MkdirAll(p string, perm os.FileMode) error {
	return os.MkdirAll(p, perm)
}

func (s *testSystem) Sleep(d time.Duration) {
	s.slept = append(s.slept, d)
}

// recordingOptions builds fully-faked collaborators that append call labels
// to order and succeed.
func recordingOptions(sys System, order *[]string) Options {
	return Options{
		System: sys,
		Fetch: func(_ context.Context, locator string, destination string) error {
			*order = append(*order, "fetch:"+path.Base(locator))
			return os.WriteFile(destination, []byte("artifact"), 0o644)
		},
		Install: func(_ context.Context, packagePath string) error {
			*order = append(*order, "install:"+filepath.Base(packagePath))
			return nil
		},
		Restore: func(_ context.Context) error {
			*order = append(*order, "restore")
			return nil
		},
		Resolve: func() (string, bool) {
			*order = append(*order, "resolve")
			return "/resolved/winget", true
		},
		Apply: func(_ context.Context, executable string, configDocument string) error {
			*order = append(*order, "apply:"+executable)
			return nil
		},
	}
}

func stages(report Report) []Stage {
	out := make([]Stage, 0, len(report.Results))
	for _, result := range report.Results {
		out = append(out, result.Stage)
	}
	return out
}

func TestNew_NilManifest(t *testing.T) {
	_, err := New(nil, Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "manifest is required")
}

func TestRun_SuccessPath(t *testing.T) {
	sys := &testSystem{}
	var order []string
	m := testManifest(t, "https://example.com", filepath.Join(t.TempDir(), "ws"))
	p, err := New(m, recordingOptions(sys, &order))
	require.NoError(t, err)

	report := p.Run(context.Background())

	assert.False(t, report.Fatal)
	assert.Equal(t, 0, report.ExitCode())
	assert.Empty(t, report.Warnings())
	assert.Equal(t, []Stage{
		StageInit,
		StageCleanupPre,
		StageBootstrap,
		StageServiceRestore,
		StageEnvRefresh,
		StageConfigApply,
		StageCleanupPost,
	}, stages(report))
	for _, result := range report.Results {
		assert.True(t, result.Ok(), "stage %s: %v", result.Stage, result.Err)
	}

	assert.Equal(t, []string{
		"fetch:framework.appx",
		"fetch:ui.appx",
		"fetch:installer.msixbundle",
		"install:framework.appx",
		"install:ui.appx",
		"install:installer.msixbundle",
		"restore",
		"resolve",
		"fetch:provision.dsc.yaml",
		"apply:/resolved/winget",
	}, order)

	assert.Equal(t, []time.Duration{10 * time.Millisecond}, sys.slept)
	assert.NoDirExists(t, p.WorkArea())
	assert.True(t, report.ExecutableResolved)
	assert.Equal(t, "/resolved/winget", report.Executable)
}

func TestRun_StaleWorkAreaDestroyed(t *testing.T) {
	workRoot := filepath.Join(t.TempDir(), "ws")
	m := testManifest(t, "https://example.com", workRoot)

	stale := filepath.Join(workRoot, "pkgboot-work", "stale.bin")
	require.NoError(t, os.MkdirAll(filepath.Dir(stale), 0o755))
	require.NoError(t, os.WriteFile(stale, []byte("old"), 0o644))

	var order []string
	opts := recordingOptions(&testSystem{}, &order)
	opts.Fetch = func(_ context.Context, locator string, destination string) error {
		assert.NoFileExists(t, stale)
		return os.WriteFile(destination, []byte("artifact"), 0o644)
	}
	p, err := New(m, opts)
	require.NoError(t, err)

	report := p.Run(context.Background())
	assert.False(t, report.Fatal)
	assert.NoDirExists(t, p.WorkArea())
}

func TestRun_FetchFailureFatal(t *testing.T) {
	var order []string
	m := testManifest(t, "https://example.com", filepath.Join(t.TempDir(), "ws"))
	opts := recordingOptions(&testSystem{}, &order)
	opts.Fetch = func(_ context.Context, locator string, destination string) error {
		if path.Base(locator) == "installer.msixbundle" {
			return &fetch.Error{Locator: locator, Kind: fetch.KindNetwork, Err: errors.New("refused")}
		}
		return os.WriteFile(destination, []byte("artifact"), 0o644)
	}
	p, err := New(m, opts)
	require.NoError(t, err)

	report := p.Run(context.Background())

	assert.True(t, report.Fatal)
	assert.Equal(t, 1, report.ExitCode())
	fatal, ok := report.FatalResult()
	require.True(t, ok)
	assert.Equal(t, StageBootstrap, fatal.Stage)
	assert.NotContains(t, order, "restore")
	assert.NotContains(t, order, "resolve")
	assert.NoDirExists(t, p.WorkArea())
	// cleanup-post still ran and succeeded
	assert.Equal(t, StageCleanupPost, report.Results[len(report.Results)-1].Stage)
	assert.True(t, report.Results[len(report.Results)-1].Ok())
}

func TestRun_InstallRejectedFatal(t *testing.T) {
	var order []string
	m := testManifest(t, "https://example.com", filepath.Join(t.TempDir(), "ws"))
	opts := recordingOptions(&testSystem{}, &order)
	opts.Install = func(_ context.Context, packagePath string) error {
		return &pkgmgr.InstallError{Package: packagePath, Kind: pkgmgr.InstallRegistrationRejected, ExitCode: 1}
	}
	p, err := New(m, opts)
	require.NoError(t, err)

	report := p.Run(context.Background())

	assert.True(t, report.Fatal)
	assert.Equal(t, 1, report.ExitCode())
	assert.NotContains(t, order, "restore")
	assert.NoDirExists(t, p.WorkArea())
}

func TestRun_AlreadyInstalledContinues(t *testing.T) {
	var order []string
	var installed []string
	m := testManifest(t, "https://example.com", filepath.Join(t.TempDir(), "ws"))
	opts := recordingOptions(&testSystem{}, &order)
	opts.Install = func(_ context.Context, packagePath string) error {
		installed = append(installed, filepath.Base(packagePath))
		return &pkgmgr.InstallError{Package: packagePath, Kind: pkgmgr.InstallAlreadyPresent, ExitCode: 1}
	}
	p, err := New(m, opts)
	require.NoError(t, err)

	report := p.Run(context.Background())

	assert.False(t, report.Fatal, "a provisioned machine must not make the rerun fatal")
	assert.Equal(t, 0, report.ExitCode())
	assert.Equal(t, []string{"framework.appx", "ui.appx", "installer.msixbundle"}, installed)
	assert.Contains(t, order, "restore")
}

func TestRun_RestoreFailureWarning(t *testing.T) {
	sys := &testSystem{}
	var order []string
	m := testManifest(t, "https://example.com", filepath.Join(t.TempDir(), "ws"))
	opts := recordingOptions(sys, &order)
	opts.Restore = func(_ context.Context) error {
		return errors.New("trigger failed")
	}
	p, err := New(m, opts)
	require.NoError(t, err)

	report := p.Run(context.Background())

	assert.False(t, report.Fatal)
	assert.Equal(t, 0, report.ExitCode())
	require.Len(t, report.Warnings(), 1)
	assert.Equal(t, StageServiceRestore, report.Warnings()[0].Stage)
	assert.Empty(t, sys.slept, "settle delay only follows an issued trigger")
	assert.Contains(t, order, "resolve")
	assert.Contains(t, order, "apply:/resolved/winget")
}

func TestRun_AbsentFallsBackToBareName(t *testing.T) {
	var order []string
	m := testManifest(t, "https://example.com", filepath.Join(t.TempDir(), "ws"))
	opts := recordingOptions(&testSystem{}, &order)
	opts.Resolve = func() (string, bool) {
		return "", false
	}
	p, err := New(m, opts)
	require.NoError(t, err)

	report := p.Run(context.Background())

	assert.False(t, report.Fatal)
	assert.False(t, report.ExecutableResolved)
	assert.Equal(t, "winget", report.Executable)
	assert.Contains(t, order, "apply:winget", "apply must still be attempted with the fallback locator")
	require.Len(t, report.Warnings(), 1)
	assert.Equal(t, StageEnvRefresh, report.Warnings()[0].Stage)
}

func TestRun_ApplyFailureWarning(t *testing.T) {
	var order []string
	m := testManifest(t, "https://example.com", filepath.Join(t.TempDir(), "ws"))
	opts := recordingOptions(&testSystem{}, &order)
	opts.Apply = func(_ context.Context, executable string, configDocument string) error {
		return &pkgmgr.ApplyError{Executable: executable, Document: configDocument, Kind: pkgmgr.ApplyInvocationFailed, ExitCode: 4}
	}
	p, err := New(m, opts)
	require.NoError(t, err)

	report := p.Run(context.Background())

	assert.False(t, report.Fatal)
	assert.Equal(t, 0, report.ExitCode())
	require.Len(t, report.Warnings(), 1)
	assert.Equal(t, StageConfigApply, report.Warnings()[0].Stage)
	assert.NoDirExists(t, p.WorkArea())
}

func TestRun_ConfigFetchFailureWarning(t *testing.T) {
	var order []string
	m := testManifest(t, "https://example.com", filepath.Join(t.TempDir(), "ws"))
	opts := recordingOptions(&testSystem{}, &order)
	opts.Fetch = func(_ context.Context, locator string, destination string) error {
		if path.Base(locator) == "provision.dsc.yaml" {
			return &fetch.Error{Locator: locator, Kind: fetch.KindHTTPStatus, Status: 404}
		}
		return os.WriteFile(destination, []byte("artifact"), 0o644)
	}
	p, err := New(m, opts)
	require.NoError(t, err)

	report := p.Run(context.Background())

	assert.False(t, report.Fatal)
	assert.NotContains(t, order, "apply:/resolved/winget")
	require.Len(t, report.Warnings(), 1)
	assert.Equal(t, StageConfigApply, report.Warnings()[0].Stage)
}

func TestRun_SkipConfigure(t *testing.T) {
	var order []string
	m := testManifest(t, "https://example.com", filepath.Join(t.TempDir(), "ws"))
	opts := recordingOptions(&testSystem{}, &order)
	opts.SkipConfigure = true
	p, err := New(m, opts)
	require.NoError(t, err)

	report := p.Run(context.Background())

	assert.False(t, report.Fatal)
	assert.NotContains(t, order, "fetch:provision.dsc.yaml")
	assert.NotContains(t, order, "apply:/resolved/winget")
	assert.Empty(t, report.Warnings())
}

func TestRun_CleanupPostFailureWarning(t *testing.T) {
	sys := &testSystem{failOnCall: 2} // first call is cleanup-pre
	var order []string
	m := testManifest(t, "https://example.com", filepath.Join(t.TempDir(), "ws"))
	p, err := New(m, recordingOptions(sys, &order))
	require.NoError(t, err)

	report := p.Run(context.Background())

	assert.False(t, report.Fatal, "cleanup failure never alters the run classification")
	last := report.Results[len(report.Results)-1]
	assert.Equal(t, StageCleanupPost, last.Stage)
	assert.Error(t, last.Err)
	assert.True(t, last.Warning)
}

func TestRun_CleanupPreFailureFatal(t *testing.T) {
	sys := &testSystem{failOnCall: 1}
	var order []string
	m := testManifest(t, "https://example.com", filepath.Join(t.TempDir(), "ws"))
	p, err := New(m, recordingOptions(sys, &order))
	require.NoError(t, err)

	report := p.Run(context.Background())

	assert.True(t, report.Fatal)
	assert.Empty(t, order, "no stage runs without a working area")
	assert.Equal(t, StageCleanupPost, report.Results[len(report.Results)-1].Stage)
}

func TestRun_CanceledAfterBootstrap(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var order []string
	m := testManifest(t, "https://example.com", filepath.Join(t.TempDir(), "ws"))
	opts := recordingOptions(&testSystem{}, &order)
	installs := 0
	opts.Install = func(_ context.Context, packagePath string) error {
		installs++
		if installs == 3 {
			cancel()
		}
		return nil
	}
	p, err := New(m, opts)
	require.NoError(t, err)

	report := p.Run(ctx)

	assert.False(t, report.Fatal, "cancellation after bootstrap is not a bootstrap failure")
	assert.Equal(t, 0, report.ExitCode())
	assert.NotContains(t, order, "restore")
	require.Len(t, report.Warnings(), 1)
	assert.Equal(t, StageServiceRestore, report.Warnings()[0].Stage)
	assert.NoDirExists(t, p.WorkArea())
}

func TestRun_CanceledBeforeBootstrapFatal(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	var order []string
	m := testManifest(t, "https://example.com", filepath.Join(t.TempDir(), "ws"))
	p, err := New(m, recordingOptions(&testSystem{}, &order))
	require.NoError(t, err)

	report := p.Run(ctx)

	assert.True(t, report.Fatal, "the package manager was never provisioned")
	assert.NoDirExists(t, p.WorkArea())
}

func TestRun_Idempotence(t *testing.T) {
	// Two consecutive runs on the same target state classify identically.
	workRoot := filepath.Join(t.TempDir(), "ws")
	for run := 0; run < 2; run++ {
		var order []string
		m := testManifest(t, "https://example.com", workRoot)
		opts := recordingOptions(&testSystem{}, &order)
		if run == 1 {
			opts.Install = func(_ context.Context, packagePath string) error {
				return &pkgmgr.InstallError{Package: packagePath, Kind: pkgmgr.InstallAlreadyPresent}
			}
		}
		p, err := New(m, opts)
		require.NoError(t, err)

		report := p.Run(context.Background())
		assert.False(t, report.Fatal, "run %d", run)
		assert.Equal(t, 0, report.ExitCode(), "run %d", run)
		assert.NoDirExists(t, p.WorkArea(), "run %d", run)
	}
}

func TestRun_EndToEndHTTP(t *testing.T) {
	payloads := map[string]string{
		"/deps/framework.appx":       "framework-bytes",
		"/deps/ui.appx":              "ui-bytes",
		"/deps/installer.msixbundle": "installer-bytes",
		"/provision.dsc.yaml":        "properties: {}",
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		payload, ok := payloads[r.URL.Path]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte(payload))
	}))
	defer server.Close()

	m := testManifest(t, server.URL, filepath.Join(t.TempDir(), "ws"))
	var installedContent []string
	var appliedDoc string
	p, err := New(m, Options{
		System: &testSystem{},
		Install: func(_ context.Context, packagePath string) error {
			data, readErr := os.ReadFile(packagePath)
			require.NoError(t, readErr)
			installedContent = append(installedContent, string(data))
			return nil
		},
		Restore: func(_ context.Context) error { return nil },
		Resolve: func() (string, bool) { return "/resolved/winget", true },
		Apply: func(_ context.Context, executable string, configDocument string) error {
			data, readErr := os.ReadFile(configDocument)
			require.NoError(t, readErr)
			appliedDoc = string(data)
			return nil
		},
	})
	require.NoError(t, err)

	report := p.Run(context.Background())

	assert.False(t, report.Fatal)
	assert.Equal(t, 0, report.ExitCode())
	assert.Equal(t, []string{"framework-bytes", "ui-bytes", "installer-bytes"}, installedContent)
	assert.Equal(t, "properties: {}", appliedDoc)
	assert.NoDirExists(t, p.WorkArea())
}

func TestRun_EndToEndUnreachableInstaller(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/deps/installer.msixbundle" {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte("bytes"))
	}))
	defer server.Close()

	m := testManifest(t, server.URL, filepath.Join(t.TempDir(), "ws"))
	installCalled := false
	p, err := New(m, Options{
		System:  &testSystem{},
		Install: func(_ context.Context, packagePath string) error { installCalled = true; return nil },
		Restore: func(_ context.Context) error { return nil },
		Resolve: func() (string, bool) { return "", false },
		Apply:   func(_ context.Context, executable string, configDocument string) error { return nil },
	})
	require.NoError(t, err)

	report := p.Run(context.Background())

	assert.True(t, report.Fatal)
	assert.Equal(t, 1, report.ExitCode())
	assert.False(t, installCalled)
	assert.NoDirExists(t, p.WorkArea())

	fatal, ok := report.FatalResult()
	require.True(t, ok)
	var fetchErr *fetch.Error
	require.ErrorAs(t, fatal.Err, &fetchErr)
	assert.Equal(t, fetch.KindHTTPStatus, fetchErr.Kind)
}

func TestReport_FatalResult_NoneWhenHealthy(t *testing.T) {
	var report Report
	report.add(StageInit, nil, false)
	_, ok := report.FatalResult()
	assert.False(t, ok)
}
