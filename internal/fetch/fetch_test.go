package fetch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetch_WritesDestination(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "pkgboot", r.Header.Get("User-Agent"))
		_, _ = w.Write([]byte("artifact-bytes"))
	}))
	defer server.Close()

	dest := filepath.Join(t.TempDir(), "artifact.bin")
	err := Fetch(context.Background(), server.URL, dest)
	require.NoError(t, err)

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "artifact-bytes", string(data))
}

func TestFetch_OverwritesExisting(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("fresh"))
	}))
	defer server.Close()

	dest := filepath.Join(t.TempDir(), "artifact.bin")
	require.NoError(t, os.WriteFile(dest, []byte("stale content that is longer"), 0o644))

	require.NoError(t, Fetch(context.Background(), server.URL, dest))

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "fresh", string(data))
}

func TestFetch_HTTPStatusError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	dest := filepath.Join(t.TempDir(), "artifact.bin")
	err := Fetch(context.Background(), server.URL, dest)
	require.Error(t, err)

	var fetchErr *Error
	require.ErrorAs(t, err, &fetchErr)
	assert.Equal(t, KindHTTPStatus, fetchErr.Kind)
	assert.Equal(t, http.StatusNotFound, fetchErr.Status)
	assert.NoFileExists(t, dest)
}

func TestFetch_NetworkError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	err := Fetch(context.Background(), url, filepath.Join(t.TempDir(), "artifact.bin"))
	require.Error(t, err)

	var fetchErr *Error
	require.ErrorAs(t, err, &fetchErr)
	assert.Equal(t, KindNetwork, fetchErr.Kind)
	assert.Error(t, errors.Unwrap(fetchErr))
}

func TestFetch_WriteError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("payload"))
	}))
	defer server.Close()

	dest := filepath.Join(t.TempDir(), "missing-parent", "artifact.bin")
	err := Fetch(context.Background(), server.URL, dest)
	require.Error(t, err)

	var fetchErr *Error
	require.ErrorAs(t, err, &fetchErr)
	assert.Equal(t, KindWrite, fetchErr.Kind)
}

func TestFetch_CanceledContext(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("payload"))
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := Fetch(ctx, server.URL, filepath.Join(t.TempDir(), "artifact.bin"))
	require.Error(t, err)

	var fetchErr *Error
	require.ErrorAs(t, err, &fetchErr)
	assert.Equal(t, KindNetwork, fetchErr.Kind)
}

func TestFetch_InvalidLocator(t *testing.T) {
	err := Fetch(context.Background(), "http://example.com/\x00", filepath.Join(t.TempDir(), "a"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to create request")
}
