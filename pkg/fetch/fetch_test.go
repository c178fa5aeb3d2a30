package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Stonedestroyer/hydrus/pkg/importer"
)

func TestDoHTTPBuffersBodyByDefault(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("hello"))
	}))
	defer srv.Close()

	c := New(1000, "test-agent")
	result, err := c.DoHTTP(context.Background(), http.MethodGet, srv.URL, importer.FetchOptions{})
	require.NoError(t, err)
	defer result.Body.Close()

	assert.Equal(t, http.StatusOK, result.StatusCode)
}

func TestDoHTTPStreamsToTempPath(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("streamed body"))
	}))
	defer srv.Close()

	dir := t.TempDir()
	dest := filepath.Join(dir, "out.bin")

	var gotProgress bool
	c := New(1000, "test-agent")
	result, err := c.DoHTTP(context.Background(), http.MethodGet, srv.URL, importer.FetchOptions{
		TempPath: dest,
		Progress: func(done, total int64) { gotProgress = true },
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, result.StatusCode)
	assert.True(t, gotProgress)

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "streamed body", string(data))
}

func TestGetTempPathCreatesAndCleansUp(t *testing.T) {
	c := &Client{TempDir: t.TempDir()}

	path, cleanup, err := c.GetTempPath()
	require.NoError(t, err)
	_, err = os.Stat(path)
	require.NoError(t, err)

	cleanup()
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}
