package modelfetch

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestParseSource(t *testing.T) {
	tests := []struct {
		in        string
		wantType  string
		wantLoc   string
		wantSub   string
		wantError bool
	}{
		{in: "hf:owner/repo", wantType: SourceTypeHuggingface, wantLoc: "owner/repo"},
		{in: "hf:owner/repo/onnx", wantType: SourceTypeHuggingface, wantLoc: "owner/repo", wantSub: "onnx"},
		{in: "hf:owner", wantError: true},
		{in: "https://example.com/models/batik.onnx", wantType: SourceTypeDirect, wantLoc: "https://example.com/models/batik.onnx"},
		{in: "file:/tmp/m.onnx", wantType: SourceTypeFile, wantLoc: "/tmp/m.onnx"},
		{in: "./m.onnx", wantType: SourceTypeFile, wantLoc: "./m.onnx"},
		{in: "  ", wantError: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			source, err := ParseSource(tt.in)
			if tt.wantError {
				assert.Error(t, err)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.wantType, source.Type)
			assert.Equal(t, tt.wantLoc, source.Location)
			assert.Equal(t, tt.wantSub, source.SubFolder)
		})
	}
}

func TestSourceFilename(t *testing.T) {
	s := &Source{Type: SourceTypeDirect, Location: "https://example.com/a/batik.onnx?download=1"}
	assert.Equal(t, "batik.onnx", s.Filename())

	s = &Source{Type: SourceTypeDirect, Location: "https://example.com/"}
	assert.Equal(t, "model.onnx", s.Filename())
}

func TestRepoFolderName(t *testing.T) {
	assert.Equal(t, "models--owner--repo", repoFolderName("owner/repo"))
}

func newTestFetcher() *Fetcher {
	f := NewFetcher(zap.NewNop()).WithOutput(io.Discard)
	f.MaxElapsedTime = 5 * time.Second
	return f
}

func TestPullDirect(t *testing.T) {
	payload := strings.Repeat("w", 4096)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", strconv.Itoa(len(payload)))
		_, _ = w.Write([]byte(payload))
	}))
	defer server.Close()

	dir := t.TempDir()
	source, err := ParseSource(server.URL + "/batik.onnx")
	require.NoError(t, err)

	path, err := newTestFetcher().Pull(context.Background(), source, dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "batik.onnx"), path)

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, payload, string(content))
	assert.NoFileExists(t, path+".tmp")
}

func TestPullDirectResumes(t *testing.T) {
	payload := "0123456789"
	var ranged atomic.Bool
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Range") == "bytes=4-" {
			ranged.Store(true)
			w.Header().Set("Content-Length", strconv.Itoa(len(payload)-4))
			w.WriteHeader(http.StatusPartialContent)
			_, _ = w.Write([]byte(payload[4:]))
			return
		}
		_, _ = w.Write([]byte(payload))
	}))
	defer server.Close()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "m.onnx.tmp"), []byte(payload[:4]), 0644))

	source := &Source{Type: SourceTypeDirect, Location: server.URL + "/m.onnx"}
	path, err := newTestFetcher().Pull(context.Background(), source, dir)
	require.NoError(t, err)
	assert.True(t, ranged.Load())

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, payload, string(content))
}

func TestPullDirectNotFoundIsPermanent(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	source := &Source{Type: SourceTypeDirect, Location: server.URL + "/missing.onnx"}
	_, err := newTestFetcher().Pull(context.Background(), source, t.TempDir())
	assert.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestPullLocalFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "m.onnx")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0644))

	got, err := newTestFetcher().Pull(context.Background(), &Source{Type: SourceTypeFile, Location: path}, "")
	require.NoError(t, err)
	assert.Equal(t, path, got)

	empty := filepath.Join(t.TempDir(), "empty.onnx")
	require.NoError(t, os.WriteFile(empty, nil, 0644))
	_, err = newTestFetcher().Pull(context.Background(), &Source{Type: SourceTypeFile, Location: empty}, "")
	assert.Error(t, err)
}

func TestFindArtifact(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "onnx"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "README.md"), []byte("x"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "onnx", "model.onnx"), []byte("x"), 0644))

	got, err := findArtifact(dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "onnx", "model.onnx"), got)
}

func TestSnapshotPath(t *testing.T) {
	cache := t.TempDir()
	refs := filepath.Join(cache, "models--owner--repo", "refs")
	require.NoError(t, os.MkdirAll(refs, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(refs, "main"), []byte("abc123\n"), 0644))

	got, err := snapshotPath(cache, "owner/repo")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(cache, "models--owner--repo", "snapshots", "abc123"), got)
}
