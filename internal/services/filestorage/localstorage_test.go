package filestorage

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/cozy-creator/classify-server/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStorage(t *testing.T) (*LocalFileStorage, string) {
	t.Helper()

	dir := t.TempDir()
	storage, err := NewLocalFileStorage(&config.Config{
		FilesystemType: config.FilesystemLocal,
		AssetsDir:      filepath.Join(dir, "assets"),
		TempDir:        filepath.Join(dir, "temp"),
		Host:           "localhost",
		Port:           8000,
	})
	require.NoError(t, err)

	return storage, dir
}

func TestLocalUploadBytes(t *testing.T) {
	storage, dir := newTestStorage(t)

	url, err := storage.Upload(context.Background(), NewFileInfo("abc", ".png", []byte("data"), false))
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8000/file/abc.png", url)

	content, err := os.ReadFile(filepath.Join(dir, "assets", "abc.png"))
	require.NoError(t, err)
	assert.Equal(t, "data", string(content))
}

func TestLocalUploadStreamIntoSubfolder(t *testing.T) {
	storage, _ := newTestStorage(t)

	file := NewStreamFileInfo("model", ".onnx", bytes.NewReader([]byte("weights")), false)
	file.Subfolder = "models"

	url, err := storage.Upload(context.Background(), file)
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8000/file/models/model.onnx", url)

	resolved, err := storage.ResolveFile("model.onnx", "models", false)
	require.NoError(t, err)
	assert.FileExists(t, resolved)

	got, err := storage.GetFile(context.Background(), "models/model.onnx")
	require.NoError(t, err)
	assert.Equal(t, "models/model", got.Name)
	assert.Equal(t, ".onnx", got.Extension)
	assert.Equal(t, []byte("weights"), got.Content)
}

func TestLocalUploadTemp(t *testing.T) {
	storage, dir := newTestStorage(t)

	_, err := storage.Upload(context.Background(), NewFileInfo("tmp", ".bin", []byte{1}, true))
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(dir, "temp", "tmp.bin"))
}

func TestLocalUploadRejectsMismatchedKind(t *testing.T) {
	storage, _ := newTestStorage(t)

	file := NewFileInfo("x", ".bin", nil, false)
	file.Kind = FileKindStream

	_, err := storage.Upload(context.Background(), file)
	assert.ErrorIs(t, err, ErrUnknownFileKind)
}

func TestLocalUploadMultiple(t *testing.T) {
	storage, _ := newTestStorage(t)

	urls, err := storage.UploadMultiple(context.Background(), []FileInfo{
		NewFileInfo("a", ".txt", []byte("a"), false),
		NewFileInfo("b", ".txt", []byte("b"), false),
	})
	require.NoError(t, err)
	assert.Len(t, urls, 2)
}

func TestNewFileStorageRejectsUnknown(t *testing.T) {
	_, err := NewFileStorage(context.Background(), &config.Config{FilesystemType: "ftp"})
	assert.Error(t, err)
}

func TestLocalGetFileMissing(t *testing.T) {
	storage, _ := newTestStorage(t)

	_, err := storage.GetFile(context.Background(), "nope.png")
	assert.True(t, os.IsNotExist(err))
}
