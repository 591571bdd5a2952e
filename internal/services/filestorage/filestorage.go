package filestorage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/cozy-creator/classify-server/internal/config"
)

type FileKind int

const (
	FileKindBytes FileKind = iota
	FileKindStream
)

var ErrUnknownFileKind = errors.New("unknown file kind")

// FileInfo is one object to store. Content is a []byte for FileKindBytes and
// an io.Reader for FileKindStream.
type FileInfo struct {
	Name      string
	Extension string
	Subfolder string
	Content   any
	Kind      FileKind
	IsTemp    bool
}

type FileStorage interface {
	Upload(ctx context.Context, file FileInfo) (string, error)
	UploadMultiple(ctx context.Context, files []FileInfo) ([]string, error)
	GetFile(ctx context.Context, filename string) (*FileInfo, error)
	ResolveFile(filename string, subfolder string, isTemp bool) (string, error)
}

func NewFileInfo(name string, extension string, content []byte, isTemp bool) FileInfo {
	return FileInfo{
		Name:      name,
		Extension: extension,
		Content:   content,
		Kind:      FileKindBytes,
		IsTemp:    isTemp,
	}
}

func NewStreamFileInfo(name string, extension string, content io.Reader, isTemp bool) FileInfo {
	return FileInfo{
		Name:      name,
		Extension: extension,
		Content:   content,
		Kind:      FileKindStream,
		IsTemp:    isTemp,
	}
}

func (f FileInfo) Filename() string {
	return f.Name + f.Extension
}

func (f FileInfo) Bytes() ([]byte, error) {
	switch content := f.Content.(type) {
	case []byte:
		return content, nil
	case io.Reader:
		return io.ReadAll(content)
	}

	return nil, ErrUnknownFileKind
}

func NewFileStorage(ctx context.Context, cfg *config.Config) (FileStorage, error) {
	switch strings.ToLower(cfg.FilesystemType) {
	case config.FilesystemLocal:
		return NewLocalFileStorage(cfg)
	case config.FilesystemS3:
		return NewS3FileStorage(ctx, cfg)
	}

	return nil, fmt.Errorf("invalid filesystem type %s", cfg.FilesystemType)
}

func uploadAll(ctx context.Context, storage FileStorage, files []FileInfo) ([]string, error) {
	uploaded := make([]string, 0, len(files))
	for _, file := range files {
		destination, err := storage.Upload(ctx, file)
		if err != nil {
			return nil, err
		}

		uploaded = append(uploaded, destination)
	}

	return uploaded, nil
}
