package filestorage

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/cozy-creator/classify-server/internal/config"
)

type LocalFileStorage struct {
	assetsDir string
	tempDir   string
	baseURL   string
}

func NewLocalFileStorage(cfg *config.Config) (*LocalFileStorage, error) {
	if !strings.EqualFold(cfg.FilesystemType, config.FilesystemLocal) {
		return nil, fmt.Errorf("filesystem is not local")
	}

	return &LocalFileStorage{
		assetsDir: cfg.AssetsDir,
		tempDir:   cfg.TempDir,
		baseURL:   fmt.Sprintf("http://%s:%d/file", cfg.Host, cfg.Port),
	}, nil
}

func (u *LocalFileStorage) Upload(ctx context.Context, file FileInfo) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	root := u.assetsDir
	if file.IsTemp {
		root = u.tempDir
	}
	filedest := filepath.Join(root, file.Subfolder, file.Filename())

	if err := os.MkdirAll(filepath.Dir(filedest), os.ModePerm); err != nil {
		return "", err
	}

	switch file.Kind {
	case FileKindBytes:
		content, ok := file.Content.([]byte)
		if !ok {
			return "", ErrUnknownFileKind
		}
		if err := os.WriteFile(filedest, content, os.FileMode(0644)); err != nil {
			return "", err
		}
	case FileKindStream:
		content, ok := file.Content.(io.Reader)
		if !ok {
			return "", ErrUnknownFileKind
		}
		if err := writeStreamFile(filedest, content, os.FileMode(0644)); err != nil {
			return "", err
		}
	default:
		return "", ErrUnknownFileKind
	}

	return u.baseURL + "/" + urlPath(file.Subfolder, file.Filename()), nil
}

func (u *LocalFileStorage) UploadMultiple(ctx context.Context, files []FileInfo) ([]string, error) {
	return uploadAll(ctx, u, files)
}

func (u *LocalFileStorage) GetFile(ctx context.Context, filename string) (*FileInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	content, err := os.ReadFile(filepath.Join(u.assetsDir, filepath.Clean("/"+filename)))
	if err != nil {
		return nil, err
	}

	ext := filepath.Ext(filename)
	return &FileInfo{
		Name:      strings.TrimSuffix(filename, ext),
		Extension: ext,
		Content:   content,
		Kind:      FileKindBytes,
	}, nil
}

func (u *LocalFileStorage) ResolveFile(filename string, subfolder string, isTemp bool) (string, error) {
	root := u.assetsDir
	if isTemp {
		root = u.tempDir
	}
	resolved := filepath.Join(root, subfolder, filename)

	if _, err := os.Stat(resolved); err != nil {
		return "", err
	}

	return resolved, nil
}

func urlPath(subfolder, filename string) string {
	if subfolder == "" {
		return url.PathEscape(filename)
	}

	return strings.Trim(subfolder, "/") + "/" + url.PathEscape(filename)
}

func writeStreamFile(filedest string, content io.Reader, mode os.FileMode) error {
	file, err := os.OpenFile(filedest, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	if _, err := io.Copy(file, content); err != nil {
		return fmt.Errorf("failed to save content to file: %w", err)
	}

	return nil
}
