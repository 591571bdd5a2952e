package modelfetch

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/cozy-creator/hf-hub/hub"
	"github.com/vbauerster/mpb/v7"
	"github.com/vbauerster/mpb/v7/decor"
	"go.uber.org/zap"
)

// Fetcher downloads model artifacts into a local directory.
type Fetcher struct {
	logger     *zap.Logger
	hubClient  *hub.Client
	httpClient *http.Client
	output     io.Writer

	MaxElapsedTime time.Duration
}

func NewFetcher(logger *zap.Logger) *Fetcher {
	return &Fetcher{
		logger: logger,
		httpClient: &http.Client{
			Transport: &http.Transport{
				Proxy: http.ProxyFromEnvironment,
				DialContext: (&net.Dialer{
					Timeout: 60 * time.Second,
				}).DialContext,
				TLSHandshakeTimeout:   60 * time.Second,
				ResponseHeaderTimeout: 60 * time.Second,
				IdleConnTimeout:       60 * time.Second,
			},
		},
		output:         os.Stderr,
		MaxElapsedTime: 5 * time.Minute,
	}
}

// WithOutput redirects the progress bar.
func (f *Fetcher) WithOutput(w io.Writer) *Fetcher {
	f.output = w
	return f
}

// Pull fetches source into destDir and returns the local artifact path.
func (f *Fetcher) Pull(ctx context.Context, source *Source, destDir string) (string, error) {
	switch source.Type {
	case SourceTypeDirect:
		if err := os.MkdirAll(destDir, 0755); err != nil {
			return "", fmt.Errorf("failed to create models directory: %w", err)
		}

		destPath := filepath.Join(destDir, source.Filename())
		f.logger.Info("downloading model", zap.String("url", source.Location), zap.String("dest", destPath))
		if err := f.downloadWithProgress(ctx, source.Location, destPath); err != nil {
			return "", err
		}
		return destPath, nil
	case SourceTypeHuggingface:
		return f.downloadHuggingFace(source)
	case SourceTypeFile:
		if err := verifyFile(source.Location); err != nil {
			return "", fmt.Errorf("failed to verify local file: %w", err)
		}
		return source.Location, nil
	}

	return "", fmt.Errorf("unsupported source type: %s", source.Type)
}

func (f *Fetcher) downloadHuggingFace(source *Source) (string, error) {
	f.logger.Info("downloading from huggingface", zap.String("repo_id", source.Location), zap.String("subfolder", source.SubFolder))

	if f.hubClient == nil {
		f.hubClient = hub.DefaultClient()
	}

	params := hub.DownloadParams{
		Repo:      &hub.Repo{Id: source.Location, Type: hub.ModelRepoType, Revision: hub.DefaultRevision},
		SubFolder: source.SubFolder,
	}
	if _, err := f.hubClient.Download(&params); err != nil {
		return "", fmt.Errorf("failed to download model from huggingface: %w", err)
	}

	snapshot, err := snapshotPath(f.hubClient.CacheDir, source.Location)
	if err != nil {
		return "", err
	}

	return findArtifact(filepath.Join(snapshot, source.SubFolder))
}

// snapshotPath resolves the snapshot that refs/main points at.
func snapshotPath(cacheDir, repoID string) (string, error) {
	storageFolder := filepath.Join(cacheDir, repoFolderName(repoID))

	commitHash, err := os.ReadFile(filepath.Join(storageFolder, "refs", "main"))
	if err != nil {
		return "", fmt.Errorf("failed to resolve downloaded snapshot: %w", err)
	}

	return filepath.Join(storageFolder, "snapshots", strings.TrimSpace(string(commitHash))), nil
}

// findArtifact returns the first .onnx file under dir, or dir itself.
func findArtifact(dir string) (string, error) {
	var found string
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.EqualFold(filepath.Ext(path), ".onnx") {
			found = path
			return filepath.SkipAll
		}
		return nil
	})
	if err != nil {
		return "", err
	}

	if found == "" {
		return dir, nil
	}
	return found, nil
}

func (f *Fetcher) downloadWithProgress(ctx context.Context, url, destPath string) error {
	tmpPath := destPath + ".tmp"

	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = f.MaxElapsedTime
	b.InitialInterval = 1 * time.Second
	b.MaxInterval = 30 * time.Second

	return backoff.Retry(func() error {
		err := f.downloadWithResume(ctx, url, destPath, tmpPath)
		if err != nil {
			f.logger.Warn("download attempt failed", zap.String("url", url), zap.Error(err))
		}
		return err
	}, backoff.WithContext(b, ctx))
}

func (f *Fetcher) downloadWithResume(ctx context.Context, url, destPath, tmpPath string) error {
	var initialSize int64
	if info, err := os.Stat(tmpPath); err == nil {
		initialSize = info.Size()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return backoff.Permanent(fmt.Errorf("failed to create request: %w", err))
	}
	if initialSize > 0 {
		req.Header.Set("Range", fmt.Sprintf("bytes=%d-", initialSize))
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	var totalSize int64
	switch {
	case initialSize > 0 && resp.StatusCode == http.StatusPartialContent:
		totalSize = initialSize + resp.ContentLength
	case resp.StatusCode == http.StatusOK:
		if initialSize > 0 {
			f.logger.Warn("server doesn't support resume, starting download from beginning")
			initialSize = 0
		}
		totalSize = resp.ContentLength
	case resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests:
		return backoff.Permanent(fmt.Errorf("download failed with status %d", resp.StatusCode))
	default:
		return fmt.Errorf("download failed with status %d", resp.StatusCode)
	}

	flag := os.O_CREATE | os.O_WRONLY | os.O_TRUNC
	if initialSize > 0 {
		flag = os.O_CREATE | os.O_WRONLY | os.O_APPEND
	}

	file, err := os.OpenFile(tmpPath, flag, 0644)
	if err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	progress := mpb.NewWithContext(ctx,
		mpb.WithOutput(f.output),
		mpb.WithWidth(60),
		mpb.WithRefreshRate(180*time.Millisecond),
	)

	bar := progress.AddBar(totalSize,
		mpb.PrependDecorators(
			decor.Name(filepath.Base(destPath), decor.WC{W: 40, C: decor.DidentRight}),
			decor.CountersKibiByte("% .2f / % .2f"),
		),
		mpb.AppendDecorators(
			decor.EwmaETA(decor.ET_STYLE_GO, 90),
			decor.Name(" ] "),
			decor.EwmaSpeed(decor.UnitKiB, "% .2f", 60),
		),
	)
	if initialSize > 0 {
		bar.SetCurrent(initialSize)
	}

	reader := bar.ProxyReader(resp.Body)
	written, err := io.Copy(file, reader)
	reader.Close()
	if err != nil {
		bar.Abort(false)
		progress.Wait()
		return fmt.Errorf("read failed: %w", err)
	}

	downloaded := initialSize + written
	if totalSize > 0 && downloaded != totalSize {
		bar.Abort(false)
		progress.Wait()
		return fmt.Errorf("download size mismatch: expected %d, got %d", totalSize, downloaded)
	}
	if totalSize <= 0 {
		bar.SetTotal(-1, true)
	}
	progress.Wait()

	if err := file.Close(); err != nil {
		return fmt.Errorf("failed to close file: %w", err)
	}

	if err := verifyFile(tmpPath); err != nil {
		return backoff.Permanent(fmt.Errorf("failed to verify file: %w", err))
	}

	if err := os.Rename(tmpPath, destPath); err != nil {
		return backoff.Permanent(fmt.Errorf("failed to move file: %w", err))
	}

	return nil
}

func verifyFile(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory", path)
	}
	if info.Size() == 0 {
		return fmt.Errorf("%s is empty", path)
	}

	return nil
}
