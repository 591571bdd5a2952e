package modelfetch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/cozy-creator/classify-server/internal/services/filestorage"
	"github.com/cozy-creator/classify-server/internal/utils/pathutil"
)

const ModelsFolder = "models"

// Push uploads a model artifact, and its metadata sidecar when present, to
// storage under the models folder. It returns the artifact URL.
func Push(ctx context.Context, storage filestorage.FileStorage, modelPath string) (string, error) {
	url, err := pushFile(ctx, storage, modelPath)
	if err != nil {
		return "", err
	}

	sidecar := pathutil.SiblingWithExt(modelPath, ".json")
	if _, err := os.Stat(sidecar); err == nil {
		if _, err := pushFile(ctx, storage, sidecar); err != nil {
			return "", fmt.Errorf("failed to push metadata: %w", err)
		}
	}

	return url, nil
}

func pushFile(ctx context.Context, storage filestorage.FileStorage, path string) (string, error) {
	if err := verifyFile(path); err != nil {
		return "", err
	}

	file, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer file.Close()

	base := filepath.Base(path)
	ext := filepath.Ext(base)

	info := filestorage.NewStreamFileInfo(strings.TrimSuffix(base, ext), ext, file, false)
	info.Subfolder = ModelsFolder

	url, err := storage.Upload(ctx, info)
	if err != nil {
		return "", fmt.Errorf("failed to upload %s: %w", base, err)
	}

	return url, nil
}
