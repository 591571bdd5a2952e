package pathutil

import (
	"os"
	"path/filepath"
	"strings"
)

// ExpandPath replaces a leading "~" with the user's home directory.
func ExpandPath(path string) (string, error) {
	if strings.HasPrefix(path, "~") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}

		path = filepath.Join(homeDir, path[1:])
	}

	return path, nil
}

// ResolvePath expands path and, when it is relative and does not exist in the
// working directory, looks for it under baseDir instead.
func ResolvePath(path, baseDir string) string {
	expanded, err := ExpandPath(path)
	if err != nil || expanded == "" {
		return path
	}

	if filepath.IsAbs(expanded) || baseDir == "" {
		return expanded
	}

	if _, err := os.Stat(expanded); err == nil {
		return expanded
	}

	candidate := filepath.Join(baseDir, expanded)
	if _, err := os.Stat(candidate); err == nil {
		return candidate
	}

	return expanded
}

// SiblingWithExt returns path with its extension replaced by ext.
func SiblingWithExt(path, ext string) string {
	return strings.TrimSuffix(path, filepath.Ext(path)) + ext
}
