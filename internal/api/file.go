package api

import (
	"errors"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/cozy-creator/classify-server/internal/app"
	"github.com/cozy-creator/classify-server/internal/config"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gin-gonic/gin"
)

var errFileNotFound = errors.New("file not found")

// GetFile serves archived uploads from the configured storage.
func GetFile(c *gin.Context) {
	app := c.MustGet("app").(*app.App)

	storage := app.FileStorage()
	if storage == nil {
		abortWithStatus(c, http.StatusNotFound, errFileNotFound)
		return
	}

	filename := strings.TrimPrefix(filepath.ToSlash(filepath.Clean("/"+c.Param("filepath"))), "/")
	if filename == "" {
		abortWithStatus(c, http.StatusNotFound, errFileNotFound)
		return
	}

	resolved, err := storage.ResolveFile(filename, "", false)
	if err != nil {
		abortWithStatus(c, http.StatusNotFound, errFileNotFound)
		return
	}

	if app.Config().FilesystemType == config.FilesystemLocal {
		c.File(resolved)
		return
	}

	file, err := storage.GetFile(c.Request.Context(), resolved)
	if err != nil {
		abortWithStatus(c, http.StatusNotFound, errFileNotFound)
		return
	}

	content, err := file.Bytes()
	if err != nil {
		abortWithStatus(c, http.StatusInternalServerError, err)
		return
	}

	c.Data(http.StatusOK, mimetype.Detect(content).String(), content)
}
