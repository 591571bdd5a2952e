package api

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/cozy-creator/classify-server/internal/app"
	"github.com/cozy-creator/classify-server/internal/classifier"
	"github.com/cozy-creator/classify-server/internal/ranking"
	"github.com/cozy-creator/classify-server/internal/services/history"
	"github.com/cozy-creator/classify-server/internal/utils/imageutil"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type PredictResponse struct {
	Filename       string               `json:"filename"`
	FileSize       int                  `json:"file_size"`
	ContentType    string               `json:"content_type"`
	Predictions    []ranking.Prediction `json:"predictions"`
	TopPrediction  *ranking.Prediction  `json:"top_prediction"`
	ProcessingTime string               `json:"processing_time"`
}

// BatchItem is either a prediction or, when Error is set, a failed file.
type BatchItem struct {
	Filename      string               `json:"filename"`
	FileSize      int                  `json:"file_size,omitempty"`
	ContentType   string               `json:"content_type,omitempty"`
	Predictions   []ranking.Prediction `json:"predictions,omitempty"`
	TopPrediction *ranking.Prediction  `json:"top_prediction,omitempty"`
	Error         string               `json:"error,omitempty"`
}

type BatchResponse struct {
	TotalFiles     int         `json:"total_files"`
	ProcessedFiles int         `json:"processed_files"`
	ErroredFiles   int         `json:"errored_files"`
	Results        []BatchItem `json:"results"`
}

func Predict(c *gin.Context) {
	app := c.MustGet("app").(*app.App)

	model := app.Classifier()
	if model == nil {
		abortWithError(c, classifier.ErrModelNotLoaded)
		return
	}

	file, err := c.FormFile("file")
	if err != nil {
		abortWithError(c, ErrFileRequired)
		return
	}

	start := time.Now()
	content, contentType, err := readImage(file)
	if err != nil {
		abortWithError(c, err)
		return
	}

	predictions, err := model.Classify(c.Request.Context(), content, app.Config().TopK)
	if err != nil {
		app.Logger.Warn("prediction failed", zap.String("filename", file.Filename), zap.Error(err))
		abortWithError(c, err)
		return
	}

	top := topOf(predictions)
	record(app, file.Filename, contentType, content, top, false)

	c.JSON(http.StatusOK, PredictResponse{
		Filename:       file.Filename,
		FileSize:       len(content),
		ContentType:    contentType,
		Predictions:    predictions,
		TopPrediction:  top,
		ProcessingTime: fmt.Sprintf("%.3fs", time.Since(start).Seconds()),
	})
}

// PredictBatch classifies files one after another. A failing file becomes
// an error entry and never aborts the rest.
func PredictBatch(c *gin.Context) {
	app := c.MustGet("app").(*app.App)

	model := app.Classifier()
	if model == nil {
		abortWithError(c, classifier.ErrModelNotLoaded)
		return
	}

	form, err := c.MultipartForm()
	if err != nil {
		abortWithError(c, ErrFileRequired)
		return
	}

	files := form.File["files"]
	if len(files) == 0 {
		abortWithError(c, ErrFileRequired)
		return
	}

	maxBatch := app.Config().MaxBatchSize
	if len(files) > maxBatch {
		abortWithStatus(c, http.StatusBadRequest, fmt.Errorf("maximum %d files allowed per batch", maxBatch))
		return
	}

	response := BatchResponse{
		TotalFiles: len(files),
		Results:    make([]BatchItem, 0, len(files)),
	}

	for _, file := range files {
		item := predictOne(c, app, model, file)
		if item.Error != "" {
			response.ErroredFiles++
		} else {
			response.ProcessedFiles++
		}
		response.Results = append(response.Results, item)
	}

	c.JSON(http.StatusOK, response)
}

func predictOne(c *gin.Context, app *app.App, model *classifier.Classifier, file *multipart.FileHeader) BatchItem {
	content, contentType, err := readImage(file)
	if err != nil {
		return BatchItem{Filename: file.Filename, Error: Detail(err)}
	}

	predictions, err := model.Classify(c.Request.Context(), content, app.Config().BatchTopK)
	if err != nil {
		app.Logger.Warn("batch prediction failed", zap.String("filename", file.Filename), zap.Error(err))
		return BatchItem{Filename: file.Filename, Error: Detail(err)}
	}

	top := topOf(predictions)
	record(app, file.Filename, contentType, content, top, true)

	return BatchItem{
		Filename:      file.Filename,
		FileSize:      len(content),
		ContentType:   contentType,
		Predictions:   predictions,
		TopPrediction: top,
	}
}

// readImage checks the declared MIME type before reading any content.
func readImage(file *multipart.FileHeader) ([]byte, string, error) {
	contentType := file.Header.Get("Content-Type")
	if !imageutil.IsImageContentType(contentType) {
		return nil, contentType, imageutil.ErrNotImage
	}

	f, err := file.Open()
	if err != nil {
		return nil, contentType, fmt.Errorf("%w: %w", ErrFileReadFailed, err)
	}
	defer f.Close()

	content, err := io.ReadAll(f)
	if err != nil {
		return nil, contentType, fmt.Errorf("%w: %w", ErrFileReadFailed, err)
	}

	return content, contentType, nil
}

func topOf(predictions []ranking.Prediction) *ranking.Prediction {
	if len(predictions) == 0 {
		return nil
	}

	top := predictions[0]
	return &top
}

func record(app *app.App, filename, contentType string, content []byte, top *ranking.Prediction, batch bool) {
	if top == nil {
		return
	}

	app.Recorder().Record(history.Entry{
		Filename:    filename,
		ContentType: contentType,
		Content:     content,
		Top:         *top,
		Batch:       batch,
	})
}
