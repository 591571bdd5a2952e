package api

import (
	"net/http"

	"github.com/cozy-creator/classify-server/internal/app"
	"github.com/cozy-creator/classify-server/internal/classifier"

	"github.com/gin-gonic/gin"
)

const Framework = "ONNX Runtime"

type ModelInfoResponse struct {
	ModelType        string               `json:"model_type"`
	Framework        string               `json:"framework"`
	InputShape       []int64              `json:"input_shape"`
	OutputShape      []int64              `json:"output_shape"`
	TotalParameters  int64                `json:"total_parameters"`
	ImageSize        []int                `json:"image_size"`
	Layout           string               `json:"layout"`
	LoadStrategy     string               `json:"load_strategy"`
	LoadAttempts     []classifier.Attempt `json:"load_attempts"`
	TotalClasses     int                  `json:"total_classes"`
	AvailableClasses []string             `json:"available_classes"`
}

func ModelInfo(c *gin.Context) {
	app := c.MustGet("app").(*app.App)

	model := app.Classifier()
	if model == nil {
		abortWithError(c, classifier.ErrModelNotLoaded)
		return
	}

	info := model.Info()
	geometry := model.Geometry()

	c.JSON(http.StatusOK, ModelInfoResponse{
		ModelType:        app.Config().ModelType,
		Framework:        Framework,
		InputShape:       info.InputShape,
		OutputShape:      info.OutputShape,
		TotalParameters:  info.Parameters,
		ImageSize:        geometry.Size(),
		Layout:           geometry.Layout,
		LoadStrategy:     model.Strategy(),
		LoadAttempts:     app.LoadAttempts(),
		TotalClasses:     app.Labels().Len(),
		AvailableClasses: app.Labels().Names(),
	})
}
