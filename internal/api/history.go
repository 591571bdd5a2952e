package api

import (
	"net/http"
	"strconv"

	"github.com/cozy-creator/classify-server/internal/app"
	"github.com/cozy-creator/classify-server/internal/db/models"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const defaultListLimit = 20

type PredictionListResponse struct {
	Count       int                 `json:"count"`
	Predictions []models.Prediction `json:"predictions"`
}

func ListPredictions(c *gin.Context) {
	app := c.MustGet("app").(*app.App)
	if !app.HistoryEnabled() {
		abortWithError(c, ErrHistoryDisabled)
		return
	}

	limit := defaultListLimit
	if raw := c.Query("limit"); raw != "" {
		value, err := strconv.Atoi(raw)
		if err != nil || value <= 0 {
			abortWithError(c, ErrInvalidListLimit)
			return
		}
		limit = value
	}

	predictions, err := app.PredictionRepository.ListRecent(c.Request.Context(), limit)
	if err != nil {
		app.Logger.Error("failed to list predictions", zap.Error(err))
		abortWithStatus(c, http.StatusInternalServerError, err)
		return
	}

	c.JSON(http.StatusOK, PredictionListResponse{
		Count:       len(predictions),
		Predictions: predictions,
	})
}
