package api

import (
	"net/http"

	"github.com/cozy-creator/classify-server/internal/app"

	"github.com/gin-gonic/gin"
)

const (
	ServiceName = "Batik Classification API"
	Version     = "1.0.0"
)

type RootResponse struct {
	Message     string `json:"message"`
	Version     string `json:"version"`
	Status      string `json:"status"`
	ModelLoaded bool   `json:"model_loaded"`
}

type HealthResponse struct {
	Status       string `json:"status"`
	ModelLoaded  bool   `json:"model_loaded"`
	TotalClasses int    `json:"total_classes"`
}

func Root(c *gin.Context) {
	app := c.MustGet("app").(*app.App)

	c.JSON(http.StatusOK, RootResponse{
		Message:     ServiceName,
		Version:     Version,
		Status:      "running",
		ModelLoaded: app.ModelLoaded(),
	})
}

// Health always answers 200; a missing model shows up as "degraded".
func Health(c *gin.Context) {
	app := c.MustGet("app").(*app.App)

	status := "healthy"
	if !app.ModelLoaded() {
		status = "degraded"
	}

	c.JSON(http.StatusOK, HealthResponse{
		Status:       status,
		ModelLoaded:  app.ModelLoaded(),
		TotalClasses: app.Labels().Len(),
	})
}
