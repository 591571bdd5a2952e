package server

import (
	"net/http"

	"github.com/cozy-creator/classify-server/internal/api"
	"github.com/cozy-creator/classify-server/internal/api/middleware"
	"github.com/cozy-creator/classify-server/internal/app"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func (s *Server) SetupRoutes(app *app.App) error {
	cfg := app.Config()

	s.ginEngine.Use(withApp(app))

	if cfg.Rate != "" {
		limit, err := middleware.NewRateLimiter(cfg.Rate)
		if err != nil {
			return err
		}
		s.ginEngine.Use(limit)
		app.Logger.Info("rate limiting enabled", zap.String("rate", cfg.Rate))
	}

	s.ginEngine.GET("/", api.Root)
	s.ginEngine.GET("/health", api.Health)
	s.ginEngine.GET("/model-info", api.ModelInfo)
	s.ginEngine.GET("/api-docs", api.APIDocs)

	// Not an API, just a simple file server endpoint
	s.ginEngine.GET("/file/*filepath", api.GetFile)

	protected := s.ginEngine.Group("/")
	if cfg.EnableAuth {
		protected.Use(middleware.AuthenticationMiddleware)
	}

	protected.POST("/predict", api.Predict)
	protected.POST("/predict-batch", api.PredictBatch)
	protected.GET("/predictions", api.ListPredictions)

	s.ginEngine.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, api.ErrorResponse{Detail: "Not Found"})
	})

	return nil
}

// withApp makes the app available to every handler under "app".
func withApp(app *app.App) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		ctx.Set("app", app)
		ctx.Next()
	}
}
