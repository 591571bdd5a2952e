package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/cozy-creator/classify-server/internal/classifier"
	"github.com/cozy-creator/classify-server/internal/config"
	"github.com/cozy-creator/classify-server/internal/db"
	"github.com/cozy-creator/classify-server/internal/db/drivers"
	"github.com/cozy-creator/classify-server/internal/db/migrations"
	"github.com/cozy-creator/classify-server/internal/db/repository"
	"github.com/cozy-creator/classify-server/internal/labels"
	"github.com/cozy-creator/classify-server/internal/services/filestorage"
	"github.com/cozy-creator/classify-server/internal/services/history"
	"github.com/cozy-creator/classify-server/internal/utils/pathutil"
	"github.com/cozy-creator/classify-server/pkg/logger"

	"github.com/uptrace/bun"
	"go.uber.org/zap"
)

// App holds everything a request handler needs. It is assembled once by
// NewApp and read-only afterwards.
type App struct {
	driver     drivers.Driver
	db         *bun.DB
	config     *config.Config
	ctx        context.Context
	cancelFunc context.CancelFunc
	recorder   *history.Recorder
	storage    filestorage.FileStorage

	classifier   *classifier.Classifier
	labels       *labels.Labels
	loadAttempts []classifier.Attempt

	Logger *zap.Logger

	APIKeyRepository     repository.IAPIKeyRepository
	PredictionRepository repository.IPredictionRepository
}

// Option funcs used to initialize the App struct
type OptionFunc func(app *App) error

func WithLogger(logger *zap.Logger) OptionFunc {
	return func(app *App) error {
		app.Logger = logger
		return nil
	}
}

func WithLabels(labelSet *labels.Labels) OptionFunc {
	return func(app *App) error {
		app.labels = labelSet
		return nil
	}
}

// WithClassifier installs an already loaded classifier.
func WithClassifier(c *classifier.Classifier) OptionFunc {
	return func(app *App) error {
		app.classifier = c
		if c != nil && c.Labels() != nil {
			app.labels = c.Labels()
		}
		return nil
	}
}

// WithLabelLoading reads the configured label file, falling back to
// generated names.
func WithLabelLoading() OptionFunc {
	return func(app *App) error {
		cfg := app.config
		path := pathutil.ResolvePath(cfg.LabelsPath, cfg.ModelsDir)

		labelSet, err := labels.LoadOrGenerate(path, cfg.FallbackLabelCount, cfg.FallbackLabelPrefix)
		app.labels = labelSet
		if err != nil {
			app.Logger.Warn("using generated class names",
				zap.String("labels_path", path),
				zap.Int("count", labelSet.Len()),
				zap.Error(err),
			)
			return nil
		}

		app.Logger.Info("labels loaded", zap.String("labels_path", path), zap.Int("count", labelSet.Len()))
		return nil
	}
}

// WithModelLoading runs the loading strategies. Failure leaves the app
// degraded rather than failing startup.
func WithModelLoading() OptionFunc {
	return func(app *App) error {
		if app.labels == nil {
			if err := WithLabelLoading()(app); err != nil {
				return err
			}
		}

		strategies := classifier.DefaultStrategies(LoaderConfig(app.config))
		result, err := classifier.Load(app.ctx, app.Logger, strategies, app.config.ValidateModel)
		app.loadAttempts = result.Attempts
		if err != nil {
			return fmt.Errorf("failed to load model: %w", err)
		}

		c, err := classifier.New(result.Model, app.labels, result.Strategy)
		if err != nil {
			result.Model.Close()
			return fmt.Errorf("failed to build classifier: %w", err)
		}

		app.classifier = c
		return nil
	}
}

// LoaderConfig maps configuration onto the loader's artifact list.
func LoaderConfig(cfg *config.Config) classifier.LoaderConfig {
	fallbacks := make([]string, 0, len(cfg.FallbackModelPaths))
	for _, path := range cfg.FallbackModelPaths {
		fallbacks = append(fallbacks, pathutil.ResolvePath(path, cfg.ModelsDir))
	}

	metadataPath := cfg.MetadataPath
	if metadataPath != "" {
		metadataPath = pathutil.ResolvePath(metadataPath, cfg.ModelsDir)
	}

	return classifier.LoaderConfig{
		ModelPath:     pathutil.ResolvePath(cfg.ModelPath, cfg.ModelsDir),
		FallbackPaths: fallbacks,
		MetadataPath:  metadataPath,
		ONNX: classifier.ONNXOptions{
			LibraryPath:    cfg.OnnxRuntimeLib,
			ImageSize:      cfg.ImageSize,
			Layout:         cfg.TensorLayout,
			IntraOpThreads: cfg.IntraOpThreads,
		},
	}
}

func WithDB(driver drivers.Driver) OptionFunc {
	return func(app *App) error {
		app.driver = driver
		app.db = driver.GetDB()
		app.APIKeyRepository = repository.NewAPIKeyRepository(app.db)
		app.PredictionRepository = repository.NewPredictionRepository(app.db)
		return nil
	}
}

// WithDBInitialization connects to the configured database and applies
// pending migrations.
func WithDBInitialization() OptionFunc {
	return func(app *App) error {
		driver, err := db.NewConnection(app.ctx, app.config)
		if err != nil {
			return err
		}

		if err := migrations.Migrate(app.ctx, driver.GetDB()); err != nil {
			driver.Close()
			return err
		}

		return WithDB(driver)(app)
	}
}

// WithHistory starts the background prediction recorder. Uploads are
// archived to file storage when archive_uploads is set.
func WithHistory() OptionFunc {
	return func(app *App) error {
		if app.PredictionRepository == nil {
			return errors.New("prediction history needs a database")
		}

		var archive filestorage.FileStorage
		if app.config.ArchiveUploads {
			storage, err := filestorage.NewFileStorage(app.ctx, app.config)
			if err != nil {
				return fmt.Errorf("failed to open upload archive: %w", err)
			}
			archive = storage
			app.storage = storage
		}

		app.recorder = history.NewRecorder(app.PredictionRepository, archive, app.config.HistoryWorkers, app.Logger.Named("history"))
		return nil
	}
}

func NewApp(config *config.Config, options ...OptionFunc) (*App, error) {
	logger, err := logger.InitLogger(config)
	if err != nil {
		return nil, err
	}
	defer logger.Sync()

	ctx, cancel := context.WithCancel(context.Background())

	app := &App{
		ctx:        ctx,
		config:     config,
		Logger:     logger,
		cancelFunc: cancel,
	}

	// Apply all options
	for _, opt := range options {
		if err := opt(app); err != nil {
			// Continue even if some options fail
			app.Logger.Error("failed to apply option", zap.Error(err))
		}
	}

	if app.labels == nil {
		app.labels = labels.Generate(config.FallbackLabelCount, config.FallbackLabelPrefix)
	}

	app.logModelState()
	return app, nil
}

func (app *App) logModelState() {
	if app.classifier == nil {
		app.Logger.Warn("no model loaded, serving in degraded mode", zap.Int("attempts", len(app.loadAttempts)))
		return
	}

	outputs := app.classifier.OutputLen()
	if outputs != app.labels.Len() {
		app.Logger.Warn("label count does not match model output",
			zap.Int("labels", app.labels.Len()),
			zap.Int("outputs", outputs),
		)
	}

	geometry := app.classifier.Geometry()
	app.Logger.Info("classifier ready",
		zap.String("strategy", app.classifier.Strategy()),
		zap.Int("width", geometry.Width),
		zap.Int("height", geometry.Height),
		zap.String("layout", geometry.Layout),
		zap.Int("classes", app.labels.Len()),
	)
}

func (app *App) Close() {
	app.cancelFunc()

	// Drain pending history writes before the database goes away.
	app.recorder.Stop()

	if app.classifier != nil {
		if err := app.classifier.Close(); err != nil {
			app.Logger.Warn("failed to close model", zap.Error(err))
		}
	}

	if app.driver != nil {
		if err := app.driver.Close(); err != nil {
			app.Logger.Warn("failed to close database", zap.Error(err))
		}
	}
}

func (app *App) Config() *config.Config {
	return app.config
}

func (app *App) Context() context.Context {
	return app.ctx
}

func (app *App) DB() *bun.DB {
	return app.db
}

// Classifier is nil when no model could be loaded.
func (app *App) Classifier() *classifier.Classifier {
	return app.classifier
}

func (app *App) ModelLoaded() bool {
	return app.classifier != nil
}

func (app *App) Labels() *labels.Labels {
	return app.labels
}

func (app *App) LoadAttempts() []classifier.Attempt {
	return app.loadAttempts
}

func (app *App) Recorder() *history.Recorder {
	return app.recorder
}

// FileStorage is the upload archive, nil unless archive_uploads is set.
func (app *App) FileStorage() filestorage.FileStorage {
	return app.storage
}

func (app *App) HistoryEnabled() bool {
	return app.PredictionRepository != nil
}
