package cmd

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/cozy-creator/classify-server/internal/app"
	"github.com/cozy-creator/classify-server/internal/classifier"
	"github.com/cozy-creator/classify-server/internal/config"
	"github.com/cozy-creator/classify-server/internal/server"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var Cmd = &cobra.Command{
	Use:   "run",
	Short: "Start the classification server",
	RunE:  runApp,
}

func init() {
	flags := Cmd.Flags()

	flags.Int("port", config.DefaultPort, "Port to run the server on")
	flags.String("host", config.DefaultHost, "Host to run the server on")
	flags.String("environment", config.DefaultEnvironment, "Environment configuration: dev, test or prod")
	flags.String("log-file", "", "Also write JSON logs to this file, rotated daily")
	flags.String("public-dir", "", "Serve static files from this directory under /static")

	flags.String("model-path", config.DefaultModelPath, "Path to the ONNX model. Relative paths are also looked up in the models directory")
	flags.StringSlice("fallback-model-paths", config.DefaultFallbackModelPaths, "Models tried when the primary model cannot be loaded")
	flags.String("metadata-path", "", "Metadata sidecar for the model; defaults to <model>.json")
	flags.String("labels-path", config.DefaultLabelsPath, "Newline-delimited class names")
	flags.Int("image-size", 0, "Input resolution for models with dynamic spatial dimensions; 0 derives it from the model")
	flags.String("tensor-layout", "", "Force the input layout: nhwc or nchw")
	flags.String("onnxruntime-lib", "", "Path to the ONNX Runtime shared library")
	flags.Int("intra-op-threads", 0, "ONNX Runtime threads; 0 uses one per CPU")
	flags.Bool("validate-model", true, "Run a validation inference before accepting a model")

	flags.Int("max-batch-size", config.DefaultMaxBatchSize, "Maximum number of files per batch request")
	flags.Int("max-upload-mb", config.DefaultMaxUploadMB, "Multipart memory limit in megabytes")
	flags.String("rate", "", "Rate limit per client, e.g. 100-S or 1000-H")
	flags.Bool("enable-auth", false, "Require an X-API-Key header on prediction routes")

	flags.String("db-dsn", "", "Database DSN for prediction history (sqlite path, libsql or postgres URL)")
	flags.Bool("archive-uploads", false, "Store classified uploads in file storage")
	flags.String("filesystem-type", config.FilesystemLocal, "Filesystem type: 'local' or 's3'")

	flags.String("s3-access-key", "", "S3 access key")
	flags.String("s3-secret-key", "", "S3 secret key")
	flags.String("s3-region-name", "", "S3 region name")
	flags.String("s3-bucket-name", "", "S3 bucket name")
	flags.String("s3-folder", "", "S3 folder")
	flags.String("s3-public-url", "", "Public URL for S3 files")
	flags.String("s3-endpoint-url", "", "S3 endpoint URL")

	bindFlags(flags)
	bindEnvs()
}

// flagKeys maps flag names whose config key is not the flag name with
// underscores.
var flagKeys = map[string]string{
	"db-dsn":          "db.dsn",
	"s3-access-key":   "s3.access_key",
	"s3-secret-key":   "s3.secret_key",
	"s3-region-name":  "s3.region_name",
	"s3-bucket-name":  "s3.bucket_name",
	"s3-folder":       "s3.folder",
	"s3-public-url":   "s3.public_url",
	"s3-endpoint-url": "s3.endpoint_url",
}

func bindFlags(flags *pflag.FlagSet) {
	flags.VisitAll(func(flag *pflag.Flag) {
		key, ok := flagKeys[flag.Name]
		if !ok {
			key = strings.ReplaceAll(flag.Name, "-", "_")
		}
		viper.BindPFlag(key, flag)
	})
}

// Nested keys are not found by AutomaticEnv during Unmarshal unless bound.
// Example: CLASSIFY_S3_ACCESS_KEY
func bindEnvs() {
	viper.BindEnv("db.dsn")

	viper.BindEnv("s3.access_key")
	viper.BindEnv("s3.secret_key")
	viper.BindEnv("s3.region_name")
	viper.BindEnv("s3.bucket_name")
	viper.BindEnv("s3.folder")
	viper.BindEnv("s3.public_url")
	viper.BindEnv("s3.endpoint_url")
}

func runApp(_ *cobra.Command, _ []string) error {
	app, err := createNewApp(config.MustGetConfig())
	if err != nil {
		return err
	}
	defer classifier.DestroyRuntime()
	defer app.Close()

	srv, err := server.NewServer(app.Config())
	if err != nil {
		return err
	}

	if err := srv.SetupRoutes(app); err != nil {
		return fmt.Errorf("error setting up routes: %w", err)
	}

	errc := make(chan error, 1)
	go func() {
		app.Logger.Info("server started", zap.String("addr", srv.ListenAddr()), zap.Bool("model_loaded", app.ModelLoaded()))
		errc <- srv.Start()
	}()

	signalc := make(chan os.Signal, 1)
	signal.Notify(signalc, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(signalc)

	select {
	case err := <-errc:
		return err
	case sig := <-signalc:
		app.Logger.Info("shutting down", zap.String("signal", sig.String()))
		if err := srv.Stop(app.Context()); err != nil {
			return fmt.Errorf("failed to stop server: %w", err)
		}
		return nil
	}
}

func createNewApp(cfg *config.Config) (*app.App, error) {
	if cfg.EnableAuth && !cfg.HistoryEnabled() {
		return nil, errors.New("enable_auth needs db.dsn for the API key store")
	}

	options := []app.OptionFunc{
		app.WithLabelLoading(),
		app.WithModelLoading(),
	}
	if cfg.HistoryEnabled() {
		options = append(options, app.WithDBInitialization(), app.WithHistory())
	}

	return app.NewApp(cfg, options...)
}
