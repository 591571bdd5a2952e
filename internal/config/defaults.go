package config

import "errors"

const (
	DefaultHomeDir     = "~/.classify"
	DefaultPort        = 8000
	DefaultHost        = "0.0.0.0"
	DefaultEnvironment = "dev"

	DefaultModelPath           = "mainModel.onnx"
	DefaultLabelsPath          = "labels.txt"
	DefaultFallbackLabelCount  = 60
	DefaultFallbackLabelPrefix = "Batik Pattern"
	DefaultImageSize           = 224
	DefaultModelType           = "MobileNetV2 Transfer Learning"

	DefaultTopK         = 5
	DefaultBatchTopK    = 3
	DefaultMaxBatchSize = 10
	DefaultMaxUploadMB  = 32

	DefaultHistoryWorkers = 4
)

var DefaultFallbackModelPaths = []string{"mymodel.onnx"}

var (
	ErrHomeDirNotSet       = errors.New("home directory is not set")
	ErrHomeDirExpandFailed = errors.New("failed to expand home directory")
	ErrConfigNotLoaded     = errors.New("config not loaded")
)

// defaults are registered with viper before any config source is read.
var defaults = map[string]any{
	"port":                  DefaultPort,
	"host":                  DefaultHost,
	"environment":           DefaultEnvironment,
	"model_path":            DefaultModelPath,
	"fallback_model_paths":  DefaultFallbackModelPaths,
	"metadata_path":         "",
	"labels_path":           DefaultLabelsPath,
	"fallback_label_count":  DefaultFallbackLabelCount,
	"fallback_label_prefix": DefaultFallbackLabelPrefix,
	"image_size":            0,
	"tensor_layout":         "",
	"top_k":                 DefaultTopK,
	"batch_top_k":           DefaultBatchTopK,
	"max_batch_size":        DefaultMaxBatchSize,
	"max_upload_mb":         DefaultMaxUploadMB,
	"onnxruntime_lib":       "",
	"intra_op_threads":      0,
	"validate_model":        true,
	"model_type":            DefaultModelType,
	"log_file":              "",
	"rate":                  "",
	"enable_auth":           false,
	"public_dir":            "",
	"archive_uploads":       false,
	"filesystem_type":       FilesystemLocal,
	"history_workers":       DefaultHistoryWorkers,
	"db.dsn":                "",
}
