package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/cozy-creator/classify-server/internal/templates"
	"github.com/cozy-creator/classify-server/internal/utils/pathutil"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	FilesystemLocal = "local"
	FilesystemS3    = "s3"
)

const (
	LayoutNHWC = "nhwc"
	LayoutNCHW = "nchw"
)

const EnvPrefix = "CLASSIFY"

type Config struct {
	Port        int    `mapstructure:"port"`
	Host        string `mapstructure:"host"`
	Environment string `mapstructure:"environment"`
	HomeDir     string `mapstructure:"home_dir"`
	AssetsDir   string `mapstructure:"assets_dir"`
	ModelsDir   string `mapstructure:"models_dir"`
	TempDir     string `mapstructure:"temp_dir"`
	PublicDir   string `mapstructure:"public_dir"`
	LogFile     string `mapstructure:"log_file"`

	ModelPath          string   `mapstructure:"model_path"`
	FallbackModelPaths []string `mapstructure:"fallback_model_paths"`
	MetadataPath       string   `mapstructure:"metadata_path"`
	ModelType          string   `mapstructure:"model_type"`
	OnnxRuntimeLib     string   `mapstructure:"onnxruntime_lib"`
	IntraOpThreads     int      `mapstructure:"intra_op_threads"`
	ValidateModel      bool     `mapstructure:"validate_model"`

	LabelsPath          string `mapstructure:"labels_path"`
	FallbackLabelCount  int    `mapstructure:"fallback_label_count"`
	FallbackLabelPrefix string `mapstructure:"fallback_label_prefix"`

	ImageSize    int    `mapstructure:"image_size"`
	TensorLayout string `mapstructure:"tensor_layout"`

	TopK         int `mapstructure:"top_k"`
	BatchTopK    int `mapstructure:"batch_top_k"`
	MaxBatchSize int `mapstructure:"max_batch_size"`
	MaxUploadMB  int `mapstructure:"max_upload_mb"`

	Rate           string `mapstructure:"rate"`
	EnableAuth     bool   `mapstructure:"enable_auth"`
	ArchiveUploads bool   `mapstructure:"archive_uploads"`
	HistoryWorkers int    `mapstructure:"history_workers"`

	FilesystemType string    `mapstructure:"filesystem_type"`
	S3             *S3Config `mapstructure:"s3"`
	DB             *DBConfig `mapstructure:"db"`
}

type S3Config struct {
	Folder      string `mapstructure:"folder"`
	Region      string `mapstructure:"region_name"`
	Bucket      string `mapstructure:"bucket_name"`
	AccessKey   string `mapstructure:"access_key"`
	SecretKey   string `mapstructure:"secret_key"`
	PublicUrl   string `mapstructure:"public_url"`
	EndpointUrl string `mapstructure:"endpoint_url"`
}

type DBConfig struct {
	DSN string `mapstructure:"dsn"`
}

var config *Config

// LoadEnvAndConfigFiles resolves the home directory, writes the config and
// env templates on first use, then reads both into the global config.
func LoadEnvAndConfigFiles() error {
	for key, value := range defaults {
		viper.SetDefault(key, value)
	}

	homeDir, err := getHomeDir()
	if err != nil {
		return err
	}

	viper.Set("home_dir", homeDir)
	viper.Set("assets_dir", subdir(homeDir, "assets_dir", "assets"))
	viper.Set("models_dir", subdir(homeDir, "models_dir", "models"))
	viper.Set("temp_dir", subdir(homeDir, "temp_dir", "temp"))

	if err := createHomeDirs(homeDir); err != nil {
		return err
	}

	envFile := viper.GetString("env_file")
	if envFile == "" {
		envFile = filepath.Join(homeDir, ".env")
	}

	configFile := viper.GetString("config_file")
	if configFile == "" {
		configFile = filepath.Join(homeDir, "config.yaml")
		if err := ensureFile(configFile, templates.WriteConfig); err != nil {
			return err
		}
	}

	if err := ensureFile(envFile, templates.WriteEnv); err != nil {
		return err
	}

	if err := godotenv.Load(envFile); err != nil {
		return fmt.Errorf("failed to load env file: %w", err)
	}

	viper.SetEnvPrefix(EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(`.`, `_`, `-`, `_`))
	viper.AutomaticEnv()
	viper.SetConfigFile(configFile)

	if err := LoadConfig(true); err != nil {
		if !errors.As(err, &viper.ConfigFileNotFoundError{}) {
			return err
		}
	}

	return nil
}

func LoadConfig(reload bool) error {
	if config != nil && !reload {
		return fmt.Errorf("config already loaded")
	}

	if err := viper.ReadInConfig(); err != nil {
		return fmt.Errorf("error reading config: %w", err)
	}

	cfg := &Config{}
	if err := viper.Unmarshal(cfg); err != nil {
		return fmt.Errorf("error unmarshalling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return err
	}

	config = cfg
	return nil
}

func IsLoaded() bool {
	return config != nil
}

func GetConfig() (*Config, error) {
	if config == nil {
		return nil, ErrConfigNotLoaded
	}

	return config, nil
}

func MustGetConfig() *Config {
	if config == nil {
		panic(ErrConfigNotLoaded)
	}

	return config
}

// Validate normalizes enumerations and rejects values no component can run with.
func (c *Config) Validate() error {
	c.FilesystemType = strings.ToLower(c.FilesystemType)
	if c.FilesystemType != FilesystemLocal && c.FilesystemType != FilesystemS3 {
		return fmt.Errorf("invalid filesystem type %q", c.FilesystemType)
	}

	c.TensorLayout = strings.ToLower(c.TensorLayout)
	switch c.TensorLayout {
	case "", LayoutNHWC, LayoutNCHW:
	default:
		return fmt.Errorf("invalid tensor layout %q", c.TensorLayout)
	}

	if c.ImageSize < 0 {
		return fmt.Errorf("image_size must not be negative, got %d", c.ImageSize)
	}
	if c.FallbackLabelCount < 0 {
		return fmt.Errorf("fallback_label_count must not be negative, got %d", c.FallbackLabelCount)
	}
	if c.MaxBatchSize <= 0 {
		return fmt.Errorf("max_batch_size must be positive, got %d", c.MaxBatchSize)
	}
	if c.TopK <= 0 || c.BatchTopK <= 0 {
		return fmt.Errorf("top_k and batch_top_k must be positive")
	}

	return nil
}

func (c *Config) HistoryEnabled() bool {
	return c.DB != nil && c.DB.DSN != ""
}

func (c *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Returns the home directory path.
// It is taken from the `home_dir` flag, then the CLASSIFY_HOME environment
// variable, and finally DefaultHomeDir.
func getHomeDir() (string, error) {
	homeDir := viper.GetString("home_dir")
	if homeDir == "" {
		homeDir = os.Getenv("CLASSIFY_HOME")
		if homeDir == "" {
			homeDir = DefaultHomeDir
		}
	}

	homeDir, err := pathutil.ExpandPath(homeDir)
	if err != nil {
		return "", ErrHomeDirExpandFailed
	}

	return homeDir, nil
}

func subdir(homeDir, key, name string) string {
	dir := viper.GetString(key)
	if dir == "" {
		return filepath.Join(homeDir, name)
	}

	expanded, err := pathutil.ExpandPath(dir)
	if err != nil {
		return dir
	}

	return expanded
}

func ensureFile(path string, write func(string) error) error {
	if _, err := os.Stat(path); err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("failed to stat %s: %w", filepath.Base(path), err)
		}

		if err := write(path); err != nil {
			return fmt.Errorf("failed to create %s: %w", filepath.Base(path), err)
		}
	}

	return nil
}

func createHomeDirs(homeDir string) error {
	if homeDir == "" {
		return ErrHomeDirNotSet
	}

	dirs := []string{
		homeDir,
		viper.GetString("assets_dir"),
		viper.GetString("models_dir"),
		viper.GetString("temp_dir"),
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, os.ModePerm); err != nil {
			return fmt.Errorf("failed to create %s directory: %w", dir, err)
		}
	}

	return nil
}
