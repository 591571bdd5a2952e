package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadFromHome(t *testing.T, home string) *Config {
	t.Helper()

	viper.Reset()
	config = nil
	t.Cleanup(func() {
		viper.Reset()
		config = nil
	})

	viper.Set("home_dir", home)
	require.NoError(t, LoadEnvAndConfigFiles())

	cfg, err := GetConfig()
	require.NoError(t, err)
	return cfg
}

func TestLoadWritesTemplatesAndDefaults(t *testing.T) {
	home := t.TempDir()
	cfg := loadFromHome(t, home)

	assert.FileExists(t, filepath.Join(home, "config.yaml"))
	assert.FileExists(t, filepath.Join(home, ".env"))
	assert.DirExists(t, filepath.Join(home, "models"))
	assert.DirExists(t, filepath.Join(home, "assets"))

	assert.Equal(t, DefaultPort, cfg.Port)
	assert.Equal(t, DefaultModelPath, cfg.ModelPath)
	assert.Equal(t, []string{"mymodel.onnx"}, cfg.FallbackModelPaths)
	assert.Equal(t, 0, cfg.ImageSize)
	assert.Equal(t, DefaultFallbackLabelCount, cfg.FallbackLabelCount)
	assert.Equal(t, DefaultFallbackLabelPrefix, cfg.FallbackLabelPrefix)
	assert.Equal(t, DefaultTopK, cfg.TopK)
	assert.Equal(t, DefaultBatchTopK, cfg.BatchTopK)
	assert.Equal(t, DefaultMaxBatchSize, cfg.MaxBatchSize)
	assert.True(t, cfg.ValidateModel)
	assert.False(t, cfg.HistoryEnabled())
	assert.Equal(t, filepath.Join(home, "models"), cfg.ModelsDir)
	assert.Equal(t, "0.0.0.0:8000", cfg.ListenAddr())
}

func TestLoadReadsConfigFileAndEnv(t *testing.T) {
	home := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(home, "config.yaml"), []byte(`
port: 9001
image_size: 160
tensor_layout: NCHW
db:
  dsn: file:history.db
`), 0644))
	t.Setenv("CLASSIFY_TOP_K", "7")

	cfg := loadFromHome(t, home)

	assert.Equal(t, 9001, cfg.Port)
	assert.Equal(t, 160, cfg.ImageSize)
	assert.Equal(t, LayoutNCHW, cfg.TensorLayout)
	assert.Equal(t, 7, cfg.TopK)
	assert.True(t, cfg.HistoryEnabled())
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			FilesystemType: "LOCAL",
			TopK:           5,
			BatchTopK:      3,
			MaxBatchSize:   10,
		}
	}

	cfg := valid()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, FilesystemLocal, cfg.FilesystemType)

	tests := map[string]func(c *Config){
		"filesystem":     func(c *Config) { c.FilesystemType = "ftp" },
		"layout":         func(c *Config) { c.TensorLayout = "chw" },
		"image size":     func(c *Config) { c.ImageSize = -1 },
		"label count":    func(c *Config) { c.FallbackLabelCount = -1 },
		"max batch size": func(c *Config) { c.MaxBatchSize = 0 },
		"top k":          func(c *Config) { c.TopK = 0 },
	}

	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			cfg := valid()
			mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestGetConfigBeforeLoad(t *testing.T) {
	config = nil

	_, err := GetConfig()
	assert.ErrorIs(t, err, ErrConfigNotLoaded)
	assert.Panics(t, func() { MustGetConfig() })
}
