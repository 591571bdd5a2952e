package logger

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/cozy-creator/classify-server/internal/config"

	rotatelogs "github.com/lestrrat-go/file-rotatelogs"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var logger *zap.Logger

func NewLogger(cfg *config.Config) (*zap.Logger, error) {
	var (
		l   *zap.Logger
		err error
	)
	if cfg.Environment == "prod" || cfg.Environment == "production" {
		l, err = zap.NewProduction()
	} else if cfg.Environment == "test" {
		l = zap.NewExample()
	} else {
		l, err = zap.NewDevelopment()
	}
	if err != nil {
		return nil, err
	}

	if cfg.LogFile == "" {
		return l, nil
	}

	fileCore, err := newRotatingCore(cfg.LogFile)
	if err != nil {
		return nil, err
	}

	return l.WithOptions(zap.WrapCore(func(core zapcore.Core) zapcore.Core {
		return zapcore.NewTee(core, fileCore)
	})), nil
}

// newRotatingCore writes JSON logs to a daily rotated file. A pattern without
// strftime verbs gets a date suffix.
func newRotatingCore(logFile string) (zapcore.Core, error) {
	pattern := logFile
	if !strings.Contains(pattern, "%") {
		pattern = logFile + ".%Y%m%d"
	}

	writer, err := rotatelogs.New(
		pattern,
		rotatelogs.WithLinkName(logFile),
		rotatelogs.WithRotationTime(24*time.Hour),
		rotatelogs.WithMaxAge(7*24*time.Hour),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file %s: %w", logFile, err)
	}

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return zapcore.NewCore(
		zapcore.NewJSONEncoder(encoderConfig),
		zapcore.AddSync(writer),
		zap.InfoLevel,
	), nil
}

func MustNewLogger(cfg *config.Config) *zap.Logger {
	return zap.Must(NewLogger(cfg))
}

func InitLogger(cfg *config.Config) (*zap.Logger, error) {
	var err error
	logger, err = NewLogger(cfg)
	if err != nil {
		return nil, err
	}

	return logger, nil
}

// GetLogger returns the process logger, or a stderr development logger when
// InitLogger has not run (CLI commands that never load a config).
func GetLogger() *zap.Logger {
	if logger == nil {
		l, err := zap.NewDevelopment(zap.ErrorOutput(zapcore.Lock(os.Stderr)))
		if err != nil {
			return zap.NewNop()
		}
		logger = l
	}

	return logger
}
