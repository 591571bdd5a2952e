package classifier

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/cozy-creator/classify-server/internal/utils/pathutil"

	"go.uber.org/zap"
)

var ErrNoStrategySucceeded = errors.New("no model loading strategy succeeded")

// Strategy is one way of obtaining a model. Strategies are tried in order
// and the first one that loads and validates wins.
type Strategy struct {
	Name string
	Load func(ctx context.Context) (Model, error)
}

// Attempt records the outcome of one strategy.
type Attempt struct {
	Strategy string `json:"strategy"`
	Error    string `json:"error,omitempty"`
}

type LoadResult struct {
	Model    Model
	Strategy string
	Attempts []Attempt
}

// LoaderConfig lists the artifacts the default strategies try.
type LoaderConfig struct {
	ModelPath     string
	FallbackPaths []string
	MetadataPath  string
	ONNX          ONNXOptions
}

// DefaultStrategies returns the ordered loading plan: graph introspection
// with tuned and then default session options, the metadata sidecar, and the
// same for every fallback artifact.
func DefaultStrategies(cfg LoaderConfig) []Strategy {
	strategies := []Strategy{
		introspectStrategy("introspect", cfg.ModelPath, cfg.ONNX, true),
		introspectStrategy("introspect-default-options", cfg.ModelPath, cfg.ONNX, false),
		metadataStrategy("metadata", cfg.ModelPath, metadataPathFor(cfg.ModelPath, cfg.MetadataPath), cfg.ONNX),
	}

	for _, path := range cfg.FallbackPaths {
		if path == "" || path == cfg.ModelPath {
			continue
		}

		strategies = append(strategies,
			introspectStrategy("fallback-introspect:"+path, path, cfg.ONNX, true),
			metadataStrategy("fallback-metadata:"+path, path, metadataPathFor(path, ""), cfg.ONNX),
		)
	}

	return strategies
}

func introspectStrategy(name, path string, opts ONNXOptions, tuned bool) Strategy {
	return Strategy{
		Name: name,
		Load: func(ctx context.Context) (Model, error) {
			if err := InitRuntime(opts.LibraryPath); err != nil {
				return nil, err
			}

			spec, err := introspectSpec(path, opts)
			if err != nil {
				return nil, err
			}

			return openSession(spec, tuned, opts.IntraOpThreads)
		},
	}
}

func metadataStrategy(name, modelPath, metadataPath string, opts ONNXOptions) Strategy {
	return Strategy{
		Name: name,
		Load: func(ctx context.Context) (Model, error) {
			metadata, err := ReadMetadata(metadataPath)
			if err != nil {
				return nil, err
			}

			spec, err := metadata.sessionSpec(modelPath, opts.ImageSize, opts.Layout)
			if err != nil {
				return nil, err
			}

			if err := InitRuntime(opts.LibraryPath); err != nil {
				return nil, err
			}

			return openSession(spec, false, opts.IntraOpThreads)
		},
	}
}

func metadataPathFor(modelPath, configured string) string {
	if configured != "" {
		return configured
	}

	return pathutil.SiblingWithExt(modelPath, ".json")
}

// Load runs strategies in order. When validate is set, each loaded model must
// also survive a synthetic inference before it is accepted.
func Load(ctx context.Context, logger *zap.Logger, strategies []Strategy, validate bool) (*LoadResult, error) {
	result := &LoadResult{}
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	for _, strategy := range strategies {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		model, err := strategy.Load(ctx)
		if err == nil && validate {
			if err = Validate(model, rng); err != nil {
				model.Close()
				err = fmt.Errorf("validation failed: %w", err)
			}
		}

		if err != nil {
			logger.Warn("model loading strategy failed", zap.String("strategy", strategy.Name), zap.Error(err))
			result.Attempts = append(result.Attempts, Attempt{Strategy: strategy.Name, Error: err.Error()})
			continue
		}

		logger.Info("model loaded", zap.String("strategy", strategy.Name), zap.String("path", model.Info().Path))
		result.Attempts = append(result.Attempts, Attempt{Strategy: strategy.Name})
		result.Model = model
		result.Strategy = strategy.Name
		return result, nil
	}

	return result, ErrNoStrategySucceeded
}

// Validate runs one inference on a random tensor of the model's input shape
// and checks that the output is a non-empty vector of finite values.
func Validate(model Model, rng *rand.Rand) error {
	info := model.Info()
	size := flattenedSize(info.InputShape)
	if size <= 0 {
		return fmt.Errorf("%w: %v", ErrUnsupportedShape, info.InputShape)
	}

	input := make([]float32, size)
	for i := range input {
		input[i] = rng.Float32()
	}

	output, err := model.Predict(input)
	if err != nil {
		return err
	}

	if len(output) == 0 {
		return fmt.Errorf("model returned an empty output")
	}

	for i, v := range output {
		if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
			return fmt.Errorf("model returned a non-finite value at index %d", i)
		}
	}

	return nil
}
