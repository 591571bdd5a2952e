package classifier

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubModel struct {
	output []float32
	err    error
	closed bool
	seen   int
}

func (m *stubModel) Predict(input []float32) ([]float32, error) {
	m.seen = len(input)
	return m.output, m.err
}

func (m *stubModel) Info() Info {
	return Info{Path: "stub.onnx", InputShape: []int64{1, 4, 4, 3}, OutputShape: []int64{1, int64(len(m.output))}}
}

func (m *stubModel) Close() error {
	m.closed = true
	return nil
}

func staticStrategy(name string, model Model, err error) Strategy {
	return Strategy{
		Name: name,
		Load: func(ctx context.Context) (Model, error) {
			return model, err
		},
	}
}

func TestLoadFirstSuccessWins(t *testing.T) {
	good := &stubModel{output: []float32{0.2, 0.8}}
	later := &stubModel{output: []float32{1}}

	result, err := Load(context.Background(), zap.NewNop(), []Strategy{
		staticStrategy("plain", nil, errors.New("file not found")),
		staticStrategy("fallback", good, nil),
		staticStrategy("never", later, nil),
	}, true)

	require.NoError(t, err)
	assert.Same(t, good, result.Model)
	assert.Equal(t, "fallback", result.Strategy)
	require.Len(t, result.Attempts, 2)
	assert.Equal(t, "file not found", result.Attempts[0].Error)
	assert.Empty(t, result.Attempts[1].Error)
	assert.Equal(t, 48, good.seen)
}

func TestLoadRejectsModelFailingValidation(t *testing.T) {
	broken := &stubModel{output: []float32{float32(math.NaN())}}
	good := &stubModel{output: []float32{1}}

	result, err := Load(context.Background(), zap.NewNop(), []Strategy{
		staticStrategy("broken", broken, nil),
		staticStrategy("good", good, nil),
	}, true)

	require.NoError(t, err)
	assert.True(t, broken.closed)
	assert.Equal(t, "good", result.Strategy)
	assert.Contains(t, result.Attempts[0].Error, "validation failed")
}

func TestLoadWithoutValidationAcceptsFirstModel(t *testing.T) {
	empty := &stubModel{}

	result, err := Load(context.Background(), zap.NewNop(), []Strategy{
		staticStrategy("empty", empty, nil),
	}, false)

	require.NoError(t, err)
	assert.Same(t, empty, result.Model)
	assert.Zero(t, empty.seen)
}

func TestLoadAllFail(t *testing.T) {
	result, err := Load(context.Background(), zap.NewNop(), []Strategy{
		staticStrategy("a", nil, errors.New("a failed")),
		staticStrategy("b", &stubModel{err: errors.New("boom")}, nil),
	}, true)

	assert.ErrorIs(t, err, ErrNoStrategySucceeded)
	assert.Nil(t, result.Model)
	assert.Len(t, result.Attempts, 2)
}

func TestLoadHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Load(ctx, zap.NewNop(), []Strategy{staticStrategy("a", &stubModel{output: []float32{1}}, nil)}, true)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestValidateRejectsEmptyOutput(t *testing.T) {
	err := Validate(&stubModel{}, rand.New(rand.NewSource(1)))
	assert.Error(t, err)
}

func TestDefaultStrategiesOrder(t *testing.T) {
	strategies := DefaultStrategies(LoaderConfig{
		ModelPath:     "mainModel.onnx",
		FallbackPaths: []string{"mymodel.onnx", "mainModel.onnx", ""},
	})

	names := make([]string, len(strategies))
	for i, s := range strategies {
		names[i] = s.Name
	}

	assert.Equal(t, []string{
		"introspect",
		"introspect-default-options",
		"metadata",
		"fallback-introspect:mymodel.onnx",
		"fallback-metadata:mymodel.onnx",
	}, names)
}

func TestMetadataSessionSpec(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"input_shape": [-1, 3, -1, -1],
		"output_shape": [-1, 7],
		"image_size": 160,
		"total_parameters": 2257984,
		"classes": ["a", "b"]
	}`), 0o644))

	metadata, err := ReadMetadata(path)
	require.NoError(t, err)
	assert.Equal(t, "input", metadata.InputName)
	assert.Equal(t, "output", metadata.OutputName)

	spec, err := metadata.sessionSpec("model.onnx", 0, "")
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 3, 160, 160}, spec.inputShape)
	assert.Equal(t, []int64{1, 7}, spec.outputShape)
	assert.Equal(t, int64(2257984), spec.parameters)
	assert.Equal(t, "nchw", spec.layout)
}

func TestMetadataStrategyMissingSidecar(t *testing.T) {
	strategy := metadataStrategy("metadata", "model.onnx", filepath.Join(t.TempDir(), "missing.json"), ONNXOptions{})

	_, err := strategy.Load(context.Background())
	assert.Error(t, err)
}
