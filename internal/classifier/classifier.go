package classifier

import (
	"context"
	"fmt"

	"github.com/cozy-creator/classify-server/internal/labels"
	"github.com/cozy-creator/classify-server/internal/ranking"
	"github.com/cozy-creator/classify-server/internal/utils/imageutil"
)

// Classifier couples a loaded model with its label set and input geometry.
// It is built once at startup and never mutated.
type Classifier struct {
	model    Model
	labels   *labels.Labels
	geometry Geometry
	strategy string
}

func New(model Model, labelSet *labels.Labels, strategy string) (*Classifier, error) {
	if model == nil {
		return nil, ErrModelNotLoaded
	}

	info := model.Info()
	geometry, err := GeometryOf(info.InputShape, info.Layout)
	if err != nil {
		return nil, err
	}

	return &Classifier{
		model:    model,
		labels:   labelSet,
		geometry: geometry,
		strategy: strategy,
	}, nil
}

// Classify preprocesses an encoded image, runs the model and returns the k
// most probable classes. Decode failures wrap imageutil.ErrDecode, model
// failures wrap ErrInference.
func (c *Classifier) Classify(ctx context.Context, data []byte, k int) ([]ranking.Prediction, error) {
	tensor, err := imageutil.Preprocess(data, c.geometry.Width, c.geometry.Height, c.geometry.Layout)
	if err != nil {
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	scores, err := c.model.Predict(tensor)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInference, err)
	}

	return ranking.TopK(scores, k, c.labels), nil
}

func (c *Classifier) Info() Info {
	return c.model.Info()
}

func (c *Classifier) Geometry() Geometry {
	return c.geometry
}

func (c *Classifier) Strategy() string {
	return c.strategy
}

func (c *Classifier) Labels() *labels.Labels {
	return c.labels
}

// OutputLen is the length of the model's probability vector.
func (c *Classifier) OutputLen() int {
	return flattenedSize(c.model.Info().OutputShape)
}

func (c *Classifier) Close() error {
	return c.model.Close()
}
