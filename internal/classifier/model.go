package classifier

import (
	"errors"
	"fmt"

	"github.com/cozy-creator/classify-server/internal/utils/imageutil"
)

// DefaultImageSize sizes models whose spatial dimensions are dynamic when no
// image size is configured.
const DefaultImageSize = 224

var (
	ErrModelNotLoaded    = errors.New("model not loaded")
	ErrInference         = errors.New("error making prediction")
	ErrInputSize         = errors.New("input tensor size mismatch")
	ErrImageSizeMismatch = errors.New("configured image size does not match model input")
	ErrUnsupportedShape  = errors.New("unsupported model input shape")
)

// Model is a loaded network that maps one preprocessed image tensor to a
// probability vector.
type Model interface {
	Predict(input []float32) ([]float32, error)
	Info() Info
	Close() error
}

// Info describes a loaded model.
type Info struct {
	Path        string  `json:"path"`
	InputName   string  `json:"input_name"`
	OutputName  string  `json:"output_name"`
	InputShape  []int64 `json:"input_shape"`
	OutputShape []int64 `json:"output_shape"`
	Layout      string  `json:"layout"`
	Parameters  int64   `json:"total_parameters"`
}

// Geometry is the image resolution and tensor layout a model consumes.
type Geometry struct {
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Layout string `json:"layout"`
}

func (g Geometry) Size() []int {
	return []int{g.Height, g.Width}
}

// InputLen is the number of float32 values in one batched input tensor.
func (g Geometry) InputLen() int {
	return g.Width * g.Height * 3
}

// DetectLayout infers NHWC or NCHW from a 4-D shape whose channel axis is 3.
// A non-empty preferred layout wins.
func DetectLayout(shape []int64, preferred string) (string, error) {
	if len(shape) != 4 {
		return "", fmt.Errorf("%w: expected 4 dimensions, got %v", ErrUnsupportedShape, shape)
	}

	if preferred != "" {
		return preferred, nil
	}

	switch {
	case shape[3] == 3:
		return imageutil.LayoutNHWC, nil
	case shape[1] == 3:
		return imageutil.LayoutNCHW, nil
	case shape[3] <= 0 && shape[1] > 0:
		return imageutil.LayoutNHWC, nil
	case shape[1] <= 0 && shape[3] > 0:
		return imageutil.LayoutNCHW, nil
	}

	return "", fmt.Errorf("%w: cannot find a 3-channel axis in %v", ErrUnsupportedShape, shape)
}

// ResolveInputShape turns a declared input shape, which may contain dynamic
// (non-positive) dimensions, into a concrete batch-of-one shape.
//
// A non-zero imageSize must agree with fixed spatial dimensions; it sizes
// dynamic ones. Without it dynamic dimensions fall back to DefaultImageSize.
func ResolveInputShape(declared []int64, imageSize int, layout string) ([]int64, Geometry, error) {
	layout, err := DetectLayout(declared, layout)
	if err != nil {
		return nil, Geometry{}, err
	}

	hAxis, wAxis, cAxis := 1, 2, 3
	if layout == imageutil.LayoutNCHW {
		hAxis, wAxis, cAxis = 2, 3, 1
	}

	if declared[0] > 1 {
		return nil, Geometry{}, fmt.Errorf("%w: fixed batch size %d", ErrUnsupportedShape, declared[0])
	}
	if declared[cAxis] > 0 && declared[cAxis] != 3 {
		return nil, Geometry{}, fmt.Errorf("%w: %d channels", ErrUnsupportedShape, declared[cAxis])
	}

	height, err := resolveSpatial(declared[hAxis], imageSize)
	if err != nil {
		return nil, Geometry{}, err
	}
	width, err := resolveSpatial(declared[wAxis], imageSize)
	if err != nil {
		return nil, Geometry{}, err
	}

	shape := make([]int64, 4)
	shape[0] = 1
	shape[cAxis] = 3
	shape[hAxis] = int64(height)
	shape[wAxis] = int64(width)

	return shape, Geometry{Width: width, Height: height, Layout: layout}, nil
}

// ResolveOutputShape replaces a dynamic batch axis with 1. Any other dynamic
// dimension cannot be preallocated and is rejected.
func ResolveOutputShape(declared []int64) ([]int64, error) {
	if len(declared) == 0 {
		return nil, fmt.Errorf("%w: empty output shape", ErrUnsupportedShape)
	}

	shape := make([]int64, len(declared))
	copy(shape, declared)

	if shape[0] <= 0 {
		shape[0] = 1
	}
	for i, dim := range shape[1:] {
		if dim <= 0 {
			return nil, fmt.Errorf("%w: output axis %d is dynamic", ErrUnsupportedShape, i+1)
		}
	}

	return shape, nil
}

// GeometryOf derives the geometry of an already concrete input shape.
func GeometryOf(shape []int64, layout string) (Geometry, error) {
	_, geometry, err := ResolveInputShape(shape, 0, layout)
	return geometry, err
}

func resolveSpatial(dim int64, imageSize int) (int, error) {
	if dim > 0 {
		if imageSize > 0 && int64(imageSize) != dim {
			return 0, fmt.Errorf("%w: model expects %d, configured %d", ErrImageSizeMismatch, dim, imageSize)
		}
		return int(dim), nil
	}

	if imageSize > 0 {
		return imageSize, nil
	}

	return DefaultImageSize, nil
}

func flattenedSize(shape []int64) int {
	size := 1
	for _, dim := range shape {
		size *= int(dim)
	}
	return size
}
