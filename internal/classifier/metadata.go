package classifier

import (
	"encoding/json"
	"fmt"
	"os"
)

const (
	defaultInputName  = "input"
	defaultOutputName = "output"
)

// Metadata is the optional JSON sidecar exported next to a model artifact.
// It describes the graph when the artifact itself cannot be introspected.
type Metadata struct {
	InputName       string   `json:"input_name"`
	OutputName      string   `json:"output_name"`
	InputShape      []int64  `json:"input_shape"`
	OutputShape     []int64  `json:"output_shape"`
	ImageSize       int      `json:"image_size"`
	TotalParameters int64    `json:"total_parameters"`
	Classes         []string `json:"classes"`
}

func ReadMetadata(path string) (*Metadata, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read metadata: %w", err)
	}

	var metadata Metadata
	if err := json.Unmarshal(content, &metadata); err != nil {
		return nil, fmt.Errorf("failed to parse metadata: %w", err)
	}

	if metadata.InputName == "" {
		metadata.InputName = defaultInputName
	}
	if metadata.OutputName == "" {
		metadata.OutputName = defaultOutputName
	}

	return &metadata, nil
}

// sessionSpec resolves the sidecar into concrete tensor shapes. A configured
// image size takes precedence over the sidecar's own.
func (m *Metadata) sessionSpec(path string, imageSize int, layout string) (sessionSpec, error) {
	if len(m.InputShape) == 0 || len(m.OutputShape) == 0 {
		return sessionSpec{}, fmt.Errorf("metadata is missing input_shape or output_shape")
	}

	if imageSize == 0 {
		imageSize = m.ImageSize
	}

	inputShape, geometry, err := ResolveInputShape(m.InputShape, imageSize, layout)
	if err != nil {
		return sessionSpec{}, err
	}

	outputShape, err := ResolveOutputShape(m.OutputShape)
	if err != nil {
		return sessionSpec{}, err
	}

	return sessionSpec{
		path:        path,
		inputName:   m.InputName,
		outputName:  m.OutputName,
		inputShape:  inputShape,
		outputShape: outputShape,
		parameters:  m.TotalParameters,
		layout:      geometry.Layout,
	}, nil
}
