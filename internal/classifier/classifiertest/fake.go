// Package classifiertest provides in-memory models for tests.
package classifiertest

import (
	"sync/atomic"

	"github.com/cozy-creator/classify-server/internal/classifier"
)

// FakeModel returns fixed scores and counts how often it ran.
type FakeModel struct {
	Scores []float32
	Err    error
	Shape  []int64
	Layout string

	calls  atomic.Int64
	closed atomic.Bool
}

// NewFakeModel returns a size x size NHWC model that always yields scores.
func NewFakeModel(size int64, scores ...float32) *FakeModel {
	return &FakeModel{
		Scores: scores,
		Shape:  []int64{1, size, size, 3},
	}
}

func (m *FakeModel) Predict(input []float32) ([]float32, error) {
	m.calls.Add(1)
	if m.Err != nil {
		return nil, m.Err
	}

	out := make([]float32, len(m.Scores))
	copy(out, m.Scores)
	return out, nil
}

func (m *FakeModel) Info() classifier.Info {
	return classifier.Info{
		Path:        "fake.onnx",
		InputName:   "input",
		OutputName:  "output",
		InputShape:  m.Shape,
		OutputShape: []int64{1, int64(len(m.Scores))},
		Layout:      m.Layout,
		Parameters:  1234,
	}
}

func (m *FakeModel) Close() error {
	m.closed.Store(true)
	return nil
}

func (m *FakeModel) Calls() int {
	return int(m.calls.Load())
}

func (m *FakeModel) Closed() bool {
	return m.closed.Load()
}
