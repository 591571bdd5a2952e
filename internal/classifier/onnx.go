package classifier

import (
	"fmt"
	"os"
	"runtime"
	"sync"

	"github.com/cozy-creator/classify-server/internal/utils/pathutil"

	ort "github.com/yalue/onnxruntime_go"
)

var runtimeMu sync.Mutex

// InitRuntime loads the ONNX Runtime shared library once per process.
func InitRuntime(libPath string) error {
	runtimeMu.Lock()
	defer runtimeMu.Unlock()

	if ort.IsInitialized() {
		return nil
	}

	if libPath != "" {
		ort.SetSharedLibraryPath(libPath)
	}

	if err := ort.InitializeEnvironment(); err != nil {
		return fmt.Errorf("failed to initialize ONNX environment: %w", err)
	}

	return nil
}

func DestroyRuntime() error {
	runtimeMu.Lock()
	defer runtimeMu.Unlock()

	if !ort.IsInitialized() {
		return nil
	}

	return ort.DestroyEnvironment()
}

// ONNXOptions configures how ONNX artifacts are opened.
type ONNXOptions struct {
	LibraryPath string
	ImageSize   int
	Layout      string
	// IntraOpThreads of 0 uses one thread per CPU.
	IntraOpThreads int
}

type sessionSpec struct {
	path        string
	inputName   string
	outputName  string
	inputShape  []int64
	outputShape []int64
	parameters  int64
	layout      string
}

// onnxModel owns one session whose input and output tensors are bound at
// creation, so Predict calls are serialized.
type onnxModel struct {
	mu      sync.Mutex
	session *ort.AdvancedSession
	input   *ort.Tensor[float32]
	output  *ort.Tensor[float32]
	info    Info
}

func (m *onnxModel) Predict(input []float32) ([]float32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	data := m.input.GetData()
	if len(input) != len(data) {
		return nil, fmt.Errorf("%w: expected %d values, got %d", ErrInputSize, len(data), len(input))
	}
	copy(data, input)

	if err := m.session.Run(); err != nil {
		return nil, fmt.Errorf("inference failed: %w", err)
	}

	output := m.output.GetData()
	scores := make([]float32, len(output))
	copy(scores, output)

	return scores, nil
}

func (m *onnxModel) Info() Info {
	return m.info
}

func (m *onnxModel) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.session != nil {
		m.session.Destroy()
		m.session = nil
	}
	if m.input != nil {
		m.input.Destroy()
		m.input = nil
	}
	if m.output != nil {
		m.output.Destroy()
		m.output = nil
	}

	return nil
}

// introspectSpec reads tensor names and shapes from the ONNX graph itself.
func introspectSpec(path string, opts ONNXOptions) (sessionSpec, error) {
	if _, err := os.Stat(path); err != nil {
		return sessionSpec{}, err
	}

	inputs, outputs, err := ort.GetInputOutputInfo(path)
	if err != nil {
		return sessionSpec{}, fmt.Errorf("failed to read model graph: %w", err)
	}

	if len(inputs) != 1 || len(outputs) < 1 {
		return sessionSpec{}, fmt.Errorf("%w: expected one input, got %d inputs and %d outputs",
			ErrUnsupportedShape, len(inputs), len(outputs))
	}

	if inputs[0].DataType != ort.TensorElementDataTypeFloat {
		return sessionSpec{}, fmt.Errorf("%w: input %q is %v, not float32",
			ErrUnsupportedShape, inputs[0].Name, inputs[0].DataType)
	}

	inputShape, geometry, err := ResolveInputShape([]int64(inputs[0].Dimensions), opts.ImageSize, opts.Layout)
	if err != nil {
		return sessionSpec{}, err
	}

	outputShape, err := ResolveOutputShape([]int64(outputs[0].Dimensions))
	if err != nil {
		return sessionSpec{}, err
	}

	spec := sessionSpec{
		path:        path,
		inputName:   inputs[0].Name,
		outputName:  outputs[0].Name,
		inputShape:  inputShape,
		outputShape: outputShape,
		layout:      geometry.Layout,
	}

	// The graph carries no parameter count; take it from a sidecar if present.
	if metadata, err := ReadMetadata(pathutil.SiblingWithExt(path, ".json")); err == nil {
		spec.parameters = metadata.TotalParameters
	}

	return spec, nil
}

func openSession(spec sessionSpec, tuned bool, threads int) (*onnxModel, error) {
	var options *ort.SessionOptions
	if tuned {
		var err error
		options, err = ort.NewSessionOptions()
		if err != nil {
			return nil, fmt.Errorf("error creating session options: %w", err)
		}
		defer options.Destroy()

		if threads <= 0 {
			threads = runtime.NumCPU()
		}
		if err := options.SetIntraOpNumThreads(threads); err != nil {
			return nil, fmt.Errorf("error setting intra-op threads: %w", err)
		}
		if err := options.SetInterOpNumThreads(threads); err != nil {
			return nil, fmt.Errorf("error setting inter-op threads: %w", err)
		}
	}

	inputTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(spec.inputShape...))
	if err != nil {
		return nil, fmt.Errorf("failed to create input tensor: %w", err)
	}

	outputTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(spec.outputShape...))
	if err != nil {
		inputTensor.Destroy()
		return nil, fmt.Errorf("failed to create output tensor: %w", err)
	}

	session, err := ort.NewAdvancedSession(spec.path,
		[]string{spec.inputName}, []string{spec.outputName},
		[]ort.ArbitraryTensor{inputTensor}, []ort.ArbitraryTensor{outputTensor},
		options)
	if err != nil {
		inputTensor.Destroy()
		outputTensor.Destroy()
		return nil, fmt.Errorf("failed to create ONNX session: %w", err)
	}

	return &onnxModel{
		session: session,
		input:   inputTensor,
		output:  outputTensor,
		info: Info{
			Path:        spec.path,
			InputName:   spec.inputName,
			OutputName:  spec.outputName,
			InputShape:  spec.inputShape,
			OutputShape: spec.outputShape,
			Layout:      spec.layout,
			Parameters:  spec.parameters,
		},
	}, nil
}
