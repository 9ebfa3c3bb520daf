package nn

import (
	"os"
	"sync"

	"github.com/pkg/errors"
	ort "github.com/yalue/onnxruntime_go"
)

var (
	ortInitOnce sync.Once
	ortInitErr  error
)

func initRuntime() error {
	ortInitOnce.Do(func() {
		if p := os.Getenv("ORT_SHARED_LIBRARY_PATH"); p != "" {
			ort.SetSharedLibraryPath(p)
		}
		ortInitErr = ort.InitializeEnvironment()
	})
	return ortInitErr
}

// OnnxInferer runs single-position forward passes through an ONNX export of
// the network. The model is trained elsewhere (typically in Python) and
// consumed here as an opaque weight snapshot; each self-play worker builds
// its own OnnxInferer so no session is shared across workers.
//
// The model must expose an "input" of shape (1, squares, planes*history) and
// outputs "policy" (1, action space) and "value" (1, 1), with value already
// projected into [-1, 1].
type OnnxInferer struct {
	session *ort.DynamicAdvancedSession
	conf    Config
	mu      sync.Mutex
}

// NewOnnxInferer loads a model from a serialized ONNX blob.
func NewOnnxInferer(model []byte, conf Config) (*OnnxInferer, error) {
	if !conf.IsValid() {
		return nil, errors.New("network config is not valid")
	}
	if len(model) == 0 {
		return nil, errors.New("empty model blob")
	}
	if err := initRuntime(); err != nil {
		return nil, errors.WithMessage(err, "initialize onnx runtime")
	}

	options, err := ort.NewSessionOptions()
	if err != nil {
		return nil, errors.WithStack(err)
	}
	defer options.Destroy()
	// one intra-op thread: parallelism comes from the self-play workers
	options.SetIntraOpNumThreads(1)
	options.SetInterOpNumThreads(1)

	session, err := ort.NewDynamicAdvancedSessionWithONNXData(
		model, []string{"input"}, []string{"policy", "value"}, options)
	if err != nil {
		return nil, errors.WithMessage(err, "create onnx session")
	}
	return &OnnxInferer{session: session, conf: conf}, nil
}

// NewOnnxInfererFromFile loads a model from an .onnx file on disk.
func NewOnnxInfererFromFile(path string, conf Config) (*OnnxInferer, error) {
	model, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.WithMessagef(err, "read model %s", path)
	}
	return NewOnnxInferer(model, conf)
}

// Infer runs one forward pass, returning raw policy scores over the full
// action space and the scalar value estimate.
func (o *OnnxInferer) Infer(input []float32) ([]float32, float32, error) {
	if len(input) != o.conf.InputSize() {
		return nil, 0, errors.Errorf("input length %d, want %d", len(input), o.conf.InputSize())
	}
	o.mu.Lock()
	defer o.mu.Unlock()

	squares := int64(o.conf.Width * o.conf.Height)
	width := int64(o.conf.Planes * o.conf.History)
	inputTensor, err := ort.NewTensor(ort.NewShape(1, squares, width), input)
	if err != nil {
		return nil, 0, errors.WithMessage(err, "create input tensor")
	}
	defer inputTensor.Destroy()

	policyTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(1, int64(o.conf.ActionSpace)))
	if err != nil {
		return nil, 0, errors.WithMessage(err, "create policy tensor")
	}
	defer policyTensor.Destroy()

	valueTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(1, 1))
	if err != nil {
		return nil, 0, errors.WithMessage(err, "create value tensor")
	}
	defer valueTensor.Destroy()

	err = o.session.Run([]ort.Value{inputTensor}, []ort.Value{policyTensor, valueTensor})
	if err != nil {
		return nil, 0, errors.WithMessage(err, "run inference")
	}

	policy := append([]float32(nil), policyTensor.GetData()...)
	value := valueTensor.GetData()[0]
	return policy, value, nil
}

func (o *OnnxInferer) Close() error {
	return errors.WithStack(o.session.Destroy())
}
