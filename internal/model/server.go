package model

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	ort "github.com/yalue/onnxruntime_go"

	"github.com/Brownie44l1/attack-lab/internal/catalog"
	"github.com/Brownie44l1/attack-lab/internal/preprocess"
	"github.com/Brownie44l1/attack-lab/internal/telemetry"
)

// ortEnv tracks the process-wide runtime environment. It is created by the
// first NewServer and torn down by Shutdown.
var ortEnv struct {
	mu    sync.Mutex
	ready bool
}

func initORT(libPath string) error {
	ortEnv.mu.Lock()
	defer ortEnv.mu.Unlock()
	if ortEnv.ready {
		return nil
	}
	if libPath != "" {
		ort.SetSharedLibraryPath(libPath)
	}
	if err := ort.InitializeEnvironment(); err != nil {
		return err
	}
	ortEnv.ready = true
	return nil
}

// Shutdown destroys the runtime environment. Every Server must be closed
// first; a later NewServer initialises a fresh environment.
func Shutdown() error {
	ortEnv.mu.Lock()
	defer ortEnv.mu.Unlock()
	if !ortEnv.ready {
		return nil
	}
	ortEnv.ready = false
	if err := ort.DestroyEnvironment(); err != nil {
		return fmt.Errorf("failed to destroy ONNX environment: %w", err)
	}
	return nil
}

// Server runs an ONNX image classifier. Input and output tensors are created
// per call, so one Server can serve concurrent requests.
type Server struct {
	session  *ort.DynamicAdvancedSession
	Manifest Manifest
}

func NewServer(m Manifest) (*Server, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}
	if err := initORT(m.RuntimeLibrary); err != nil {
		return nil, fmt.Errorf("failed to initialize ONNX environment: %w", err)
	}

	inputs, outputs, err := ort.GetInputOutputInfo(m.ModelPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read model info: %w", err)
	}
	if err := validateIO(m, inputs, outputs); err != nil {
		return nil, err
	}

	opts, err := ort.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("failed to create session options: %w", err)
	}
	defer opts.Destroy()
	if err := opts.SetIntraOpNumThreads(m.IntraOpThreads); err != nil {
		return nil, fmt.Errorf("failed to set intra-op threads: %w", err)
	}

	session, err := ort.NewDynamicAdvancedSession(m.ModelPath,
		[]string{m.InputName}, []string{m.OutputName}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to create ONNX session: %w", err)
	}

	return &Server{session: session, Manifest: m}, nil
}

// validateIO checks the declared tensor names exist and that a static class
// dimension agrees with num_classes.
func validateIO(m Manifest, inputs, outputs []ort.InputOutputInfo) error {
	in := slices.IndexFunc(inputs, func(i ort.InputOutputInfo) bool { return i.Name == m.InputName })
	if in < 0 {
		return fmt.Errorf("model has no input %q", m.InputName)
	}
	if dims := inputs[in].Dimensions; len(dims) != 4 {
		return fmt.Errorf("model input %q: expected 4D tensor, got %v", m.InputName, dims)
	}

	out := slices.IndexFunc(outputs, func(o ort.InputOutputInfo) bool { return o.Name == m.OutputName })
	if out < 0 {
		return fmt.Errorf("model has no output %q", m.OutputName)
	}
	dims := outputs[out].Dimensions
	if len(dims) != 2 {
		return fmt.Errorf("model output %q: expected [batch, classes], got %v", m.OutputName, dims)
	}
	if dims[1] > 0 && int(dims[1]) != m.NumClasses {
		return fmt.Errorf("model output %q has %d classes, manifest declares %d", m.OutputName, dims[1], m.NumClasses)
	}
	return nil
}

func (s *Server) InputShape() []int64 {
	return slices.Clone(s.Manifest.InputShape)
}

func (s *Server) NumClasses() int {
	return s.Manifest.NumClasses
}

// Classify runs one forward pass and returns a copy of the logits. The pass
// itself is not interruptible; ctx is only checked before it starts.
func (s *Server) Classify(ctx context.Context, input preprocess.Tensor) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !slices.Equal(input.Shape, s.Manifest.InputShape) {
		return nil, fmt.Errorf("input shape %v does not match model input %v", input.Shape, s.Manifest.InputShape)
	}

	inputTensor, err := ort.NewTensor(ort.NewShape(input.Shape...), input.Data)
	if err != nil {
		return nil, fmt.Errorf("failed to create input tensor: %w", err)
	}
	defer inputTensor.Destroy()

	outputTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(1, int64(s.Manifest.NumClasses)))
	if err != nil {
		return nil, fmt.Errorf("failed to create output tensor: %w", err)
	}
	defer outputTensor.Destroy()

	start := time.Now()
	if err := s.session.Run([]ort.Value{inputTensor}, []ort.Value{outputTensor}); err != nil {
		return nil, fmt.Errorf("inference failed: %w", err)
	}
	telemetry.ObserveInference(time.Since(start))

	src := outputTensor.GetData()
	logits := make([]float32, len(src))
	copy(logits, src)
	return logits, nil
}

func (s *Server) Close() error {
	if s.session != nil {
		return s.session.Destroy()
	}
	return nil
}

// Artifact bundles a loaded classifier with its catalog.
type Artifact struct {
	Classifier Classifier
	Catalog    *catalog.Catalog
	Manifest   Manifest
}

// Load reads the manifest, the catalog and the model, and cross-checks their
// sizes. Any failure leaves nothing open.
func Load(manifestPath string) (*Artifact, error) {
	m, err := LoadManifest(manifestPath)
	if err != nil {
		return nil, err
	}
	cat, err := catalog.Load(m.CatalogPath)
	if err != nil {
		return nil, err
	}
	if cat.Len() != m.NumClasses {
		return nil, fmt.Errorf("catalog has %d classes, manifest declares %d", cat.Len(), m.NumClasses)
	}
	srv, err := NewServer(m)
	if err != nil {
		return nil, err
	}
	return &Artifact{Classifier: srv, Catalog: cat, Manifest: m}, nil
}

// Close releases the session and then the runtime environment. An Artifact
// is the only owner of the environment, so close it on shutdown.
func (a *Artifact) Close() error {
	return errors.Join(a.Classifier.Close(), Shutdown())
}
