// Package inference - Inference engine interface and implementations.
package inference

import (
	"context"
	"image"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/mapo80/signature-detection/inference/providers"
	"github.com/mapo80/signature-detection/models"
	"github.com/mapo80/signature-detection/models/model"
	"github.com/mapo80/signature-detection/models/postprocess"
	"github.com/mapo80/signature-detection/onnx"
)

// ErrEngineClosed is returned by Predict after Close.
var ErrEngineClosed = errors.New("inference engine is closed")

// Engine defines the interface for ML inference engines
type Engine interface {
	// Predict runs the model on img and returns results in img's pixel space.
	Predict(ctx context.Context, img image.Image) ([]postprocess.Result, error)
	// Close releases the model resources.
	Close() error
}

// StatsReporter is implemented by engines that count their model runs.
type StatsReporter interface {
	Stats() Stats
}

// Stats counts the model runs of an engine.
type Stats struct {
	Inferences int64
	Total      time.Duration
}

// Average returns the mean run time, or zero before the first run.
func (s Stats) Average() time.Duration {
	if s.Inferences == 0 {
		return 0
	}
	return s.Total / time.Duration(s.Inferences)
}

// EngineBuilder builds an Engine with a fluent API. The first error is
// sticky and returned by Build.
type EngineBuilder struct {
	backend  EngineType
	provider providers.Config
	model    model.Model
	err      error
}

// NewEngineBuilder creates a new engine builder for the onnxruntime backend
// on the CPU provider.
//
// Returns:
//   - *EngineBuilder: The engine builder.
func NewEngineBuilder() *EngineBuilder {
	return &EngineBuilder{
		backend:  EngineONNXRuntime,
		provider: providers.DefaultConfig(),
	}
}

// WithBackend selects the runtime that executes the model.
func (b *EngineBuilder) WithBackend(backend EngineType) *EngineBuilder {
	if b.HasError() {
		return b
	}
	if _, err := ParseEngineType(string(backend)); err != nil {
		b.err = err
		return b
	}
	b.backend = backend
	return b
}

// WithProvider sets the execution provider for the onnxruntime backend.
//
// Arguments:
//   - cfg: The provider configuration.
//
// Returns:
//   - *EngineBuilder: The engine builder.
func (b *EngineBuilder) WithProvider(cfg providers.Config) *EngineBuilder {
	if b.HasError() {
		return b
	}
	if err := cfg.Validate(); err != nil {
		b.err = err
		return b
	}
	b.provider = cfg
	return b
}

// WithModel sets the model for the engine.
//
// Arguments:
//   - args: The model arguments.
//
// Returns:
//   - *EngineBuilder: The engine builder.
func (b *EngineBuilder) WithModel(args model.NewModelArgs) *EngineBuilder {
	if b.HasError() {
		return b
	}
	m, err := models.NewModel(args)
	if err != nil {
		b.err = err
		return b
	}
	b.model = m
	return b
}

// HasError checks if the engine builder has errors.
//
// Returns:
//   - bool: True if there are errors, false otherwise.
func (b *EngineBuilder) HasError() bool {
	return b.err != nil
}

// MustBuild builds the engine and panics if there is an error.
//
// Returns:
//   - Engine: The engine.
func (b *EngineBuilder) MustBuild() Engine {
	e, err := b.Build()
	if err != nil {
		panic(err)
	}
	return e
}

// Build loads the model into the selected backend.
//
// Returns:
//   - Engine: The engine.
//   - error: The error if any.
func (b *EngineBuilder) Build() (Engine, error) {
	if b.HasError() {
		return nil, b.err
	}
	if b.model == nil {
		return nil, errors.New("model not configured")
	}

	switch b.backend {
	case EngineOpenCV:
		return onnx.NewEngine(b.model, onnx.DefaultConfig())
	default:
		return newRuntimeEngine(b.model, b.provider)
	}
}

// runtimeEngine runs a model through an onnxruntime session. The session
// tensors are reused, so Predict calls are serialized.
type runtimeEngine struct {
	mu      sync.Mutex
	model   model.Model
	session *providers.Session
	stats   Stats
}

var _ StatsReporter = (*runtimeEngine)(nil)

func newRuntimeEngine(m model.Model, cfg providers.Config) (*runtimeEngine, error) {
	opts := m.Options()

	session, err := providers.NewSession(cfg, providers.NewSessionArgs{
		ModelPath: opts.Path,
		Inputs:    tensorSpecs(opts.Inputs),
		Outputs:   tensorSpecs(opts.Outputs),
	})
	if err != nil {
		return nil, err
	}

	return &runtimeEngine{model: m, session: session}, nil
}

// Predict predicts the output of the model.
//
// Arguments:
//   - ctx: The context for the prediction, checked before and after the run.
//   - img: The image to predict.
//
// Returns:
//   - []postprocess.Result: The decoded results in img's pixel space.
//   - error: The error if any.
func (e *runtimeEngine) Predict(ctx context.Context, img image.Image) ([]postprocess.Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.session == nil {
		return nil, ErrEngineClosed
	}

	opts := e.model.Options()
	if err := PrepareInput(img, e.session.Inputs[0].GetData(), opts.InputSize, opts.Normalization); err != nil {
		return nil, err
	}

	start := time.Now()
	if err := e.session.Run(); err != nil {
		return nil, errors.Wrap(err, "error running ORT session")
	}
	e.stats.Inferences++
	e.stats.Total += time.Since(start)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	outputs := make([][]float32, len(e.session.Outputs))
	for i, t := range e.session.Outputs {
		outputs[i] = t.GetData()
	}

	b := img.Bounds()
	return e.model.PostProcess(outputs, image.Pt(b.Dx(), b.Dy()))
}

// Stats returns the run counters.
func (e *runtimeEngine) Stats() Stats {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stats
}

// Close releases the session.
func (e *runtimeEngine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.session == nil {
		return nil
	}
	err := e.session.Close()
	e.session = nil
	return err
}

func tensorSpecs(ts []model.Tensor) []providers.TensorSpec {
	specs := make([]providers.TensorSpec, 0, len(ts))
	for _, t := range ts {
		specs = append(specs, providers.TensorSpec{Name: t.Name, Shape: t.Shape})
	}
	return specs
}
