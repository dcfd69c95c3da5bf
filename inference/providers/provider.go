// Package providers - ONNX Runtime environment, execution providers and sessions.
package providers

import (
	"strings"

	"github.com/pkg/errors"
	ort "github.com/yalue/onnxruntime_go"
)

// ProviderBackend represents different ONNX Runtime execution providers
type ProviderBackend string

const (
	// CPUProviderBackend runs on the default CPU provider.
	CPUProviderBackend ProviderBackend = "cpu"
	// CoreMLProviderBackend uses Apple CoreML for macOS/iOS acceleration.
	CoreMLProviderBackend ProviderBackend = "coreml"
	// CUDAProviderBackend uses NVIDIA CUDA for inference optimization.
	CUDAProviderBackend ProviderBackend = "cuda"
	// OpenVINOProviderBackend uses Intel OpenVINO for inference optimization.
	OpenVINOProviderBackend ProviderBackend = "openvino"
)

// Config selects the execution provider and session tuning.
type Config struct {
	// Backend specifies the backend to use
	Backend ProviderBackend `json:"backend" yaml:"backend"`
	// SharedLibraryPath overrides the onnxruntime library location.
	SharedLibraryPath string `json:"shared_library" yaml:"shared_library"`
	// IntraOpNumThreads sets threads for parallelizing ops; 0 lets ORT decide.
	IntraOpNumThreads int `json:"intra_op_num_threads" yaml:"intra_op_num_threads"`
	// InterOpNumThreads sets threads for parallelizing independent ops; 0 lets ORT decide.
	InterOpNumThreads int `json:"inter_op_num_threads" yaml:"inter_op_num_threads"`
	// GraphOptimization is one of disabled, basic, extended, all.
	GraphOptimization string `json:"graph_optimization" yaml:"graph_optimization"`
	// CoreML options, used when Backend is coreml.
	CoreML CoreMLOptions `json:"coreml" yaml:"coreml"`
	// CUDA options, used when Backend is cuda.
	CUDA CUDAOptions `json:"cuda" yaml:"cuda"`
	// OpenVINO options, used when Backend is openvino.
	OpenVINO OpenVINOOptions `json:"openvino" yaml:"openvino"`
}

// DefaultConfig returns a CPU configuration with extended graph optimizations.
func DefaultConfig() Config {
	return Config{
		Backend:           CPUProviderBackend,
		GraphOptimization: "extended",
	}
}

// Validate checks the backend and optimization level.
//
// Returns:
//   - error: An error naming the first invalid field.
func (c Config) Validate() error {
	switch c.Backend {
	case CPUProviderBackend, CoreMLProviderBackend, CUDAProviderBackend, OpenVINOProviderBackend:
	default:
		return errors.Errorf("unsupported execution provider %q", c.Backend)
	}
	if c.IntraOpNumThreads < 0 || c.InterOpNumThreads < 0 {
		return errors.New("thread counts must not be negative")
	}
	if _, err := ParseGraphOptimization(c.GraphOptimization); err != nil {
		return err
	}
	return nil
}

// ParseGraphOptimization maps a level name to the ORT constant. Empty means extended.
func ParseGraphOptimization(level string) (ort.GraphOptimizationLevel, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "disabled", "none":
		return ort.GraphOptimizationLevelDisableAll, nil
	case "basic":
		return ort.GraphOptimizationLevelEnableBasic, nil
	case "", "extended":
		return ort.GraphOptimizationLevelEnableExtended, nil
	case "all":
		return ort.GraphOptimizationLevelEnableAll, nil
	default:
		return ort.GraphOptimizationLevelEnableExtended, errors.Errorf("unknown graph optimization level %q", level)
	}
}

// NewSessionOptions builds ORT session options for the configured provider.
//
// The environment must be initialized first. The caller owns the returned
// options and must Destroy them.
//
// Arguments:
//   - c: The provider configuration.
//
// Returns:
//   - *ort.SessionOptions: The options.
//   - error: An error if an option or the execution provider cannot be applied.
func NewSessionOptions(c Config) (*ort.SessionOptions, error) {
	level, err := ParseGraphOptimization(c.GraphOptimization)
	if err != nil {
		return nil, err
	}

	options, err := ort.NewSessionOptions()
	if err != nil {
		return nil, errors.Wrap(err, "error creating ORT session options")
	}

	fail := func(err error, msg string) (*ort.SessionOptions, error) {
		options.Destroy()
		return nil, errors.Wrap(err, msg)
	}

	if err := options.SetIntraOpNumThreads(c.IntraOpNumThreads); err != nil {
		return fail(err, "error setting intra-op threads")
	}
	if err := options.SetInterOpNumThreads(c.InterOpNumThreads); err != nil {
		return fail(err, "error setting inter-op threads")
	}
	if err := options.SetGraphOptimizationLevel(level); err != nil {
		return fail(err, "error setting graph optimization level")
	}

	switch c.Backend {
	case CPUProviderBackend, "":
	case CoreMLProviderBackend:
		if err := options.AppendExecutionProviderCoreML(c.CoreML.Flags()); err != nil {
			return fail(err, "error enabling CoreML")
		}
	case OpenVINOProviderBackend:
		if err := options.AppendExecutionProviderOpenVINO(c.OpenVINO.ToMap()); err != nil {
			return fail(err, "error enabling OpenVINO")
		}
	case CUDAProviderBackend:
		cuda, err := c.CUDA.ToNativeProviderOptions()
		if err != nil {
			return fail(err, "error converting CUDA options")
		}
		defer cuda.Destroy()
		if err := options.AppendExecutionProviderCUDA(cuda); err != nil {
			return fail(err, "error enabling CUDA")
		}
	default:
		return fail(errors.Errorf("%q", c.Backend), "unsupported execution provider")
	}

	return options, nil
}
