// Package config loads the run configuration from YAML and the environment.
package config

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/mapo80/signature-detection/annotate"
	"github.com/mapo80/signature-detection/detector"
	"github.com/mapo80/signature-detection/images"
	"github.com/mapo80/signature-detection/inference"
	"github.com/mapo80/signature-detection/inference/providers"
	"github.com/mapo80/signature-detection/logging"
	"github.com/mapo80/signature-detection/models"
	"github.com/mapo80/signature-detection/models/model"
	"github.com/mapo80/signature-detection/models/postprocess"
)

// Environment variables that override the file.
const (
	EnvDatasetDir = "SIGDET_DATASET_DIR"
	EnvOutputDir  = "SIGDET_OUTPUT_DIR"
	EnvModelPath  = "SIGDET_MODEL_PATH"
	EnvLogLevel   = "SIGDET_LOG_LEVEL"
)

// Config is the full configuration of a run.
type Config struct {
	DatasetDir    string        `yaml:"dataset_dir"`
	OutputDir     string        `yaml:"output_dir"`
	Extension     string        `yaml:"extension"`
	DetectTimeout time.Duration `yaml:"detect_timeout"`

	Log      logging.Config `yaml:"log"`
	Model    ModelConfig    `yaml:"model"`
	Ensemble EnsembleConfig `yaml:"ensemble"`
	Annotate AnnotateConfig `yaml:"annotate"`
}

// ModelConfig selects a model file and how it is executed.
type ModelConfig struct {
	Name                model.Name           `yaml:"name"`
	Path                string               `yaml:"path"`
	Backend             inference.EngineType `yaml:"backend"`
	Provider            providers.Config     `yaml:"provider"`
	InputSize           int                  `yaml:"input_size"`
	ConfidenceThreshold float32              `yaml:"confidence_threshold"`
	// NMSThreshold enables class aware NMS when positive.
	NMSThreshold float32 `yaml:"nms_threshold"`
}

// EnsembleConfig adds a second model whose detections are fused with the first.
type EnsembleConfig struct {
	Enabled      bool              `yaml:"enabled"`
	Strategy     detector.Strategy `yaml:"strategy"`
	Secondary    ModelConfig       `yaml:"secondary"`
	IoUThreshold float32           `yaml:"iou_threshold"`
	Threshold    float32           `yaml:"threshold"`
	Weights      []float32         `yaml:"weights"`
	// Geometry and SoftNMS refine wbf output; null disables either step.
	Geometry *postprocess.GeometryConfig `yaml:"geometry"`
	SoftNMS  *postprocess.SoftNMSConfig  `yaml:"soft_nms"`
}

// AnnotateConfig is the overlay style. Colours are "#RRGGBB".
type AnnotateConfig struct {
	PredictionColor  string  `yaml:"prediction_color"`
	GroundTruthColor string  `yaml:"ground_truth_color"`
	Thickness        int     `yaml:"thickness"`
	FontScale        float64 `yaml:"font_scale"`
	ShowLabels       bool    `yaml:"show_labels"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		DatasetDir: "dataset/dataset1",
		OutputDir:  "output",
		Extension:  ".jpg",
		Log: logging.Config{
			Level:  "info",
			Format: logging.FormatText,
		},
		Model: ModelConfig{
			Name:                model.ModelNameYOLOv8,
			Path:                "yolov8s.onnx",
			Backend:             inference.EngineONNXRuntime,
			Provider:            providers.DefaultConfig(),
			InputSize:           640,
			ConfidenceThreshold: 0.25,
			NMSThreshold:        0.45,
		},
		Ensemble: EnsembleConfig{
			Strategy: detector.StrategyWBF,
			Secondary: ModelConfig{
				Name:                model.ModelNameDETR,
				Path:                "conditional_detr_signature.onnx",
				Backend:             inference.EngineONNXRuntime,
				Provider:            providers.DefaultConfig(),
				InputSize:           640,
				ConfidenceThreshold: 0.1,
			},
			IoUThreshold: 0.55,
			Threshold:    0.3,
			Geometry:     ptr(postprocess.DefaultGeometryConfig()),
			SoftNMS:      ptr(postprocess.DefaultSoftNMSConfig()),
		},
		Annotate: AnnotateConfig{
			PredictionColor:  "#00FF00",
			GroundTruthColor: "#FF0000",
			Thickness:        2,
			FontScale:        0.5,
			ShowLabels:       true,
		},
	}
}

// Load reads path over Default, applies the environment and validates.
//
// Arguments:
//   - path: A YAML file. Empty skips the file.
//
// Returns:
//   - Config: The merged configuration.
//   - error: A read, parse (including unknown keys) or validation error.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return cfg, errors.Wrapf(err, "open config %s", path)
		}
		defer f.Close()

		if err := Decode(f, &cfg); err != nil {
			return cfg, errors.Wrapf(err, "parse config %s", path)
		}
	}

	cfg.ApplyEnv()

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Decode merges YAML from r into cfg, rejecting unknown keys. An empty
// document leaves cfg unchanged.
func Decode(r io.Reader, cfg *Config) error {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// ApplyEnv overrides fields from the SIGDET_* variables and the onnxruntime
// library variable.
func (c *Config) ApplyEnv() {
	if v, ok := os.LookupEnv(EnvDatasetDir); ok && v != "" {
		c.DatasetDir = v
	}
	if v, ok := os.LookupEnv(EnvOutputDir); ok && v != "" {
		c.OutputDir = v
	}
	if v, ok := os.LookupEnv(EnvModelPath); ok && v != "" {
		c.Model.Path = v
	}
	if v, ok := os.LookupEnv(EnvLogLevel); ok && v != "" {
		c.Log.Level = v
	}
	if v, ok := os.LookupEnv(providers.SharedLibraryEnv); ok && v != "" {
		c.Model.Provider.SharedLibraryPath = v
		c.Ensemble.Secondary.Provider.SharedLibraryPath = v
	}
}

// Validate checks the configuration.
//
// Returns:
//   - error: An error naming the first invalid field.
func (c Config) Validate() error {
	if c.DatasetDir == "" {
		return errors.New("dataset_dir is required")
	}
	if c.OutputDir == "" {
		return errors.New("output_dir is required")
	}
	if _, ok := images.FormatFromPath("x" + normalizeExt(c.Extension)); !ok {
		return errors.Errorf("extension %q is not a supported image format", c.Extension)
	}
	if c.DetectTimeout < 0 {
		return errors.New("detect_timeout must not be negative")
	}
	if err := c.Log.Validate(); err != nil {
		return errors.Wrap(err, "log")
	}
	if err := c.Model.Validate(); err != nil {
		return errors.Wrap(err, "model")
	}
	if c.Ensemble.Enabled {
		if err := c.Ensemble.Validate(); err != nil {
			return errors.Wrap(err, "ensemble")
		}
	}
	if _, err := c.Annotate.Style(); err != nil {
		return errors.Wrap(err, "annotate")
	}
	return nil
}

// NormalizedExtension returns Extension with a leading dot.
func (c Config) NormalizedExtension() string {
	return normalizeExt(c.Extension)
}

// Validate checks the model fields.
func (m ModelConfig) Validate() error {
	if !models.Supported(m.Name) {
		return errors.Errorf("unsupported model name %q", m.Name)
	}
	if m.Path == "" {
		return errors.New("path is required")
	}
	if _, err := inference.ParseEngineType(string(m.Backend)); err != nil {
		return err
	}
	if err := m.Provider.Validate(); err != nil {
		return errors.Wrap(err, "provider")
	}
	if m.InputSize <= 0 {
		return errors.Errorf("input_size %d must be positive", m.InputSize)
	}
	if m.ConfidenceThreshold < 0 || m.ConfidenceThreshold > 1 {
		return errors.Errorf("confidence_threshold %v out of [0,1]", m.ConfidenceThreshold)
	}
	if m.NMSThreshold < 0 || m.NMSThreshold > 1 {
		return errors.Errorf("nms_threshold %v out of [0,1]", m.NMSThreshold)
	}
	return nil
}

// Args converts the model section to registry arguments.
func (m ModelConfig) Args() model.NewModelArgs {
	args := model.NewModelArgs{
		Name:                m.Name,
		Path:                m.Path,
		InputSize:           m.InputSize,
		ConfidenceThreshold: m.ConfidenceThreshold,
	}
	if m.NMSThreshold > 0 {
		args.NMS = &postprocess.NMSConfig{IoUThreshold: m.NMSThreshold, ClassAware: true}
	}
	return args
}

// Validate checks the ensemble fields.
func (e EnsembleConfig) Validate() error {
	switch e.Strategy {
	case detector.StrategyWBF, detector.StrategySoftVote:
	default:
		return errors.Errorf("unknown strategy %q", e.Strategy)
	}
	if e.IoUThreshold <= 0 || e.IoUThreshold > 1 {
		return errors.Errorf("iou_threshold %v out of (0,1]", e.IoUThreshold)
	}
	if e.Threshold < 0 || e.Threshold > 1 {
		return errors.Errorf("threshold %v out of [0,1]", e.Threshold)
	}
	if n := len(e.Weights); n != 0 && n != 2 {
		return errors.Errorf("weights needs one value per model, got %d", n)
	}
	if g := e.Geometry; g != nil {
		if g.MinArea < 0 || g.MaxArea < g.MinArea {
			return errors.Errorf("geometry area bounds [%v,%v] are invalid", g.MinArea, g.MaxArea)
		}
		if g.MinAspectRatio < 0 || g.MaxAspectRatio < g.MinAspectRatio {
			return errors.Errorf("geometry aspect bounds [%v,%v] are invalid", g.MinAspectRatio, g.MaxAspectRatio)
		}
	}
	if n := e.SoftNMS; n != nil && (n.Sigma <= 0 || n.DistanceScale <= 0) {
		return errors.New("soft_nms sigma and distance_scale must be positive")
	}
	if err := e.Secondary.Validate(); err != nil {
		return errors.Wrap(err, "secondary")
	}
	return nil
}

// DetectorConfig converts the section to the detector ensemble settings.
func (e EnsembleConfig) DetectorConfig() detector.EnsembleConfig {
	return detector.EnsembleConfig{
		Strategy:     e.Strategy,
		IoUThreshold: e.IoUThreshold,
		Threshold:    e.Threshold,
		Weights:      e.Weights,
		Geometry:     e.Geometry,
		SoftNMS:      e.SoftNMS,
	}
}

// Style parses the colours into an annotate.Style.
func (a AnnotateConfig) Style() (annotate.Style, error) {
	style := annotate.DefaultStyle()

	pred, err := images.ParseHexColor(a.PredictionColor)
	if err != nil {
		return style, errors.Wrap(err, "prediction_color")
	}
	gt, err := images.ParseHexColor(a.GroundTruthColor)
	if err != nil {
		return style, errors.Wrap(err, "ground_truth_color")
	}
	if a.Thickness < 0 {
		return style, errors.Errorf("thickness %d must not be negative", a.Thickness)
	}

	style.PredictionColor = pred
	style.GroundTruthColor = gt
	style.Thickness = a.Thickness
	style.FontScale = a.FontScale
	style.ShowLabels = a.ShowLabels
	return style, nil
}

func ptr[T any](v T) *T {
	return &v
}

func normalizeExt(ext string) string {
	if ext == "" || strings.HasPrefix(ext, ".") {
		return ext
	}
	return "." + ext
}
