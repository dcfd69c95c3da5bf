// Package controller runs the detect, label, annotate and write pipeline over a dataset.
package controller

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gocv.io/x/gocv"

	"github.com/mapo80/signature-detection/annotate"
	"github.com/mapo80/signature-detection/common"
	"github.com/mapo80/signature-detection/detector"
	"github.com/mapo80/signature-detection/images"
	"github.com/mapo80/signature-detection/labels"
	"github.com/mapo80/signature-detection/profiler"
	"github.com/mapo80/signature-detection/util"
)

const (
	// ImagesDir is the image directory name inside a dataset.
	ImagesDir = "images"
	// DefaultExtension is the image extension enumerated when none is configured.
	DefaultExtension = ".jpg"
)

// Config locates the dataset and the output.
type Config struct {
	// DatasetDir contains images/ and labels/.
	DatasetDir string
	// OutputDir receives the annotated images; created if missing.
	OutputDir string
	// Extension selects the images to process, case-insensitively.
	Extension string
	// DetectTimeout bounds each detector call. Zero disables the bound.
	DetectTimeout time.Duration
}

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the logger.
func WithLogger(log logrus.FieldLogger) Option {
	return func(c *Controller) { c.log = log }
}

// WithProfiler records stage timings into p instead of a private profiler.
func WithProfiler(p *profiler.Profiler) Option {
	return func(c *Controller) { c.profiler = p }
}

// Controller orchestrates one batch at a time.
type Controller struct {
	config    Config
	detector  detector.Detector
	annotator annotate.Annotator
	log       logrus.FieldLogger
	profiler  *profiler.Profiler
	state     atomic.Int32
}

// New creates a Controller.
//
// Arguments:
//   - cfg: The dataset and output locations.
//   - det: The detector run on every image.
//   - ann: The annotator drawing the overlay.
//   - opts: Controller options.
//
// Returns:
//   - *Controller: The controller.
//   - error: An error if a dependency or a directory is missing.
func New(cfg Config, det detector.Detector, ann annotate.Annotator, opts ...Option) (*Controller, error) {
	if det == nil {
		return nil, errors.New("controller: detector is required")
	}
	if ann == nil {
		return nil, errors.New("controller: annotator is required")
	}
	if cfg.DatasetDir == "" || cfg.OutputDir == "" {
		return nil, errors.New("controller: dataset and output directories are required")
	}
	if cfg.DetectTimeout < 0 {
		return nil, errors.New("controller: detect timeout must not be negative")
	}
	if cfg.Extension == "" {
		cfg.Extension = DefaultExtension
	}
	if !strings.HasPrefix(cfg.Extension, ".") {
		cfg.Extension = "." + cfg.Extension
	}

	c := &Controller{
		config:    cfg,
		detector:  det,
		annotator: ann,
		profiler:  profiler.New(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		c.log = l
	}
	return c, nil
}

// State returns the current stage.
func (c *Controller) State() State {
	return State(c.state.Load())
}

func (c *Controller) setState(s State, log logrus.FieldLogger) {
	if prev := State(c.state.Swap(int32(s))); prev != s {
		log.WithField("stage", s.String()).Debug("state transition")
	}
}

// Run processes every image of the dataset sequentially in file name order.
//
// An image whose detection, label reading, annotation or writing fails is
// recorded in Report.Failures and the batch continues. Cancelling ctx stops
// the batch before the next image.
//
// Arguments:
//   - ctx: Cancels the batch.
//
// Returns:
//   - *Report: The run report, partial when an error is returned.
//   - error: ErrDatasetNotFound, an output directory error or ctx.Err().
func (c *Controller) Run(ctx context.Context) (*Report, error) {
	start := time.Now()
	report := &Report{RunID: uuid.NewString()}
	log := c.log.WithField("run_id", report.RunID)

	c.profiler.Reset()
	defer func() {
		report.Duration = time.Since(start)
		report.Stages = c.profiler.Snapshot()
		c.setState(StateIdle, log)
	}()

	c.setState(StateEnumerating, log)
	imagesDir := filepath.Join(c.config.DatasetDir, ImagesDir)
	paths, err := util.ListImageFiles(imagesDir, c.config.Extension)
	if err != nil {
		return report, errors.Wrapf(ErrDatasetNotFound, "%s: %v", imagesDir, errors.Cause(err))
	}

	if len(paths) == 0 {
		log.WithField("dir", imagesDir).Warn("no images found")
		return report, nil
	}

	if err := os.MkdirAll(c.config.OutputDir, 0o755); err != nil {
		return report, errors.Wrapf(err, "create output directory %s", c.config.OutputDir)
	}

	log.WithFields(logrus.Fields{
		"images": len(paths),
		"output": c.config.OutputDir,
	}).Info("batch started")

	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			log.WithError(err).Warn("batch cancelled")
			return report, err
		}

		name := filepath.Base(path)
		ilog := log.WithField("image", name)
		report.Processed++

		result, err := c.processImage(ctx, path, ilog)
		if err != nil {
			ilog.WithError(err).Error("image failed")
			report.Failures = append(report.Failures, Failure{Name: name, Err: err})
			continue
		}

		ilog.WithFields(logrus.Fields{
			"detections":   len(result.Detections),
			"ground_truth": len(result.GroundTruth),
		}).Info("image annotated")
		report.Results = append(report.Results, *result)
	}

	log.WithFields(logrus.Fields{
		"processed": report.Processed,
		"failed":    len(report.Failures),
		"elapsed":   time.Since(start),
	}).Info("batch finished")

	return report, nil
}

func (c *Controller) processImage(ctx context.Context, path string, log logrus.FieldLogger) (*ImageResult, error) {
	name := filepath.Base(path)

	c.setState(StateDetecting, log)
	stop := c.profiler.StartOperation("load")
	img, err := images.Read(path)
	stop()
	if err != nil {
		return nil, &ImageIOError{Path: path, Op: "read", Err: err}
	}
	defer img.Close()

	detections, err := c.detect(ctx, img)
	if err != nil {
		return nil, err
	}
	c.profiler.RecordMetric("detections", float64(len(detections)))

	c.setState(StateLabelLoading, log)
	labelPath := labels.PathFor(c.config.DatasetDir, name)
	records, found, err := labels.ParseFile(labelPath)
	if err != nil {
		return nil, &ImageIOError{Path: labelPath, Op: "read label", Err: err}
	}
	if !found {
		log.WithField("label", labelPath).Debug("no label file")
	}

	c.setState(StateConverting, log)
	size := images.Size(img)
	groundTruth := labels.ToPixelAll(labels.Boxes(records), size.X, size.Y)

	c.setState(StateAnnotating, log)
	stop = c.profiler.StartOperation("annotate")
	annotated, err := c.annotator.Annotate(img, detections, groundTruth)
	stop()
	if err != nil {
		return nil, &ImageIOError{Path: path, Op: "annotate", Err: err}
	}
	defer annotated.Close()

	c.setState(StateWriting, log)
	output := filepath.Join(c.config.OutputDir, name)
	stop = c.profiler.StartOperation("write")
	err = writeAtomic(output, annotated)
	stop()
	if err != nil {
		return nil, &ImageIOError{Path: output, Op: "write", Err: err}
	}

	return &ImageResult{
		Name:        name,
		Output:      output,
		Detections:  detections,
		GroundTruth: groundTruth,
		LabelFound:  found,
	}, nil
}

func (c *Controller) detect(ctx context.Context, img gocv.Mat) ([]common.Detection, error) {
	if c.config.DetectTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.config.DetectTimeout)
		defer cancel()
	}

	defer c.profiler.StartOperation("detect")()
	detections, err := c.detector.Detect(ctx, img)
	if err != nil {
		if errors.Is(err, detector.ErrModelInference) {
			return nil, err
		}
		return nil, &detector.InferenceError{Err: err}
	}
	return detections, nil
}

// writeAtomic encodes img next to path and renames it into place, so a
// failed write never leaves a partial file at path.
func writeAtomic(path string, img gocv.Mat) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*-"+filepath.Base(path))
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return err
	}

	if err := images.Write(tmpPath, img); err != nil {
		os.Remove(tmpPath)
		return err
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return err
	}
	return nil
}
