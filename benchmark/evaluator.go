package benchmark

import (
	"context"
	"io"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/mapo80/signature-detection/detector"
	"github.com/mapo80/signature-detection/images"
	"github.com/mapo80/signature-detection/labels"
	"github.com/mapo80/signature-detection/util"
)

// Result is the outcome of one evaluation run.
type Result struct {
	RunID   string        `json:"run_id"`
	Images  int           `json:"images"`
	Failed  int           `json:"failed"`
	Metrics Metrics       `json:"metrics"`
	Timing  Timing        `json:"timing"`
	Memory  MemoryMetrics `json:"memory"`
}

// Option configures an Evaluator.
type Option func(*Evaluator)

// WithIoUThreshold sets the matching overlap.
func WithIoUThreshold(iou float32) Option {
	return func(e *Evaluator) { e.iou = iou }
}

// WithMaxImages evaluates only the first n images; 0 means all.
func WithMaxImages(n int) Option {
	return func(e *Evaluator) { e.maxImages = n }
}

// WithExtension selects the images to evaluate.
func WithExtension(ext string) Option {
	return func(e *Evaluator) { e.extension = ext }
}

// WithLogger sets the logger.
func WithLogger(log logrus.FieldLogger) Option {
	return func(e *Evaluator) { e.log = log }
}

// Evaluator runs a detector over a labelled dataset.
type Evaluator struct {
	detector  detector.Detector
	iou       float32
	maxImages int
	extension string
	log       logrus.FieldLogger
}

// NewEvaluator creates an Evaluator for det.
func NewEvaluator(det detector.Detector, opts ...Option) *Evaluator {
	e := &Evaluator{
		detector:  det,
		iou:       DefaultIoUThreshold,
		extension: ".jpg",
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		e.log = l
	}
	return e
}

// Run evaluates every image of datasetDir/images in file name order.
//
// Images that fail to load or detect are counted in Result.Failed and
// excluded from the metrics together with their ground truth.
//
// Arguments:
//   - ctx: Cancels the run between images.
//   - datasetDir: The dataset root.
//
// Returns:
//   - *Result: The metrics and timings.
//   - error: An error if the dataset cannot be listed or ctx ends.
func (e *Evaluator) Run(ctx context.Context, datasetDir string) (*Result, error) {
	result := &Result{RunID: uuid.NewString()}
	log := e.log.WithField("run_id", result.RunID)

	paths, err := util.ListImageFiles(filepath.Join(datasetDir, "images"), e.extension)
	if err != nil {
		return nil, err
	}
	if e.maxImages > 0 && e.maxImages < len(paths) {
		paths = paths[:e.maxImages]
	}

	var predictions []Prediction
	var groundTruth []GroundTruth
	var durations []time.Duration

	for idx, path := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		ilog := log.WithField("image", filepath.Base(path))
		preds, gts, elapsed, err := e.evaluateImage(ctx, idx, datasetDir, path)
		if err != nil {
			ilog.WithError(err).Warn("image skipped")
			result.Failed++
			continue
		}
		result.Images++
		predictions = append(predictions, preds...)
		groundTruth = append(groundTruth, gts...)
		durations = append(durations, elapsed)
	}

	result.Metrics = Evaluate(predictions, groundTruth, e.iou)
	result.Timing = NewTiming(durations)
	result.Memory = ReadMemoryMetrics()

	log.WithFields(logrus.Fields{
		"images":    result.Images,
		"failed":    result.Failed,
		"precision": result.Metrics.Precision,
		"recall":    result.Metrics.Recall,
		"f1":        result.Metrics.F1,
		"ap":        result.Metrics.AP,
		"mean":      result.Timing.Mean,
		"fps":       result.Timing.FramesPerSecond,
	}).Info("evaluation finished")

	return result, nil
}

func (e *Evaluator) evaluateImage(ctx context.Context, idx int, datasetDir, path string) ([]Prediction, []GroundTruth, time.Duration, error) {
	img, err := images.Read(path)
	if err != nil {
		return nil, nil, 0, err
	}
	defer img.Close()

	records, _, err := labels.ParseFile(labels.PathFor(datasetDir, path))
	if err != nil {
		return nil, nil, 0, errors.Wrap(err, "read labels")
	}

	start := time.Now()
	detections, err := e.detector.Detect(ctx, img)
	elapsed := time.Since(start)
	if err != nil {
		return nil, nil, 0, err
	}

	preds := make([]Prediction, 0, len(detections))
	for _, d := range detections {
		preds = append(preds, Prediction{Image: idx, Box: d.Box, Score: d.Confidence})
	}

	size := images.Size(img)
	rects := labels.ToPixelAll(labels.Boxes(records), size.X, size.Y)
	gts := make([]GroundTruth, 0, len(rects))
	for _, r := range rects {
		gts = append(gts, GroundTruth{Image: idx, Box: r})
	}

	return preds, gts, elapsed, nil
}
