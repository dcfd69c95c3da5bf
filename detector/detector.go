// Package detector turns a model engine into per-image signature detections.
package detector

import (
	"context"
	"image"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gocv.io/x/gocv"

	"github.com/mapo80/signature-detection/common"
	"github.com/mapo80/signature-detection/images"
	"github.com/mapo80/signature-detection/inference"
	"github.com/mapo80/signature-detection/models"
	"github.com/mapo80/signature-detection/models/postprocess"
)

// Detector finds signatures in one image.
type Detector interface {
	// Detect returns detections in img's pixel space. img is not modified.
	Detect(ctx context.Context, img gocv.Mat) ([]common.Detection, error)
}

// Option configures an Adapter.
type Option func(*Adapter)

// WithClasses sets the class set used to label detections.
func WithClasses(set models.OutputClassSet) Option {
	return func(a *Adapter) { a.classes = set }
}

// WithTimeout bounds each engine call. Zero disables the bound.
func WithTimeout(d time.Duration) Option {
	return func(a *Adapter) { a.timeout = d }
}

// WithLogger sets the logger.
func WithLogger(log logrus.FieldLogger) Option {
	return func(a *Adapter) { a.log = log }
}

// Adapter implements Detector on top of an inference.Engine.
type Adapter struct {
	engine  inference.Engine
	classes models.OutputClassSet
	timeout time.Duration
	log     logrus.FieldLogger
}

// New wraps engine.
//
// Arguments:
//   - engine: The loaded model.
//   - opts: Adapter options.
//
// Returns:
//   - *Adapter: The detector, labelling with SignatureClasses by default.
func New(engine inference.Engine, opts ...Option) *Adapter {
	a := &Adapter{
		engine:  engine,
		classes: models.SignatureClasses,
		log:     discardLogger(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Detect runs the engine on a copy of img.
//
// Results are rounded to integer pixels and clamped to the frame; boxes
// that are empty after clamping are dropped. Detections are ordered by
// descending confidence.
//
// Arguments:
//   - ctx: Cancels the engine call.
//   - img: The BGR image.
//
// Returns:
//   - []common.Detection: The detections.
//   - error: An *InferenceError on any failure.
func (a *Adapter) Detect(ctx context.Context, img gocv.Mat) ([]common.Detection, error) {
	if img.Empty() {
		return nil, inferenceError(images.ErrEmptyImage)
	}

	src, err := img.ToImage()
	if err != nil {
		return nil, inferenceError(errors.Wrap(err, "convert mat to image"))
	}
	frame := image.Pt(img.Cols(), img.Rows())

	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	start := time.Now()
	results, err := a.engine.Predict(ctx, src)
	if err != nil {
		return nil, inferenceError(err)
	}

	detections := a.convert(results, frame)
	fields := logrus.Fields{
		"raw":        len(results),
		"detections": len(detections),
		"elapsed":    time.Since(start),
	}
	if sr, ok := a.engine.(inference.StatsReporter); ok {
		stats := sr.Stats()
		fields["inferences"] = stats.Inferences
		fields["avg_inference"] = stats.Average()
	}
	a.log.WithFields(fields).Debug("detect")

	return detections, nil
}

// Close releases the engine, logging its run counters when it keeps them.
func (a *Adapter) Close() error {
	if sr, ok := a.engine.(inference.StatsReporter); ok {
		stats := sr.Stats()
		a.log.WithFields(logrus.Fields{
			"inferences":    stats.Inferences,
			"avg_inference": stats.Average(),
		}).Info("engine stats")
	}
	return a.engine.Close()
}

func (a *Adapter) convert(results []postprocess.Result, frame image.Point) []common.Detection {
	detections := make([]common.Detection, 0, len(results))
	for _, r := range results {
		box := r.Box.Rect(frame.X, frame.Y)
		if box.Empty() {
			continue
		}
		detections = append(detections, common.Detection{
			Box:        box,
			ClassID:    r.Class,
			Label:      a.classes.Name(r.Class),
			Confidence: r.Score,
		})
	}
	common.SortByConfidence(detections)
	return detections
}
