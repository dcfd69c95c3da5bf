package detector

import (
	"context"

	"github.com/pkg/errors"
	"gocv.io/x/gocv"
	"golang.org/x/sync/errgroup"

	"github.com/mapo80/signature-detection/common"
	"github.com/mapo80/signature-detection/models/postprocess"
)

// Strategy selects how member detections are combined.
type Strategy string

const (
	// StrategyWBF merges overlapping boxes with weighted box fusion.
	StrategyWBF Strategy = "wbf"
	// StrategySoftVote averages overlapping boxes across members.
	StrategySoftVote Strategy = "soft_vote"
)

// EnsembleConfig parameterizes an Ensemble.
type EnsembleConfig struct {
	Strategy     Strategy
	IoUThreshold float32
	// Threshold drops combined detections scoring below it.
	Threshold float32
	// Weights calibrates each member's scores for soft voting.
	Weights []float32
	// Geometry drops fused boxes of implausible size or shape. Nil skips it.
	Geometry *postprocess.GeometryConfig
	// SoftNMS decays the scores of fused boxes crowding a stronger one. Nil skips it.
	SoftNMS *postprocess.SoftNMSConfig
}

// Ensemble runs several detectors on the same image and fuses their output.
type Ensemble struct {
	members []Detector
	config  EnsembleConfig
}

// NewEnsemble combines members.
//
// Arguments:
//   - config: The combination strategy.
//   - members: Two or more detectors.
//
// Returns:
//   - *Ensemble: The ensemble.
//   - error: An error for fewer than two members or an unknown strategy.
func NewEnsemble(config EnsembleConfig, members ...Detector) (*Ensemble, error) {
	if len(members) < 2 {
		return nil, errors.Errorf("ensemble needs at least 2 detectors, got %d", len(members))
	}
	switch config.Strategy {
	case StrategyWBF, StrategySoftVote:
	default:
		return nil, errors.Errorf("unknown ensemble strategy %q", config.Strategy)
	}
	if config.IoUThreshold <= 0 || config.IoUThreshold > 1 {
		return nil, errors.Errorf("ensemble IoU threshold %v out of (0,1]", config.IoUThreshold)
	}
	return &Ensemble{members: members, config: config}, nil
}

// Detect runs every member concurrently and combines the results. The first
// member failure cancels the others and is returned.
func (e *Ensemble) Detect(ctx context.Context, img gocv.Mat) ([]common.Detection, error) {
	found := make([][]common.Detection, len(e.members))

	g, gctx := errgroup.WithContext(ctx)
	for i, m := range e.members {
		g.Go(func() error {
			dets, err := m.Detect(gctx, img)
			if err != nil {
				return errors.Wrapf(err, "ensemble member %d", i)
			}
			found[i] = dets
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, inferenceError(err)
	}

	labels := make(map[int]string)
	sets := make([][]postprocess.Result, len(found))
	for i, dets := range found {
		for _, d := range dets {
			labels[d.ClassID] = d.Label
			sets[i] = append(sets[i], postprocess.Result{
				Box:   postprocess.Box{X1: float32(d.Box.X1), Y1: float32(d.Box.Y1), X2: float32(d.Box.X2), Y2: float32(d.Box.Y2)},
				Score: d.Confidence,
				Class: d.ClassID,
			})
		}
	}

	var fused []postprocess.Result
	switch e.config.Strategy {
	case StrategySoftVote:
		fused = postprocess.SoftVote(sets, postprocess.SoftVoteConfig{
			IoUThreshold: e.config.IoUThreshold,
			Threshold:    e.config.Threshold,
			Weights:      e.config.Weights,
		})
	default:
		fused = postprocess.FilterByScore(postprocess.WeightedBoxFusion(sets, e.config.IoUThreshold), e.config.Threshold)
		if e.config.Geometry != nil {
			fused = postprocess.FilterByGeometry(fused, *e.config.Geometry)
		}
		if e.config.SoftNMS != nil {
			fused = postprocess.ApplySoftNMSDistance(fused, *e.config.SoftNMS)
		}
	}

	w, h := img.Cols(), img.Rows()
	detections := make([]common.Detection, 0, len(fused))
	for _, r := range fused {
		box := r.Box.Rect(w, h)
		if box.Empty() {
			continue
		}
		detections = append(detections, common.Detection{
			Box:        box,
			ClassID:    r.Class,
			Label:      labels[r.Class],
			Confidence: r.Score,
		})
	}
	common.SortByConfidence(detections)
	return detections, nil
}
