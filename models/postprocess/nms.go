package postprocess

import "github.com/chewxy/math32"

// NMSConfig defines parameters for Non-Maximum Suppression.
type NMSConfig struct {
	// IoUThreshold is the overlap above which the lower scored box is suppressed.
	IoUThreshold float32 `json:"iou_threshold" yaml:"iou_threshold"`
	// ClassAware restricts suppression to boxes of the same class.
	ClassAware bool `json:"class_aware" yaml:"class_aware"`
}

// DefaultNMSConfig returns the configuration used by the signature models.
func DefaultNMSConfig() NMSConfig {
	return NMSConfig{IoUThreshold: 0.45, ClassAware: true}
}

// ApplyGreedyNMS performs standard greedy Non-Maximum Suppression.
//
// Arguments:
//   - detections: The candidate results, in any order. The slice is not modified.
//   - config: NMS configuration.
//
// Returns:
//   - The kept results, by descending score. nil when detections is empty.
func ApplyGreedyNMS(detections []Result, config NMSConfig) []Result {
	n := len(detections)
	if n == 0 {
		return nil
	}

	sorted := cloneResults(detections)
	SortByScore(sorted)

	filtered := make([]Result, 0, n)
	used := make([]bool, n)

	for i := 0; i < n; i++ {
		if used[i] {
			continue
		}

		anchor := sorted[i]
		filtered = append(filtered, anchor)
		used[i] = true

		for j := i + 1; j < n; j++ {
			if used[j] {
				continue
			}
			if config.ClassAware && sorted[j].Class != anchor.Class {
				continue
			}
			if IoU(anchor.Box, sorted[j].Box) > config.IoUThreshold {
				used[j] = true
			}
		}
	}

	return filtered
}

// SoftNMSConfig parameterizes ApplySoftNMSDistance.
type SoftNMSConfig struct {
	// Sigma controls how fast scores decay with overlap.
	Sigma float32 `json:"sigma" yaml:"sigma"`
	// DistanceScale is the centroid distance, in pixels, at which closeness is e^-1.
	DistanceScale float32 `json:"distance_scale" yaml:"distance_scale"`
	// ScoreThreshold drops results whose decayed score falls below it.
	ScoreThreshold float32 `json:"score_threshold" yaml:"score_threshold"`
}

// DefaultSoftNMSConfig returns sigma 0.5 and a 150 px distance scale.
func DefaultSoftNMSConfig() SoftNMSConfig {
	return SoftNMSConfig{Sigma: 0.5, DistanceScale: 150}
}

// ApplySoftNMSDistance decays, rather than removes, the scores of boxes that
// overlap a higher scored box or sit close to it.
//
// The decay applied to each remaining box is exp(-(iou² + closeness)/sigma)
// with closeness = exp(-dist²/distanceScale²), where dist is the centroid
// distance. Far, disjoint boxes keep their score.
//
// Arguments:
//   - detections: The candidate results. The slice is not modified.
//   - config: Decay parameters.
//
// Returns:
//   - The results with decayed scores, in selection order.
func ApplySoftNMSDistance(detections []Result, config SoftNMSConfig) []Result {
	work := cloneResults(detections)
	kept := make([]Result, 0, len(work))

	for len(work) > 0 {
		SortByScore(work)
		current := work[0]
		work = work[1:]
		if current.Score < config.ScoreThreshold {
			continue
		}
		kept = append(kept, current)

		cx, cy := current.Box.Center()
		for i := range work {
			iou := IoU(current.Box, work[i].Box)
			ox, oy := work[i].Box.Center()
			dx, dy := cx-ox, cy-oy
			dist2 := dx*dx + dy*dy
			closeness := math32.Exp(-dist2 / (config.DistanceScale * config.DistanceScale))
			decay := math32.Exp(-(iou*iou + closeness) / config.Sigma)
			work[i].Score *= decay
		}
	}

	return kept
}
