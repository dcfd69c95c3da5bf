package postprocess

// WeightedBoxFusion merges overlapping boxes from one or more sources.
//
// Boxes are visited by descending score; each unclaimed box starts a cluster
// that absorbs every other unclaimed box with IoU above iouThreshold. The
// fused box is the score-weighted mean of the cluster and keeps the highest
// score and the class of the seed.
//
// Arguments:
//   - sets: Result lists, typically one per model.
//   - iouThreshold: The clustering overlap.
//
// Returns:
//   - The fused results, by descending seed score.
func WeightedBoxFusion(sets [][]Result, iouThreshold float32) []Result {
	var all []Result
	for _, set := range sets {
		all = append(all, set...)
	}
	SortByScore(all)

	used := make([]bool, len(all))
	fused := make([]Result, 0, len(all))
	for i := range all {
		if used[i] {
			continue
		}
		used[i] = true
		cluster := []Result{all[i]}
		for j := i + 1; j < len(all); j++ {
			if !used[j] && IoU(all[i].Box, all[j].Box) > iouThreshold {
				used[j] = true
				cluster = append(cluster, all[j])
			}
		}

		box, sum := weightedMean(cluster)
		if sum <= 0 {
			continue
		}
		fused = append(fused, Result{Box: box, Score: all[i].Score, Class: all[i].Class})
	}

	return fused
}

// SoftVoteConfig parameterizes SoftVote.
type SoftVoteConfig struct {
	// IoUThreshold is the overlap (inclusive) with any group member needed to join the group.
	IoUThreshold float32 `json:"iou_threshold" yaml:"iou_threshold"`
	// Threshold drops groups whose averaged score is below it.
	Threshold float32 `json:"threshold" yaml:"threshold"`
	// Weights calibrates each source's scores; missing entries default to 1.
	Weights []float32 `json:"weights" yaml:"weights"`
}

// SoftVote combines result sets from several models by grouping boxes that
// overlap and averaging them.
//
// Every box, after multiplying its score by the weight of its source, joins
// the first existing group holding a member it overlaps with, or starts a new
// group. Each group yields the score-weighted mean box with score
// sum(scores)/len(group).
//
// Arguments:
//   - sets: Result lists, one per model.
//   - config: Grouping and calibration parameters.
//
// Returns:
//   - The voted results, in group creation order.
func SoftVote(sets [][]Result, config SoftVoteConfig) []Result {
	var groups [][]Result
	for s, set := range sets {
		weight := float32(1)
		if s < len(config.Weights) {
			weight = config.Weights[s]
		}
		for _, r := range set {
			r.Score *= weight
			joined := false
			for g := range groups {
				if overlapsAny(groups[g], r, config.IoUThreshold) {
					groups[g] = append(groups[g], r)
					joined = true
					break
				}
			}
			if !joined {
				groups = append(groups, []Result{r})
			}
		}
	}

	voted := make([]Result, 0, len(groups))
	for _, g := range groups {
		box, sum := weightedMean(g)
		if sum <= 0 {
			continue
		}
		score := sum / float32(len(g))
		if score < config.Threshold {
			continue
		}
		voted = append(voted, Result{Box: box, Score: score, Class: g[0].Class})
	}
	return voted
}

func overlapsAny(group []Result, r Result, threshold float32) bool {
	for _, o := range group {
		if IoU(o.Box, r.Box) >= threshold {
			return true
		}
	}
	return false
}

func weightedMean(cluster []Result) (Box, float32) {
	var box Box
	var sum float32
	for _, c := range cluster {
		box.X1 += c.Box.X1 * c.Score
		box.Y1 += c.Box.Y1 * c.Score
		box.X2 += c.Box.X2 * c.Score
		box.Y2 += c.Box.Y2 * c.Score
		sum += c.Score
	}
	if sum <= 0 {
		return Box{}, 0
	}
	return Box{X1: box.X1 / sum, Y1: box.Y1 / sum, X2: box.X2 / sum, Y2: box.Y2 / sum}, sum
}
