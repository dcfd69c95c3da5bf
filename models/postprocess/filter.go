package postprocess

// GeometryConfig bounds the plausible size and shape of a signature box.
type GeometryConfig struct {
	MinArea        float32 `json:"min_area" yaml:"min_area"`
	MaxArea        float32 `json:"max_area" yaml:"max_area"`
	MinAspectRatio float32 `json:"min_aspect_ratio" yaml:"min_aspect_ratio"`
	MaxAspectRatio float32 `json:"max_aspect_ratio" yaml:"max_aspect_ratio"`
}

// DefaultGeometryConfig returns bounds tuned for handwritten signatures on scanned pages.
func DefaultGeometryConfig() GeometryConfig {
	return GeometryConfig{
		MinArea:        800,
		MaxArea:        400000,
		MinAspectRatio: 0.5,
		MaxAspectRatio: 6,
	}
}

// FilterByScore keeps results whose score is at least threshold.
func FilterByScore(results []Result, threshold float32) []Result {
	kept := make([]Result, 0, len(results))
	for _, r := range results {
		if r.Score >= threshold {
			kept = append(kept, r)
		}
	}
	return kept
}

// FilterByGeometry keeps results whose area and width/height ratio fall
// within the configured bounds (inclusive).
//
// Arguments:
//   - results: The candidate results.
//   - config: The bounds.
//
// Returns:
//   - The kept results, in input order.
func FilterByGeometry(results []Result, config GeometryConfig) []Result {
	kept := make([]Result, 0, len(results))
	for _, r := range results {
		w, h := r.Box.Width(), r.Box.Height()
		if w <= 0 || h <= 0 {
			continue
		}
		area := w * h
		if area < config.MinArea || area > config.MaxArea {
			continue
		}
		ratio := w / h
		if ratio < config.MinAspectRatio || ratio > config.MaxAspectRatio {
			continue
		}
		kept = append(kept, r)
	}
	return kept
}
