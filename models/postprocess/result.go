// Package postprocess - Postprocessing utilities for models.
package postprocess

import (
	"math"
	"sort"

	"github.com/chewxy/math32"

	"github.com/mapo80/signature-detection/images"
)

// Box is a corner-form box in floating point pixel coordinates.
type Box struct {
	X1, Y1, X2, Y2 float32
}

// BoxFromCenter builds a corner-form box from center form.
func BoxFromCenter(cx, cy, w, h float32) Box {
	return Box{X1: cx - w/2, Y1: cy - h/2, X2: cx + w/2, Y2: cy + h/2}
}

// Width returns X2-X1.
func (b Box) Width() float32 { return b.X2 - b.X1 }

// Height returns Y2-Y1.
func (b Box) Height() float32 { return b.Y2 - b.Y1 }

// Area returns the box area, 0 for degenerate boxes.
func (b Box) Area() float32 {
	return math32.Max(0, b.Width()) * math32.Max(0, b.Height())
}

// Center returns the box centroid.
func (b Box) Center() (float32, float32) {
	return (b.X1 + b.X2) / 2, (b.Y1 + b.Y2) / 2
}

// Scale multiplies the x and y coordinates by sx and sy.
func (b Box) Scale(sx, sy float32) Box {
	return Box{X1: b.X1 * sx, Y1: b.Y1 * sy, X2: b.X2 * sx, Y2: b.Y2 * sy}
}

// Rect rounds the box to integer pixels and clamps it to a width x height frame.
//
// Arguments:
//   - width: The frame width.
//   - height: The frame height.
//
// Returns:
//   - images.Rect: The pixel box.
func (b Box) Rect(width, height int) images.Rect {
	r := images.Rect{
		X1: int(math.Round(float64(b.X1))),
		Y1: int(math.Round(float64(b.Y1))),
		X2: int(math.Round(float64(b.X2))),
		Y2: int(math.Round(float64(b.Y2))),
	}
	return r.Clamp(width, height)
}

// IoU returns the intersection over union of two float boxes.
func IoU(a, b Box) float32 {
	iw := math32.Min(a.X2, b.X2) - math32.Max(a.X1, b.X1)
	ih := math32.Min(a.Y2, b.Y2) - math32.Max(a.Y1, b.Y1)
	if iw <= 0 || ih <= 0 {
		return 0
	}
	inter := iw * ih
	union := a.Area() + b.Area() - inter
	if union <= 0 {
		return 0
	}
	return inter / union
}

// Result represents a single detection result.
type Result struct {
	// The bounding box of the result.
	Box Box
	// The confidence score of the result.
	Score float32
	// The predicted class index of the result.
	Class int
}

// SortByScore orders results by descending score, in place. Ties keep their order.
func SortByScore(results []Result) {
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
}

func cloneResults(results []Result) []Result {
	out := make([]Result, len(results))
	copy(out, results)
	return out
}
