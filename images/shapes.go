// Package images - Pixel-space geometry and gocv image helpers.
package images

import (
	"fmt"
	"image"
)

// Rect is an integer pixel box in corner form.
type Rect struct {
	// X2,Y2 are exclusive (like image.Rectangle).
	X1, Y1, X2, Y2 int
}

// Width returns the horizontal extent of the box.
func (r Rect) Width() int {
	return r.X2 - r.X1
}

// Height returns the vertical extent of the box.
func (r Rect) Height() int {
	return r.Y2 - r.Y1
}

// Area returns the box area, or 0 for degenerate boxes.
func (r Rect) Area() int {
	if r.Width() <= 0 || r.Height() <= 0 {
		return 0
	}
	return r.Width() * r.Height()
}

// Empty reports whether the box covers no pixels.
func (r Rect) Empty() bool {
	return r.Area() == 0
}

// Rectangle converts the box to an image.Rectangle for drawing primitives.
//
// Returns:
//   - image.Rectangle: The same corners; image.Rect canonicalizes swapped corners.
func (r Rect) Rectangle() image.Rectangle {
	return image.Rect(r.X1, r.Y1, r.X2, r.Y2)
}

// Clamp restricts the box to the [0,width)x[0,height) frame.
//
// Arguments:
//   - width: The frame width in pixels.
//   - height: The frame height in pixels.
//
// Returns:
//   - Rect: The clamped box.
func (r Rect) Clamp(width, height int) Rect {
	return Rect{
		X1: clampInt(r.X1, 0, width),
		Y1: clampInt(r.Y1, 0, height),
		X2: clampInt(r.X2, 0, width),
		Y2: clampInt(r.Y2, 0, height),
	}
}

// String returns a compact representation of the box.
func (r Rect) String() string {
	return fmt.Sprintf("(%d,%d)-(%d,%d)", r.X1, r.Y1, r.X2, r.Y2)
}

// FromRectangle converts an image.Rectangle into a Rect.
func FromRectangle(rect image.Rectangle) Rect {
	return Rect{X1: rect.Min.X, Y1: rect.Min.Y, X2: rect.Max.X, Y2: rect.Max.Y}
}

// CalculateIoU returns the intersection over union of two boxes.
//
// Boxes that only touch at an edge, or that are degenerate, yield 0.
//
// Arguments:
//   - r: The first box.
//   - o: The second box.
//
// Returns:
//   - float32: A value in [0,1].
func CalculateIoU(r, o Rect) float32 {
	ix1 := max(r.X1, o.X1)
	iy1 := max(r.Y1, o.Y1)
	ix2 := min(r.X2, o.X2)
	iy2 := min(r.Y2, o.Y2)

	interW := ix2 - ix1
	interH := iy2 - iy1
	if interW <= 0 || interH <= 0 {
		return 0.0
	}
	interArea := interW * interH

	unionArea := r.Area() + o.Area() - interArea
	if unionArea <= 0 {
		return 0.0
	}

	return float32(interArea) / float32(unionArea)
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
