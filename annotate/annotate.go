// Package annotate draws predicted and ground-truth boxes onto images.
package annotate

import (
	"image"
	"image/color"

	"gocv.io/x/gocv"

	"github.com/mapo80/signature-detection/common"
	"github.com/mapo80/signature-detection/images"
)

// ErrEmptyImage is returned for an empty input Mat.
var ErrEmptyImage = images.ErrEmptyImage

// Annotator overlays detections and ground truth on an image.
type Annotator interface {
	// Annotate returns a new Mat; img is left unchanged. The caller owns the result.
	Annotate(img gocv.Mat, detections []common.Detection, groundTruth []images.Rect) (gocv.Mat, error)
}

// Style holds the overlay colours and text settings.
type Style struct {
	PredictionColor  color.RGBA
	GroundTruthColor color.RGBA
	Thickness        int
	FontScale        float64
	// ShowLabels draws the caption above each box.
	ShowLabels bool
	// GroundTruthLabel is the caption of ground-truth boxes.
	GroundTruthLabel string
}

// DefaultStyle draws green predictions and red "GT" boxes, two pixels wide.
func DefaultStyle() Style {
	return Style{
		PredictionColor:  images.GreenColor,
		GroundTruthColor: images.RedColor,
		Thickness:        2,
		FontScale:        0.5,
		ShowLabels:       true,
		GroundTruthLabel: "GT",
	}
}

// Drawer implements Annotator with OpenCV drawing primitives.
type Drawer struct {
	style Style
}

// New creates a Drawer. A non-positive thickness falls back to 2.
func New(style Style) *Drawer {
	if style.Thickness <= 0 {
		style.Thickness = 2
	}
	if style.FontScale <= 0 {
		style.FontScale = 0.5
	}
	return &Drawer{style: style}
}

// Annotate draws on a clone of img: predictions first, ground truth last,
// so ground truth stays visible where the two overlap.
//
// Arguments:
//   - img: The source image.
//   - detections: Predicted boxes, captioned "<label> <score>".
//   - groundTruth: Reference boxes. Out of frame parts are clipped by OpenCV.
//
// Returns:
//   - gocv.Mat: The annotated copy.
//   - error: ErrEmptyImage if img holds no pixels.
func (d *Drawer) Annotate(img gocv.Mat, detections []common.Detection, groundTruth []images.Rect) (gocv.Mat, error) {
	if img.Empty() {
		return gocv.Mat{}, ErrEmptyImage
	}

	out := img.Clone()

	for _, det := range detections {
		d.draw(&out, det.Box, d.style.PredictionColor, det.Caption())
	}
	for _, gt := range groundTruth {
		d.draw(&out, gt, d.style.GroundTruthColor, d.style.GroundTruthLabel)
	}

	return out, nil
}

func (d *Drawer) draw(img *gocv.Mat, box images.Rect, c color.RGBA, caption string) {
	gocv.Rectangle(img, box.Rectangle(), c, d.style.Thickness)
	if !d.style.ShowLabels || caption == "" {
		return
	}
	gocv.PutText(img, caption, labelOrigin(box), gocv.FontHersheySimplex, d.style.FontScale, c, d.style.Thickness)
}

// labelOrigin places the caption baseline just above the box, or inside it
// when the box touches the top edge.
func labelOrigin(box images.Rect) image.Point {
	r := box.Rectangle()
	y := r.Min.Y - 5
	if y < 12 {
		y = r.Min.Y + 15
	}
	return image.Pt(r.Min.X, y)
}
