// Package common - Detection records shared by the detector, annotator and orchestrator.
package common

import (
	"fmt"
	"sort"

	"github.com/mapo80/signature-detection/images"
)

// Detection is one model-produced localization in pixel space.
type Detection struct {
	// Box is the detection in pixel corner form.
	Box images.Rect `json:"box" yaml:"box"`
	// ClassID is the model class index.
	ClassID int `json:"class_id" yaml:"class_id"`
	// Label is the human readable class name.
	Label string `json:"label" yaml:"label"`
	// Confidence is the score in [0,1].
	Confidence float32 `json:"confidence" yaml:"confidence"`
}

// IoU returns the intersection over union with another detection.
func (d Detection) IoU(other Detection) float32 {
	return images.CalculateIoU(d.Box, other.Box)
}

// Caption is the short overlay text, e.g. "signature 0.87".
func (d Detection) Caption() string {
	return fmt.Sprintf("%s %.2f", d.Label, d.Confidence)
}

func (d Detection) String() string {
	return fmt.Sprintf("Object %s (confidence %f): %s", d.Label, d.Confidence, d.Box)
}

// SortByConfidence orders detections by descending confidence. Ties keep their order.
func SortByConfidence(detections []Detection) {
	sort.SliceStable(detections, func(i, j int) bool {
		return detections[i].Confidence > detections[j].Confidence
	})
}
