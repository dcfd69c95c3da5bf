package controller

import (
	"time"

	"github.com/mapo80/signature-detection/common"
	"github.com/mapo80/signature-detection/images"
	"github.com/mapo80/signature-detection/profiler"
)

// ImageResult is the outcome of one successfully annotated image.
type ImageResult struct {
	// Name is the image file name.
	Name string `json:"name"`
	// Output is the written file path.
	Output      string             `json:"output"`
	Detections  []common.Detection `json:"detections"`
	GroundTruth []images.Rect      `json:"ground_truth"`
	// LabelFound is false when the image had no label file.
	LabelFound bool `json:"label_found"`
}

// Failure records an image the batch skipped.
type Failure struct {
	Name string `json:"name"`
	Err  error  `json:"-"`
}

// Report summarizes a run.
type Report struct {
	RunID string `json:"run_id"`
	// Processed counts the images attempted, successful or not.
	Processed int                                `json:"processed"`
	Results   []ImageResult                      `json:"results"`
	Failures  []Failure                          `json:"failures"`
	Duration  time.Duration                      `json:"duration"`
	Stages    map[string]profiler.OperationStats `json:"stages"`
}

// Empty reports whether the run found no images.
func (r *Report) Empty() bool {
	return r.Processed == 0
}

// Succeeded returns the number of images written.
func (r *Report) Succeeded() int {
	return len(r.Results)
}
