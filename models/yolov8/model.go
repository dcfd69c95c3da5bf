// Package yolov8 - YOLOv8 signature model.
package yolov8

import (
	"image"

	"github.com/pkg/errors"

	"github.com/mapo80/signature-detection/models/model"
	"github.com/mapo80/signature-detection/models/postprocess"
)

const (
	// DefaultInputSize is the square input resolution of the exported model.
	DefaultInputSize = 640
	// DefaultCandidates is the anchor count of a 640x640 YOLOv8 head.
	DefaultCandidates = 8400
	// DefaultAttributes is cx, cy, w, h and one class score.
	DefaultAttributes = 5
	// DefaultConfidenceThreshold drops weak candidates before NMS.
	DefaultConfidenceThreshold = 0.25
)

// YOLOv8 is the instance of the YOLOv8 model.
type YOLOv8 struct {
	options model.BaseModel
	// boxesFirst is true for exports laid out as [1, N, attrs].
	boxesFirst bool
}

// Options returns the options for the YOLOv8 model.
//
// Returns:
//   - The options for the YOLOv8 model.
func (m *YOLOv8) Options() model.BaseModel {
	return m.options
}

// NewModel creates a new model.
//
// Inputs and Outputs default to "images" and "output0". Candidates and
// NumClasses describe the output layout: NumClasses 1 gives [1, 5, N]
// (attributes first), NumClasses 2 gives the [1, N, 6] layout with an
// objectness and a class column.
//
// Arguments:
//   - args: The arguments for creating a new model.
//
// Returns:
//   - The model.
func NewModel(args model.NewModelArgs) (*YOLOv8, error) {
	if args.Path == "" {
		return nil, errors.New("yolov8: model path is required")
	}

	size := args.InputSize
	if size == 0 {
		size = DefaultInputSize
	}
	candidates := args.Candidates
	if candidates == 0 {
		candidates = DefaultCandidates
	}
	if size < 32 || candidates < 1 {
		return nil, errors.Errorf("yolov8: invalid input size %d or candidates %d", size, candidates)
	}

	inputs := args.Inputs
	if len(inputs) == 0 {
		inputs = []string{"images"}
	}
	outputs := args.Outputs
	if len(outputs) == 0 {
		outputs = []string{"output0"}
	}
	if len(inputs) != 1 || len(outputs) != 1 {
		return nil, errors.Errorf("yolov8: expected one input and one output, got %d and %d", len(inputs), len(outputs))
	}

	threshold := args.ConfidenceThreshold
	if threshold == 0 {
		threshold = DefaultConfidenceThreshold
	}
	nms := args.NMS
	if nms == nil {
		cfg := postprocess.DefaultNMSConfig()
		nms = &cfg
	}

	m := &YOLOv8{boxesFirst: args.NumClasses > 1}
	outputShape := []int64{1, DefaultAttributes, int64(candidates)}
	if m.boxesFirst {
		outputShape = []int64{1, int64(candidates), 6}
	}

	m.options = model.BaseModel{
		Name:      model.ModelNameYOLOv8,
		Family:    model.ModelFamilyYOLO,
		Path:      args.Path,
		InputSize: image.Pt(size, size),
		Inputs: []model.Tensor{
			{Name: inputs[0], Shape: []int64{1, 3, int64(size), int64(size)}},
		},
		Outputs: []model.Tensor{
			{Name: outputs[0], Shape: outputShape},
		},
		ConfidenceThreshold: threshold,
		NMS:                 nms,
	}
	return m, nil
}
