// Package detr - Conditional DETR signature model.
package detr

import (
	"image"

	"github.com/pkg/errors"

	"github.com/mapo80/signature-detection/models/model"
)

const (
	// DefaultInputSize is the square input resolution of the exported model.
	DefaultInputSize = 640
	// DefaultQueries is the number of object queries of the decoder.
	DefaultQueries = 300
	// DefaultConfidenceThreshold is the sigmoid score a query must exceed.
	DefaultConfidenceThreshold = 0.1
)

// DETR is the instance of the conditional DETR model.
type DETR struct {
	options model.BaseModel
	classes int
}

// Options returns the options for the DETR model.
//
// Returns:
//   - The options for the DETR model.
func (m *DETR) Options() model.BaseModel {
	return m.options
}

// NewModel creates a new model.
//
// Inputs default to "pixel_values" and outputs to "logits" then "boxes".
// NumClasses is the logits width: 1 for a sigmoid single class head, more
// for a softmax head whose last column is "no object".
//
// Arguments:
//   - args: The arguments for creating a new model.
//
// Returns:
//   - The model.
func NewModel(args model.NewModelArgs) (*DETR, error) {
	if args.Path == "" {
		return nil, errors.New("detr: model path is required")
	}

	size := args.InputSize
	if size == 0 {
		size = DefaultInputSize
	}
	queries := args.Candidates
	if queries == 0 {
		queries = DefaultQueries
	}
	classes := args.NumClasses
	if classes == 0 {
		classes = 1
	}
	if size < 32 || queries < 1 || classes < 1 {
		return nil, errors.Errorf("detr: invalid input size %d, queries %d or classes %d", size, queries, classes)
	}

	inputs := args.Inputs
	if len(inputs) == 0 {
		inputs = []string{"pixel_values"}
	}
	outputs := args.Outputs
	if len(outputs) == 0 {
		outputs = []string{"logits", "boxes"}
	}
	if len(inputs) != 1 || len(outputs) != 2 {
		return nil, errors.Errorf("detr: expected one input and two outputs, got %d and %d", len(inputs), len(outputs))
	}

	threshold := args.ConfidenceThreshold
	if threshold == 0 {
		threshold = DefaultConfidenceThreshold
	}

	return &DETR{
		classes: classes,
		options: model.BaseModel{
			Name:      model.ModelNameDETR,
			Family:    model.ModelFamilyDETR,
			Path:      args.Path,
			InputSize: image.Pt(size, size),
			Inputs: []model.Tensor{
				{Name: inputs[0], Shape: []int64{1, 3, int64(size), int64(size)}},
			},
			Outputs: []model.Tensor{
				{Name: outputs[0], Shape: []int64{1, int64(queries), int64(classes)}},
				{Name: outputs[1], Shape: []int64{1, int64(queries), 4}},
			},
			Normalization:       model.ImageNetNormalization,
			ConfidenceThreshold: threshold,
			// Set prediction needs no NMS; the ensemble fuses what is left.
			NMS: args.NMS,
		},
	}, nil
}
