// Package models - registry for models.
package models

import (
	"fmt"

	"github.com/mapo80/signature-detection/models/detr"
	"github.com/mapo80/signature-detection/models/model"
	"github.com/mapo80/signature-detection/models/yolov8"
)

// NewModel creates a new detection model instance based on the specified model type.
//
// Arguments:
//   - args: Configuration parameters specifying the model type and location.
//
// Returns:
//   - model.Model: A configured model instance implementing the Model interface.
//   - error: An error if the model name is unsupported or its arguments are invalid.
func NewModel(args model.NewModelArgs) (model.Model, error) {
	switch args.Name {
	case model.ModelNameYOLOv8:
		m, err := yolov8.NewModel(args)
		if err != nil {
			return nil, err
		}
		return m, nil
	case model.ModelNameDETR:
		m, err := detr.NewModel(args)
		if err != nil {
			return nil, err
		}
		return m, nil
	default:
		return nil, fmt.Errorf("unsupported model name: %q", args.Name)
	}
}

// Supported reports whether name is a model NewModel can build.
func Supported(name model.Name) bool {
	switch name {
	case model.ModelNameYOLOv8, model.ModelNameDETR:
		return true
	}
	return false
}
