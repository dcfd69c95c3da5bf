// Package model - Definitions shared by the detection model decoders.
package model

import (
	"image"

	"github.com/mapo80/signature-detection/models/postprocess"
)

// Family is the family of models.
type Family string

const (
	// ModelFamilyYOLO is the single stage YOLO family.
	ModelFamilyYOLO Family = "yolo"
	// ModelFamilyDETR is the transformer query based family.
	ModelFamilyDETR Family = "detr"
)

// Name is the unique identifier of a model.
type Name string

const (
	// ModelNameYOLOv8 is the name of the YOLOv8 model.
	ModelNameYOLOv8 Name = "yolov8"
	// ModelNameDETR is the name of the conditional DETR model.
	ModelNameDETR Name = "detr"
)

// Tensor names a model input or output and its fixed shape.
type Tensor struct {
	Name  string  `json:"name" yaml:"name"`
	Shape []int64 `json:"shape" yaml:"shape"`
}

// Elements returns the number of values the tensor holds.
func (t Tensor) Elements() int {
	if len(t.Shape) == 0 {
		return 0
	}
	n := int64(1)
	for _, d := range t.Shape {
		n *= d
	}
	return int(n)
}

// Normalization is applied per RGB channel after scaling pixels to [0,1].
type Normalization struct {
	Mean [3]float32 `json:"mean" yaml:"mean"`
	Std  [3]float32 `json:"std" yaml:"std"`
}

// ImageNetNormalization is the mean/std the DETR backbones were trained with.
var ImageNetNormalization = Normalization{
	Mean: [3]float32{0.485, 0.456, 0.406},
	Std:  [3]float32{0.229, 0.224, 0.225},
}

// Apply normalizes v (already in [0,1]) for channel c. A zero std leaves v unchanged.
func (n Normalization) Apply(c int, v float32) float32 {
	if n.Std[c] == 0 {
		return v
	}
	return (v - n.Mean[c]) / n.Std[c]
}

// BaseModel is the base model for all models.
type BaseModel struct {
	Name                Name
	Family              Family
	Path                string
	InputSize           image.Point
	Inputs              []Tensor
	Outputs             []Tensor
	Normalization       Normalization
	ConfidenceThreshold float32
	NMS                 *postprocess.NMSConfig
}

// Model decodes raw output tensors of one architecture into results.
type Model interface {
	// Options describes the model tensors and thresholds.
	Options() BaseModel
	// PostProcess decodes outputs (in Options().Outputs order) into frame-space results.
	PostProcess(outputs [][]float32, frame image.Point) ([]postprocess.Result, error)
}

// NewModelArgs is the arguments for creating a new model.
type NewModelArgs struct {
	Name                Name                   `json:"name" yaml:"name"`
	Path                string                 `json:"path" yaml:"path"`
	InputSize           int                    `json:"input_size" yaml:"input_size"`
	Candidates          int                    `json:"candidates" yaml:"candidates"`
	NumClasses          int                    `json:"num_classes" yaml:"num_classes"`
	ConfidenceThreshold float32                `json:"confidence_threshold" yaml:"confidence_threshold"`
	NMS                 *postprocess.NMSConfig `json:"nms" yaml:"nms"`
	Inputs              []string               `json:"inputs" yaml:"inputs"`
	Outputs             []string               `json:"outputs" yaml:"outputs"`
}

// Names returns the tensor names of ts.
func Names(ts []Tensor) []string {
	names := make([]string, 0, len(ts))
	for _, t := range ts {
		names = append(names, t.Name)
	}
	return names
}
