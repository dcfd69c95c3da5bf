// Package inference - Inference engine interface and implementations
package inference

import "github.com/pkg/errors"

// EngineType is the type of the engine
type EngineType string

const (
	// EngineONNXRuntime runs the model with the onnxruntime library.
	EngineONNXRuntime EngineType = "onnxruntime"
	// EngineOpenCV runs the model with the OpenCV DNN module.
	EngineOpenCV EngineType = "opencv"
)

// Engines is a list of all supported engines
var Engines = []EngineType{EngineONNXRuntime, EngineOpenCV}

// ParseEngineType validates name against Engines. Empty means onnxruntime.
func ParseEngineType(name string) (EngineType, error) {
	if name == "" {
		return EngineONNXRuntime, nil
	}
	for _, e := range Engines {
		if string(e) == name {
			return e, nil
		}
	}
	return "", errors.Errorf("unsupported inference backend %q", name)
}
