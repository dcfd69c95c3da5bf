package onnx

import (
	"strings"

	"github.com/pkg/errors"
	"gocv.io/x/gocv"
)

// Config for the OpenCV DNN engine
type Config struct {
	// Target is cpu, cuda or opencl.
	Target string `json:"target" yaml:"target"`
}

// DefaultConfig runs on the OpenCV CPU backend.
func DefaultConfig() Config {
	return Config{Target: "cpu"}
}

func (c Config) backend() (gocv.NetBackendType, gocv.NetTargetType, error) {
	switch strings.ToLower(c.Target) {
	case "", "cpu":
		return gocv.NetBackendOpenCV, gocv.NetTargetCPU, nil
	case "cuda":
		return gocv.NetBackendCUDA, gocv.NetTargetCUDA, nil
	case "opencl":
		return gocv.NetBackendOpenCV, gocv.NetTargetFP32, nil
	default:
		return 0, 0, errors.Errorf("unsupported OpenCV DNN target %q", c.Target)
	}
}
