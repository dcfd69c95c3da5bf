package onnx

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"

	"github.com/mapo80/signature-detection/models/model"
	"github.com/mapo80/signature-detection/models/yolov8"
)

func TestConfigBackend(t *testing.T) {
	backend, target, err := DefaultConfig().backend()
	require.NoError(t, err)
	assert.Equal(t, gocv.NetBackendOpenCV, backend)
	assert.Equal(t, gocv.NetTargetCPU, target)

	backend, target, err = Config{Target: "CUDA"}.backend()
	require.NoError(t, err)
	assert.Equal(t, gocv.NetBackendCUDA, backend)
	assert.Equal(t, gocv.NetTargetCUDA, target)

	_, _, err = Config{Target: "tpu"}.backend()
	assert.Error(t, err)
}

func TestNewEngineMissingModel(t *testing.T) {
	m, err := yolov8.NewModel(model.NewModelArgs{Path: filepath.Join(t.TempDir(), "missing.onnx")})
	require.NoError(t, err)

	_, err = NewEngine(m, DefaultConfig())
	assert.ErrorContains(t, err, "model file not found")
}

func TestNewEngineBadTarget(t *testing.T) {
	m, err := yolov8.NewModel(model.NewModelArgs{Path: "unused.onnx"})
	require.NoError(t, err)

	_, err = NewEngine(m, Config{Target: "tpu"})
	assert.ErrorContains(t, err, "unsupported OpenCV DNN target")
}
