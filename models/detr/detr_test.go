package detr

import (
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mapo80/signature-detection/models/model"
	"github.com/mapo80/signature-detection/models/postprocess"
)

func TestNewModelDefaults(t *testing.T) {
	m, err := NewModel(model.NewModelArgs{Path: "conditional_detr_signature.onnx"})
	require.NoError(t, err)

	opts := m.Options()
	assert.Equal(t, model.ModelFamilyDETR, opts.Family)
	assert.Equal(t, "pixel_values", opts.Inputs[0].Name)
	assert.Equal(t, []string{"logits", "boxes"}, model.Names(opts.Outputs))
	assert.Equal(t, []int64{1, 300, 1}, opts.Outputs[0].Shape)
	assert.Equal(t, []int64{1, 300, 4}, opts.Outputs[1].Shape)
	assert.Equal(t, model.ImageNetNormalization, opts.Normalization)
	assert.Nil(t, opts.NMS)
}

func TestPostProcessSigmoid(t *testing.T) {
	m, err := NewModel(model.NewModelArgs{Path: "m.onnx", Candidates: 3})
	require.NoError(t, err)

	logits := []float32{-5, 2, 0}
	boxes := []float32{
		0.5, 0.5, 0.2, 0.2,
		0.25, 0.5, 0.5, 0.25,
		0.75, 0.75, 0.1, 0.1,
	}

	results, err := m.PostProcess([][]float32{logits, boxes}, image.Pt(200, 100))
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.InDelta(t, 0.880797, results[0].Score, 1e-5)
	assert.Equal(t, postprocess.Box{X1: 0, Y1: 37.5, X2: 100, Y2: 62.5}, results[0].Box)
	assert.InDelta(t, 0.5, results[1].Score, 1e-6)
	assert.InDelta(t, 140, results[1].Box.X1, 1e-3)
}

func TestPostProcessSoftmax(t *testing.T) {
	m, err := NewModel(model.NewModelArgs{
		Path:                "m.onnx",
		Candidates:          2,
		NumClasses:          3,
		ConfidenceThreshold: 0.6,
	})
	require.NoError(t, err)

	logits := []float32{
		0, 3, 9, // class 1 dominates the real classes; last column ignored
		1, 1, 0, // tie, best probability 0.5
	}
	boxes := []float32{0.5, 0.5, 1, 1, 0.5, 0.5, 1, 1}

	results, err := m.PostProcess([][]float32{logits, boxes}, image.Pt(10, 10))
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, 1, results[0].Class)
	assert.InDelta(t, 0.952574, results[0].Score, 1e-5)
}

func TestPostProcessShapeMismatch(t *testing.T) {
	m, err := NewModel(model.NewModelArgs{Path: "m.onnx", Candidates: 2})
	require.NoError(t, err)

	_, err = m.PostProcess([][]float32{{0, 0}, {0, 0, 0}}, image.Pt(10, 10))
	assert.Error(t, err)

	_, err = m.PostProcess([][]float32{{0, 0}}, image.Pt(10, 10))
	assert.Error(t, err)
}

func TestPostProcessKeepsScoreAtThreshold(t *testing.T) {
	m, err := NewModel(model.NewModelArgs{Path: "m.onnx", Candidates: 2, ConfidenceThreshold: 0.5})
	require.NoError(t, err)

	// sigmoid(0) is exactly 0.5; sigmoid(-0.01) is just below.
	logits := []float32{0, -0.01}
	boxes := []float32{0.5, 0.5, 0.2, 0.2, 0.5, 0.5, 0.4, 0.4}

	results, err := m.PostProcess([][]float32{logits, boxes}, image.Pt(100, 100))
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, float32(0.5), results[0].Score)
	assert.InDelta(t, 40, results[0].Box.X1, 1e-3)
	assert.InDelta(t, 60, results[0].Box.X2, 1e-3)
}
