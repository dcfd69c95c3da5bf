// Package onnx runs ONNX detection models through the OpenCV DNN module.
package onnx

import (
	"context"
	"image"
	"os"
	"sync"

	"github.com/pkg/errors"
	"gocv.io/x/gocv"

	"github.com/mapo80/signature-detection/models/model"
	"github.com/mapo80/signature-detection/models/postprocess"
)

// Engine handles ONNX model inference using gocv.ReadNet().
type Engine struct {
	mu          sync.Mutex
	net         gocv.Net
	model       model.Model
	inputName   string
	outputNames []string
	closed      bool
}

// NewEngine loads the model file of m into an OpenCV network.
//
// Arguments:
//   - m: The model whose tensors and decoder are used.
//   - cfg: The DNN backend selection.
//
// Returns:
//   - *Engine: The engine.
//   - error: An error if the file is missing or OpenCV cannot parse it.
func NewEngine(m model.Model, cfg Config) (*Engine, error) {
	backend, target, err := cfg.backend()
	if err != nil {
		return nil, err
	}

	opts := m.Options()
	if _, err := os.Stat(opts.Path); err != nil {
		return nil, errors.Wrapf(err, "model file not found: %s", opts.Path)
	}

	net := gocv.ReadNet(opts.Path, "")
	if net.Empty() {
		return nil, errors.Errorf("failed to load ONNX model: %s", opts.Path)
	}
	net.SetPreferableBackend(backend)
	net.SetPreferableTarget(target)

	return &Engine{
		net:         net,
		model:       m,
		inputName:   opts.Inputs[0].Name,
		outputNames: model.Names(opts.Outputs),
	}, nil
}

// Predict runs inference on img.
//
// Arguments:
//   - ctx: Checked before the forward pass.
//   - img: The image to predict.
//
// Returns:
//   - []postprocess.Result: The decoded results in img's pixel space.
//   - error: An error if the conversion or the forward pass fails.
func (e *Engine) Predict(ctx context.Context, img image.Image) ([]postprocess.Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return nil, errors.New("opencv engine is closed")
	}

	mat, err := gocv.ImageToMatRGB(img)
	if err != nil {
		return nil, errors.Wrap(err, "convert image")
	}
	defer mat.Close()

	blob, err := e.preprocessImage(mat)
	if err != nil {
		return nil, err
	}
	defer blob.Close()

	e.net.SetInput(blob, e.inputName)
	outs := e.net.ForwardLayers(e.outputNames)
	defer func() {
		for i := range outs {
			outs[i].Close()
		}
	}()
	if len(outs) != len(e.outputNames) {
		return nil, errors.Errorf("expected %d outputs, got %d", len(e.outputNames), len(outs))
	}

	outputs := make([][]float32, len(outs))
	for i := range outs {
		data, err := outs[i].DataPtrFloat32()
		if err != nil {
			return nil, errors.Wrapf(err, "read output %s", e.outputNames[i])
		}
		outputs[i] = append([]float32(nil), data...)
	}

	b := img.Bounds()
	return e.model.PostProcess(outputs, image.Pt(b.Dx(), b.Dy()))
}

// preprocessImage builds the NCHW blob and applies the model normalization in place.
func (e *Engine) preprocessImage(mat gocv.Mat) (gocv.Mat, error) {
	opts := e.model.Options()

	// ImageToMatRGB stores pixels in OpenCV's BGR order.
	blob := gocv.BlobFromImage(mat, 1.0/255.0, opts.InputSize, gocv.NewScalar(0, 0, 0, 0), true, false)

	if opts.Normalization == (model.Normalization{}) {
		return blob, nil
	}

	data, err := blob.DataPtrFloat32()
	if err != nil {
		blob.Close()
		return gocv.Mat{}, errors.Wrap(err, "read input blob")
	}
	plane := opts.InputSize.X * opts.InputSize.Y
	for c := 0; c < 3; c++ {
		for i := c * plane; i < (c+1)*plane && i < len(data); i++ {
			data[i] = opts.Normalization.Apply(c, data[i])
		}
	}
	return blob, nil
}

// Close releases resources
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return nil
	}
	e.closed = true
	return e.net.Close()
}
