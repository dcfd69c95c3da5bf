package yolov8

import (
	"image"

	"github.com/pkg/errors"
	"gorgonia.org/tensor"

	"github.com/mapo80/signature-detection/models/postprocess"
)

// PostProcess postprocesses the output of the YOLOv8 model.
//
// Candidates are decoded as (cx, cy, w, h, obj[, cls]) in input pixels with
// score obj*cls (cls defaults to 1), filtered by the confidence threshold,
// rescaled to the frame and passed through greedy NMS.
//
// Arguments:
//   - outputs: The single output0 tensor.
//   - frame: The original image size.
//
// Returns:
//   - A slice of postprocessed results.
//   - An error if the tensor does not match the configured shape.
func (m *YOLOv8) PostProcess(outputs [][]float32, frame image.Point) ([]postprocess.Result, error) {
	if len(outputs) != 1 {
		return nil, errors.Errorf("yolov8: expected 1 output, got %d", len(outputs))
	}
	shape := m.options.Outputs[0].Shape
	want := int(shape[1] * shape[2])
	if len(outputs[0]) != want {
		return nil, errors.Errorf("yolov8: output has %d values, expected %d for shape %v", len(outputs[0]), want, shape)
	}

	rows, attrs, err := m.rows(outputs[0], int(shape[1]), int(shape[2]))
	if err != nil {
		return nil, err
	}

	sx := float32(frame.X) / float32(m.options.InputSize.X)
	sy := float32(frame.Y) / float32(m.options.InputSize.Y)

	n := len(rows) / attrs
	results := make([]postprocess.Result, 0, 16)
	for i := 0; i < n; i++ {
		row := rows[i*attrs : (i+1)*attrs]
		score := row[4]
		if attrs > 5 {
			score *= row[5]
		}
		if score < m.options.ConfidenceThreshold {
			continue
		}

		results = append(results, postprocess.Result{
			Box:   postprocess.BoxFromCenter(row[0], row[1], row[2], row[3]).Scale(sx, sy),
			Score: score,
			Class: 0,
		})
	}

	if m.options.NMS == nil {
		postprocess.SortByScore(results)
		return results, nil
	}
	return postprocess.ApplyGreedyNMS(results, *m.options.NMS), nil
}

// rows returns the candidates as contiguous rows of attrs values.
func (m *YOLOv8) rows(data []float32, d1, d2 int) ([]float32, int, error) {
	if m.boxesFirst {
		return data, d2, nil
	}

	// [attrs, N] -> [N, attrs]. The copy keeps the runtime's output buffer intact.
	backing := make([]float32, len(data))
	copy(backing, data)
	t := tensor.New(tensor.WithShape(d1, d2), tensor.WithBacking(backing))
	if err := t.T(); err != nil {
		return nil, 0, errors.Wrap(err, "yolov8: transpose output")
	}
	if err := t.Transpose(); err != nil {
		return nil, 0, errors.Wrap(err, "yolov8: materialize transpose")
	}
	rows, ok := t.Data().([]float32)
	if !ok {
		return nil, 0, errors.Errorf("yolov8: unexpected tensor backing %T", t.Data())
	}
	return rows, d1, nil
}
