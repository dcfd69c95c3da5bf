package detr

import (
	"image"

	"github.com/chewxy/math32"
	"github.com/pkg/errors"

	"github.com/mapo80/signature-detection/models/postprocess"
)

// PostProcess decodes logits and normalized center-form boxes.
//
// A single class head is scored with a sigmoid and kept when the score is
// above the threshold. A multi class head is scored with a softmax over all
// but the last ("no object") column and kept when the best probability is at
// least the threshold.
//
// Arguments:
//   - outputs: logits then boxes.
//   - frame: The original image size.
//
// Returns:
//   - A slice of postprocessed results, by descending score.
//   - An error if the tensors do not match the configured shapes.
func (m *DETR) PostProcess(outputs [][]float32, frame image.Point) ([]postprocess.Result, error) {
	if len(outputs) != 2 {
		return nil, errors.Errorf("detr: expected 2 outputs, got %d", len(outputs))
	}
	logits, boxes := outputs[0], outputs[1]
	queries := int(m.options.Outputs[1].Shape[1])
	if len(logits) != queries*m.classes || len(boxes) != queries*4 {
		return nil, errors.Errorf("detr: got %d logits and %d box values for %d queries", len(logits), len(boxes), queries)
	}

	w, h := float32(frame.X), float32(frame.Y)
	threshold := m.options.ConfidenceThreshold

	results := make([]postprocess.Result, 0, 16)
	for q := 0; q < queries; q++ {
		class, score := m.score(logits[q*m.classes : (q+1)*m.classes])
		if class < 0 || score < threshold {
			continue
		}

		b := boxes[q*4 : q*4+4]
		results = append(results, postprocess.Result{
			Box:   postprocess.BoxFromCenter(b[0], b[1], b[2], b[3]).Scale(w, h),
			Score: score,
			Class: class,
		})
	}

	if m.options.NMS != nil {
		return postprocess.ApplyGreedyNMS(results, *m.options.NMS), nil
	}
	postprocess.SortByScore(results)
	return results, nil
}

func (m *DETR) score(logits []float32) (int, float32) {
	if m.classes == 1 {
		return 0, sigmoid(logits[0])
	}

	objects := logits[:len(logits)-1]
	maxLogit := math32.Inf(-1)
	for _, l := range objects {
		maxLogit = math32.Max(maxLogit, l)
	}

	var sum float32
	probs := make([]float32, len(objects))
	for i, l := range objects {
		probs[i] = math32.Exp(l - maxLogit)
		sum += probs[i]
	}

	best, bestClass := float32(0), -1
	for i, p := range probs {
		if p/sum > best {
			best = p / sum
			bestClass = i
		}
	}
	return bestClass, best
}

func sigmoid(v float32) float32 {
	return 1 / (1 + math32.Exp(-v))
}
