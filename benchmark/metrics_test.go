package benchmark

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/mapo80/signature-detection/images"
)

func rect(x1, y1, x2, y2 int) images.Rect {
	return images.Rect{X1: x1, Y1: y1, X2: x2, Y2: y2}
}

func TestEvaluate(t *testing.T) {
	a := rect(0, 0, 10, 10)
	b := rect(50, 50, 70, 70)

	tests := []struct {
		name  string
		preds []Prediction
		gts   []GroundTruth
		want  Metrics
	}{
		{
			name:  "perfect",
			preds: []Prediction{{Image: 0, Box: a, Score: 0.9}, {Image: 1, Box: b, Score: 0.8}},
			gts:   []GroundTruth{{Image: 0, Box: a}, {Image: 1, Box: b}},
			want:  Metrics{Precision: 1, Recall: 1, F1: 1, AP: 1, TruePositives: 2, GroundTruths: 2},
		},
		{
			name:  "confident false positive first",
			preds: []Prediction{{Image: 0, Box: b, Score: 0.9}, {Image: 0, Box: a, Score: 0.8}},
			gts:   []GroundTruth{{Image: 0, Box: a}},
			want:  Metrics{Precision: 0.5, Recall: 1, F1: 2.0 / 3.0, AP: 0.5, TruePositives: 1, FalsePositives: 1, GroundTruths: 1},
		},
		{
			name:  "matches stay within an image",
			preds: []Prediction{{Image: 1, Box: a, Score: 0.9}},
			gts:   []GroundTruth{{Image: 0, Box: a}},
			want:  Metrics{FalsePositives: 1, GroundTruths: 1},
		},
		{
			name:  "duplicate detection counts once",
			preds: []Prediction{{Image: 0, Box: a, Score: 0.9}, {Image: 0, Box: rect(0, 0, 10, 9), Score: 0.7}},
			gts:   []GroundTruth{{Image: 0, Box: a}},
			want:  Metrics{Precision: 0.5, Recall: 1, F1: 2.0 / 3.0, AP: 1, TruePositives: 1, FalsePositives: 1, GroundTruths: 1},
		},
		{
			name: "missed ground truth",
			gts:  []GroundTruth{{Image: 0, Box: a}},
			want: Metrics{GroundTruths: 1},
		},
		{
			name: "nothing",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Evaluate(tt.preds, tt.gts, DefaultIoUThreshold)
			assert.InDelta(t, tt.want.Precision, got.Precision, 1e-9)
			assert.InDelta(t, tt.want.Recall, got.Recall, 1e-9)
			assert.InDelta(t, tt.want.F1, got.F1, 1e-9)
			assert.InDelta(t, tt.want.AP, got.AP, 1e-9)
			assert.Equal(t, tt.want.TruePositives, got.TruePositives)
			assert.Equal(t, tt.want.FalsePositives, got.FalsePositives)
			assert.Equal(t, tt.want.GroundTruths, got.GroundTruths)
		})
	}
}

func TestEvaluateIoUThreshold(t *testing.T) {
	gt := []GroundTruth{{Box: rect(0, 0, 10, 10)}}
	// IoU 50/100 = 0.5
	pred := []Prediction{{Box: rect(0, 0, 10, 5), Score: 1}}

	assert.Equal(t, 1, Evaluate(pred, gt, 0.5).TruePositives)
	assert.Equal(t, 0, Evaluate(pred, gt, 0.6).TruePositives)
}

func TestNewTiming(t *testing.T) {
	ms := time.Millisecond
	got := NewTiming([]time.Duration{40 * ms, 10 * ms, 30 * ms, 20 * ms})

	assert.Equal(t, Timing{
		Count:           4,
		Total:           100 * ms,
		Min:             10 * ms,
		Max:             40 * ms,
		Mean:            25 * ms,
		P50:             20 * ms,
		P95:             40 * ms,
		FramesPerSecond: 40,
	}, got)

	assert.Equal(t, Timing{}, NewTiming(nil))
}

func TestReadMemoryMetrics(t *testing.T) {
	m := ReadMemoryMetrics()
	assert.Positive(t, m.SysBytes)
	assert.Positive(t, m.HeapSysBytes)
}
