// Package benchmark - Detection quality and speed evaluation over labelled datasets.
package benchmark

import (
	"runtime"
	"sort"
	"time"

	"github.com/mapo80/signature-detection/images"
)

// DefaultIoUThreshold is the overlap a prediction needs to match a ground-truth box.
const DefaultIoUThreshold = 0.5

// Prediction is one detection of one image.
type Prediction struct {
	Image int
	Box   images.Rect
	Score float32
}

// GroundTruth is one labelled box of one image.
type GroundTruth struct {
	Image int
	Box   images.Rect
}

// Metrics captures detection quality.
type Metrics struct {
	Precision      float64 `json:"precision"`
	Recall         float64 `json:"recall"`
	F1             float64 `json:"f1"`
	AP             float64 `json:"ap"`
	TruePositives  int     `json:"true_positives"`
	FalsePositives int     `json:"false_positives"`
	GroundTruths   int     `json:"ground_truths"`
}

// Evaluate matches predictions to ground truth and computes the metrics.
//
// Predictions are visited by descending score; each claims the unclaimed
// ground-truth box of the same image with the highest IoU, provided it is
// at least iouThreshold. AP is the all-point interpolated area under the
// precision/recall curve.
//
// Arguments:
//   - predictions: Every prediction of the dataset.
//   - groundTruth: Every labelled box of the dataset.
//   - iouThreshold: The matching overlap, usually DefaultIoUThreshold.
//
// Returns:
//   - Metrics: Zero values when there is nothing to compare.
func Evaluate(predictions []Prediction, groundTruth []GroundTruth, iouThreshold float32) Metrics {
	sorted := append([]Prediction(nil), predictions...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Score > sorted[j].Score
	})

	used := make([]bool, len(groundTruth))
	tp := make([]bool, len(sorted))
	for i, p := range sorted {
		best := iouThreshold
		match := -1
		for j, g := range groundTruth {
			if used[j] || g.Image != p.Image {
				continue
			}
			if iou := images.CalculateIoU(p.Box, g.Box); iou >= best {
				best = iou
				match = j
			}
		}
		if match >= 0 {
			used[match] = true
			tp[i] = true
		}
	}

	nGT := float64(len(groundTruth))
	recall := make([]float64, len(sorted))
	precision := make([]float64, len(sorted))
	var cumTP, cumFP float64
	for i := range sorted {
		if tp[i] {
			cumTP++
		} else {
			cumFP++
		}
		if nGT > 0 {
			recall[i] = cumTP / nGT
		}
		precision[i] = cumTP / (cumTP + cumFP)
	}

	m := Metrics{
		TruePositives:  int(cumTP),
		FalsePositives: int(cumFP),
		GroundTruths:   len(groundTruth),
		AP:             averagePrecision(recall, precision),
	}
	if len(sorted) > 0 {
		m.Precision = cumTP / float64(len(sorted))
	}
	if nGT > 0 {
		m.Recall = cumTP / nGT
	}
	if m.Precision+m.Recall > 0 {
		m.F1 = 2 * m.Precision * m.Recall / (m.Precision + m.Recall)
	}
	return m
}

// averagePrecision integrates the monotone precision envelope over recall,
// with sentinels at recall 0 and 1.
func averagePrecision(recall, precision []float64) float64 {
	mRec := make([]float64, 0, len(recall)+2)
	mPre := make([]float64, 0, len(precision)+2)

	mRec = append(mRec, 0)
	if len(precision) > 0 {
		mPre = append(mPre, precision[0])
	} else {
		mPre = append(mPre, 0)
	}
	mRec = append(mRec, recall...)
	mPre = append(mPre, precision...)
	mRec = append(mRec, 1)
	mPre = append(mPre, 0)

	for i := len(mPre) - 2; i >= 0; i-- {
		mPre[i] = max(mPre[i], mPre[i+1])
	}

	var ap float64
	for i := 0; i < len(mRec)-1; i++ {
		ap += (mRec[i+1] - mRec[i]) * mPre[i+1]
	}
	return ap
}

// Timing captures per-image latency.
type Timing struct {
	Count           int           `json:"count"`
	Total           time.Duration `json:"total"`
	Min             time.Duration `json:"min"`
	Max             time.Duration `json:"max"`
	Mean            time.Duration `json:"mean"`
	P50             time.Duration `json:"p50"`
	P95             time.Duration `json:"p95"`
	FramesPerSecond float64       `json:"frames_per_second"`
}

// NewTiming summarizes durations. Percentiles use the nearest-rank method.
func NewTiming(durations []time.Duration) Timing {
	if len(durations) == 0 {
		return Timing{}
	}

	sorted := append([]time.Duration(nil), durations...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	t := Timing{
		Count: len(sorted),
		Min:   sorted[0],
		Max:   sorted[len(sorted)-1],
		P50:   percentile(sorted, 50),
		P95:   percentile(sorted, 95),
	}
	for _, d := range sorted {
		t.Total += d
	}
	t.Mean = t.Total / time.Duration(t.Count)
	if t.Total > 0 {
		t.FramesPerSecond = float64(t.Count) / t.Total.Seconds()
	}
	return t
}

func percentile(sorted []time.Duration, p int) time.Duration {
	rank := (p*len(sorted) + 99) / 100
	if rank < 1 {
		rank = 1
	}
	return sorted[rank-1]
}

// MemoryMetrics captures memory usage statistics
type MemoryMetrics struct {
	AllocBytes      uint64 `json:"alloc_bytes"`
	TotalAllocBytes uint64 `json:"total_alloc_bytes"`
	SysBytes        uint64 `json:"sys_bytes"`
	NumGC           uint32 `json:"num_gc"`
	HeapAllocBytes  uint64 `json:"heap_alloc_bytes"`
	HeapSysBytes    uint64 `json:"heap_sys_bytes"`
}

// ReadMemoryMetrics samples the Go runtime.
func ReadMemoryMetrics() MemoryMetrics {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return MemoryMetrics{
		AllocBytes:      m.Alloc,
		TotalAllocBytes: m.TotalAlloc,
		SysBytes:        m.Sys,
		NumGC:           m.NumGC,
		HeapAllocBytes:  m.HeapAlloc,
		HeapSysBytes:    m.HeapSys,
	}
}
