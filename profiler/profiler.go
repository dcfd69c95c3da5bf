// Package profiler records operation timings and custom metrics.
package profiler

import (
	"fmt"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// OperationStats summarizes the timings of one operation.
type OperationStats struct {
	Count int64         `json:"count"`
	Total time.Duration `json:"total"`
	Min   time.Duration `json:"min"`
	Max   time.Duration `json:"max"`
}

// Average returns the mean duration, or zero when nothing was recorded.
func (s OperationStats) Average() time.Duration {
	if s.Count == 0 {
		return 0
	}
	return s.Total / time.Duration(s.Count)
}

// MetricStats summarizes the samples of a custom metric.
type MetricStats struct {
	Count int64   `json:"count"`
	Sum   float64 `json:"sum"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
}

// Average returns the mean sample, or zero when nothing was recorded.
func (s MetricStats) Average() float64 {
	if s.Count == 0 {
		return 0
	}
	return s.Sum / float64(s.Count)
}

// Profiler is safe for concurrent use.
type Profiler struct {
	mu         sync.Mutex
	startTime  time.Time
	operations map[string]*OperationStats
	metrics    map[string]*MetricStats
}

// New creates an empty profiler.
func New() *Profiler {
	return &Profiler{
		startTime:  time.Now(),
		operations: make(map[string]*OperationStats),
		metrics:    make(map[string]*MetricStats),
	}
}

// StartOperation begins timing an operation.
//
// Arguments:
// - name: The name of the operation to track
//
// Returns:
// - A function to call when the operation completes
func (p *Profiler) StartOperation(name string) func() {
	start := time.Now()
	return func() {
		p.recordOperationTime(name, time.Since(start))
	}
}

// recordOperationTime records the completion time of an operation.
func (p *Profiler) recordOperationTime(name string, d time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()

	s, ok := p.operations[name]
	if !ok {
		s = &OperationStats{Min: d, Max: d}
		p.operations[name] = s
	}
	s.Count++
	s.Total += d
	if d < s.Min {
		s.Min = d
	}
	if d > s.Max {
		s.Max = d
	}
}

// RecordMetric records a custom metric value.
//
// Arguments:
// - name: The name of the metric
// - value: The metric value to record
func (p *Profiler) RecordMetric(name string, value float64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	s, ok := p.metrics[name]
	if !ok {
		s = &MetricStats{Min: value, Max: value}
		p.metrics[name] = s
	}
	s.Count++
	s.Sum += value
	if value < s.Min {
		s.Min = value
	}
	if value > s.Max {
		s.Max = value
	}
}

// Snapshot returns a copy of the operation timings.
func (p *Profiler) Snapshot() map[string]OperationStats {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make(map[string]OperationStats, len(p.operations))
	for name, s := range p.operations {
		out[name] = *s
	}
	return out
}

// Metrics returns a copy of the custom metrics.
func (p *Profiler) Metrics() map[string]MetricStats {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make(map[string]MetricStats, len(p.metrics))
	for name, s := range p.metrics {
		out[name] = *s
	}
	return out
}

// Reset clears every timing and metric.
func (p *Profiler) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.startTime = time.Now()
	p.operations = make(map[string]*OperationStats)
	p.metrics = make(map[string]*MetricStats)
}

// LogReport emits one entry per operation and metric, plus memory usage.
func (p *Profiler) LogReport(log logrus.FieldLogger) {
	ops := p.Snapshot()
	metrics := p.Metrics()

	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	p.mu.Lock()
	uptime := time.Since(p.startTime)
	p.mu.Unlock()

	log.WithFields(logrus.Fields{
		"uptime":     uptime.Truncate(time.Millisecond),
		"goroutines": runtime.NumGoroutine(),
		"heap_alloc": formatBytes(mem.HeapAlloc),
		"sys":        formatBytes(mem.Sys),
		"gc_cycles":  mem.NumGC,
	}).Info("profiler report")

	for _, name := range sortedKeys(ops) {
		s := ops[name]
		log.WithFields(logrus.Fields{
			"operation": name,
			"count":     s.Count,
			"avg":       s.Average().Truncate(time.Microsecond),
			"min":       s.Min.Truncate(time.Microsecond),
			"max":       s.Max.Truncate(time.Microsecond),
		}).Info("operation timing")
	}
	for _, name := range sortedKeys(metrics) {
		s := metrics[name]
		log.WithFields(logrus.Fields{
			"metric": name,
			"count":  s.Count,
			"avg":    s.Average(),
			"min":    s.Min,
			"max":    s.Max,
		}).Info("metric")
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// formatBytes formats byte counts in human-readable format.
func formatBytes(bytes uint64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
