// Package test provides detector stubs and dataset fixtures for pipeline tests.
package test

import (
	"context"
	"image"
	"sync"
	"time"

	"gocv.io/x/gocv"

	"github.com/mapo80/signature-detection/common"
)

// StubDetector returns fixed detections and fails on chosen calls.
//
// @example
// det := NewStubDetector(common.Detection{Label: "signature", Confidence: 0.9}).
//
//	FailOn(1, errors.New("boom"))
type StubDetector struct {
	mu         sync.Mutex
	detections []common.Detection
	failures   map[int]error
	delay      time.Duration
	calls      int
	frames     []image.Point
}

// NewStubDetector creates a detector returning detections on every call.
func NewStubDetector(detections ...common.Detection) *StubDetector {
	return &StubDetector{
		detections: detections,
		failures:   make(map[int]error),
	}
}

// FailOn makes the call with the given zero-based index return err.
func (s *StubDetector) FailOn(call int, err error) *StubDetector {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[call] = err
	return s
}

// WithDelay makes every call wait d or until its context ends.
func (s *StubDetector) WithDelay(d time.Duration) *StubDetector {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delay = d
	return s
}

// Detect implements detector.Detector.
func (s *StubDetector) Detect(ctx context.Context, img gocv.Mat) ([]common.Detection, error) {
	s.mu.Lock()
	call := s.calls
	s.calls++
	s.frames = append(s.frames, image.Pt(img.Cols(), img.Rows()))
	err, fail := s.failures[call]
	delay := s.delay
	s.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if fail {
		return nil, err
	}
	return append([]common.Detection(nil), s.detections...), nil
}

// Calls returns the number of Detect calls so far.
func (s *StubDetector) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// Frames returns the size of every image passed to Detect, in call order.
func (s *StubDetector) Frames() []image.Point {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]image.Point(nil), s.frames...)
}
