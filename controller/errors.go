package controller

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	// ErrDatasetNotFound is returned when the dataset images directory cannot be listed.
	ErrDatasetNotFound = errors.New("dataset images directory not found")
	// ErrImageIO matches every ImageIOError with errors.Is.
	ErrImageIO = errors.New("image i/o failed")
)

// ImageIOError reports a read, annotate or write failure for one image.
type ImageIOError struct {
	Path string
	Op   string
	Err  error
}

func (e *ImageIOError) Error() string {
	return fmt.Sprintf("%s: %s %s: %v", ErrImageIO, e.Op, e.Path, e.Err)
}

// Unwrap returns the underlying failure.
func (e *ImageIOError) Unwrap() error { return e.Err }

// Cause returns the underlying failure for errors.Cause.
func (e *ImageIOError) Cause() error { return e.Err }

// Is reports whether target is ErrImageIO.
func (e *ImageIOError) Is(target error) bool { return target == ErrImageIO }
