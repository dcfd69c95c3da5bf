package detector

import "github.com/pkg/errors"

// ErrModelInference matches every InferenceError with errors.Is.
var ErrModelInference = errors.New("model inference failed")

// InferenceError reports a failed detection for one image.
type InferenceError struct {
	Err error
}

func (e *InferenceError) Error() string {
	return ErrModelInference.Error() + ": " + e.Err.Error()
}

// Unwrap returns the underlying failure.
func (e *InferenceError) Unwrap() error { return e.Err }

// Cause returns the underlying failure for errors.Cause.
func (e *InferenceError) Cause() error { return e.Err }

// Is reports whether target is ErrModelInference.
func (e *InferenceError) Is(target error) bool { return target == ErrModelInference }

func inferenceError(err error) error {
	var ie *InferenceError
	if errors.As(err, &ie) {
		return err
	}
	return &InferenceError{Err: err}
}
