package providers

import (
	"github.com/pkg/errors"
	ort "github.com/yalue/onnxruntime_go"
)

// TensorSpec names a model tensor and its fixed shape.
type TensorSpec struct {
	Name  string
	Shape []int64
}

// NewSessionArgs represents the arguments for creating a new session.
type NewSessionArgs struct {
	// The path to the ONNX model file.
	ModelPath string
	// The inputs of the model.
	Inputs []TensorSpec
	// The outputs of the model.
	Outputs []TensorSpec
}

// Session represents a model session from the onnxruntime with
// preallocated float32 input and output tensors.
type Session struct {
	session *ort.AdvancedSession
	Inputs  []*ort.Tensor[float32]
	Outputs []*ort.Tensor[float32]
}

// NewSession creates a new ONNX Runtime session.
//
// Order of operations:
//  1. Environment setup, once per process.
//  2. Tensor allocation for every input and output.
//  3. Session options and the execution provider.
//  4. Session creation binding the tensors.
//
// Arguments:
//   - cfg: The provider configuration.
//   - args: The model path and tensor layout.
//
// Returns:
//   - *Session: The session; Close releases it and its tensors.
//   - error: An error if the session creation fails.
func NewSession(cfg Config, args NewSessionArgs) (*Session, error) {
	if len(args.Inputs) == 0 || len(args.Outputs) == 0 {
		return nil, errors.New("session needs at least one input and one output")
	}

	if err := InitializeEnvironment(cfg.SharedLibraryPath); err != nil {
		return nil, err
	}

	s := &Session{}
	var inputValues, outputValues []ort.Value
	var inputNames, outputNames []string

	for _, spec := range args.Inputs {
		t, err := ort.NewEmptyTensor[float32](ort.NewShape(spec.Shape...))
		if err != nil {
			s.Close()
			return nil, errors.Wrapf(err, "error creating input tensor %s", spec.Name)
		}
		s.Inputs = append(s.Inputs, t)
		inputValues = append(inputValues, t)
		inputNames = append(inputNames, spec.Name)
	}

	for _, spec := range args.Outputs {
		t, err := ort.NewEmptyTensor[float32](ort.NewShape(spec.Shape...))
		if err != nil {
			s.Close()
			return nil, errors.Wrapf(err, "error creating output tensor %s", spec.Name)
		}
		s.Outputs = append(s.Outputs, t)
		outputValues = append(outputValues, t)
		outputNames = append(outputNames, spec.Name)
	}

	options, err := NewSessionOptions(cfg)
	if err != nil {
		s.Close()
		return nil, err
	}
	defer options.Destroy()

	session, err := ort.NewAdvancedSession(
		args.ModelPath,
		inputNames,
		outputNames,
		inputValues,
		outputValues,
		options,
	)
	if err != nil {
		s.Close()
		return nil, errors.Wrapf(err, "error creating ORT session for %s", args.ModelPath)
	}
	s.session = session

	return s, nil
}

// Run executes the model on the current input tensor contents.
func (s *Session) Run() error {
	if s.session == nil {
		return errors.New("session is closed")
	}
	return s.session.Run()
}

// Close releases the resources associated with the Session.
func (s *Session) Close() error {
	for _, t := range s.Inputs {
		t.Destroy()
	}
	s.Inputs = nil

	for _, t := range s.Outputs {
		t.Destroy()
	}
	s.Outputs = nil

	if s.session != nil {
		err := s.session.Destroy()
		s.session = nil
		if err != nil {
			return errors.Wrap(err, "error destroying ORT session")
		}
	}
	return nil
}
