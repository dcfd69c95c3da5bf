package controller

// State is the stage the controller is currently in.
type State int32

const (
	// StateIdle is the state before and after a run.
	StateIdle State = iota
	// StateEnumerating lists the dataset images.
	StateEnumerating
	// StateDetecting loads an image and runs the detector on it.
	StateDetecting
	// StateLabelLoading reads the ground-truth label file.
	StateLabelLoading
	// StateConverting turns normalized labels into pixel boxes.
	StateConverting
	// StateAnnotating draws the overlay.
	StateAnnotating
	// StateWriting saves the annotated image.
	StateWriting
)

var stateNames = [...]string{
	StateIdle:         "idle",
	StateEnumerating:  "enumerating",
	StateDetecting:    "detecting",
	StateLabelLoading: "label_loading",
	StateConverting:   "converting",
	StateAnnotating:   "annotating",
	StateWriting:      "writing",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}
