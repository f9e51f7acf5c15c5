package dictation

// State is the controller's position in a dictation.
type State int

const (
	Idle State = iota
	Recording
	Transcribing
	PostProcessing
	Injecting
)

var stateNames = [...]string{
	Idle:           "idle",
	Recording:      "recording",
	Transcribing:   "transcribing",
	PostProcessing: "post-processing",
	Injecting:      "injecting",
}

func (s State) String() string {
	if s >= 0 && int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "unknown"
}

// Busy reports whether a dictation is past capture and still running.
func (s State) Busy() bool {
	return s == Transcribing || s == PostProcessing || s == Injecting
}
