package eventloop

// State is the orchestrator's position in the capture sequence.
type State int32

const (
	StateIdle State = iota
	StatePermissionCheck
	StateAwaitingRegion
	StateCapturing
	StateCompressing
	StateWritingClipboard
	StateError
)

var stateNames = [...]string{
	StateIdle:             "idle",
	StatePermissionCheck:  "permission-check",
	StateAwaitingRegion:   "awaiting-region",
	StateCapturing:        "capturing",
	StateCompressing:      "compressing",
	StateWritingClipboard: "writing-clipboard",
	StateError:            "error",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}
