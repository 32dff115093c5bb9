package capture

// State enumerates the capture device lifecycle.
type State int32

const (
	StateIdle State = iota
	StateOpening
	StateOpen
	StateConfiguring
	StateReady
	StateCapturing
	StateClosing
	StateError
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateOpening:
		return "opening"
	case StateOpen:
		return "open"
	case StateConfiguring:
		return "configuring"
	case StateReady:
		return "ready"
	case StateCapturing:
		return "capturing"
	case StateClosing:
		return "closing"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// Transition is delivered to listeners after every state change. Err is set
// when the change was caused by a failure.
type Transition struct {
	From State
	To   State
	Err  error
}

// TransitionListener observes state changes on the controller's worker.
type TransitionListener func(Transition)
