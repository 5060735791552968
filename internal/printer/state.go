package printer

// State is the driver's position in a print run.
type State int

const (
	StateIdle State = iota
	StateConfiguring
	StatePrinting
	StateDone
	StateFailed
)

var stateNames = map[State]string{
	StateIdle:        "idle",
	StateConfiguring: "configuring",
	StatePrinting:    "printing",
	StateDone:        "done",
	StateFailed:      "failed",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "unknown"
}

// CanTransitionTo reports whether the driver may move from s to target.
func (s State) CanTransitionTo(target State) bool {
	switch s {
	case StateIdle:
		return target == StateConfiguring || target == StateDone || target == StateFailed
	case StateConfiguring:
		return target == StatePrinting || target == StateFailed
	case StatePrinting:
		return target == StateConfiguring || target == StateDone || target == StateFailed
	default:
		return false
	}
}

// IsTerminal reports whether the run is over.
func (s State) IsTerminal() bool {
	return s == StateDone || s == StateFailed
}
