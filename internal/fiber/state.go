package fiber

// State is the lifecycle position of a fiber.
type State int

const (
	Created   State = iota // handle allocated, body not entered yet
	Running                // body is executing on the scheduler's thread
	Suspended              // parked at a suspension point with a wait condition
	Completed              // body returned nil
	Faulted                // body returned an error or panicked
	Cancelled              // body returned ErrCancelled after its own cancel request
)

func (s State) String() string {
	switch s {
	case Created:
		return "created"
	case Running:
		return "running"
	case Suspended:
		return "suspended"
	case Completed:
		return "completed"
	case Faulted:
		return "faulted"
	case Cancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further transitions are possible.
func (s State) Terminal() bool {
	return s == Completed || s == Faulted || s == Cancelled
}
