package system

import "time"

// Phase orders systems within one frame.
type Phase int

const (
	PhaseInput      Phase = iota // 0: host input, spawn requests
	PhasePreUpdate               // 1: deliver last frame's events
	PhaseUpdate                  // 2: fiber scheduler tick
	PhasePostUpdate              // 3: reactions to this frame's fiber work
	PhaseCleanup                 // 4: destroy queued entities
)

func (p Phase) String() string {
	switch p {
	case PhaseInput:
		return "input"
	case PhasePreUpdate:
		return "pre-update"
	case PhaseUpdate:
		return "update"
	case PhasePostUpdate:
		return "post-update"
	case PhaseCleanup:
		return "cleanup"
	default:
		return "unknown"
	}
}

// System is the interface every frame system implements.
type System interface {
	Phase() Phase
	Update(dt time.Duration)
}
