package system

import (
	"time"

	"github.com/l1jgo/fiberd/internal/core/event"
	coresys "github.com/l1jgo/fiberd/internal/core/system"
)

// EventDispatchSystem delivers the events emitted during the previous frame.
type EventDispatchSystem struct {
	bus       *event.Bus
	delivered uint64
}

func NewEventDispatchSystem(bus *event.Bus) *EventDispatchSystem {
	return &EventDispatchSystem{bus: bus}
}

func (s *EventDispatchSystem) Phase() coresys.Phase { return coresys.PhasePreUpdate }

func (s *EventDispatchSystem) Update(_ time.Duration) {
	s.bus.SwapBuffers()
	s.delivered += uint64(s.bus.DispatchAll())
}

// Delivered returns the total number of events dispatched so far.
func (s *EventDispatchSystem) Delivered() uint64 { return s.delivered }
