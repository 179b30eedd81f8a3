package system

import (
	"time"

	coresys "github.com/l1jgo/fiberd/internal/core/system"
	"github.com/l1jgo/fiberd/internal/fiber"
)

// FiberSystem advances the scheduler once per frame with the frame delta.
// It is the only place the host calls Tick.
type FiberSystem struct {
	sched *fiber.Scheduler
}

func NewFiberSystem(sched *fiber.Scheduler) *FiberSystem {
	return &FiberSystem{sched: sched}
}

func (s *FiberSystem) Phase() coresys.Phase { return coresys.PhaseUpdate }

func (s *FiberSystem) Update(dt time.Duration) {
	s.sched.Tick(dt)
}
