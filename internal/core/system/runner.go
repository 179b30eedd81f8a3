package system

import (
	"sort"
	"time"
)

// Runner executes systems in phase order each frame. Systems sharing a
// phase run in registration order.
type Runner struct {
	systems []System
	sorted  bool
	frames  uint64
}

func NewRunner() *Runner {
	return &Runner{
		systems: make([]System, 0, 8),
	}
}

func (r *Runner) Register(s System) {
	r.systems = append(r.systems, s)
	r.sorted = false
}

// Tick runs one frame with the given delta.
func (r *Runner) Tick(dt time.Duration) {
	r.ensureSorted()
	for _, s := range r.systems {
		s.Update(dt)
	}
	r.frames++
}

// Frames returns how many frames have been ticked.
func (r *Runner) Frames() uint64 { return r.frames }

func (r *Runner) ensureSorted() {
	if !r.sorted {
		sort.SliceStable(r.systems, func(i, j int) bool {
			return r.systems[i].Phase() < r.systems[j].Phase()
		})
		r.sorted = true
	}
}
