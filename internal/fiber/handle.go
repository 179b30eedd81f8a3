package fiber

import "fmt"

// ID identifies a fiber within its scheduler. IDs are never reused.
type ID uint64

// Handle is the caller's reference to a spawned fiber. It can be queried at
// any time from the scheduler's thread, including from other fiber bodies,
// and composed into wait conditions via Fiber.Await.
type Handle struct {
	id    ID
	name  string
	state State
	err   error

	sched     *Scheduler
	fiber     *Fiber    // nil once terminal
	wait      condition // non-nil only while Suspended
	cancelled bool      // cancel requested
}

func (h *Handle) ID() ID       { return h.id }
func (h *Handle) Name() string { return h.name }
func (h *Handle) State() State { return h.state }

// Done reports whether the fiber reached Completed, Faulted or Cancelled.
func (h *Handle) Done() bool { return h.state.Terminal() }

// Err returns the captured fault for Faulted fibers and the cancellation
// error for Cancelled ones. It is nil otherwise.
func (h *Handle) Err() error { return h.err }

// CancelRequested reports whether Cancel has been called on a live fiber.
func (h *Handle) CancelRequested() bool { return h.cancelled }

// Cancel requests cancellation. A suspended fiber is resumed on the next
// tick regardless of its wait condition and its pending suspension returns
// ErrCancelled. Cancelling a terminal fiber is a no-op.
func (h *Handle) Cancel() {
	if h.state.Terminal() {
		return
	}
	if !h.cancelled {
		h.cancelled = true
		h.sched.log.Debug("fiber cancel requested", h.fields()...)
	}
}

func (h *Handle) String() string {
	if h.name == "" {
		return fmt.Sprintf("fiber#%d(%s)", h.id, h.state)
	}
	return fmt.Sprintf("fiber#%d %s(%s)", h.id, h.name, h.state)
}

// settle records the body's outcome.
func (h *Handle) settle(err error) {
	switch {
	case err == nil:
		h.state = Completed
	case h.cancelled && errorsIsCancelled(err):
		h.state = Cancelled
		h.err = err
	default:
		h.state = Faulted
		h.err = err
	}
	h.wait = nil
	h.fiber = nil
}
