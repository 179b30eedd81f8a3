package fiber

import (
	"errors"
	"time"
)

// condition decides when a suspended fiber may resume. ready is evaluated
// exactly once per tick for every suspended fiber.
type condition interface {
	ready(dt time.Duration) bool
}

// nextTick is always satisfied on the tick after suspension.
type nextTick struct{}

func (nextTick) ready(time.Duration) bool { return true }

// afterDuration counts down scheduler-supplied deltas, not wall time.
type afterDuration struct {
	remaining time.Duration
}

func (c *afterDuration) ready(dt time.Duration) bool {
	c.remaining -= dt
	return c.remaining <= 0
}

// anyDone is satisfied once at least one handle is terminal.
type anyDone []*Handle

func (c anyDone) ready(time.Duration) bool {
	for _, h := range c {
		if h.state.Terminal() {
			return true
		}
	}
	return false
}

// allDone is satisfied once every handle is terminal.
type allDone []*Handle

func (c allDone) ready(time.Duration) bool {
	for _, h := range c {
		if !h.state.Terminal() {
			return false
		}
	}
	return true
}

// doneOrElapsed races a handle against a tick-time deadline.
type doneOrElapsed struct {
	target  *Handle
	timeout afterDuration
}

func (c *doneOrElapsed) ready(dt time.Duration) bool {
	expired := c.timeout.ready(dt)
	return c.target.state.Terminal() || expired
}

type signalFired struct {
	sig *Signal
}

func (c signalFired) ready(time.Duration) bool { return c.sig.fired }

// Signal is a one-shot latch fibers can wait on. Fire it from host code or
// from another fiber; waiters resume on the next tick that observes it.
type Signal struct {
	fired bool
}

func NewSignal() *Signal { return &Signal{} }

// Fire latches the signal. Firing twice is harmless.
func (s *Signal) Fire() { s.fired = true }

func (s *Signal) Fired() bool { return s.fired }

// Reset re-arms the signal for later waits. Waiters that already observed
// the fired state are unaffected.
func (s *Signal) Reset() { s.fired = false }

func errorsIsCancelled(err error) bool {
	return errors.Is(err, ErrCancelled)
}
