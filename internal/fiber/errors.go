package fiber

import (
	"errors"
	"fmt"
)

var (
	// ErrCancelled is returned by suspension points once the fiber has been
	// cancelled. Bodies should return it (or wrap it) to end Cancelled.
	ErrCancelled = errors.New("fiber cancelled")

	// ErrClosed faults fibers spawned on a closed scheduler.
	ErrClosed = errors.New("scheduler closed")

	// ErrTimeout faults a WithTimeout fiber whose target outlived the deadline.
	ErrTimeout = errors.New("fiber timed out")

	// ErrPending is returned by Future.Value before the fiber is terminal.
	ErrPending = errors.New("fiber still pending")
)

// PanicError is the fault recorded when a body panics.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("fiber panic: %v", e.Value)
}

// Unwrap exposes a panicked error value, e.g. a *MisuseError raised inside
// a body.
func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}

// MisuseError signals a host integration bug. It is raised with panic at the
// offending call site rather than recorded on a handle.
type MisuseError struct {
	Op     string
	Reason string
}

func (e *MisuseError) Error() string {
	return fmt.Sprintf("fiber: misuse of %s: %s", e.Op, e.Reason)
}

func misuse(op, reason string) *MisuseError {
	return &MisuseError{Op: op, Reason: reason}
}
