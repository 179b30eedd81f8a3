package fiber

import (
	"errors"
	"fmt"
	"time"
)

// Delay returns a fiber that completes once d of tick time has elapsed.
func (s *Scheduler) Delay(d time.Duration) *Handle {
	return s.Spawn("delay", func(f *Fiber) error {
		return f.Wait(d)
	})
}

// WhenAll returns a fiber that completes once every handle is terminal.
// It faults with the joined errors of the children that faulted.
func (s *Scheduler) WhenAll(hs ...*Handle) *Handle {
	hs = append([]*Handle(nil), hs...)
	return s.Spawn("when-all", func(f *Fiber) error {
		if err := f.AwaitAll(hs...); err != nil {
			return err
		}
		var errs []error
		for _, h := range hs {
			if h.state == Faulted {
				errs = append(errs, fmt.Errorf("%s: %w", h, h.err))
			}
		}
		return errors.Join(errs...)
	})
}

// WhenAny returns a fiber that completes once any handle is terminal.
// With no handles it completes immediately.
func (s *Scheduler) WhenAny(hs ...*Handle) *Handle {
	hs = append([]*Handle(nil), hs...)
	return s.Spawn("when-any", func(f *Fiber) error {
		if len(hs) == 0 {
			return nil
		}
		return f.AwaitAny(hs...)
	})
}

// WithTimeout returns a fiber that completes when h becomes terminal, or
// faults with ErrTimeout if d of tick time passes first. h itself is left
// running; cancel it if the timeout should stop it.
func (s *Scheduler) WithTimeout(h *Handle, d time.Duration) *Handle {
	if h == nil {
		panic(misuse("WithTimeout", "nil handle"))
	}
	return s.Spawn("timeout", func(f *Fiber) error {
		if err := f.suspend("WithTimeout", &doneOrElapsed{
			target:  h,
			timeout: afterDuration{remaining: d},
		}); err != nil {
			return err
		}
		if !h.state.Terminal() {
			return fmt.Errorf("%s after %s: %w", h, d, ErrTimeout)
		}
		return nil
	})
}

// Future is a fiber that produces a value.
type Future[T any] struct {
	*Handle
	value T
}

// Value returns the produced value once the fiber Completed, its error once
// it Faulted or was Cancelled, and ErrPending before that.
func (fu *Future[T]) Value() (T, error) {
	var zero T
	switch fu.state {
	case Completed:
		return fu.value, nil
	case Faulted, Cancelled:
		return zero, fu.err
	default:
		return zero, ErrPending
	}
}

// SpawnFunc spawns fn as a fiber and captures its result.
func SpawnFunc[T any](s *Scheduler, name string, fn func(f *Fiber) (T, error)) *Future[T] {
	fu := &Future[T]{}
	fu.Handle = s.Spawn(name, func(f *Fiber) error {
		v, err := fn(f)
		if err != nil {
			return err
		}
		fu.value = v
		return nil
	})
	return fu
}
