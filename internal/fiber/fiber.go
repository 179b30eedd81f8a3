package fiber

import (
	"runtime/debug"
	"time"
)

// Body is the logic of a fiber. It runs on its own goroutine but never
// concurrently with the scheduler or with another body: control changes
// hands only at the suspension methods of f.
type Body func(f *Fiber) error

// Fiber is the body-side view of a running fiber. Its suspension methods
// may only be called from the body it was passed to, while that body runs.
type Fiber struct {
	handle *Handle
	sched  *Scheduler
	resume chan struct{} // scheduler -> body
	park   chan struct{} // body -> scheduler
}

func (f *Fiber) Handle() *Handle       { return f.handle }
func (f *Fiber) Scheduler() *Scheduler { return f.sched }

// Delta is the delta of the tick that last resumed the body, or zero while
// running the eager prefix outside a tick.
func (f *Fiber) Delta() time.Duration { return f.sched.dt }

// Cancelled reports whether cancellation has been requested.
func (f *Fiber) Cancelled() bool { return f.handle.cancelled }

// Spawn starts a child fiber on the same scheduler. The child's prefix runs
// before Spawn returns.
func (f *Fiber) Spawn(name string, body Body) *Handle {
	return f.sched.Spawn(name, body)
}

// Yield suspends until the next tick.
func (f *Fiber) Yield() error {
	return f.suspend("Yield", nextTick{})
}

// Wait suspends until the deltas of subsequent ticks add up to d.
// A non-positive d behaves like Yield.
func (f *Fiber) Wait(d time.Duration) error {
	if d <= 0 {
		return f.suspend("Wait", nextTick{})
	}
	return f.suspend("Wait", &afterDuration{remaining: d})
}

// Await suspends until h is terminal. Control returns to the scheduler once
// even when h is already done. The child's fault is not propagated; inspect
// h.Err() after resuming.
func (f *Fiber) Await(h *Handle) error {
	f.checkTarget("Await", h)
	return f.suspend("Await", anyDone{h})
}

// AwaitAny suspends until at least one of hs is terminal.
func (f *Fiber) AwaitAny(hs ...*Handle) error {
	if len(hs) == 0 {
		panic(misuse("AwaitAny", "no handles"))
	}
	for _, h := range hs {
		f.checkTarget("AwaitAny", h)
	}
	return f.suspend("AwaitAny", anyDone(hs))
}

// AwaitAll suspends until every one of hs is terminal.
func (f *Fiber) AwaitAll(hs ...*Handle) error {
	for _, h := range hs {
		f.checkTarget("AwaitAll", h)
	}
	return f.suspend("AwaitAll", allDone(hs))
}

// WaitSignal suspends until sig has been fired.
func (f *Fiber) WaitSignal(sig *Signal) error {
	if sig == nil {
		panic(misuse("WaitSignal", "nil signal"))
	}
	return f.suspend("WaitSignal", signalFired{sig: sig})
}

func (f *Fiber) checkTarget(op string, h *Handle) {
	switch h {
	case nil:
		panic(misuse(op, "nil handle"))
	case f.handle:
		panic(misuse(op, "fiber awaiting itself"))
	}
}

// suspend parks the body until the scheduler resumes it.
func (f *Fiber) suspend(op string, c condition) error {
	if f.sched.current != f {
		panic(misuse(op, "called outside the fiber's running body"))
	}
	h := f.handle
	if h.cancelled {
		return ErrCancelled
	}
	h.wait = c
	h.state = Suspended
	f.park <- struct{}{}
	<-f.resume
	h.state = Running
	h.wait = nil
	if h.cancelled {
		return ErrCancelled
	}
	return nil
}

// run is the body goroutine. It waits for the first handoff, runs the body
// to completion across any number of suspensions and hands control back a
// final time.
func (f *Fiber) run(body Body) {
	<-f.resume
	h := f.handle
	h.state = Running

	var (
		err      error
		returned bool
	)
	defer func() {
		if !returned {
			err = &PanicError{Value: "fiber body exited without returning"}
		}
		h.settle(err)
		f.park <- struct{}{}
	}()

	err = f.call(body)
	returned = true
}

func (f *Fiber) call(body Body) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Value: r, Stack: debug.Stack()}
		}
	}()
	return body(f)
}
