package fiber

import (
	"time"

	"github.com/emirpasic/gods/queues/linkedlistqueue"
	"go.uber.org/zap"
)

// Scheduler owns the live fibers and advances them once per Tick.
// It is single-threaded: Spawn, Tick, Close and every body run on the
// caller's thread of control, one at a time. Multiple schedulers are fully
// independent.
type Scheduler struct {
	log      *zap.Logger
	onFinish []func(*Handle)

	live    *linkedlistqueue.Queue // *Handle, FIFO by readiness
	nextID  ID
	current *Fiber        // body holding control, nil when the host does
	dt      time.Duration // delta of the tick in progress
	ticking bool
	closed  bool

	ticks   uint64
	elapsed time.Duration
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithLogger sets the scheduler logger. Lifecycle is logged at debug,
// faults at warn.
func WithLogger(log *zap.Logger) Option {
	return func(s *Scheduler) {
		if log != nil {
			s.log = log
		}
	}
}

// WithFinishHook registers fn to observe every fiber reaching a terminal
// state. Hooks run on the scheduler's thread right after the transition.
func WithFinishHook(fn func(*Handle)) Option {
	return func(s *Scheduler) {
		if fn != nil {
			s.onFinish = append(s.onFinish, fn)
		}
	}
}

func New(opts ...Option) *Scheduler {
	s := &Scheduler{
		log:  zap.NewNop(),
		live: linkedlistqueue.New(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Len returns the number of live (non-terminal) fibers.
func (s *Scheduler) Len() int { return s.live.Size() }

// Delta returns the delta of the tick in progress, zero outside Tick.
func (s *Scheduler) Delta() time.Duration { return s.dt }

// Ticks counts the ticks that had at least one live fiber to visit.
func (s *Scheduler) Ticks() uint64 { return s.ticks }

// Elapsed sums the deltas of the ticks counted by Ticks.
func (s *Scheduler) Elapsed() time.Duration { return s.elapsed }

// Spawn creates a fiber and runs body synchronously up to its first
// suspension point before returning. A body that never suspends returns an
// already terminal handle. Spawn may be called from inside another body.
func (s *Scheduler) Spawn(name string, body Body) *Handle {
	if body == nil {
		panic(misuse("Spawn", "nil body"))
	}
	s.nextID++
	h := &Handle{id: s.nextID, name: name, state: Created, sched: s}
	if s.closed {
		h.settle(ErrClosed)
		s.finish(h)
		return h
	}

	f := &Fiber{
		handle: h,
		sched:  s,
		resume: make(chan struct{}),
		park:   make(chan struct{}),
	}
	h.fiber = f
	s.log.Debug("fiber spawned", h.fields()...)

	go f.run(body)
	s.switchTo(f)

	if h.state.Terminal() {
		s.finish(h)
	} else {
		s.live.Enqueue(h)
	}
	return h
}

// Tick advances every live fiber at most once. Fibers are visited in FIFO
// order; a fiber whose wait condition is satisfied by dt is resumed until its
// next suspension or completion. Fibers spawned during the tick are first
// visited on the next one. Faults are captured on handles and never escape.
func (s *Scheduler) Tick(dt time.Duration) {
	if s.current != nil {
		panic(misuse("Tick", "called from inside a fiber body"))
	}
	if s.ticking {
		panic(misuse("Tick", "re-entrant tick"))
	}
	n := s.live.Size()
	if n == 0 {
		return
	}
	if dt < 0 {
		dt = 0
	}

	s.ticking = true
	s.dt = dt
	s.ticks++
	s.elapsed += dt
	defer func() {
		s.ticking = false
		s.dt = 0
	}()

	for i := 0; i < n; i++ {
		v, _ := s.live.Dequeue()
		h := v.(*Handle)
		if h.cancelled || h.wait.ready(dt) {
			s.switchTo(h.fiber)
		}
		if h.state.Terminal() {
			s.finish(h)
			continue
		}
		s.live.Enqueue(h)
	}
}

// Close cancels every live fiber and drives each body to its end so that no
// goroutine stays parked. Later Spawn calls return handles faulted with
// ErrClosed.
func (s *Scheduler) Close() {
	if s.current != nil || s.ticking {
		panic(misuse("Close", "called from inside a fiber body or tick"))
	}
	if s.closed {
		return
	}
	s.closed = true
	for !s.live.Empty() {
		v, _ := s.live.Dequeue()
		h := v.(*Handle)
		h.cancelled = true
		s.switchTo(h.fiber)
		if h.state.Terminal() {
			s.finish(h)
			continue
		}
		s.live.Enqueue(h)
	}
	s.log.Debug("scheduler closed")
}

// switchTo hands control to f and blocks until it parks or ends.
func (s *Scheduler) switchTo(f *Fiber) {
	prev := s.current
	s.current = f
	f.resume <- struct{}{}
	<-f.park
	s.current = prev
}

func (s *Scheduler) finish(h *Handle) {
	switch h.state {
	case Faulted:
		s.log.Warn("fiber faulted", append(h.fields(), zap.Error(h.err))...)
	default:
		s.log.Debug("fiber finished", h.fields()...)
	}
	for _, fn := range s.onFinish {
		fn(h)
	}
}

func (h *Handle) fields() []zap.Field {
	return []zap.Field{
		zap.Uint64("fiber", uint64(h.id)),
		zap.String("name", h.name),
		zap.Stringer("state", h.state),
	}
}
