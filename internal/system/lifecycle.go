package system

import (
	"github.com/l1jgo/fiberd/internal/core/event"
	"github.com/l1jgo/fiberd/internal/fiber"
	"go.uber.org/zap"
)

// PublishFinished returns a scheduler finish hook that emits a FiberFinished
// event for every fiber reaching a terminal state.
func PublishFinished(bus *event.Bus) func(*fiber.Handle) {
	return func(h *fiber.Handle) {
		event.Emit(bus, event.FiberFinished{
			ID:    h.ID(),
			Name:  h.Name(),
			State: h.State(),
			Err:   h.Err(),
		})
	}
}

// FiberReport tallies finished fibers by terminal state.
type FiberReport struct {
	Completed int
	Faulted   int
	Cancelled int
}

// Total returns the number of finished fibers seen.
func (r *FiberReport) Total() int { return r.Completed + r.Faulted + r.Cancelled }

// WatchFibers subscribes to FiberFinished and EntityArrived, logs them and
// returns the running tally. Faults nobody awaited surface here.
func WatchFibers(bus *event.Bus, log *zap.Logger) *FiberReport {
	r := &FiberReport{}
	event.Subscribe(bus, func(ev event.FiberFinished) {
		fields := []zap.Field{
			zap.Uint64("fiber", uint64(ev.ID)),
			zap.String("name", ev.Name),
		}
		switch ev.State {
		case fiber.Faulted:
			r.Faulted++
			log.Error("fiber fault", append(fields, zap.Error(ev.Err))...)
		case fiber.Cancelled:
			r.Cancelled++
			log.Info("fiber cancelled", fields...)
		default:
			r.Completed++
			log.Info("fiber completed", fields...)
		}
	})
	event.Subscribe(bus, func(ev event.EntityArrived) {
		log.Debug("entity arrived",
			zap.Uint64("entity", uint64(ev.Entity)),
			zap.Float64("x", ev.X),
			zap.Float64("y", ev.Y),
		)
	})
	event.Subscribe(bus, func(ev event.EntityDestroyed) {
		log.Info("entity destroyed",
			zap.Uint64("entity", uint64(ev.Entity)),
			zap.String("name", ev.Name),
		)
	})
	return r
}
