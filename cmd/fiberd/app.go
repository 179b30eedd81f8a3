package main

import (
	"fmt"
	"os"
	"syscall"
	"time"

	"github.com/l1jgo/fiberd/internal/config"
	"github.com/l1jgo/fiberd/internal/core/ecs"
	"github.com/l1jgo/fiberd/internal/core/event"
	coresys "github.com/l1jgo/fiberd/internal/core/system"
	"github.com/l1jgo/fiberd/internal/data"
	"github.com/l1jgo/fiberd/internal/fiber"
	"github.com/l1jgo/fiberd/internal/scripting"
	"github.com/l1jgo/fiberd/internal/system"
	"github.com/l1jgo/fiberd/internal/world"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// app is the composition root: one scheduler, one world, one Lua VM.
type app struct {
	cfg    *config.Config
	log    *zap.Logger
	ecs    *ecs.World
	world  *world.State
	sched  *fiber.Scheduler
	runner *coresys.Runner
	engine *scripting.Engine
	report *system.FiberReport
}

func newApp(cfg *config.Config, log *zap.Logger) (*app, error) {
	ecsWorld := ecs.NewWorld()
	bus := event.NewBus()
	ws := world.NewState(ecsWorld, bus)

	schedLog := log.Named("fiber")
	if !cfg.Fiber.LogLifecycle {
		schedLog = schedLog.WithOptions(zap.IncreaseLevel(zapcore.InfoLevel))
	}
	sched := fiber.New(
		fiber.WithLogger(schedLog),
		fiber.WithFinishHook(system.PublishFinished(bus)),
	)

	engine, err := scripting.NewEngine(cfg.Scripting.Dir, sched, ws, log.Named("lua"))
	if err != nil {
		return nil, fmt.Errorf("scripting: %w", err)
	}

	runner := coresys.NewRunner()
	runner.Register(system.NewEventDispatchSystem(bus))
	runner.Register(system.NewFiberSystem(sched))
	runner.Register(system.NewCleanupSystem(ecsWorld, log))

	return &app{
		cfg:    cfg,
		log:    log,
		ecs:    ecsWorld,
		world:  ws,
		sched:  sched,
		runner: runner,
		engine: engine,
		report: system.WatchFibers(bus, log),
	}, nil
}

// check reports the first scenario entry whose Lua function is missing.
func (a *app) check(sc *data.Scenario) error {
	if entry := a.cfg.Scripting.Entry; entry != "" && !a.engine.Has(entry) {
		return fmt.Errorf("entry function %q not found", entry)
	}
	for _, g := range sc.Globals {
		if !a.engine.Has(g) {
			return fmt.Errorf("global %q: lua function not found", g)
		}
	}
	for _, ent := range sc.Actors {
		if !a.engine.Has(ent.Script) {
			return fmt.Errorf("actor %q: lua function %q not found", ent.Name, ent.Script)
		}
	}
	return nil
}

// start spawns the entry function and one fiber per scenario actor and
// global. Each fiber runs its prefix here, before the first frame.
func (a *app) start(sc *data.Scenario) error {
	if err := a.check(sc); err != nil {
		return err
	}
	if entry := a.cfg.Scripting.Entry; entry != "" {
		a.engine.Spawn(entry)
	}
	for _, g := range sc.Globals {
		a.engine.Spawn(g)
	}
	for _, ent := range sc.Actors {
		id := a.world.SpawnActor(ent.Name, ent.X, ent.Y, ent.Speed)
		if err := a.startActor(id, ent); err != nil {
			return fmt.Errorf("actor %q: %w", ent.Name, err)
		}
	}
	a.log.Info("scenario started",
		zap.String("scenario", sc.Name),
		zap.Int("actors", len(sc.Actors)),
		zap.Int("fibers", a.sched.Len()),
	)
	return nil
}

func (a *app) startActor(id ecs.EntityID, ent data.ActorEntry) error {
	if ent.Delay <= 0 {
		_, err := a.engine.SpawnFor(id, ent.Script, ent.Args...)
		return err
	}
	delay := time.Duration(ent.Delay * float64(time.Second))
	h := a.sched.Spawn(ent.Name+"/delay", func(f *fiber.Fiber) error {
		if err := f.Wait(delay); err != nil {
			return err
		}
		_, err := a.engine.SpawnFor(id, ent.Script, ent.Args...)
		return err
	})
	return a.world.Own(id, h)
}

// runHeadless advances fixed steps without wall-clock pacing. It stops after
// frames frames or once no fiber is left, whichever comes first.
func (a *app) runHeadless(frames int, step time.Duration) {
	for i := 0; frames <= 0 || i < frames; i++ {
		if a.sched.Len() == 0 {
			break
		}
		a.runner.Tick(step)
	}
	a.drain(step)
}

// runRealtime paces frames with a ticker until every fiber finished, the
// frame limit is hit or a shutdown signal arrives.
func (a *app) runRealtime(shutdownCh <-chan os.Signal) {
	tick := a.cfg.Engine.TickRate.Duration
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	last := time.Now()
	for {
		select {
		case now := <-ticker.C:
			a.runner.Tick(now.Sub(last))
			last = now
			if a.sched.Len() == 0 {
				a.log.Info("all fibers finished", zap.Uint64("frames", a.runner.Frames()))
				a.drain(tick)
				return
			}
			if limit := a.cfg.Engine.MaxFrames; limit > 0 && a.runner.Frames() >= uint64(limit) {
				a.log.Info("frame limit reached", zap.Int("max_frames", limit))
				return
			}
		case sig := <-shutdownCh:
			a.log.Info("shutdown signal received", zap.String("signal", sig.String()))
			return
		}
	}
}

// drain runs one more frame so the events of the last one are dispatched
// and queued entities are flushed.
func (a *app) drain(step time.Duration) {
	a.runner.Tick(step)
}

// close cancels what is still running and releases the VM.
func (a *app) close() {
	live := a.sched.Len()
	a.sched.Close()
	a.drain(0)
	a.engine.Close()
	a.log.Info("engine stopped",
		zap.Uint64("frames", a.runner.Frames()),
		zap.Duration("elapsed", a.sched.Elapsed()),
		zap.Int("cancelled_at_exit", live),
		zap.Int("completed", a.report.Completed),
		zap.Int("faulted", a.report.Faulted),
		zap.Int("cancelled", a.report.Cancelled),
	)
}

var shutdownSignals = []os.Signal{syscall.SIGINT, syscall.SIGTERM}
