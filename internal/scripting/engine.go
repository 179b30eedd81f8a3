package scripting

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/l1jgo/fiberd/internal/core/ecs"
	"github.com/l1jgo/fiberd/internal/fiber"
	"github.com/l1jgo/fiberd/internal/world"
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
)

//go:embed prelude.lua
var prelude string

// Engine wraps a single gopher-lua VM whose functions run as fibers.
// Each fiber drives its own Lua coroutine; the builtins yield(), wait() and
// await() yield that coroutine and the engine turns the yielded values into
// fiber suspensions. Single-goroutine access only (game loop): fiber handoff
// guarantees that at most one coroutine runs at a time.
type Engine struct {
	vm      *lua.LState
	log     *zap.Logger
	sched   *fiber.Scheduler
	world   *world.State
	running map[*lua.LState]*fiber.Fiber
}

// NewEngine creates a Lua engine bound to sched and ws and loads all scripts
// from the given directory.
func NewEngine(scriptsDir string, sched *fiber.Scheduler, ws *world.State, log *zap.Logger) (*Engine, error) {
	vm := lua.NewState(lua.Options{
		SkipOpenLibs: false,
	})

	e := &Engine{
		vm:      vm,
		log:     log,
		sched:   sched,
		world:   ws,
		running: make(map[*lua.LState]*fiber.Fiber),
	}
	vm.SetGlobal("API_VERSION", lua.LNumber(2))
	e.registerBuiltins()

	if err := vm.DoString(prelude); err != nil {
		vm.Close()
		return nil, fmt.Errorf("load prelude: %w", err)
	}

	if scriptsDir == "" {
		return e, nil
	}
	// Top-level scripts first, then feature directories.
	for _, sub := range []string{"", "core", "ai", "world"} {
		p := filepath.Join(scriptsDir, sub)
		if err := e.loadDir(p); err != nil {
			vm.Close()
			return nil, fmt.Errorf("load %s scripts: %w", p, err)
		}
	}
	return e, nil
}

// loadDir loads all .lua files in a directory.
func (e *Engine) loadDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil // skip missing dirs
		}
		return err
	}
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".lua" {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if err := e.vm.DoFile(path); err != nil {
			return fmt.Errorf("load %s: %w", path, err)
		}
		e.log.Debug("loaded lua script", zap.String("file", path))
	}
	return nil
}

// LoadString runs a chunk of Lua source in the global environment.
func (e *Engine) LoadString(src string) error {
	if err := e.vm.DoString(src); err != nil {
		return fmt.Errorf("load lua chunk: %w", err)
	}
	return nil
}

// Has reports whether a global Lua function with that name exists.
func (e *Engine) Has(fn string) bool {
	_, ok := e.vm.GetGlobal(fn).(*lua.LFunction)
	return ok
}

// Body returns a fiber body that runs the global Lua function fn with args
// inside a fresh coroutine. A Lua runtime error faults the fiber.
func (e *Engine) Body(fn string, args ...lua.LValue) fiber.Body {
	return func(f *fiber.Fiber) error {
		lfn, ok := e.vm.GetGlobal(fn).(*lua.LFunction)
		if !ok {
			return fmt.Errorf("lua function %s not found", fn)
		}
		co, cancel := e.vm.NewThread()
		if cancel != nil {
			defer cancel()
		}
		e.running[co] = f
		defer delete(e.running, co)

		in := args
		for {
			st, err, rets := e.vm.Resume(co, lfn, in...)
			in = nil
			switch st {
			case lua.ResumeError:
				return fmt.Errorf("lua %s: %w", fn, err)
			case lua.ResumeOK:
				return nil
			}
			if err := e.suspend(f, rets); err != nil {
				return err
			}
		}
	}
}

// Spawn starts the Lua function fn as a fiber.
func (e *Engine) Spawn(fn string, args ...lua.LValue) *fiber.Handle {
	return e.sched.Spawn(fn, e.Body(fn, args...))
}

// SpawnFor starts fn with the entity as its first argument followed by args,
// and binds the fiber's lifetime to the entity.
func (e *Engine) SpawnFor(id ecs.EntityID, fn string, args ...float64) (*fiber.Handle, error) {
	if !e.world.Alive(id) {
		return nil, fmt.Errorf("spawn %s: %w", fn, world.ErrNoEntity)
	}
	largs := make([]lua.LValue, 0, len(args)+1)
	largs = append(largs, entityValue(id))
	for _, a := range args {
		largs = append(largs, lua.LNumber(a))
	}
	name := fn
	if a, ok := e.world.Actor(id); ok {
		name = a.Name + "/" + fn
	}
	h := e.sched.Spawn(name, e.Body(fn, largs...))
	if err := e.world.Own(id, h); err != nil {
		return h, err
	}
	return h, nil
}

// suspend maps the values a coroutine yielded onto a fiber suspension.
func (e *Engine) suspend(f *fiber.Fiber, rets []lua.LValue) error {
	tag, _ := argAt(rets, 0).(lua.LString)
	switch tag {
	case yieldWait:
		secs := float64(lua.LVAsNumber(argAt(rets, 1)))
		return f.Wait(time.Duration(secs * float64(time.Second)))
	case yieldAwait:
		h, ok := handleOf(argAt(rets, 1))
		if !ok {
			return fmt.Errorf("await: expected fiber handle, got %s", argAt(rets, 1).Type())
		}
		return f.Await(h)
	default:
		// yield() and bare coroutine.yield(...)
		return f.Yield()
	}
}

// Close shuts down the Lua VM.
func (e *Engine) Close() {
	e.vm.Close()
}

func argAt(vs []lua.LValue, i int) lua.LValue {
	if i < len(vs) {
		return vs[i]
	}
	return lua.LNil
}
