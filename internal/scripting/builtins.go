package scripting

import (
	"math"

	"github.com/l1jgo/fiberd/internal/core/ecs"
	"github.com/l1jgo/fiberd/internal/fiber"
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
)

const (
	yieldTick  lua.LString = "yield"
	yieldWait  lua.LString = "wait"
	yieldAwait lua.LString = "await"

	handleTypeName = "fiber_handle"
)

func (e *Engine) registerBuiltins() {
	mt := e.vm.NewTypeMetatable(handleTypeName)
	e.vm.SetField(mt, "__tostring", e.vm.NewFunction(func(L *lua.LState) int {
		h := checkHandle(L, 1)
		L.Push(lua.LString(h.String()))
		return 1
	}))

	// suspension points
	e.vm.Register("yield", func(L *lua.LState) int {
		return L.Yield(yieldTick)
	})
	e.vm.Register("wait", func(L *lua.LState) int {
		return L.Yield(yieldWait, L.CheckNumber(1))
	})
	e.vm.Register("await", func(L *lua.LState) int {
		checkHandle(L, 1)
		return L.Yield(yieldAwait, L.Get(1))
	})

	// fiber handles
	e.vm.Register("spawn", e.luaSpawn)
	e.vm.Register("status", func(L *lua.LState) int {
		L.Push(lua.LString(checkHandle(L, 1).State().String()))
		return 1
	})
	e.vm.Register("done", func(L *lua.LState) int {
		L.Push(lua.LBool(checkHandle(L, 1).Done()))
		return 1
	})
	e.vm.Register("cancel", func(L *lua.LState) int {
		checkHandle(L, 1).Cancel()
		return 0
	})
	e.vm.Register("fault", func(L *lua.LState) int {
		if err := checkHandle(L, 1).Err(); err != nil {
			L.Push(lua.LString(err.Error()))
			return 1
		}
		L.Push(lua.LNil)
		return 1
	})

	// host services
	e.vm.Register("log", e.luaLog)
	e.vm.Register("delta", func(L *lua.LState) int {
		L.Push(lua.LNumber(e.sched.Delta().Seconds()))
		return 1
	})

	// world
	e.vm.Register("actor", e.luaActor)
	e.vm.Register("position", e.luaPosition)
	e.vm.Register("set_position", e.luaSetPosition)
	e.vm.Register("step_toward", e.luaStepToward)
	e.vm.Register("destroy", e.luaDestroy)
}

// spawn(fn, ...) starts another Lua function as a child fiber and returns
// its handle once the child's prefix has run.
func (e *Engine) luaSpawn(L *lua.LState) int {
	fn := L.CheckString(1)
	args := make([]lua.LValue, 0, L.GetTop())
	for i := 2; i <= L.GetTop(); i++ {
		args = append(args, L.Get(i))
	}
	h := e.sched.Spawn(fn, e.Body(fn, args...))
	// the child's resume switched the VM's current thread away from L
	L.G.CurrentThread = L
	L.Push(e.handleValue(h))
	return 1
}

func (e *Engine) luaLog(L *lua.LState) int {
	msg := L.CheckString(1)
	var fields []zap.Field
	if f, ok := e.running[L]; ok {
		fields = append(fields, zap.Uint64("fiber", uint64(f.Handle().ID())), zap.String("name", f.Handle().Name()))
	}
	e.log.Info(msg, fields...)
	return 0
}

func (e *Engine) luaActor(L *lua.LState) int {
	id, ok := e.world.ActorByName(L.CheckString(1))
	if !ok {
		L.Push(lua.LNil)
		return 1
	}
	L.Push(entityValue(id))
	return 1
}

func (e *Engine) luaPosition(L *lua.LState) int {
	x, y, err := e.world.Position(checkEntity(L, 1))
	if err != nil {
		L.RaiseError("%s", err.Error())
		return 0
	}
	L.Push(lua.LNumber(x))
	L.Push(lua.LNumber(y))
	return 2
}

func (e *Engine) luaSetPosition(L *lua.LState) int {
	if err := e.world.SetPosition(checkEntity(L, 1), float64(L.CheckNumber(2)), float64(L.CheckNumber(3))); err != nil {
		L.RaiseError("%s", err.Error())
	}
	return 0
}

// step_toward(e, x, y) moves e by one tick of travel and returns whether it
// arrived.
func (e *Engine) luaStepToward(L *lua.LState) int {
	arrived, err := e.world.StepToward(checkEntity(L, 1), float64(L.CheckNumber(2)), float64(L.CheckNumber(3)), e.sched.Delta())
	if err != nil {
		L.RaiseError("%s", err.Error())
		return 0
	}
	L.Push(lua.LBool(arrived))
	return 1
}

func (e *Engine) luaDestroy(L *lua.LState) int {
	if err := e.world.Destroy(checkEntity(L, 1)); err != nil {
		L.RaiseError("%s", err.Error())
	}
	return 0
}

// --- Lua helpers ---

func (e *Engine) handleValue(h *fiber.Handle) *lua.LUserData {
	ud := e.vm.NewUserData()
	ud.Value = h
	e.vm.SetMetatable(ud, e.vm.GetTypeMetatable(handleTypeName))
	return ud
}

func handleOf(v lua.LValue) (*fiber.Handle, bool) {
	ud, ok := v.(*lua.LUserData)
	if !ok {
		return nil, false
	}
	h, ok := ud.Value.(*fiber.Handle)
	return h, ok
}

func checkHandle(L *lua.LState, n int) *fiber.Handle {
	h, ok := handleOf(L.Get(n))
	if !ok {
		L.ArgError(n, "fiber handle expected")
	}
	return h
}

// Entities cross into Lua as numbers; ids stay well below 2^53.
func entityValue(id ecs.EntityID) lua.LNumber {
	return lua.LNumber(float64(id))
}

func checkEntity(L *lua.LState, n int) ecs.EntityID {
	v := float64(L.CheckNumber(n))
	if v < 1 || v != math.Trunc(v) || v >= 1<<53 {
		L.ArgError(n, "entity id expected")
		return 0
	}
	return ecs.EntityID(uint64(v))
}
