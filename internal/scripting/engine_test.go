package scripting

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/l1jgo/fiberd/internal/core/ecs"
	"github.com/l1jgo/fiberd/internal/core/event"
	"github.com/l1jgo/fiberd/internal/fiber"
	"github.com/l1jgo/fiberd/internal/world"
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap/zaptest"
)

type harness struct {
	eng   *Engine
	sched *fiber.Scheduler
	ecs   *ecs.World
	world *world.State
}

func newHarness(t *testing.T, src string) *harness {
	t.Helper()
	log := zaptest.NewLogger(t)
	w := ecs.NewWorld()
	ws := world.NewState(w, event.NewBus())
	sched := fiber.New(fiber.WithLogger(log))
	eng, err := NewEngine("", sched, ws, log)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	t.Cleanup(func() {
		sched.Close()
		eng.Close()
	})
	if err := eng.LoadString(src); err != nil {
		t.Fatalf("LoadString: %v", err)
	}
	return &harness{eng: eng, sched: sched, ecs: w, world: ws}
}

func (h *harness) global(name string) lua.LValue {
	return h.eng.vm.GetGlobal(name)
}

func TestSpawn_RunsPrefixEagerly(t *testing.T) {
	h := newHarness(t, `
hits = 0
function counter()
  hits = hits + 1
  yield()
  hits = hits + 1
end`)

	fh := h.eng.Spawn("counter")
	if got := h.global("hits"); got != lua.LNumber(1) {
		t.Fatalf("expected prefix to run before Spawn returns, hits=%v", got)
	}
	if fh.State() != fiber.Suspended {
		t.Fatalf("expected suspended, got %s", fh.State())
	}

	h.sched.Tick(time.Millisecond)
	if got := h.global("hits"); got != lua.LNumber(2) {
		t.Fatalf("expected hits=2 after one tick, got %v", got)
	}
	if fh.State() != fiber.Completed {
		t.Fatalf("expected completed, got %s (%v)", fh.State(), fh.Err())
	}
}

func TestWait_AccumulatesDeltas(t *testing.T) {
	h := newHarness(t, `
function sleeper()
  wait(0.5)
end`)

	fh := h.eng.Spawn("sleeper")
	h.sched.Tick(300 * time.Millisecond)
	if fh.Done() {
		t.Fatalf("expected sleeper pending after 300ms")
	}
	h.sched.Tick(200 * time.Millisecond)
	if fh.State() != fiber.Completed {
		t.Fatalf("expected completed after 500ms, got %s", fh.State())
	}
}

func TestSpawnAndAwait(t *testing.T) {
	h := newHarness(t, `
function child(n)
  for _ = 1, n do yield() end
  return
end
function parent()
  local c = spawn("child", 2)
  await(c)
  result = status(c)
end`)

	fh := h.eng.Spawn("parent")
	if fh.State() != fiber.Suspended {
		t.Fatalf("expected parent suspended on await, got %s (%v)", fh.State(), fh.Err())
	}
	if h.sched.Len() != 2 {
		t.Fatalf("expected parent and child live, got %d", h.sched.Len())
	}

	for i := 0; i < 3 && !fh.Done(); i++ {
		h.sched.Tick(time.Millisecond)
	}
	if fh.State() != fiber.Completed {
		t.Fatalf("expected parent completed, got %s (%v)", fh.State(), fh.Err())
	}
	if got := h.global("result"); got != lua.LString("completed") {
		t.Fatalf("expected child status completed, got %v", got)
	}
}

func TestLuaError_FaultsFiber(t *testing.T) {
	h := newHarness(t, `
function boom()
  yield()
  error("kaput")
end
function watcher()
  local b = spawn("boom")
  await(b)
  seen = fault(b)
end`)

	fh := h.eng.Spawn("boom")
	w := h.eng.Spawn("watcher")
	h.sched.Tick(time.Millisecond)

	if fh.State() != fiber.Faulted {
		t.Fatalf("expected faulted, got %s", fh.State())
	}
	if fh.Err() == nil || !strings.Contains(fh.Err().Error(), "kaput") {
		t.Fatalf("expected lua error captured, got %v", fh.Err())
	}

	// a faulted child does not fault the awaiting parent
	h.sched.Tick(time.Millisecond)
	if w.State() != fiber.Completed {
		t.Fatalf("expected watcher completed, got %s (%v)", w.State(), w.Err())
	}
	seen, ok := h.global("seen").(lua.LString)
	if !ok || !strings.Contains(string(seen), "kaput") {
		t.Fatalf("expected fault text visible from lua, got %v", h.global("seen"))
	}
}

func TestCancelFromLua(t *testing.T) {
	h := newHarness(t, `
function sleeper()
  wait(100)
end
function killer()
  local s = spawn("sleeper")
  cancel(s)
  await(s)
  result = status(s)
end`)

	fh := h.eng.Spawn("killer")
	h.sched.Tick(time.Millisecond)

	if fh.State() != fiber.Completed {
		t.Fatalf("expected killer completed, got %s (%v)", fh.State(), fh.Err())
	}
	if got := h.global("result"); got != lua.LString("cancelled") {
		t.Fatalf("expected cancelled, got %v", got)
	}
}

func TestMissingFunction(t *testing.T) {
	h := newHarness(t, "")

	fh := h.eng.Spawn("nope")
	if fh.State() != fiber.Faulted {
		t.Fatalf("expected immediate fault, got %s", fh.State())
	}
	if !strings.Contains(fh.Err().Error(), "not found") {
		t.Fatalf("unexpected error: %v", fh.Err())
	}
	if h.eng.Has("nope") || !h.eng.Has("move_to") {
		t.Fatalf("Has reports wrong globals")
	}
}

func TestMoveTo_WalksAtActorSpeed(t *testing.T) {
	h := newHarness(t, `
function walk(e, x, y)
  move_to(e, x, y)
end`)
	id := h.world.SpawnActor("walker", 0, 0, 10)

	fh, err := h.eng.SpawnFor(id, "walk", 20, 0)
	if err != nil {
		t.Fatalf("SpawnFor: %v", err)
	}
	if fh.Name() != "walker/walk" {
		t.Fatalf("unexpected fiber name %q", fh.Name())
	}

	h.sched.Tick(time.Second)
	if x, _, _ := h.world.Position(id); x != 10 {
		t.Fatalf("expected x=10 after one second, got %v", x)
	}
	h.sched.Tick(time.Second)
	x, y, _ := h.world.Position(id)
	if fh.State() != fiber.Completed || x != 20 || y != 0 {
		t.Fatalf("expected arrival at (20,0), got (%v,%v) state=%s err=%v", x, y, fh.State(), fh.Err())
	}
}

func TestEntityArgumentValidation(t *testing.T) {
	h := newHarness(t, "")

	for _, arg := range []string{"-1", "0", "1.5", "0/0"} {
		src := "ok, msg = pcall(position, " + arg + ")"
		if err := h.eng.LoadString(src); err != nil {
			t.Fatalf("%s: %v", arg, err)
		}
		if h.global("ok") != lua.LFalse {
			t.Fatalf("%s: expected position to raise", arg)
		}
		msg, _ := h.global("msg").(lua.LString)
		if !strings.Contains(string(msg), "entity id expected") {
			t.Fatalf("%s: unexpected error %q", arg, msg)
		}
	}

	id := h.world.SpawnActor("scout", 3, 4, 1)
	src := "x, y = position(" + lua.LNumber(float64(id)).String() + ")"
	if err := h.eng.LoadString(src); err != nil {
		t.Fatalf("valid id rejected: %v", err)
	}
	if h.global("x") != lua.LNumber(3) || h.global("y") != lua.LNumber(4) {
		t.Fatalf("expected (3,4), got (%v,%v)", h.global("x"), h.global("y"))
	}
}

func TestDestroyCancelsOwnedFibers(t *testing.T) {
	h := newHarness(t, `
function idle(e)
  wait(1000)
end`)
	id := h.world.SpawnActor("guard", 0, 0, 1)

	fh, err := h.eng.SpawnFor(id, "idle")
	if err != nil {
		t.Fatalf("SpawnFor: %v", err)
	}
	if err := h.world.Destroy(id); err != nil {
		t.Fatalf("Destroy: %v", err)
	}
	h.ecs.FlushDestroyQueue()
	h.sched.Tick(time.Millisecond)

	if fh.State() != fiber.Cancelled {
		t.Fatalf("expected cancelled, got %s (%v)", fh.State(), fh.Err())
	}
	if _, err := h.eng.SpawnFor(id, "idle"); err == nil {
		t.Fatalf("expected SpawnFor on a dead entity to fail")
	}
}

func TestNewEngine_LoadsScriptDirs(t *testing.T) {
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "ai"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "ai", "patrol.lua"), []byte("function patrol() end"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("not lua"), 0o644); err != nil {
		t.Fatal(err)
	}

	log := zaptest.NewLogger(t)
	sched := fiber.New()
	eng, err := NewEngine(dir, sched, world.NewState(ecs.NewWorld(), event.NewBus()), log)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	defer eng.Close()
	if !eng.Has("patrol") {
		t.Fatalf("expected ai/patrol.lua loaded")
	}
}
