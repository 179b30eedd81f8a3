package world

import (
	"errors"
	"fmt"
	"time"

	"github.com/l1jgo/fiberd/internal/component"
	"github.com/l1jgo/fiberd/internal/core/ecs"
	"github.com/l1jgo/fiberd/internal/core/event"
	"github.com/l1jgo/fiberd/internal/fiber"
)

// ErrNoEntity is returned for ids that are not (or no longer) alive.
var ErrNoEntity = errors.New("no such entity")

// State is the in-memory game world: actors with a position, driven by
// fibers. Accessed only from the game loop, so no locks.
type State struct {
	ecs        *ecs.World
	bus        *event.Bus
	transforms *ecs.Store[component.Transform]
	actors     *ecs.Store[component.Actor]
	owners     *ecs.Store[component.FiberOwner]
}

func NewState(w *ecs.World, bus *event.Bus) *State {
	s := &State{
		ecs:        w,
		bus:        bus,
		transforms: ecs.NewStore[component.Transform](),
		actors:     ecs.NewStore[component.Actor](),
		owners:     ecs.NewStore[component.FiberOwner](),
	}
	w.Register(s.transforms)
	w.Register(s.actors)
	w.Register(s.owners)
	w.OnDestroy(s.onDestroy)
	return s
}

// SpawnActor creates an entity at (x, y) moving at speed units per second.
func (s *State) SpawnActor(name string, x, y, speed float64) ecs.EntityID {
	id := s.ecs.CreateEntity()
	s.transforms.Set(id, &component.Transform{X: x, Y: y})
	s.actors.Set(id, &component.Actor{Name: name, Speed: speed})
	return id
}

// Destroy queues the entity for the end-of-frame cleanup. Its fibers are
// cancelled then.
func (s *State) Destroy(id ecs.EntityID) error {
	if !s.ecs.Alive(id) {
		return fmt.Errorf("destroy %d: %w", id, ErrNoEntity)
	}
	s.ecs.MarkForDestruction(id)
	return nil
}

func (s *State) Alive(id ecs.EntityID) bool { return s.ecs.Alive(id) }
func (s *State) Count() int                 { return s.ecs.Len() }

func (s *State) Actor(id ecs.EntityID) (*component.Actor, bool) {
	return s.actors.Get(id)
}

// ActorByName returns the first live actor with the given name.
func (s *State) ActorByName(name string) (ecs.EntityID, bool) {
	var found ecs.EntityID
	s.actors.Each(func(id ecs.EntityID, a *component.Actor) {
		if found.IsZero() && a.Name == name {
			found = id
		}
	})
	return found, !found.IsZero()
}

func (s *State) Position(id ecs.EntityID) (x, y float64, err error) {
	t, ok := s.transforms.Get(id)
	if !ok {
		return 0, 0, fmt.Errorf("position of %d: %w", id, ErrNoEntity)
	}
	return t.X, t.Y, nil
}

func (s *State) SetPosition(id ecs.EntityID, x, y float64) error {
	t, ok := s.transforms.Get(id)
	if !ok {
		return fmt.Errorf("set position of %d: %w", id, ErrNoEntity)
	}
	t.X, t.Y = x, y
	return nil
}

// StepToward advances the entity toward (x, y) by speed*dt and reports
// arrival. Arrival publishes an EntityArrived event.
func (s *State) StepToward(id ecs.EntityID, x, y float64, dt time.Duration) (bool, error) {
	t, ok := s.transforms.Get(id)
	if !ok {
		return false, fmt.Errorf("step %d: %w", id, ErrNoEntity)
	}
	speed := 0.0
	if a, ok := s.actors.Get(id); ok {
		speed = a.Speed
	}
	if !t.StepToward(x, y, speed*dt.Seconds()) {
		return false, nil
	}
	event.Emit(s.bus, event.EntityArrived{Entity: id, X: x, Y: y})
	return true, nil
}

// Own binds h's lifetime to the entity.
func (s *State) Own(id ecs.EntityID, h *fiber.Handle) error {
	if !s.ecs.Alive(id) {
		h.Cancel()
		return fmt.Errorf("own fiber %d: %w", h.ID(), ErrNoEntity)
	}
	o, ok := s.owners.Get(id)
	if !ok {
		o = &component.FiberOwner{}
		s.owners.Set(id, o)
	}
	o.Add(h)
	return nil
}

// EachActor visits actors in entity order.
func (s *State) EachActor(fn func(ecs.EntityID, *component.Actor, *component.Transform)) {
	s.actors.Each(func(id ecs.EntityID, a *component.Actor) {
		if t, ok := s.transforms.Get(id); ok {
			fn(id, a, t)
		}
	})
}

func (s *State) onDestroy(id ecs.EntityID) {
	if o, ok := s.owners.Get(id); ok {
		o.CancelAll()
	}
	name := ""
	if a, ok := s.actors.Get(id); ok {
		name = a.Name
	}
	event.Emit(s.bus, event.EntityDestroyed{Entity: id, Name: name})
}
