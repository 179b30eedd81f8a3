package event

import (
	"github.com/l1jgo/fiberd/internal/core/ecs"
	"github.com/l1jgo/fiberd/internal/fiber"
)

// FiberFinished is published when a fiber reaches a terminal state.
type FiberFinished struct {
	ID    fiber.ID
	Name  string
	State fiber.State
	Err   error
}

// EntityArrived is published when a moving entity reaches its target.
type EntityArrived struct {
	Entity ecs.EntityID
	X, Y   float64
}

// EntityDestroyed is published when an entity is flushed from the world.
type EntityDestroyed struct {
	Entity ecs.EntityID
	Name   string
}
