package system

import (
	"time"

	"github.com/l1jgo/fiberd/internal/core/ecs"
	"github.com/l1jgo/fiberd/internal/fiber"
	"github.com/l1jgo/fiberd/internal/world"
)

// Point is a waypoint on the 2D plane.
type Point struct {
	X, Y float64
}

// MoveTo returns a fiber body that walks the entity to (x, y) at its actor
// speed, one step per tick. The body ends when the target is reached or
// faults when the entity disappears.
func MoveTo(ws *world.State, id ecs.EntityID, x, y float64) fiber.Body {
	return func(f *fiber.Fiber) error {
		return walk(f, ws, id, Point{X: x, Y: y})
	}
}

// Patrol returns a fiber body that walks the waypoints in order, pausing at
// each one, for the given number of laps. laps <= 0 patrols until cancelled.
// An empty route completes at once.
func Patrol(ws *world.State, id ecs.EntityID, route []Point, pause time.Duration, laps int) fiber.Body {
	return func(f *fiber.Fiber) error {
		if len(route) == 0 {
			return nil
		}
		for lap := 0; laps <= 0 || lap < laps; lap++ {
			for _, p := range route {
				if err := walk(f, ws, id, p); err != nil {
					return err
				}
				if err := f.Wait(pause); err != nil {
					return err
				}
			}
		}
		return nil
	}
}

func walk(f *fiber.Fiber, ws *world.State, id ecs.EntityID, p Point) error {
	for {
		arrived, err := ws.StepToward(id, p.X, p.Y, f.Delta())
		if err != nil {
			return err
		}
		if arrived {
			return nil
		}
		if err := f.Yield(); err != nil {
			return err
		}
	}
}
