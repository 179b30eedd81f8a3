package component

import "math"

// Transform is an entity's position on the 2D plane.
type Transform struct {
	X, Y float64
}

// StepToward moves at most dist toward (x, y) and reports whether the target
// was reached. A non-positive dist only reports arrival.
func (t *Transform) StepToward(x, y, dist float64) bool {
	dx, dy := x-t.X, y-t.Y
	remaining := math.Hypot(dx, dy)
	if remaining <= dist || remaining == 0 {
		t.X, t.Y = x, y
		return true
	}
	if dist <= 0 {
		return false
	}
	t.X += dx / remaining * dist
	t.Y += dy / remaining * dist
	return false
}
