package component

// Actor names an entity and holds its movement speed in units per second.
type Actor struct {
	Name  string
	Speed float64
}
