package component

import "github.com/l1jgo/fiberd/internal/fiber"

// FiberOwner lists the fibers whose lifetime is bound to an entity. They are
// cancelled when the entity is destroyed.
type FiberOwner struct {
	Fibers []*fiber.Handle
}

// Add records h and drops handles that already finished.
func (o *FiberOwner) Add(h *fiber.Handle) {
	live := o.Fibers[:0]
	for _, f := range o.Fibers {
		if !f.Done() {
			live = append(live, f)
		}
	}
	o.Fibers = append(live, h)
}

// CancelAll requests cancellation of every owned fiber still running.
func (o *FiberOwner) CancelAll() int {
	n := 0
	for _, f := range o.Fibers {
		if !f.Done() {
			f.Cancel()
			n++
		}
	}
	o.Fibers = nil
	return n
}
