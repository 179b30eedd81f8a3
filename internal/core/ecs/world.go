package ecs

// World owns the entity pool, the registered component stores and the
// deferred destroy queue flushed once per frame by the cleanup system.
type World struct {
	pool      *EntityPool
	stores    []Removable
	onDestroy []func(EntityID)
	pending   []EntityID
}

func NewWorld() *World {
	return &World{
		pool:    NewEntityPool(),
		stores:  make([]Removable, 0, 8),
		pending: make([]EntityID, 0, 16),
	}
}

// Register adds a component store that must forget destroyed entities.
func (w *World) Register(store Removable) {
	w.stores = append(w.stores, store)
}

// OnDestroy registers fn to run for each entity being destroyed, before its
// components are removed.
func (w *World) OnDestroy(fn func(EntityID)) {
	w.onDestroy = append(w.onDestroy, fn)
}

func (w *World) CreateEntity() EntityID { return w.pool.Create() }
func (w *World) Alive(id EntityID) bool { return w.pool.Alive(id) }
func (w *World) Len() int               { return w.pool.Len() }
func (w *World) PendingDestroy() int    { return len(w.pending) }

// MarkForDestruction queues id for the end-of-frame flush.
func (w *World) MarkForDestruction(id EntityID) {
	w.pending = append(w.pending, id)
}

// FlushDestroyQueue runs destroy hooks, clears components and frees the
// slots of every queued entity. Ids queued twice are destroyed once.
func (w *World) FlushDestroyQueue() int {
	n := 0
	for _, id := range w.pending {
		if !w.pool.Alive(id) {
			continue
		}
		for _, fn := range w.onDestroy {
			fn(id)
		}
		for _, s := range w.stores {
			s.Remove(id)
		}
		w.pool.Destroy(id)
		n++
	}
	w.pending = w.pending[:0]
	return n
}
