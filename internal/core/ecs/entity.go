package ecs

// EntityID packs a 32-bit slot index (low bits) and a 32-bit generation (high
// bits). Destroying an entity bumps its slot's generation so stale ids stop
// resolving. Slot 0 is never handed out, which keeps the zero id invalid.
type EntityID uint64

func NewEntityID(index uint32, generation uint32) EntityID {
	return EntityID(uint64(generation)<<32 | uint64(index))
}

func (id EntityID) Index() uint32      { return uint32(id) }
func (id EntityID) Generation() uint32 { return uint32(id >> 32) }
func (id EntityID) IsZero() bool       { return id == 0 }

// EntityPool allocates ids and recycles destroyed slots.
type EntityPool struct {
	generations []uint32 // indexed by slot; slot 0 reserved
	free        []uint32
	live        int
}

func NewEntityPool() *EntityPool {
	return &EntityPool{
		generations: make([]uint32, 1, 256),
		free:        make([]uint32, 0, 64),
	}
}

func (p *EntityPool) Create() EntityID {
	p.live++
	if n := len(p.free); n > 0 {
		idx := p.free[n-1]
		p.free = p.free[:n-1]
		return NewEntityID(idx, p.generations[idx])
	}
	idx := uint32(len(p.generations))
	p.generations = append(p.generations, 0)
	return NewEntityID(idx, 0)
}

func (p *EntityPool) Alive(id EntityID) bool {
	idx := id.Index()
	if idx == 0 || int(idx) >= len(p.generations) {
		return false
	}
	return p.generations[idx] == id.Generation()
}

// Destroy invalidates id. Stale or unknown ids are ignored.
func (p *EntityPool) Destroy(id EntityID) bool {
	if !p.Alive(id) {
		return false
	}
	idx := id.Index()
	p.generations[idx]++
	p.free = append(p.free, idx)
	p.live--
	return true
}

// Len returns the number of live entities.
func (p *EntityPool) Len() int { return p.live }
