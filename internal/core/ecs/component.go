package ecs

import "sort"

// Removable is implemented by every component store so the World can drop
// an entity's data everywhere on destroy.
type Removable interface {
	Remove(id EntityID)
}

// Store is a typed component map keyed by entity.
type Store[T any] struct {
	data map[EntityID]*T
}

func NewStore[T any]() *Store[T] {
	return &Store[T]{data: make(map[EntityID]*T, 64)}
}

func (s *Store[T]) Set(id EntityID, c *T) { s.data[id] = c }

func (s *Store[T]) Get(id EntityID) (*T, bool) {
	c, ok := s.data[id]
	return c, ok
}

func (s *Store[T]) Remove(id EntityID) { delete(s.data, id) }

func (s *Store[T]) Has(id EntityID) bool {
	_, ok := s.data[id]
	return ok
}

func (s *Store[T]) Len() int { return len(s.data) }

// Each visits components in ascending entity order so that simulation steps
// are reproducible from run to run.
func (s *Store[T]) Each(fn func(EntityID, *T)) {
	ids := make([]EntityID, 0, len(s.data))
	for id := range s.data {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		fn(id, s.data[id])
	}
}
