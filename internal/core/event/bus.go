package event

import (
	"reflect"
	"sync"
)

// Bus is a double-buffered event bus. Events emitted during frame N are
// delivered when the dispatch system runs in frame N+1, so handlers never
// observe half-updated state. Event types are dispatched in the order they
// were first seen, handlers in subscription order.
type Bus struct {
	mu     sync.Mutex // guards registration only; emit/dispatch are game-loop only
	index  map[reflect.Type]int
	queues []queue
}

type queue interface {
	swap()
	dispatch() int
	pending() int
}

type typedQueue[T any] struct {
	front, back []T
	handlers    []func(T)
}

func (q *typedQueue[T]) swap() {
	q.front, q.back = q.back, q.front[:0]
}

func (q *typedQueue[T]) dispatch() int {
	for _, ev := range q.front {
		for _, h := range q.handlers {
			h(ev)
		}
	}
	return len(q.front)
}

func (q *typedQueue[T]) pending() int { return len(q.back) }

func NewBus() *Bus {
	return &Bus{index: make(map[reflect.Type]int)}
}

func queueFor[T any](b *Bus) *typedQueue[T] {
	t := reflect.TypeOf((*T)(nil)).Elem()
	b.mu.Lock()
	defer b.mu.Unlock()
	if i, ok := b.index[t]; ok {
		return b.queues[i].(*typedQueue[T])
	}
	q := &typedQueue[T]{}
	b.index[t] = len(b.queues)
	b.queues = append(b.queues, q)
	return q
}

// Emit queues an event into the back buffer.
func Emit[T any](b *Bus, ev T) {
	q := queueFor[T](b)
	q.back = append(q.back, ev)
}

// Subscribe registers a typed handler for events of type T.
func Subscribe[T any](b *Bus, fn func(T)) {
	q := queueFor[T](b)
	q.handlers = append(q.handlers, fn)
}

// SwapBuffers rotates back into front. Called once per frame before
// DispatchAll.
func (b *Bus) SwapBuffers() {
	for _, q := range b.queues {
		q.swap()
	}
}

// DispatchAll delivers the front buffer and returns the number of events.
// Events emitted by handlers land in the back buffer for the next frame.
func (b *Bus) DispatchAll() int {
	n := 0
	for _, q := range b.queues {
		n += q.dispatch()
	}
	return n
}

// Pending returns the number of events waiting for the next swap.
func (b *Bus) Pending() int {
	n := 0
	for _, q := range b.queues {
		n += q.pending()
	}
	return n
}
