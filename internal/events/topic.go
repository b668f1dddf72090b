// Package events provides typed, in-process publish/subscribe topics.
package events

import "sync"

// Topic fans a value out to every current subscriber. Delivery is
// synchronous and in subscription order; handlers run on the publisher's
// goroutine.
type Topic[T any] struct {
	mu     sync.RWMutex
	next   uint64
	order  []uint64
	subs   map[uint64]func(T)
	closed bool
}

// NewTopic creates an empty topic.
func NewTopic[T any]() *Topic[T] {
	return &Topic[T]{subs: make(map[uint64]func(T))}
}

// Subscribe registers fn and returns a function that removes it. The
// returned function is safe to call more than once.
func (t *Topic[T]) Subscribe(fn func(T)) (cancel func()) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return func() {}
	}

	id := t.next
	t.next++
	t.subs[id] = fn
	t.order = append(t.order, id)

	var once sync.Once
	return func() {
		once.Do(func() { t.remove(id) })
	}
}

func (t *Topic[T]) remove(id uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	delete(t.subs, id)
	for i, v := range t.order {
		if v == id {
			t.order = append(t.order[:i], t.order[i+1:]...)
			break
		}
	}
}

// Publish delivers v to a snapshot of the current subscribers, so handlers
// may subscribe or unsubscribe while being called.
func (t *Topic[T]) Publish(v T) {
	t.mu.RLock()
	if t.closed {
		t.mu.RUnlock()
		return
	}
	handlers := make([]func(T), 0, len(t.order))
	for _, id := range t.order {
		handlers = append(handlers, t.subs[id])
	}
	t.mu.RUnlock()

	for _, fn := range handlers {
		fn(v)
	}
}

// Len returns the number of subscribers.
func (t *Topic[T]) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.subs)
}

// Close drops every subscriber. Later publishes are ignored.
func (t *Topic[T]) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.closed = true
	t.subs = make(map[uint64]func(T))
	t.order = nil
}
