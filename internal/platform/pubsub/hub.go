package pubsub

import "sync"

// Hub fans values out to subscribers. Each subscriber holds at most one
// undelivered value; a newer publish replaces it, so a slow reader never
// blocks a publisher and always ends on the latest value.
type Hub[T any] struct {
	mu     sync.RWMutex
	subs   map[uint64]*Subscription[T]
	nextID uint64
	closed bool
}

func NewHub[T any]() *Hub[T] {
	return &Hub[T]{subs: make(map[uint64]*Subscription[T])}
}

// Subscribe registers a subscriber that first receives initial and then
// every published value accepted by filter. A nil filter accepts all.
func (h *Hub[T]) Subscribe(initial T, filter func(T) bool) *Subscription[T] {
	sub := &Subscription[T]{
		ch:     make(chan T, 1),
		filter: filter,
		hub:    h,
	}
	sub.ch <- initial

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		close(sub.ch)
		sub.done = true
		return sub
	}
	h.nextID++
	sub.id = h.nextID
	h.subs[sub.id] = sub
	return sub
}

// Publish never blocks. Callers serialize publishes to keep ordering.
func (h *Hub[T]) Publish(v T) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, sub := range h.subs {
		if sub.filter != nil && !sub.filter(v) {
			continue
		}
		sub.offer(v)
	}
}

func (h *Hub[T]) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Close ends every subscription.
func (h *Hub[T]) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for id, sub := range h.subs {
		delete(h.subs, id)
		sub.done = true
		close(sub.ch)
	}
}

func (h *Hub[T]) remove(sub *Subscription[T]) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if sub.done {
		return
	}
	delete(h.subs, sub.id)
	sub.done = true
	close(sub.ch)
}

// Subscription is one consumer's latest-wins mailbox.
type Subscription[T any] struct {
	ch     chan T
	filter func(T) bool
	hub    *Hub[T]
	id     uint64
	// done is guarded by hub.mu.
	done bool
}

// Updates is closed once the subscription or its hub is closed.
func (s *Subscription[T]) Updates() <-chan T {
	return s.ch
}

func (s *Subscription[T]) Close() {
	s.hub.remove(s)
}

func (s *Subscription[T]) offer(v T) {
	for {
		select {
		case s.ch <- v:
			return
		default:
		}
		select {
		case <-s.ch:
		default:
		}
	}
}
