// Package events fans out change notifications to live dashboard streams.
package events

import "sync"

// Kind identifies what changed
type Kind string

const (
	UserChanged Kind = "user_changed"
	PostChanged Kind = "post_changed"
)

// Event is a change notification. Subscribers re-read state on receipt,
// so an event carries no payload beyond the changed record's id.
type Event struct {
	Kind Kind
	ID   string
}

// Hub broadcasts events to subscribers.
// Each subscriber has a one-slot buffer and a filter, and Publish never blocks.
// Only matching events reach the slot, so a pending event always stands for a
// change the subscriber cares about and newer ones merge into it.
type Hub struct {
	mu     sync.RWMutex
	nextID int
	subs   map[int]subscription
}

type subscription struct {
	ch    chan Event
	match func(Event) bool
}

// NewHub creates an empty Hub
func NewHub() *Hub {
	return &Hub{subs: make(map[int]subscription)}
}

// Subscribe registers a listener for events match accepts; a nil match accepts all.
// The returned func unsubscribes and closes the channel.
func (h *Hub) Subscribe(match func(Event) bool) (<-chan Event, func()) {
	ch := make(chan Event, 1)

	h.mu.Lock()
	id := h.nextID
	h.nextID++
	h.subs[id] = subscription{ch: ch, match: match}
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, id)
			h.mu.Unlock()
			close(ch)
		})
	}
}

// Publish notifies all subscribers without blocking
func (h *Hub) Publish(e Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, sub := range h.subs {
		if sub.match != nil && !sub.match(e) {
			continue
		}
		select {
		case sub.ch <- e:
		default:
		}
	}
}

// Subscribers returns the number of active subscriptions
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}
