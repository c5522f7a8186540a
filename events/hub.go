package events

import (
	"sync"

	"github.com/google/uuid"
)

const defaultSubscriberBuffer = 64

// Hub fans emitted events out to an arbitrary set of subscribers. Slow
// subscribers never block the emitting operation: when a subscriber buffer is
// full the event is dropped for that subscriber only.
type Hub struct {
	mu     sync.RWMutex
	subs   map[string]chan Event
	buffer int
}

// NewHub constructs an empty hub with the default per-subscriber buffer.
func NewHub() *Hub {
	return &Hub{
		subs:   make(map[string]chan Event),
		buffer: defaultSubscriberBuffer,
	}
}

// Emit implements the Emitter interface.
func (h *Hub) Emit(evt Event) {
	if h == nil {
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, ch := range h.subs {
		select {
		case ch <- evt:
		default:
		}
	}
}

// Subscribe registers a new subscriber and returns its identifier together
// with the channel events will be delivered on.
func (h *Hub) Subscribe() (string, <-chan Event) {
	id := uuid.NewString()
	ch := make(chan Event, h.buffer)
	h.mu.Lock()
	h.subs[id] = ch
	h.mu.Unlock()
	return id, ch
}

// Unsubscribe removes the subscriber and closes its channel. Unknown
// identifiers are ignored.
func (h *Hub) Unsubscribe(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if ch, ok := h.subs[id]; ok {
		delete(h.subs, id)
		close(ch)
	}
}
