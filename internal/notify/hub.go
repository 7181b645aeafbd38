package notify

import (
	"log/slog"
	"sync"
)

// subscriberBuffer is the per-subscriber channel depth. Sixteen events is
// plenty for a UI that redraws on each one.
const subscriberBuffer = 16

// Hub fans events out to subscribers. Publishing never blocks: a subscriber
// that falls behind loses events instead of stalling the capture worker.
type Hub struct {
	logger *slog.Logger

	mu   sync.Mutex
	subs map[chan Event]struct{}
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		logger: slog.Default(),
		subs:   make(map[chan Event]struct{}),
	}
}

// Subscribe registers a subscriber and returns its event channel. The caller
// must Unsubscribe when done.
func (h *Hub) Subscribe() chan Event {
	ch := make(chan Event, subscriberBuffer)
	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()
	return ch
}

// Unsubscribe removes a subscriber and closes its channel. Unknown channels
// are ignored, so calling it twice is safe.
func (h *Hub) Unsubscribe(ch chan Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.subs[ch]; ok {
		delete(h.subs, ch)
		close(ch)
	}
}

// Publish delivers an event to every current subscriber.
func (h *Hub) Publish(e Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs {
		select {
		case ch <- e:
		default:
			h.logger.Warn("dropping event for slow subscriber", "event", e.Name)
		}
	}
}
