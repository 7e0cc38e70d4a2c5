package alerts

import (
	"sync"

	"github.com/raysh454/shieldsuite/internal/logging"
)

// Hub fans alerts out to live subscribers (SSE streams, websockets).
// Each subscriber owns a buffered channel; a full buffer drops the event for
// that subscriber only.
type Hub struct {
	mu     sync.RWMutex
	subs   map[uint64]chan Alert
	nextID uint64
	closed bool

	buffer int
	logger logging.Logger
}

func NewHub(buffer int, logger logging.Logger) *Hub {
	if buffer <= 0 {
		buffer = 16
	}
	if logger == nil {
		logger = logging.Nop()
	}
	return &Hub{
		subs:   make(map[uint64]chan Alert),
		buffer: buffer,
		logger: logger.With(logging.Field{Key: "component", Value: "alert-hub"}),
	}
}

// Subscribe registers a new subscriber. The returned cancel func removes it
// and closes the channel; it is safe to call more than once.
func (h *Hub) Subscribe() (<-chan Alert, func()) {
	ch := make(chan Alert, h.buffer)

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	id := h.nextID
	h.nextID++
	h.subs[id] = ch
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			if c, ok := h.subs[id]; ok {
				delete(h.subs, id)
				close(c)
			}
			h.mu.Unlock()
		})
	}
}

// Publish delivers a to every subscriber without blocking.
func (h *Hub) Publish(a Alert) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for id, ch := range h.subs {
		select {
		case ch <- a:
		default:
			h.logger.Debug("dropping alert for slow subscriber",
				logging.Field{Key: "subscriber", Value: id},
				logging.Field{Key: "alert_id", Value: a.ID})
		}
	}
}

// Subscribers returns the number of live subscribers.
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Close disconnects every subscriber.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for id, ch := range h.subs {
		delete(h.subs, id)
		close(ch)
	}
}
