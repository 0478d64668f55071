package api

import (
	"crypto/rand"
	"encoding/hex"
	"sync"

	"github.com/ADIIIIB/rtes-shake-rattle-roll/internal/monitor"
)

// Hub fans completed window results out to stream subscribers. Slow
// subscribers never block the pipeline: a result that does not fit in a
// subscriber's channel buffer is dropped for that subscriber.
type Hub struct {
	mu          sync.Mutex
	subscribers map[string]chan monitor.WindowResult
}

func NewHub() *Hub {
	return &Hub{subscribers: make(map[string]chan monitor.WindowResult)}
}

func randomID() string {
	b := make([]byte, 8)
	rand.Read(b)
	return hex.EncodeToString(b)
}

// Subscribe registers a new listener and returns its ID and channel.
func (h *Hub) Subscribe() (string, chan monitor.WindowResult) {
	h.mu.Lock()
	defer h.mu.Unlock()
	id := randomID()
	c := make(chan monitor.WindowResult, 16)
	h.subscribers[id] = c
	return id, c
}

// Unsubscribe removes a listener and closes its channel.
func (h *Hub) Unsubscribe(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if c, ok := h.subscribers[id]; ok {
		close(c)
		delete(h.subscribers, id)
	}
}

// Broadcast delivers a result to every subscriber that has buffer space.
func (h *Hub) Broadcast(r monitor.WindowResult) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, c := range h.subscribers {
		select {
		case c <- r:
		default:
		}
	}
}

// Count returns the number of active subscribers.
func (h *Hub) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subscribers)
}

// Close disconnects all subscribers.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, c := range h.subscribers {
		close(c)
		delete(h.subscribers, id)
	}
}
