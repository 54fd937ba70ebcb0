package sse

import (
	"sync"
)

// Event is one SSE message for a kiosk session stream
type Event struct {
	SessionID string
	Event     string
	Data      interface{}
}

// Hub fans session feedback out to the SSE connections watching that session
type Hub struct {
	mu          sync.RWMutex
	subscribers map[string]map[chan Event]struct{}
	last        map[string]Event
}

func NewHub() *Hub {
	return &Hub{
		subscribers: make(map[string]map[chan Event]struct{}),
		last:        make(map[string]Event),
	}
}

// Subscribe registers a watcher for a session and returns the event channel and cleanup function.
// The most recent event of the session, if any, is delivered first.
func (h *Hub) Subscribe(sessionID string) (chan Event, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	ch := make(chan Event, 10)
	if last, ok := h.last[sessionID]; ok {
		ch <- last
	}

	if h.subscribers[sessionID] == nil {
		h.subscribers[sessionID] = make(map[chan Event]struct{})
	}
	h.subscribers[sessionID][ch] = struct{}{}

	cleanup := func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		delete(h.subscribers[sessionID], ch)
		close(ch)
		if len(h.subscribers[sessionID]) == 0 {
			delete(h.subscribers, sessionID)
		}
	}

	return ch, cleanup
}

// Publish sends an event to every watcher of the session without blocking
func (h *Hub) Publish(sessionID string, event Event) {
	h.mu.Lock()
	defer h.mu.Unlock()

	event.SessionID = sessionID
	h.last[sessionID] = event

	for ch := range h.subscribers[sessionID] {
		select {
		case ch <- event:
		default:
			// slow watcher, drop
		}
	}
}

// Forget drops the remembered last event of a finished session
func (h *Hub) Forget(sessionID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.last, sessionID)
}

func (h *Hub) SubscriberCount(sessionID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers[sessionID])
}

func (h *Hub) TotalSubscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	total := 0
	for _, subs := range h.subscribers {
		total += len(subs)
	}
	return total
}
