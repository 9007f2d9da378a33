package session

import (
	"encoding/json"
	"log"
	"sync"

	"github.com/shehryarbajwa/devtools-inspector/internal/devtools"
)

type subscriber struct {
	ch chan devtools.Event
	fn func(devtools.Event)
}

// Hub fans a session's events out to subscribers. Func subscribers run
// synchronously on the connection's receive goroutine, so they observe
// events in dispatch order relative to responses. Channel subscribers that
// fall behind lose events.
type Hub struct {
	sessionID string

	mu     sync.RWMutex
	subs   map[int]*subscriber
	nextID int
	closed bool
}

// NewHub creates a hub for a session.
func NewHub(sessionID string) *Hub {
	return &Hub{
		sessionID: sessionID,
		subs:      make(map[int]*subscriber),
	}
}

// Subscribe returns a channel receiving every event until the hub closes
// or cancel is called.
func (h *Hub) Subscribe(buffer int) (<-chan devtools.Event, func()) {
	sub := &subscriber{ch: make(chan devtools.Event, buffer)}
	id, ok := h.add(sub)
	if !ok {
		close(sub.ch)
		return sub.ch, func() {}
	}
	return sub.ch, func() { h.remove(id) }
}

// SubscribeFunc calls fn for every event until cancel is called. fn must
// not wait for protocol responses.
func (h *Hub) SubscribeFunc(fn func(devtools.Event)) func() {
	id, ok := h.add(&subscriber{fn: fn})
	if !ok {
		return func() {}
	}
	return func() { h.remove(id) }
}

func (h *Hub) add(sub *subscriber) (int, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return 0, false
	}
	id := h.nextID
	h.nextID++
	h.subs[id] = sub
	return id, true
}

func (h *Hub) remove(id int) {
	h.mu.Lock()
	defer h.mu.Unlock()

	sub, ok := h.subs[id]
	if !ok {
		return
	}
	delete(h.subs, id)
	if sub.ch != nil {
		close(sub.ch)
	}
}

// Publish delivers an event to every subscriber.
func (h *Hub) Publish(method string, params json.RawMessage) {
	ev := devtools.Event{Method: method, Params: params}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, sub := range h.subs {
		if sub.fn != nil {
			sub.fn(ev)
			continue
		}
		select {
		case sub.ch <- ev:
		default:
			log.Printf("⚠️  Event buffer full for session %s, dropped %s", shortID(h.sessionID), method)
		}
	}
}

// Close ends every channel subscription. Later subscriptions receive a
// closed channel.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}
	h.closed = true
	for id, sub := range h.subs {
		if sub.ch != nil {
			close(sub.ch)
		}
		delete(h.subs, id)
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
