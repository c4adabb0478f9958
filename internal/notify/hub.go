package notify

import (
	"sync"

	"github.com/zentexa/wabot-platform/internal/events"
)

const subscriberBuffer = 16

// Hub fans session events out to WebSocket subscribers. Publish never
// blocks: a subscriber that stops draining its channel loses events
// rather than stalling the session.
type Hub struct {
	mu   sync.RWMutex
	subs map[string]map[chan events.SessionEvent]struct{}
}

func NewHub() *Hub {
	return &Hub{subs: make(map[string]map[chan events.SessionEvent]struct{})}
}

// Subscribe registers for one session's events. The returned cancel func
// removes the subscription and closes the channel.
func (h *Hub) Subscribe(sessionID string) (<-chan events.SessionEvent, func()) {
	ch := make(chan events.SessionEvent, subscriberBuffer)

	h.mu.Lock()
	set := h.subs[sessionID]
	if set == nil {
		set = make(map[chan events.SessionEvent]struct{})
		h.subs[sessionID] = set
	}
	set[ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			if set, ok := h.subs[sessionID]; ok {
				delete(set, ch)
				if len(set) == 0 {
					delete(h.subs, sessionID)
				}
			}
			h.mu.Unlock()
			close(ch)
		})
	}
	return ch, cancel
}

// Publish delivers the event to every subscriber of its session.
func (h *Hub) Publish(evt events.SessionEvent) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for ch := range h.subs[evt.SessionID] {
		select {
		case ch <- evt:
		default:
		}
	}
}

// SubscriberCount reports how many listeners a session has.
func (h *Hub) SubscriberCount(sessionID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[sessionID])
}
