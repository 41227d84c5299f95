package widget

import "sync"

const (
	EventMessage  = "message"
	EventTyping   = "typing"
	EventProducts = "products"
	EventReset    = "reset"
)

type Event struct {
	Type  string `json:"type"`
	State *State `json:"state"`
}

const subscriberBuffer = 16

// Hub fans widget events out to every open connection of a client.
type Hub struct {
	mu   sync.RWMutex
	subs map[string]map[chan Event]struct{}
}

func NewHub() *Hub {
	return &Hub{subs: make(map[string]map[chan Event]struct{})}
}

// Subscribe returns the event channel and a function that releases it.
func (h *Hub) Subscribe(clientID string) (<-chan Event, func()) {
	ch := make(chan Event, subscriberBuffer)

	h.mu.Lock()
	if h.subs[clientID] == nil {
		h.subs[clientID] = make(map[chan Event]struct{})
	}
	h.subs[clientID][ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs[clientID], ch)
			if len(h.subs[clientID]) == 0 {
				delete(h.subs, clientID)
			}
			h.mu.Unlock()
			close(ch)
		})
	}
}

func (h *Hub) HasSubscribers(clientID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[clientID]) > 0
}

// Publish never blocks; a subscriber with a full buffer misses the event.
func (h *Hub) Publish(clientID string, ev Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for ch := range h.subs[clientID] {
		select {
		case ch <- ev:
		default:
		}
	}
}
