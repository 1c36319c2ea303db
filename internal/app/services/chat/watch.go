package chat

import (
	"sync"

	domainchat "halfandhalf/internal/domain/chat"
)

// Update describes a change to one of the subscriber's session refs.
// Removed signals the session left the subscriber's list (leave or
// teardown); otherwise Ref carries the fresh state.
type Update struct {
	SessionID string
	Ref       *domainchat.Ref
	Removed   bool
}

// Subscription is a cancellable stream of ref updates. After Cancel
// returns, no further deliveries occur and C is closed.
type Subscription struct {
	C      <-chan Update
	cancel func()
}

func (s *Subscription) Cancel() {
	if s.cancel != nil {
		s.cancel()
	}
}

// hub fans ref updates out to per-user subscribers. Delivery is
// best-effort: a subscriber that cannot keep up loses updates rather
// than blocking the writer.
type hub struct {
	mu     sync.Mutex
	nextID uint64
	subs   map[string]map[uint64]chan Update
}

func newHub() *hub {
	return &hub{subs: make(map[string]map[uint64]chan Update)}
}

// Watch subscribes to updates for userID's session refs.
func (s *Service) Watch(userID string) *Subscription {
	return s.hub.subscribe(userID)
}

func (h *hub) subscribe(userID string) *Subscription {
	ch := make(chan Update, 16)
	h.mu.Lock()
	id := h.nextID
	h.nextID++
	if h.subs[userID] == nil {
		h.subs[userID] = make(map[uint64]chan Update)
	}
	h.subs[userID][id] = ch
	h.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			if chans, ok := h.subs[userID]; ok {
				if _, live := chans[id]; live {
					delete(chans, id)
					close(ch)
					if len(chans) == 0 {
						delete(h.subs, userID)
					}
				}
			}
		})
	}
	return &Subscription{C: ch, cancel: cancel}
}

// publish delivers an update to every live subscriber of userID. The
// hub mutex is held across the send so a concurrent Cancel can never
// close a channel mid-delivery.
func (h *hub) publish(userID string, u Update) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, ch := range h.subs[userID] {
		select {
		case ch <- u:
		default:
		}
	}
}
