package events

import (
	"sync"
	"time"
)

// Type names a document lifecycle event.
type Type string

const (
	TypeDocumentUploaded Type = "document_uploaded"
	TypeDocumentDeleted  Type = "document_deleted"
	TypeOrphanSwept      Type = "orphan_swept"
	TypeContractSigned   Type = "contract_signed"
)

// Event is one operational event pushed to admin stream subscribers.
type Event struct {
	Type     Type      `json:"type"`
	OwnerID  string    `json:"ownerId,omitempty"`
	Kind     string    `json:"kind,omitempty"`
	ObjectID string    `json:"objectId,omitempty"`
	Detail   string    `json:"detail,omitempty"`
	At       time.Time `json:"at"`
}

// Hub is an in-process fan-out of operational events. Slow subscribers have
// events dropped rather than blocking publishers.
type Hub struct {
	mu   sync.RWMutex
	subs map[chan Event]struct{}
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{subs: map[chan Event]struct{}{}}
}

// Subscribe registers a subscriber. The returned cancel func must be called
// to release the subscription.
func (h *Hub) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, 16)
	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		if _, ok := h.subs[ch]; ok {
			delete(h.subs, ch)
			close(ch)
		}
		h.mu.Unlock()
	}
	return ch, cancel
}

// Publish delivers an event to every subscriber without blocking.
func (h *Hub) Publish(ev Event) {
	if ev.At.IsZero() {
		ev.At = time.Now()
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for ch := range h.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

// SubscriberCount returns the number of active subscribers.
func (h *Hub) SubscriberCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}
