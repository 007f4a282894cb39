// Package realtime fans workflow change events out to subscribed observers.
// Subscriptions are keyed by patient and each observer owns a bounded channel;
// a slow observer loses events rather than blocking the publisher.
package realtime

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Event is the payload delivered to observers after a transition commits.
type Event struct {
	PatientID        uuid.UUID  `json:"patient_id"`
	NewStatusID      uuid.UUID  `json:"new_status_id"`
	PreviousStatusID *uuid.UUID `json:"previous_status_id,omitempty"`
	HistoryEntryID   uuid.UUID  `json:"history_entry_id"`
	Version          int        `json:"version"`
	OccurredAt       time.Time  `json:"occurred_at"`
}

// Publisher is the notifier surface the transition coordinator depends on.
type Publisher interface {
	Publish(event Event)
}

// Subscription is the handle returned by Subscribe. The owner reads delivered
// events from Events() and must release the handle with Close (or
// Hub.Unsubscribe) when done.
type Subscription struct {
	id        uuid.UUID
	patientID uuid.UUID
	ch        chan Event
	hub       *Hub
}

// Events returns the receive side of the subscription's bounded channel. The
// channel is closed on unsubscribe.
func (s *Subscription) Events() <-chan Event {
	return s.ch
}

// PatientID returns the patient this subscription observes.
func (s *Subscription) PatientID() uuid.UUID {
	return s.patientID
}

// Close releases the subscription. Safe to call more than once.
func (s *Subscription) Close() {
	s.hub.Unsubscribe(s)
}

// Hub tracks, per patient, the set of live subscriptions. All operations are
// safe for concurrent use.
type Hub struct {
	mu      sync.RWMutex
	subs    map[uuid.UUID]map[*Subscription]struct{} // patient -> subscriptions
	buffer  int
	dropped atomic.Int64
	logger  zerolog.Logger
}

// NewHub creates a Hub whose subscriptions buffer up to buffer undelivered
// events each.
func NewHub(logger zerolog.Logger, buffer int) *Hub {
	if buffer <= 0 {
		buffer = 64
	}
	return &Hub{
		subs:   make(map[uuid.UUID]map[*Subscription]struct{}),
		buffer: buffer,
		logger: logger,
	}
}

// Subscribe registers a new observer for the given patient and returns its
// handle.
func (h *Hub) Subscribe(patientID uuid.UUID) *Subscription {
	sub := &Subscription{
		id:        uuid.New(),
		patientID: patientID,
		ch:        make(chan Event, h.buffer),
		hub:       h,
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.subs[patientID] == nil {
		h.subs[patientID] = make(map[*Subscription]struct{})
	}
	h.subs[patientID][sub] = struct{}{}
	return sub
}

// Unsubscribe removes the subscription and closes its channel. Calling it for
// an already-released handle is a no-op.
func (h *Hub) Unsubscribe(sub *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()

	set, ok := h.subs[sub.patientID]
	if !ok {
		return
	}
	if _, ok := set[sub]; !ok {
		return
	}
	delete(set, sub)
	if len(set) == 0 {
		delete(h.subs, sub.patientID)
	}
	close(sub.ch)
}

// Publish delivers the event to every current subscriber of the event's
// patient. Delivery is best-effort: a full observer buffer drops the event for
// that observer only.
func (h *Hub) Publish(event Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for sub := range h.subs[event.PatientID] {
		select {
		case sub.ch <- event:
		default:
			h.dropped.Add(1)
			h.logger.Warn().
				Str("patient_id", event.PatientID.String()).
				Str("subscription_id", sub.id.String()).
				Msg("observer buffer full, event dropped")
		}
	}
}

// SubscriberCount returns the number of live subscriptions for a patient.
func (h *Hub) SubscriberCount(patientID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[patientID])
}

// Dropped returns the total number of events dropped due to full observer
// buffers since the hub was created.
func (h *Hub) Dropped() int64 {
	return h.dropped.Load()
}
