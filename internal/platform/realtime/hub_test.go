package realtime

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

func newTestHub(buffer int) *Hub {
	return NewHub(zerolog.Nop(), buffer)
}

func testEvent(patientID uuid.UUID, version int) Event {
	return Event{
		PatientID:      patientID,
		NewStatusID:    uuid.New(),
		HistoryEntryID: uuid.New(),
		Version:        version,
		OccurredAt:     time.Now().UTC(),
	}
}

func TestSubscribePublish(t *testing.T) {
	hub := newTestHub(8)
	patientID := uuid.New()

	sub := hub.Subscribe(patientID)
	defer sub.Close()

	want := testEvent(patientID, 1)
	hub.Publish(want)

	select {
	case got := <-sub.Events():
		if got.HistoryEntryID != want.HistoryEntryID {
			t.Errorf("unexpected event: %+v", got)
		}
		if got.Version != 1 {
			t.Errorf("expected version 1, got %d", got.Version)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}
}

func TestPublish_OnlyMatchingPatient(t *testing.T) {
	hub := newTestHub(8)
	patientA := uuid.New()
	patientB := uuid.New()

	subA := hub.Subscribe(patientA)
	defer subA.Close()
	subB := hub.Subscribe(patientB)
	defer subB.Close()

	hub.Publish(testEvent(patientA, 1))

	select {
	case <-subA.Events():
	case <-time.After(time.Second):
		t.Fatal("subscriber for patient A did not receive event")
	}

	select {
	case ev := <-subB.Events():
		t.Errorf("subscriber for patient B received unrelated event: %+v", ev)
	default:
	}
}

func TestUnsubscribe_StopsDelivery(t *testing.T) {
	hub := newTestHub(8)
	patientID := uuid.New()

	sub := hub.Subscribe(patientID)
	sub.Close()

	if n := hub.SubscriberCount(patientID); n != 0 {
		t.Errorf("expected 0 subscribers after close, got %d", n)
	}

	// Publishing after unsubscribe must not panic and must deliver nothing.
	hub.Publish(testEvent(patientID, 1))

	if _, ok := <-sub.Events(); ok {
		t.Error("expected closed events channel after unsubscribe")
	}
}

func TestUnsubscribe_Idempotent(t *testing.T) {
	hub := newTestHub(8)
	sub := hub.Subscribe(uuid.New())
	sub.Close()
	sub.Close() // must not panic
}

func TestPublish_SlowObserverDropsNotBlocks(t *testing.T) {
	hub := newTestHub(2)
	patientID := uuid.New()

	obsA := hub.Subscribe(patientID)
	defer obsA.Close()
	obsB := hub.Subscribe(patientID)
	defer obsB.Close()

	// Neither observer reads; fill both buffers and overflow them.
	for i := 1; i <= 4; i++ {
		hub.Publish(testEvent(patientID, i))
	}

	// Each observer buffers 2 of the 4 events; the rest are dropped per
	// observer without blocking the publisher.
	if got := hub.Dropped(); got != 4 {
		t.Errorf("expected 4 dropped events, got %d", got)
	}

	received := 0
	for {
		select {
		case <-obsB.Events():
			received++
			continue
		default:
		}
		break
	}
	if received != 2 {
		t.Errorf("expected observer to hold 2 buffered events, got %d", received)
	}
}

func TestSubscriberCount(t *testing.T) {
	hub := newTestHub(8)
	patientID := uuid.New()

	if n := hub.SubscriberCount(patientID); n != 0 {
		t.Fatalf("expected 0, got %d", n)
	}

	s1 := hub.Subscribe(patientID)
	s2 := hub.Subscribe(patientID)
	if n := hub.SubscriberCount(patientID); n != 2 {
		t.Errorf("expected 2, got %d", n)
	}

	s1.Close()
	s2.Close()
	if n := hub.SubscriberCount(patientID); n != 0 {
		t.Errorf("expected 0 after closes, got %d", n)
	}
}
