package events

import (
	"testing"
	"time"
)

func TestPublishReachesAllSubscribers(t *testing.T) {
	h := NewHub()
	ch1, cancel1 := h.Subscribe()
	ch2, cancel2 := h.Subscribe()
	defer cancel1()
	defer cancel2()

	h.Publish(Event{Type: TypeDocumentUploaded, OwnerID: "u1"})

	for i, ch := range []<-chan Event{ch1, ch2} {
		select {
		case ev := <-ch:
			if ev.Type != TypeDocumentUploaded || ev.OwnerID != "u1" {
				t.Fatalf("subscriber %d got unexpected event %+v", i, ev)
			}
			if ev.At.IsZero() {
				t.Fatalf("expected timestamp to be filled in")
			}
		case <-time.After(time.Second):
			t.Fatalf("subscriber %d did not receive event", i)
		}
	}
}

func TestCancelStopsDelivery(t *testing.T) {
	h := NewHub()
	_, cancel := h.Subscribe()
	cancel()
	if h.SubscriberCount() != 0 {
		t.Fatalf("expected no subscribers after cancel")
	}
	// double cancel must not panic
	cancel()
	h.Publish(Event{Type: TypeOrphanSwept})
}

func TestSlowSubscriberDoesNotBlockPublish(t *testing.T) {
	h := NewHub()
	_, cancel := h.Subscribe()
	defer cancel()

	done := make(chan struct{})
	go func() {
		// more events than the subscriber buffer holds
		for i := 0; i < 100; i++ {
			h.Publish(Event{Type: TypeDocumentDeleted})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("publish blocked on slow subscriber")
	}
}
