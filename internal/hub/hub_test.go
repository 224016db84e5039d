package hub

import (
	"testing"
	"time"

	"github.com/LupusDei/adjutant-sub008/internal/domain/events"
)

func TestHub_StartStop(t *testing.T) {
	h := New()

	if err := h.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	// Starting again should be a no-op
	if err := h.Start(); err != nil {
		t.Fatalf("second Start() error = %v", err)
	}

	sub := NewChannelSubscriber("sub-1", 8)
	h.Subscribe(sub)
	waitForSubscribers(t, h, 1)

	if err := h.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}

	// Stop closes every registered subscriber
	select {
	case <-sub.Done():
	case <-time.After(time.Second):
		t.Fatal("subscriber not closed after Stop()")
	}
	if n := h.SubscriberCount(); n != 0 {
		t.Errorf("SubscriberCount() = %d after Stop(), want 0", n)
	}

	// Stopping again should be a no-op
	if err := h.Stop(); err != nil {
		t.Fatalf("second Stop() error = %v", err)
	}
}

func TestHub_PublishToSubscribers(t *testing.T) {
	h := New()
	if err := h.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer func() { _ = h.Stop() }()

	sub := NewChannelSubscriber("sub-1", 8)
	h.Subscribe(sub)
	waitForSubscribers(t, h, 1)

	h.Publish(events.NewSessionOutputEvent("sess-1", "hello"))

	select {
	case ev := <-sub.Events():
		if ev.Type() != events.EventTypeSessionOutput {
			t.Errorf("event type = %q, want %q", ev.Type(), events.EventTypeSessionOutput)
		}
		if ev.GetSessionID() != "sess-1" {
			t.Errorf("session id = %q, want %q", ev.GetSessionID(), "sess-1")
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}
}

func TestHub_UnsubscribeStopsDelivery(t *testing.T) {
	h := New()
	if err := h.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer func() { _ = h.Stop() }()

	sub := NewChannelSubscriber("sub-1", 8)
	h.Subscribe(sub)
	waitForSubscribers(t, h, 1)

	h.Unsubscribe("sub-1")
	waitForSubscribers(t, h, 0)

	select {
	case <-sub.Done():
	case <-time.After(time.Second):
		t.Fatal("subscriber not closed after unsubscribe")
	}
}

func TestFilteredSubscriber_SessionFilter(t *testing.T) {
	inner := NewChannelSubscriber("sub-1", 8)
	f := NewFilteredSubscriber(inner)

	// No filter: everything forwarded
	if err := f.Send(events.NewSessionOutputEvent("a", "x")); err != nil {
		t.Fatalf("Send() error = %v", err)
	}

	f.WatchSession("a")
	if !f.IsFiltering() {
		t.Error("IsFiltering() = false after WatchSession")
	}

	// Matching session forwarded, non-matching dropped
	if err := f.Send(events.NewSessionOutputEvent("a", "y")); err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if err := f.Send(events.NewSessionOutputEvent("b", "z")); err != nil {
		t.Fatalf("Send() error = %v", err)
	}

	// Global events always pass the filter
	if err := f.Send(events.NewHeartbeatEvent(1, 0, 0, 0)); err != nil {
		t.Fatalf("Send() error = %v", err)
	}

	got := drain(inner)
	want := []events.EventType{
		events.EventTypeSessionOutput, // no filter yet
		events.EventTypeSessionOutput, // session a
		events.EventTypeHeartbeat,     // global
	}
	if len(got) != len(want) {
		t.Fatalf("received %d events, want %d", len(got), len(want))
	}
	for i, ev := range got {
		if ev.Type() != want[i] {
			t.Errorf("event[%d] type = %q, want %q", i, ev.Type(), want[i])
		}
	}

	f.UnwatchSession("a")
	if f.IsFiltering() {
		t.Error("IsFiltering() = true after removing last session")
	}
}

func waitForSubscribers(t *testing.T, h *Hub, n int) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for h.SubscriberCount() != n {
		if time.Now().After(deadline) {
			t.Fatalf("subscriber count = %d, want %d", h.SubscriberCount(), n)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func drain(sub *ChannelSubscriber) []events.Event {
	var out []events.Event
	for {
		select {
		case ev := <-sub.Events():
			out = append(out, ev)
		default:
			return out
		}
	}
}
