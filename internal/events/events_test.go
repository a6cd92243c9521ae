package events

import (
	"testing"
	"time"
)

func TestEventBus_PublishSubscribe(t *testing.T) {
	bus := NewEventBus(10)
	defer bus.Close()

	ch := bus.Subscribe(EventProgress)

	bus.PublishProgress(40960, false, false, 7, "Pong")

	select {
	case received := <-ch:
		progress, ok := received.(*ProgressEvent)
		if !ok {
			t.Fatal("Expected ProgressEvent")
		}
		if progress.Bytes != 40960 {
			t.Errorf("Expected 40960 bytes, got %d", progress.Bytes)
		}
		if progress.NotificationID != 7 || progress.ProjectName != "Pong" {
			t.Errorf("unexpected event: %+v", progress)
		}
	case <-time.After(100 * time.Millisecond):
		t.Fatal("Timeout waiting for event")
	}
}

func TestEventBus_MultipleSubscribers(t *testing.T) {
	bus := NewEventBus(10)
	defer bus.Close()

	ch1 := bus.Subscribe(EventProjectChange)
	ch2 := bus.Subscribe(EventProjectChange)

	bus.PublishProjectChange("Pong", "", "scene_added", "Scene 2")

	for i, ch := range []<-chan Event{ch1, ch2} {
		select {
		case ev := <-ch:
			change := ev.(*ProjectChangeEvent)
			if change.ItemName != "Scene 2" {
				t.Errorf("subscriber %d: ItemName = %q", i, change.ItemName)
			}
		case <-time.After(100 * time.Millisecond):
			t.Errorf("subscriber %d did not receive event", i)
		}
	}
}

func TestEventBus_SubscribeAll(t *testing.T) {
	bus := NewEventBus(10)
	defer bus.Close()

	all := bus.SubscribeAll()
	bus.PublishProgress(1, true, false, 1, "p")
	bus.PublishTransfer(EventTransferCompleted, "id", "upload", "p", 1, nil)

	got := 0
	timeout := time.After(100 * time.Millisecond)
	for got < 2 {
		select {
		case <-all:
			got++
		case <-timeout:
			t.Fatalf("received %d of 2 events", got)
		}
	}
}

func TestEventBus_DropsWhenFull(t *testing.T) {
	bus := NewEventBus(1)
	defer bus.Close()

	_ = bus.Subscribe(EventProgress)
	bus.PublishProgress(1, false, false, 1, "p")
	bus.PublishProgress(2, false, false, 1, "p")

	if dropped := bus.GetDroppedEventCount(); dropped != 1 {
		t.Errorf("expected 1 dropped event, got %d", dropped)
	}
}

func TestEventBus_CloseIsIdempotent(t *testing.T) {
	bus := NewEventBus(1)
	ch := bus.Subscribe(EventProgress)
	bus.Close()
	bus.Close()

	if _, ok := <-ch; ok {
		t.Error("expected closed channel after Close")
	}

	// Publishing after close must not panic.
	bus.PublishProgress(1, false, false, 1, "p")

	late := bus.Subscribe(EventProgress)
	if _, ok := <-late; ok {
		t.Error("subscription after close should be closed")
	}
}

func TestEventBus_Unsubscribe(t *testing.T) {
	bus := NewEventBus(1)
	defer bus.Close()

	ch := bus.Subscribe(EventProgress)
	bus.Unsubscribe(EventProgress, ch)
	bus.PublishProgress(1, false, false, 1, "p")

	select {
	case <-ch:
		t.Error("unsubscribed channel received an event")
	default:
	}
}
