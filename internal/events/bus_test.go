package events

import (
	"testing"
	"time"
)

func TestPublishSubscribe(t *testing.T) {
	bus := NewBus()
	ch, unsub := bus.Subscribe(10, EventDecision)
	defer unsub()

	bus.Publish(EventDecision, "payload")

	select {
	case got := <-ch:
		if got != "payload" {
			t.Errorf("received %v, want payload", got)
		}
	case <-time.After(time.Second):
		t.Fatal("no event received")
	}
}

func TestMultiTopicSubscription(t *testing.T) {
	bus := NewBus()
	ch, unsub := bus.Subscribe(10, EventDecision, EventPositionClosed)
	defer unsub()

	bus.Publish(EventDecision, 1)
	bus.Publish(EventPositionClosed, 2)
	bus.Publish(EventPriceTick, 3) // not subscribed

	var got []any
	timeout := time.After(time.Second)
	for len(got) < 2 {
		select {
		case v := <-ch:
			got = append(got, v)
		case <-timeout:
			t.Fatalf("received %v, want two events", got)
		}
	}
	select {
	case v := <-ch:
		t.Fatalf("unexpected extra event %v", v)
	default:
	}
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	bus := NewBus()
	ch, unsub := bus.Subscribe(1, EventDecision)
	unsub()

	if _, ok := <-ch; ok {
		t.Fatal("channel not closed after unsubscribe")
	}
	// Publishing after unsubscribe must not panic.
	bus.Publish(EventDecision, "late")
}

func TestSlowSubscriberDoesNotBlockPublish(t *testing.T) {
	bus := NewBus()
	_, unsub := bus.Subscribe(1, EventDecision)
	defer unsub()

	done := make(chan struct{})
	go func() {
		// Buffer of 1; further publishes are dropped, never block.
		for i := 0; i < 100; i++ {
			bus.Publish(EventDecision, i)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked on a slow subscriber")
	}
}
