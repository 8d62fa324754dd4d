package pubsub

import (
	"sync"
	"testing"
	"time"
)

func newTestEmbedded(t *testing.T) *EmbeddedNATSPubSub {
	t.Helper()

	opts := DefaultEmbeddedNATSOptions()
	opts.StoreDir = t.TempDir()
	ps, err := NewEmbeddedNATSPubSub(opts)
	if err != nil {
		t.Fatalf("Failed to create embedded NATS: %v", err)
	}
	t.Cleanup(ps.Close)
	return ps
}

func TestNewEmbeddedNATSPubSub(t *testing.T) {
	ps := newTestEmbedded(t)

	if ps.server == nil {
		t.Error("server should not be nil")
	}
	if !ps.Healthy() {
		t.Error("NATS connection should be up")
	}
	if ps.GetServerURL() == "" {
		t.Error("server URL should not be empty")
	}
}

func TestEmbeddedNATSUnsubscribe(t *testing.T) {
	ps := newTestEmbedded(t)

	ch := ps.Subscribe()
	if ps.SubscriberCount() != 1 {
		t.Errorf("expected 1 subscriber, got %d", ps.SubscriberCount())
	}
	ps.Unsubscribe(ch)

	if ps.SubscriberCount() != 0 {
		t.Errorf("expected 0 subscribers after unsubscribe, got %d", ps.SubscriberCount())
	}

	select {
	case _, ok := <-ch:
		if ok {
			t.Error("channel should be closed after unsubscribe")
		}
	default:
		t.Error("channel should be closed and readable")
	}
}

func TestEmbeddedNATSPublishAndReceive(t *testing.T) {
	ps := newTestEmbedded(t)
	ch := ps.Subscribe()

	event := Event{
		Type:    EventDrawComplete,
		Owner:   "u1",
		Payload: map[string]interface{}{"playerCount": float64(9)},
	}
	ps.Publish(event)

	select {
	case received := <-ch:
		if received.Type != event.Type || received.Owner != "u1" {
			t.Errorf("unexpected event %+v", received)
		}
		if received.Payload["playerCount"] != float64(9) {
			t.Error("payload mismatch")
		}
	case <-time.After(2 * time.Second):
		t.Error("timeout waiting for event")
	}
}

func TestEmbeddedNATSMultipleSubscribers(t *testing.T) {
	ps := newTestEmbedded(t)

	subs := []chan Event{ps.Subscribe(), ps.Subscribe(), ps.Subscribe()}
	ps.Publish(Event{Type: EventSelectionUpdated, Owner: "u1"})

	var wg sync.WaitGroup
	for i, ch := range subs {
		wg.Add(1)
		go func(i int, ch chan Event) {
			defer wg.Done()
			select {
			case ev := <-ch:
				if ev.Type != EventSelectionUpdated {
					t.Errorf("subscriber %d: unexpected type %s", i, ev.Type)
				}
			case <-time.After(2 * time.Second):
				t.Errorf("subscriber %d: timeout", i)
			}
		}(i, ch)
	}
	wg.Wait()
}

func TestEmbeddedNATSAsUpstream(t *testing.T) {
	ps := newTestEmbedded(t)
	bridge := NewWithUpstream(ps)
	ch := bridge.Subscribe()

	bridge.Publish(Event{Type: EventPlayerSaved, Owner: "u1"})

	select {
	case ev := <-ch:
		if ev.Type != EventPlayerSaved {
			t.Errorf("unexpected type %s", ev.Type)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for event through bridge")
	}
}

func TestEmbeddedNATSDurableConsumer(t *testing.T) {
	ps := newTestEmbedded(t)

	got := make(chan Event, 1)
	if err := ps.SubscribeJetStream("draw-analytics", func(e Event) {
		select {
		case got <- e:
		default:
		}
	}); err != nil {
		t.Fatalf("SubscribeJetStream failed: %v", err)
	}

	ps.Publish(Event{Type: EventDrawComplete, Owner: "u1"})

	select {
	case ev := <-got:
		if ev.Type != EventDrawComplete {
			t.Errorf("unexpected type %s", ev.Type)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("durable consumer did not receive event")
	}
}
