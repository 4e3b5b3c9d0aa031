package events

import (
	"testing"
	"time"

	"vn-signal-engine/internal/model"
)

func TestSubscribeReplaysLatestStateNotBarHistory(t *testing.T) {
	bus := NewBus()
	bus.PublishSystem("connected", true)
	bus.PublishSignalCheck("VNM", map[string]any{"symbol": "VNM"})
	bus.PublishBarClosed(barFixture())

	ch, unsubscribe := bus.Subscribe("client-1")
	defer unsubscribe()

	var gotSystem, gotSignalCheck, gotBarClosed bool
	for i := 0; i < 2; i++ {
		select {
		case env := <-ch:
			switch env.Event {
			case KindSystem:
				gotSystem = true
			case KindSignalCheck:
				gotSignalCheck = true
			case KindBarClosed:
				gotBarClosed = true
			}
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for replayed events")
		}
	}

	if !gotSystem {
		t.Error("expected system status to be replayed on subscribe")
	}
	if !gotSignalCheck {
		t.Error("expected latest signal_check to be replayed on subscribe")
	}
	if gotBarClosed {
		t.Error("bar history must never be replayed on subscribe")
	}
}

func TestPublishDropsFullSubscriberWithoutBlocking(t *testing.T) {
	bus := NewBus()
	ch, _ := bus.Subscribe("slow-client")

	for i := 0; i < subscriberBuffer+10; i++ {
		bus.PublishBarClosed(barFixture())
	}

	if bus.SubscriberCount() != 0 {
		t.Error("expected the slow subscriber to be dropped once its buffer fills")
	}

	// Draining what was buffered must not panic or block.
	for {
		select {
		case _, ok := <-ch:
			if !ok {
				return
			}
		default:
			return
		}
	}
}

func barFixture() model.Bar {
	return model.Bar{Symbol: "VNM", Timeframe: "1H", Timestamp: time.Unix(0, 0)}
}
