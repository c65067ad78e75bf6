package tracesink

import (
	"testing"
	"time"
)

func TestBusDeliversToSubscribers(t *testing.T) {
	bus := NewBus()
	defer bus.Close()

	ch := make(chan Packet, 1)
	if err := bus.Subscribe("collector", ch); err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}

	pkt := DisplayFramePacket{Token: 42}
	if err := bus.EmitDisplayFrame(pkt); err != nil {
		t.Fatalf("EmitDisplayFrame failed: %v", err)
	}

	select {
	case got := <-ch:
		if got.Display == nil || got.Display.Token != 42 {
			t.Fatalf("expected delivered packet token 42, got %+v", got)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for delivered packet")
	}
}

func TestBusDropsOnFullSubscriberChannel(t *testing.T) {
	bus := NewBus()
	defer bus.Close()

	ch := make(chan Packet, 1)
	bus.Subscribe("slow", ch)

	bus.EmitSurfaceFrame(SurfaceFramePacket{Token: 1})
	bus.EmitSurfaceFrame(SurfaceFramePacket{Token: 2})

	stats := bus.Stats()
	sub := stats.Subscribers["slow"]
	if sub.Sent != 1 || sub.Dropped != 1 {
		t.Fatalf("expected 1 sent and 1 dropped, got %+v", sub)
	}
}

func TestBusSubscribeDuplicateIDFails(t *testing.T) {
	bus := NewBus()
	defer bus.Close()

	ch := make(chan Packet, 1)
	bus.Subscribe("dup", ch)
	if err := bus.Subscribe("dup", ch); err != ErrSubscriberExists {
		t.Fatalf("expected ErrSubscriberExists, got %v", err)
	}
}

func TestBusEmitOnClosedBusNeverPanics(t *testing.T) {
	bus := NewBus()
	bus.Close()

	// Emit after Close must be a safe no-op: the timeline's present-resolve
	// path can never be allowed to panic on a stopped trace sink.
	bus.Emit(Packet{Display: &DisplayFramePacket{Token: 1}})
}

func TestBusUnsubscribeUnknownIDFails(t *testing.T) {
	bus := NewBus()
	defer bus.Close()
	if err := bus.Unsubscribe("nope"); err != ErrSubscriberNotFound {
		t.Fatalf("expected ErrSubscriberNotFound, got %v", err)
	}
}
