package inmem_test

import (
	"context"
	"testing"

	eventinginmem "turnflow/eventing/inmem"
	"turnflow/turn"
)

func TestSink_PreservesArrivalOrder(t *testing.T) {
	t.Parallel()

	sink := eventinginmem.New()
	for _, event := range []turn.Event{
		{TurnID: "t-1", Type: turn.EventTypeTurnStarted},
		{TurnID: "t-1", Type: turn.EventTypeCapabilityDegraded, Capability: turn.KindRetrieval},
		{TurnID: "t-1", Type: turn.EventTypeTurnCompleted},
	} {
		if err := sink.Publish(context.Background(), event); err != nil {
			t.Fatalf("publish event: %v", err)
		}
	}

	events := sink.Events()
	if len(events) != 3 {
		t.Fatalf("unexpected event count: %d", len(events))
	}
	if events[0].Type != turn.EventTypeTurnStarted || events[2].Type != turn.EventTypeTurnCompleted {
		t.Fatalf("unexpected event order: %+v", events)
	}
}

func TestSink_ByType(t *testing.T) {
	t.Parallel()

	sink := eventinginmem.New()
	for _, event := range []turn.Event{
		{TurnID: "t-1", Type: turn.EventTypeTurnStarted},
		{TurnID: "t-1", Type: turn.EventTypeCapabilityDegraded, Capability: turn.KindSafety},
		{TurnID: "t-1", Type: turn.EventTypeCapabilityDegraded, Capability: turn.KindPersistence},
	} {
		if err := sink.Publish(context.Background(), event); err != nil {
			t.Fatalf("publish event: %v", err)
		}
	}

	degraded := sink.ByType(turn.EventTypeCapabilityDegraded)
	if len(degraded) != 2 {
		t.Fatalf("unexpected degraded count: %d", len(degraded))
	}
	if degraded[0].Capability != turn.KindSafety || degraded[1].Capability != turn.KindPersistence {
		t.Fatalf("unexpected degraded events: %+v", degraded)
	}
}

func TestSink_SnapshotIsACopy(t *testing.T) {
	t.Parallel()

	sink := eventinginmem.New()
	if err := sink.Publish(context.Background(), turn.Event{TurnID: "t-1", Type: turn.EventTypeTurnStarted}); err != nil {
		t.Fatalf("publish event: %v", err)
	}

	snapshot := sink.Events()
	snapshot[0].TurnID = "mutated"

	if got := sink.Events()[0].TurnID; got != "t-1" {
		t.Fatalf("snapshot mutation leaked into sink: %q", got)
	}
}
