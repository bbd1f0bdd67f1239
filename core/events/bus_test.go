package events

import (
	"context"
	"testing"
	"time"

	"unitfarm/core/types"
)

type testEvent struct{ evt *types.Event }

func (t testEvent) EventType() string    { return t.evt.Type }
func (t testEvent) Event() *types.Event { return t.evt }

func TestBufferFlushPreservesOrder(t *testing.T) {
	var buf Buffer
	buf.Emit(testEvent{evt: &types.Event{Type: "a"}})
	buf.Emit(testEvent{evt: &types.Event{Type: "b"}})

	var sink Buffer
	buf.Flush(&sink)
	got := sink.Events()
	if len(got) != 2 || got[0].EventType() != "a" || got[1].EventType() != "b" {
		t.Fatalf("unexpected flushed events: %+v", got)
	}
	if len(buf.Events()) != 0 {
		t.Fatalf("expected buffer to be empty after flush")
	}
}

func TestBusDeliversToSubscribers(t *testing.T) {
	bus := NewBus()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ch, unsubscribe := bus.Subscribe(ctx)
	defer unsubscribe()

	bus.Emit(testEvent{evt: &types.Event{Type: "farm.buy", Attributes: map[string]string{"timestamp": "42"}}})
	select {
	case evt := <-ch:
		if evt.Type != "farm.buy" || evt.Timestamp() != 42 {
			t.Fatalf("unexpected event: %+v", evt)
		}
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for event")
	}
}

func TestBusUnsubscribeClosesChannel(t *testing.T) {
	bus := NewBus()
	ch, unsubscribe := bus.Subscribe(context.Background())
	unsubscribe()
	if _, ok := <-ch; ok {
		t.Fatalf("expected closed channel")
	}
	bus.Emit(testEvent{evt: &types.Event{Type: "farm.sell"}})
}
