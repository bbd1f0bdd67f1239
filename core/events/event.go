package events

import "unitfarm/core/types"

// Event represents a structured state change emitted by the ledger.
type Event interface {
	EventType() string
}

// Payload is implemented by events that carry a typed attribute map.
type Payload interface {
	Event
	Event() *types.Event
}

// Emitter broadcasts events to downstream subscribers (e.g. RPC, indexers).
type Emitter interface {
	Emit(Event)
}

// NoopEmitter is a helper that satisfies the Emitter interface while discarding
// all events. It is useful when a component wants to optionally expose events.
type NoopEmitter struct{}

// Emit implements the Emitter interface.
func (NoopEmitter) Emit(Event) {}

// Buffer holds events until the surrounding operation commits.
type Buffer struct {
	events []Event
}

// Emit implements the Emitter interface.
func (b *Buffer) Emit(evt Event) {
	if evt == nil {
		return
	}
	b.events = append(b.events, evt)
}

// Events returns the buffered events in emission order.
func (b *Buffer) Events() []Event {
	out := make([]Event, len(b.events))
	copy(out, b.events)
	return out
}

// Flush forwards every buffered event to dst and empties the buffer.
func (b *Buffer) Flush(dst Emitter) {
	if dst != nil {
		for _, evt := range b.events {
			dst.Emit(evt)
		}
	}
	b.events = nil
}

// Reset drops all buffered events.
func (b *Buffer) Reset() { b.events = nil }

// Multi fans every event out to each emitter in order.
type Multi []Emitter

// Emit implements the Emitter interface.
func (m Multi) Emit(evt Event) {
	for _, e := range m {
		if e != nil {
			e.Emit(evt)
		}
	}
}

// Raw extracts the attribute payload from an event when it carries one.
func Raw(evt Event) *types.Event {
	if p, ok := evt.(Payload); ok {
		return p.Event()
	}
	return nil
}
