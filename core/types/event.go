package types

import "strconv"

// Event represents a typed event emitted during state transitions.
type Event struct {
	Type       string            `json:"type"`
	Attributes map[string]string `json:"attributes"`
}

// Attr returns the attribute value or the empty string.
func (e *Event) Attr(key string) string {
	if e == nil || e.Attributes == nil {
		return ""
	}
	return e.Attributes[key]
}

// Timestamp parses the "timestamp" attribute as unix seconds.
func (e *Event) Timestamp() int64 {
	ts, err := strconv.ParseInt(e.Attr("timestamp"), 10, 64)
	if err != nil {
		return 0
	}
	return ts
}

// Clone returns a deep copy of the event.
func (e *Event) Clone() *Event {
	if e == nil {
		return nil
	}
	clone := &Event{Type: e.Type, Attributes: make(map[string]string, len(e.Attributes))}
	for k, v := range e.Attributes {
		clone.Attributes[k] = v
	}
	return clone
}
