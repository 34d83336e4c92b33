package events

import (
	"time"

	"blinkbreak/internal/core/model"
)

// Kind identifies a domain transition.
type Kind string

const (
	KindWorkStart        Kind = "work_start"
	KindWorkComplete     Kind = "work_complete"
	KindBreakStart       Kind = "break_start"
	KindBreakComplete    Kind = "break_complete"
	KindActivityComplete Kind = "activity_complete"
)

// Kinds returns every event kind in emission order of a full cycle.
func Kinds() []Kind {
	return []Kind{KindWorkStart, KindWorkComplete, KindBreakStart, KindBreakComplete, KindActivityComplete}
}

// MetaActivity is the metadata key holding the completed activity kind.
const MetaActivity = "activity"

// Event is an immutable record of one transition.
type Event struct {
	Kind            Kind
	Timestamp       time.Time
	DurationSeconds float64
	SessionID       string
	Phase           model.Phase
	Metadata        map[string]string
}

// Clone returns a copy that shares no mutable state with event.
func (event Event) Clone() Event {
	if event.Metadata == nil {
		return event
	}
	metadata := make(map[string]string, len(event.Metadata))
	for key, value := range event.Metadata {
		metadata[key] = value
	}
	event.Metadata = metadata
	return event
}

// Meta returns a metadata value or "".
func (event Event) Meta(key string) string {
	return event.Metadata[key]
}

// Duration returns DurationSeconds as a time.Duration.
func (event Event) Duration() time.Duration {
	return time.Duration(event.DurationSeconds * float64(time.Second))
}

// Emitter accepts events produced by a state machine.
type Emitter interface {
	Emit(event Event)
}

// EmitterFunc adapts a function to Emitter.
type EmitterFunc func(Event)

// Emit calls fn.
func (fn EmitterFunc) Emit(event Event) {
	fn(event)
}

// Outbox buffers events until the producer's state change has committed.
type Outbox struct {
	pending []Event
}

// Emit appends event.
func (outbox *Outbox) Emit(event Event) {
	outbox.pending = append(outbox.pending, event)
}

// Drain returns buffered events in emission order and empties the outbox.
func (outbox *Outbox) Drain() []Event {
	drained := outbox.pending
	outbox.pending = nil
	return drained
}
