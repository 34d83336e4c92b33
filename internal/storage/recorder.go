package storage

import (
	"context"
	"time"

	"go.uber.org/zap"

	"blinkbreak/internal/core/events"
	"blinkbreak/internal/core/model"
)

const writeTimeout = 5 * time.Second

// Recorder writes completed intervals from the event stream to a Store.
// Only completions are recorded, so abandoned activities never appear.
type Recorder struct {
	store  Store
	logger *zap.Logger
}

// NewRecorder creates a Recorder writing to store.
func NewRecorder(store Store, logger *zap.Logger) *Recorder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Recorder{store: store, logger: logger}
}

// Attach subscribes the recorder to bus and returns the unsubscribe func.
func (recorder *Recorder) Attach(bus *events.Bus) func() {
	return bus.Subscribe("store", recorder.Handle,
		events.KindWorkComplete,
		events.KindBreakComplete,
		events.KindActivityComplete,
	)
}

// Handle records event if it completes an interval.
func (recorder *Recorder) Handle(event events.Event) error {
	interval, ok := IntervalFromEvent(event)
	if !ok {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()
	return recorder.store.Add(ctx, interval)
}

// IntervalFromEvent maps a completion event to an Interval.
func IntervalFromEvent(event events.Event) (Interval, bool) {
	var kind IntervalKind
	switch event.Kind {
	case events.KindWorkComplete:
		kind = IntervalWork
	case events.KindBreakComplete:
		kind = IntervalBreak
	case events.KindActivityComplete:
		kind = IntervalActivity
	default:
		return Interval{}, false
	}
	return Interval{
		SessionID:       event.SessionID,
		Kind:            kind,
		Activity:        model.ActivityKind(event.Meta(events.MetaActivity)),
		StartedAt:       event.Timestamp.Add(-event.Duration()),
		EndedAt:         event.Timestamp,
		DurationSeconds: event.DurationSeconds,
	}, true
}
