// Package events carries phase and activity transitions from the scheduling
// core to independent consumers. Delivery is synchronous and in publish
// order; every subscriber is isolated from the failures of the others.
package events

import (
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

var (
	// ErrSubscriberPanic wraps a recovered subscriber panic.
	ErrSubscriberPanic = errors.New("subscriber panicked")
	// ErrSubscriberLagging reports an event dropped because a channel
	// subscriber's buffer was full.
	ErrSubscriberLagging = errors.New("subscriber buffer full")
)

// Handler consumes one event. A returned error is reported, never propagated
// to other subscribers.
type Handler func(Event) error

// DeliveryError records one failed delivery.
type DeliveryError struct {
	Subscriber string
	Kind       Kind
	Err        error
}

func (e DeliveryError) Error() string {
	return fmt.Sprintf("deliver %s to %s: %v", e.Kind, e.Subscriber, e.Err)
}

func (e DeliveryError) Unwrap() error {
	return e.Err
}

// Report is the outcome of a single Publish.
type Report struct {
	Delivered int
	Failures  []DeliveryError
}

// Err joins all delivery failures, or returns nil.
func (report Report) Err() error {
	if len(report.Failures) == 0 {
		return nil
	}
	errs := make([]error, 0, len(report.Failures))
	for _, failure := range report.Failures {
		errs = append(errs, failure)
	}
	return errors.Join(errs...)
}

type subscription struct {
	id      uint64
	name    string
	kinds   map[Kind]struct{}
	handler Handler
}

func (sub *subscription) wants(kind Kind) bool {
	if len(sub.kinds) == 0 {
		return true
	}
	_, ok := sub.kinds[kind]
	return ok
}

// Bus fans events out to subscribers.
type Bus struct {
	mu        sync.RWMutex
	nextID    uint64
	subs      []*subscription
	closers   map[uint64]func()
	logger    *zap.Logger
	onFailure func(DeliveryError)
}

// Option configures a Bus.
type Option func(*Bus)

// WithLogger logs delivery failures to logger.
func WithLogger(logger *zap.Logger) Option {
	return func(bus *Bus) {
		if logger != nil {
			bus.logger = logger
		}
	}
}

// WithFailureHook calls hook for every failed delivery, after logging.
func WithFailureHook(hook func(DeliveryError)) Option {
	return func(bus *Bus) {
		bus.onFailure = hook
	}
}

// NewBus creates an empty bus.
func NewBus(options ...Option) *Bus {
	bus := &Bus{
		closers: make(map[uint64]func()),
		logger:  zap.NewNop(),
	}
	for _, option := range options {
		option(bus)
	}
	return bus
}

// Subscribe registers handler for the given kinds, or for every kind when
// none are given. The returned function unsubscribes and is safe to call
// more than once.
func (bus *Bus) Subscribe(name string, handler Handler, kinds ...Kind) func() {
	bus.mu.Lock()
	defer bus.mu.Unlock()
	return bus.subscribeLocked(name, handler, kinds, nil)
}

// SubscribeChan delivers events to a buffered channel. A full buffer drops
// the event for this subscriber and reports ErrSubscriberLagging. The
// channel is closed on unsubscribe or Close.
func (bus *Bus) SubscribeChan(name string, buffer int, kinds ...Kind) (<-chan Event, func()) {
	if buffer <= 0 {
		buffer = 1
	}
	ch := make(chan Event, buffer)
	var (
		mu     sync.Mutex
		closed bool
	)
	handler := func(event Event) error {
		mu.Lock()
		defer mu.Unlock()
		if closed {
			return nil
		}
		select {
		case ch <- event:
			return nil
		default:
			return ErrSubscriberLagging
		}
	}
	closer := func() {
		mu.Lock()
		defer mu.Unlock()
		if !closed {
			closed = true
			close(ch)
		}
	}

	bus.mu.Lock()
	defer bus.mu.Unlock()
	return ch, bus.subscribeLocked(name, handler, kinds, closer)
}

func (bus *Bus) subscribeLocked(name string, handler Handler, kinds []Kind, closer func()) func() {
	bus.nextID++
	sub := &subscription{
		id:      bus.nextID,
		name:    name,
		handler: handler,
	}
	if len(kinds) > 0 {
		sub.kinds = make(map[Kind]struct{}, len(kinds))
		for _, kind := range kinds {
			sub.kinds[kind] = struct{}{}
		}
	}
	bus.subs = append(bus.subs, sub)
	if closer != nil {
		bus.closers[sub.id] = closer
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			bus.unsubscribe(sub.id)
		})
	}
}

func (bus *Bus) unsubscribe(id uint64) {
	bus.mu.Lock()
	for index, sub := range bus.subs {
		if sub.id == id {
			bus.subs = append(bus.subs[:index:index], bus.subs[index+1:]...)
			break
		}
	}
	closer := bus.closers[id]
	delete(bus.closers, id)
	bus.mu.Unlock()

	if closer != nil {
		closer()
	}
}

// Publish delivers event to every matching subscriber in subscription order.
// Each subscriber receives its own copy.
func (bus *Bus) Publish(event Event) Report {
	bus.mu.RLock()
	subs := append([]*subscription(nil), bus.subs...)
	bus.mu.RUnlock()

	var report Report
	for _, sub := range subs {
		if !sub.wants(event.Kind) {
			continue
		}
		if err := deliver(sub.handler, event.Clone()); err != nil {
			failure := DeliveryError{Subscriber: sub.name, Kind: event.Kind, Err: err}
			report.Failures = append(report.Failures, failure)
			bus.logger.Warn("event delivery failed",
				zap.String("subscriber", sub.name),
				zap.String("kind", string(event.Kind)),
				zap.Error(err),
			)
			if bus.onFailure != nil {
				bus.onFailure(failure)
			}
			continue
		}
		report.Delivered++
	}
	return report
}

// PublishAll publishes events in order and merges the reports.
func (bus *Bus) PublishAll(batch []Event) Report {
	var merged Report
	for _, event := range batch {
		report := bus.Publish(event)
		merged.Delivered += report.Delivered
		merged.Failures = append(merged.Failures, report.Failures...)
	}
	return merged
}

// Close removes all subscribers and closes channel subscriptions.
func (bus *Bus) Close() {
	bus.mu.Lock()
	closers := bus.closers
	bus.closers = make(map[uint64]func())
	bus.subs = nil
	bus.mu.Unlock()

	for _, closer := range closers {
		closer()
	}
}

func deliver(handler Handler, event Event) (err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			err = fmt.Errorf("%w: %v", ErrSubscriberPanic, recovered)
		}
	}()
	return handler(event)
}
