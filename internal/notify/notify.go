// Package notify alerts the user when a work phase, break or activity ends.
package notify

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"runtime"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"blinkbreak/internal/core/events"
	"blinkbreak/internal/core/model"
)

// ErrUnsupported is returned by a sink that cannot work on this system.
var ErrUnsupported = errors.New("notifications unsupported")

const sendTimeout = 5 * time.Second

// Notification is a user-facing message.
type Notification struct {
	Kind  events.Kind
	Title string
	Body  string
}

// Sink delivers notifications.
type Sink interface {
	Notify(ctx context.Context, notification Notification) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, notification Notification) error

// Notify calls fn.
func (fn SinkFunc) Notify(ctx context.Context, notification Notification) error {
	return fn(ctx, notification)
}

// Message returns the notification for event, if it warrants one.
func Message(event events.Event) (Notification, bool) {
	switch event.Kind {
	case events.KindWorkComplete:
		return Notification{Kind: event.Kind, Title: "Time to rest your eyes", Body: "Look away from the screen for a moment."}, true
	case events.KindBreakComplete:
		return Notification{Kind: event.Kind, Title: "Back to work", Body: "Your break is over."}, true
	case events.KindActivityComplete:
		kind := model.ActivityKind(event.Meta(events.MetaActivity))
		return Notification{Kind: event.Kind, Title: "Nice job", Body: "Finished: " + kind.Title()}, true
	}
	return Notification{}, false
}

// Notifier fans a notification out to its sinks.
type Notifier struct {
	sinks   []Sink
	logger  *zap.Logger
	enabled atomic.Bool

	mu          sync.Mutex
	unsupported map[int]bool
}

// NewNotifier creates an enabled Notifier.
func NewNotifier(logger *zap.Logger, sinks ...Sink) *Notifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	notifier := &Notifier{sinks: sinks, logger: logger, unsupported: map[int]bool{}}
	notifier.enabled.Store(true)
	return notifier
}

// SetEnabled turns delivery on or off.
func (notifier *Notifier) SetEnabled(enabled bool) {
	notifier.enabled.Store(enabled)
}

// queueSize bounds notifications waiting for slow sinks.
const queueSize = 32

// Attach subscribes the notifier to the completion events on bus. Sinks
// are driven from a goroutine of the notifier's own, so a slow desktop
// command never holds up event delivery; a full queue shows up on the bus
// as ErrSubscriberLagging. The returned func unsubscribes and waits for
// queued notifications to go out.
func (notifier *Notifier) Attach(bus *events.Bus) func() {
	queue, unsubscribe := bus.SubscribeChan("notifier", queueSize,
		events.KindWorkComplete,
		events.KindBreakComplete,
		events.KindActivityComplete,
	)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for event := range queue {
			if err := notifier.Handle(event); err != nil {
				notifier.logger.Warn("notification failed", zap.String("kind", string(event.Kind)), zap.Error(err))
			}
		}
	}()
	return func() {
		unsubscribe()
		<-done
	}
}

// Handle delivers the notification for event to every sink. A sink that
// reports ErrUnsupported is not tried again.
func (notifier *Notifier) Handle(event events.Event) error {
	if !notifier.enabled.Load() {
		return nil
	}
	notification, ok := Message(event)
	if !ok {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
	defer cancel()

	var errs []error
	for index, sink := range notifier.sinks {
		if notifier.isUnsupported(index) {
			continue
		}
		err := sink.Notify(ctx, notification)
		switch {
		case err == nil:
		case errors.Is(err, ErrUnsupported):
			notifier.markUnsupported(index)
			notifier.logger.Debug("notification sink disabled", zap.Int("sink", index), zap.Error(err))
		default:
			errs = append(errs, fmt.Errorf("sink %d: %w", index, err))
		}
	}
	return errors.Join(errs...)
}

func (notifier *Notifier) isUnsupported(index int) bool {
	notifier.mu.Lock()
	defer notifier.mu.Unlock()
	return notifier.unsupported[index]
}

func (notifier *Notifier) markUnsupported(index int) {
	notifier.mu.Lock()
	defer notifier.mu.Unlock()
	notifier.unsupported[index] = true
}

// Runner executes an external command.
type Runner func(ctx context.Context, name string, args ...string) error

// ExecRunner runs commands with os/exec.
func ExecRunner(ctx context.Context, name string, args ...string) error {
	if _, err := exec.LookPath(name); err != nil {
		return fmt.Errorf("%w: %s not found", ErrUnsupported, name)
	}
	output, err := exec.CommandContext(ctx, name, args...).CombinedOutput()
	if err != nil {
		return fmt.Errorf("%s: %w: %s", name, err, output)
	}
	return nil
}

// DesktopSink shows a native desktop notification: notify-send on Linux,
// osascript on macOS.
type DesktopSink struct {
	Run  Runner
	GOOS string
}

// NewDesktopSink creates a DesktopSink for the running system.
func NewDesktopSink() DesktopSink {
	return DesktopSink{Run: ExecRunner, GOOS: runtime.GOOS}
}

// Notify implements Sink.
func (sink DesktopSink) Notify(ctx context.Context, notification Notification) error {
	switch sink.GOOS {
	case "linux", "freebsd", "openbsd":
		return sink.Run(ctx, "notify-send", "--app-name=blinkbreak", notification.Title, notification.Body)
	case "darwin":
		script := fmt.Sprintf("display notification %s with title %s",
			strconv.Quote(notification.Body), strconv.Quote(notification.Title))
		return sink.Run(ctx, "osascript", "-e", script)
	default:
		return fmt.Errorf("%w on %s", ErrUnsupported, sink.GOOS)
	}
}

// BellSink writes a terminal bell and the message to a writer.
type BellSink struct {
	mu  sync.Mutex
	out io.Writer
}

// NewBellSink creates a BellSink writing to out.
func NewBellSink(out io.Writer) *BellSink {
	return &BellSink{out: out}
}

// Notify implements Sink.
func (sink *BellSink) Notify(_ context.Context, notification Notification) error {
	sink.mu.Lock()
	defer sink.mu.Unlock()
	_, err := fmt.Fprintf(sink.out, "\a%s: %s\n", notification.Title, notification.Body)
	return err
}
