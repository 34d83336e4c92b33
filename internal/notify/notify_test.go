package notify

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"blinkbreak/internal/core/events"
	"blinkbreak/internal/core/model"
)

func TestMessage(t *testing.T) {
	tests := []struct {
		event events.Event
		title string
		ok    bool
	}{
		{event: events.Event{Kind: events.KindWorkComplete}, title: "Time to rest your eyes", ok: true},
		{event: events.Event{Kind: events.KindBreakComplete}, title: "Back to work", ok: true},
		{event: events.Event{Kind: events.KindActivityComplete}, title: "Nice job", ok: true},
		{event: events.Event{Kind: events.KindWorkStart}},
		{event: events.Event{Kind: events.KindBreakStart}},
	}
	for _, tt := range tests {
		t.Run(string(tt.event.Kind), func(t *testing.T) {
			message, ok := Message(tt.event)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.title, message.Title)
		})
	}

	message, _ := Message(events.Event{
		Kind:     events.KindActivityComplete,
		Metadata: map[string]string{events.MetaActivity: string(model.ActivityBlink)},
	})
	assert.Equal(t, "Finished: Slow blinks", message.Body)
}

type call struct {
	name string
	args []string
}

func recordingRunner(calls *[]call, err error) Runner {
	return func(_ context.Context, name string, args ...string) error {
		*calls = append(*calls, call{name: name, args: args})
		return err
	}
}

func TestDesktopSinkCommands(t *testing.T) {
	notification := Notification{Title: "Back to work", Body: `Say "hi"`}

	var calls []call
	require.NoError(t, DesktopSink{Run: recordingRunner(&calls, nil), GOOS: "linux"}.Notify(context.Background(), notification))
	require.NoError(t, DesktopSink{Run: recordingRunner(&calls, nil), GOOS: "darwin"}.Notify(context.Background(), notification))

	require.Len(t, calls, 2)
	assert.Equal(t, "notify-send", calls[0].name)
	assert.Equal(t, []string{"--app-name=blinkbreak", "Back to work", `Say "hi"`}, calls[0].args)
	assert.Equal(t, "osascript", calls[1].name)
	assert.Equal(t, []string{"-e", `display notification "Say \"hi\"" with title "Back to work"`}, calls[1].args)

	err := DesktopSink{Run: recordingRunner(&calls, nil), GOOS: "plan9"}.Notify(context.Background(), notification)
	assert.ErrorIs(t, err, ErrUnsupported)
}

func TestBellSink(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, NewBellSink(&out).Notify(context.Background(), Notification{Title: "Nice job", Body: "Finished"}))
	assert.Equal(t, "\aNice job: Finished\n", out.String())
}

func TestNotifierDeliversToEverySink(t *testing.T) {
	var out bytes.Buffer
	var seen []Notification
	notifier := NewNotifier(nil,
		NewBellSink(&out),
		SinkFunc(func(_ context.Context, notification Notification) error {
			seen = append(seen, notification)
			return nil
		}),
	)
	bus := events.NewBus()
	detach := notifier.Attach(bus)

	report := bus.PublishAll([]events.Event{
		{Kind: events.KindWorkStart},
		{Kind: events.KindWorkComplete},
		{Kind: events.KindBreakStart},
		{Kind: events.KindBreakComplete},
	})
	detach()

	require.NoError(t, report.Err())
	require.Len(t, seen, 2)
	assert.Equal(t, events.KindWorkComplete, seen[0].Kind)
	assert.Contains(t, out.String(), "Back to work")
}

func TestNotifierSkipsUnsupportedSinkAfterFirstFailure(t *testing.T) {
	attempts := 0
	notifier := NewNotifier(nil, SinkFunc(func(context.Context, Notification) error {
		attempts++
		return ErrUnsupported
	}))

	require.NoError(t, notifier.Handle(events.Event{Kind: events.KindWorkComplete}))
	require.NoError(t, notifier.Handle(events.Event{Kind: events.KindBreakComplete}))

	assert.Equal(t, 1, attempts)
}

func TestNotifierReturnsSinkErrors(t *testing.T) {
	notifier := NewNotifier(nil, SinkFunc(func(context.Context, Notification) error {
		return errors.New("dbus unavailable")
	}))

	err := notifier.Handle(events.Event{Kind: events.KindWorkComplete})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "dbus unavailable")
}

func TestNotifierDisabled(t *testing.T) {
	delivered := false
	notifier := NewNotifier(nil, SinkFunc(func(context.Context, Notification) error {
		delivered = true
		return nil
	}))
	notifier.SetEnabled(false)

	require.NoError(t, notifier.Handle(events.Event{Kind: events.KindWorkComplete}))
	assert.False(t, delivered)
}

func TestNotifierDoesNotBlockDelivery(t *testing.T) {
	release := make(chan struct{})
	delivered := make(chan Notification, 4)
	notifier := NewNotifier(nil, SinkFunc(func(_ context.Context, notification Notification) error {
		<-release
		delivered <- notification
		return nil
	}))
	bus := events.NewBus()
	detach := notifier.Attach(bus)

	published := make(chan struct{})
	go func() {
		bus.Publish(events.Event{Kind: events.KindWorkComplete})
		bus.Publish(events.Event{Kind: events.KindBreakComplete})
		close(published)
	}()

	select {
	case <-published:
	case <-time.After(time.Second):
		t.Fatal("publish waited for a blocked sink")
	}
	assert.Empty(t, delivered)

	close(release)
	detach()
	require.Len(t, delivered, 2)
	assert.Equal(t, "Time to rest your eyes", (<-delivered).Title)
	assert.Equal(t, "Back to work", (<-delivered).Title)
}

func TestNotifierLogsSinkErrors(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	notifier := NewNotifier(zap.New(core), SinkFunc(func(context.Context, Notification) error {
		return errors.New("dbus unavailable")
	}))
	bus := events.NewBus()
	detach := notifier.Attach(bus)

	report := bus.Publish(events.Event{Kind: events.KindWorkComplete})
	detach()

	assert.NoError(t, report.Err())
	assert.Equal(t, 1, logs.FilterMessage("notification failed").Len())
}
