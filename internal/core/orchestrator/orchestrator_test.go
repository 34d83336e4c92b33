package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"blinkbreak/internal/core/activity"
	"blinkbreak/internal/core/clock"
	"blinkbreak/internal/core/events"
	"blinkbreak/internal/core/model"
	"blinkbreak/internal/core/timekeeper"
)

const step = 100 * time.Millisecond

type harness struct {
	clock *clock.Fake
	bus   *events.Bus
	orch  *Orchestrator

	mu       sync.Mutex
	received []events.Event
}

func testConfig() model.CycleConfig {
	config := model.DefaultCycleConfig()
	config.WorkDuration = 2 * time.Second
	config.BreakDuration = 10 * time.Second
	config.ManualSelectionWindow = 3 * time.Second
	config.Idle.Enabled = false
	return config
}

func newHarness(t *testing.T, config model.CycleConfig, options ...Option) *harness {
	t.Helper()
	h := &harness{
		clock: clock.NewFake(time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)),
		bus:   events.NewBus(),
	}
	sequence := 0
	options = append([]Option{
		WithClock(h.clock),
		WithRand(rand.New(rand.NewPCG(3, 5))),
		WithSessionIDs(func() string {
			sequence++
			return fmt.Sprintf("session-%d", sequence)
		}),
	}, options...)

	orch, err := New(config, h.bus, options...)
	require.NoError(t, err)
	h.orch = orch
	h.bus.Subscribe("recorder", func(event events.Event) error {
		h.mu.Lock()
		defer h.mu.Unlock()
		h.received = append(h.received, event)
		return nil
	})
	return h
}

func (h *harness) run(duration time.Duration) {
	for elapsed := time.Duration(0); elapsed < duration; elapsed += step {
		h.clock.Advance(step)
		h.orch.Tick()
	}
}

func (h *harness) kinds() []events.Kind {
	h.mu.Lock()
	defer h.mu.Unlock()
	result := make([]events.Kind, 0, len(h.received))
	for _, event := range h.received {
		result = append(result, event.Kind)
	}
	return result
}

func (h *harness) lastEvent() events.Event {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.received[len(h.received)-1]
}

func (h *harness) enterBreak(t *testing.T) activity.Snapshot {
	t.Helper()
	require.True(t, h.orch.Start())
	h.run(2 * time.Second)
	require.Equal(t, timekeeper.ModeBreakReminder, h.orch.Mode())
	return h.orch.ActivityState()
}

func otherKind(kind model.ActivityKind) model.ActivityKind {
	for _, candidate := range model.ActivityKinds() {
		if candidate != kind {
			return candidate
		}
	}
	return kind
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	config := testConfig()
	config.WorkDuration = 0

	_, err := New(config, nil)

	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrInvalidConfig)
}

func TestBreakLaunchesActivityExactlyOnce(t *testing.T) {
	h := newHarness(t, testConfig())

	snapshot := h.enterBreak(t)
	assert.Equal(t, activity.StateLaunching, snapshot.State)
	assert.True(t, snapshot.Selected.Valid())
	assert.True(t, h.orch.Status().WindowOpen)

	h.run(time.Second)

	snapshot = h.orch.ActivityState()
	assert.Equal(t, activity.StateRunning, snapshot.State)
	assert.Equal(t, uint64(1), snapshot.Run)
	assert.Equal(t, []events.Kind{events.KindWorkStart, events.KindWorkComplete, events.KindBreakStart}, h.kinds())
}

func TestManualSelectionOverridesAutomaticPick(t *testing.T) {
	h := newHarness(t, testConfig())
	automatic := h.enterBreak(t).Selected
	manual := otherKind(automatic)

	h.run(time.Second)
	require.True(t, h.orch.ManualSelect(manual))

	snapshot := h.orch.ActivityState()
	assert.Equal(t, manual, snapshot.Selected)
	assert.Equal(t, activity.StateLaunching, snapshot.State)
	assert.Equal(t, uint64(2), snapshot.Run)

	assert.False(t, h.orch.ManualSelect(automatic), "only one override per break")
	h.run(time.Second)
	assert.Equal(t, manual, h.orch.ActivityState().Selected)
	assert.Equal(t, activity.StateRunning, h.orch.ActivityState().State)
}

func TestManualSelectionOfSameKindKeepsRun(t *testing.T) {
	h := newHarness(t, testConfig())
	automatic := h.enterBreak(t).Selected
	h.run(500 * time.Millisecond)

	require.True(t, h.orch.ManualSelect(automatic))

	snapshot := h.orch.ActivityState()
	assert.Equal(t, uint64(1), snapshot.Run)
	assert.Equal(t, activity.StateRunning, snapshot.State)
	assert.False(t, h.orch.ManualSelect(otherKind(automatic)))
}

func TestManualSelectionIgnoredOutsideWindow(t *testing.T) {
	h := newHarness(t, testConfig())
	assert.False(t, h.orch.ManualSelect(model.ActivityBlink), "no break yet")

	automatic := h.enterBreak(t).Selected
	h.run(3 * time.Second)

	assert.False(t, h.orch.Status().WindowOpen)
	assert.False(t, h.orch.ManualSelect(otherKind(automatic)))
	assert.Equal(t, automatic, h.orch.ActivityState().Selected)
	assert.False(t, h.orch.ManualSelect("cartwheel"))
}

func TestManualSelectionIgnoredWhilePaused(t *testing.T) {
	h := newHarness(t, testConfig())
	automatic := h.enterBreak(t).Selected
	h.run(500 * time.Millisecond)
	require.True(t, h.orch.Pause())

	assert.False(t, h.orch.ManualSelect(otherKind(automatic)))

	require.True(t, h.orch.Resume())
	assert.True(t, h.orch.ManualSelect(otherKind(automatic)))
}

func TestResetCancelsDeferredTransitions(t *testing.T) {
	h := newHarness(t, testConfig())
	h.enterBreak(t)
	before := len(h.kinds())

	require.True(t, h.orch.Reset())
	h.run(5 * time.Second)

	assert.Equal(t, timekeeper.ModeIdle, h.orch.Mode())
	assert.Equal(t, activity.StateIdle, h.orch.ActivityState().State)
	assert.False(t, h.orch.Status().WindowOpen)
	assert.Len(t, h.kinds(), before)
	assert.Zero(t, h.orch.SessionCount())
	assert.False(t, h.orch.Reset())
}

func TestResetDuringCompletionCancelsIt(t *testing.T) {
	h := newHarness(t, testConfig())
	h.enterBreak(t)
	h.run(300 * time.Millisecond)
	require.True(t, h.orch.SignalActivityCompletion())

	h.orch.Reset()
	h.run(time.Second)

	assert.Equal(t, activity.StateIdle, h.orch.ActivityState().State)
	assert.Empty(t, h.orch.History())
	assert.NotContains(t, h.kinds(), events.KindActivityComplete)
}

func TestPauseSynchronisesActivity(t *testing.T) {
	h := newHarness(t, testConfig())
	h.enterBreak(t)
	h.run(300 * time.Millisecond)
	require.Equal(t, activity.StateRunning, h.orch.ActivityState().State)

	require.True(t, h.orch.Pause())
	assert.Equal(t, activity.StatePaused, h.orch.ActivityState().State)
	remaining := h.orch.RemainingSeconds()

	h.run(5 * time.Second)
	assert.Equal(t, timekeeper.ModePaused, h.orch.Mode())
	assert.InDelta(t, remaining, h.orch.RemainingSeconds(), 1e-9)
	assert.False(t, h.orch.SignalActivityCompletion())

	require.True(t, h.orch.Resume())
	assert.Equal(t, activity.StateRunning, h.orch.ActivityState().State)
}

func TestPauseDuringLaunchPausesOnceRunning(t *testing.T) {
	h := newHarness(t, testConfig())
	h.enterBreak(t)

	require.True(t, h.orch.Pause())
	h.clock.Advance(time.Second)

	assert.Equal(t, activity.StatePaused, h.orch.ActivityState().State)
	require.True(t, h.orch.Resume())
	assert.Equal(t, activity.StateRunning, h.orch.ActivityState().State)
}

func TestBreakTimeoutAbandonsActivityWithoutRecording(t *testing.T) {
	h := newHarness(t, testConfig())
	h.enterBreak(t)

	h.run(10 * time.Second)

	assert.Equal(t, timekeeper.ModeIdle, h.orch.Mode())
	assert.Equal(t, activity.StateIdle, h.orch.ActivityState().State)
	assert.Empty(t, h.orch.History())
	assert.Equal(t, 1, h.orch.SessionCount())
	assert.Equal(t, []events.Kind{
		events.KindWorkStart,
		events.KindWorkComplete,
		events.KindBreakStart,
		events.KindBreakComplete,
	}, h.kinds())
}

func TestSkipBreakAbandonsActivity(t *testing.T) {
	h := newHarness(t, testConfig())
	h.enterBreak(t)
	h.run(300 * time.Millisecond)

	require.True(t, h.orch.SkipBreak())

	assert.Equal(t, timekeeper.ModeIdle, h.orch.Mode())
	assert.Equal(t, activity.StateIdle, h.orch.ActivityState().State)
	assert.Empty(t, h.orch.History())
	assert.Equal(t, events.KindBreakComplete, h.lastEvent().Kind)
	assert.False(t, h.orch.SkipBreak())
}

func TestCompletionIsRecordedThenResetAfterGrace(t *testing.T) {
	h := newHarness(t, testConfig())
	selected := h.enterBreak(t).Selected
	h.run(300 * time.Millisecond)

	require.True(t, h.orch.SignalActivityCompletion())
	assert.Equal(t, activity.StateCompleting, h.orch.ActivityState().State)
	h.run(600 * time.Millisecond)

	assert.Equal(t, activity.StateCompleted, h.orch.ActivityState().State)
	assert.Equal(t, []model.ActivityKind{selected}, h.orch.History())
	completed := h.lastEvent()
	assert.Equal(t, events.KindActivityComplete, completed.Kind)
	assert.Equal(t, string(selected), completed.Meta(events.MetaActivity))
	assert.Equal(t, "session-1", completed.SessionID)
	assert.Equal(t, model.PhaseBreak, completed.Phase)
	assert.InDelta(t, 0.9, completed.DurationSeconds, 1e-9)

	h.run(1400 * time.Millisecond)
	assert.Equal(t, activity.StateCompleted, h.orch.ActivityState().State)
	h.run(step)
	assert.Equal(t, activity.StateIdle, h.orch.ActivityState().State)

	h.run(10 * time.Second)
	assert.Equal(t, []model.ActivityKind{selected}, h.orch.History())
	assert.Equal(t, 1, countKind(h.kinds(), events.KindActivityComplete))
}

func TestSignalRunCompletionIgnoresStaleRun(t *testing.T) {
	h := newHarness(t, testConfig())
	first := h.enterBreak(t)
	h.run(300 * time.Millisecond)
	require.True(t, h.orch.ManualSelect(otherKind(first.Selected)))
	h.run(300 * time.Millisecond)

	assert.False(t, h.orch.SignalRunCompletion(first.Run))
	assert.True(t, h.orch.SignalRunCompletion(h.orch.ActivityState().Run))
}

func TestSubscriberCanIssueCommands(t *testing.T) {
	h := newHarness(t, testConfig())
	h.bus.Subscribe("restart", func(events.Event) error {
		h.orch.Start()
		return nil
	}, events.KindBreakComplete)

	h.enterBreak(t)
	h.run(10 * time.Second)

	assert.Equal(t, timekeeper.ModeWorking, h.orch.Mode())
	assert.Equal(t, []events.Kind{
		events.KindWorkStart,
		events.KindWorkComplete,
		events.KindBreakStart,
		events.KindBreakComplete,
		events.KindWorkStart,
	}, h.kinds())
	assert.Equal(t, "session-2", h.lastEvent().SessionID)
}

func TestSubscriberCanSelectDuringBreakStart(t *testing.T) {
	h := newHarness(t, testConfig())
	var selected model.ActivityKind
	h.bus.Subscribe("chooser", func(events.Event) error {
		current := h.orch.ActivityState().Selected
		selected = otherKind(current)
		if !h.orch.ManualSelect(selected) {
			return errors.New("selection rejected")
		}
		return nil
	}, events.KindBreakStart)

	h.enterBreak(t)

	assert.Equal(t, selected, h.orch.ActivityState().Selected)
}

func TestFailingSubscribersDoNotStopTheCycle(t *testing.T) {
	var failures int
	bus := events.NewBus(events.WithFailureHook(func(events.DeliveryError) { failures++ }))
	bus.Subscribe("broken", func(events.Event) error { return errors.New("disk full") })
	bus.Subscribe("panicky", func(events.Event) error { panic("boom") })

	fake := clock.NewFake(time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC))
	orch, err := New(testConfig(), bus, WithClock(fake))
	require.NoError(t, err)
	var delivered []events.Kind
	bus.Subscribe("healthy", func(event events.Event) error {
		delivered = append(delivered, event.Kind)
		return nil
	})

	orch.Start()
	for i := 0; i < 130; i++ {
		fake.Advance(step)
		orch.Tick()
	}

	assert.Equal(t, []events.Kind{
		events.KindWorkStart,
		events.KindWorkComplete,
		events.KindBreakStart,
		events.KindBreakComplete,
	}, delivered)
	assert.Equal(t, 8, failures)
	assert.Equal(t, 1, orch.SessionCount())
}

func TestUpdateConfig(t *testing.T) {
	h := newHarness(t, testConfig())
	h.orch.Start()
	h.run(time.Second)

	invalid := testConfig()
	invalid.BreakDuration = -time.Second
	err := h.orch.UpdateConfig(invalid)
	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrInvalidConfig)

	updated := testConfig()
	updated.WorkDuration = 5 * time.Second
	updated.PreferredActivity = model.ActivityLookOutside
	require.NoError(t, h.orch.UpdateConfig(updated))

	assert.InDelta(t, 4.0, h.orch.RemainingSeconds(), 1e-9)
	h.run(4 * time.Second)
	assert.Equal(t, model.ActivityLookOutside, h.orch.ActivityState().Selected)
	assert.Equal(t, updated, h.orch.Config())
}

type fakeIdle struct {
	mu    sync.Mutex
	idle  time.Duration
	err   error
	calls int
}

func (f *fakeIdle) IdleDuration() (time.Duration, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.idle, f.err
}

func (f *fakeIdle) set(idle time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.idle = idle
}

func idleConfig() model.CycleConfig {
	config := testConfig()
	config.WorkDuration = time.Minute
	config.Idle = model.IdleConfig{Enabled: true, ResetAfter: time.Minute, CheckInterval: 5 * time.Second}
	return config
}

func TestInactivityRewindsWorkPhase(t *testing.T) {
	checker := &fakeIdle{}
	h := newHarness(t, idleConfig(), WithIdleChecker(checker))
	h.orch.Start()
	h.run(10 * time.Second)
	assert.InDelta(t, 50.0, h.orch.RemainingSeconds(), 1e-9)

	checker.set(2 * time.Minute)
	h.run(5 * time.Second)

	assert.Greater(t, h.orch.RemainingSeconds(), 55.0)
	assert.Equal(t, timekeeper.ModeWorking, h.orch.Mode())
	assert.Len(t, h.kinds(), 1)
}

func TestIdleChecksAreThrottled(t *testing.T) {
	checker := &fakeIdle{}
	h := newHarness(t, idleConfig(), WithIdleChecker(checker))
	h.orch.Start()

	h.run(20 * time.Second)

	assert.Equal(t, 4, checker.calls)
}

func TestUnsupportedIdleDetectionIsDisabled(t *testing.T) {
	checker := &fakeIdle{err: fmt.Errorf("probe: %w", ErrIdleUnsupported)}
	h := newHarness(t, idleConfig(), WithIdleChecker(checker))
	h.orch.Start()

	h.run(30 * time.Second)

	assert.Equal(t, 1, checker.calls)
	assert.InDelta(t, 30.0, h.orch.RemainingSeconds(), 1e-9)
}

func TestRunTicksUntilCancelled(t *testing.T) {
	config := testConfig()
	config.WorkDuration = time.Hour
	orch, err := New(config, nil)
	require.NoError(t, err)
	orch.Start()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- orch.Run(ctx, 5*time.Millisecond) }()

	require.Eventually(t, func() bool {
		return orch.RemainingSeconds() < 3600
	}, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("Run did not stop")
	}
}

func countKind(kinds []events.Kind, kind events.Kind) int {
	count := 0
	for _, candidate := range kinds {
		if candidate == kind {
			count++
		}
	}
	return count
}

type blockingIdle struct {
	entered chan struct{}
	release chan struct{}
	idle    time.Duration
}

func (b *blockingIdle) IdleDuration() (time.Duration, error) {
	close(b.entered)
	<-b.release
	return b.idle, nil
}

func TestIdleProbeDoesNotHoldTheLock(t *testing.T) {
	checker := &blockingIdle{entered: make(chan struct{}), release: make(chan struct{}), idle: 2 * time.Minute}
	h := newHarness(t, idleConfig(), WithIdleChecker(checker))
	h.orch.Start()

	ticked := make(chan struct{})
	go func() {
		defer close(ticked)
		h.clock.Advance(step)
		h.orch.Tick()
	}()
	<-checker.entered

	answered := make(chan float64, 1)
	go func() { answered <- h.orch.RemainingSeconds() }()
	select {
	case remaining := <-answered:
		assert.InDelta(t, 59.9, remaining, 1e-9)
	case <-time.After(time.Second):
		t.Fatal("query blocked while the idle probe ran")
	}
	assert.Equal(t, timekeeper.ModeWorking, h.orch.Mode())

	close(checker.release)
	<-ticked
	assert.InDelta(t, 60.0, h.orch.RemainingSeconds(), 1e-9)
}

func TestIdleResultIgnoredAfterPause(t *testing.T) {
	checker := &blockingIdle{entered: make(chan struct{}), release: make(chan struct{}), idle: 2 * time.Minute}
	h := newHarness(t, idleConfig(), WithIdleChecker(checker))
	h.orch.Start()

	ticked := make(chan struct{})
	go func() {
		defer close(ticked)
		h.clock.Advance(step)
		h.orch.Tick()
	}()
	<-checker.entered

	require.True(t, h.orch.Pause())
	close(checker.release)
	<-ticked

	assert.Equal(t, timekeeper.ModePaused, h.orch.Mode())
	assert.InDelta(t, 59.9, h.orch.RemainingSeconds(), 1e-9)
}
