package timekeeper

import (
	"time"

	"github.com/google/uuid"

	"blinkbreak/internal/core/clock"
	"blinkbreak/internal/core/events"
	"blinkbreak/internal/core/model"
)

// Mode represents the current TimeKeeper mode.
type Mode string

const (
	ModeIdle          Mode = "idle"
	ModeWorking       Mode = "working"
	ModeBreakReminder Mode = "break_reminder"
	ModePaused        Mode = "paused"
)

// Option configures a TimeKeeper.
type Option func(*TimeKeeper)

// WithSessionIDs replaces the uuid session identifier source.
func WithSessionIDs(next func() string) Option {
	return func(keeper *TimeKeeper) {
		if next != nil {
			keeper.nextSessionID = next
		}
	}
}

// TimeKeeper is the phase clock: a drift-compensated state machine moving
// through idle, work and break, with a pause state cutting across phases.
//
// A TimeKeeper is not safe for concurrent use; its owner serialises calls.
type TimeKeeper struct {
	clock   clock.Clock
	emitter events.Emitter
	config  model.CycleConfig

	mode         Mode
	phase        model.Phase
	elapsed      time.Duration
	reference    time.Time
	anchored     bool
	sessionCount int
	sessionID    string

	nextSessionID func() string
}

// New creates an idle TimeKeeper that announces transitions to emitter.
func New(source clock.Clock, config model.CycleConfig, emitter events.Emitter, options ...Option) *TimeKeeper {
	if emitter == nil {
		emitter = events.EmitterFunc(func(events.Event) {})
	}
	keeper := &TimeKeeper{
		clock:         source,
		emitter:       emitter,
		config:        config,
		mode:          ModeIdle,
		nextSessionID: uuid.NewString,
	}
	for _, option := range options {
		option(keeper)
	}
	return keeper
}

// UpdateConfig swaps the phase durations. The running phase is measured
// against the new target from the next tick on.
func (keeper *TimeKeeper) UpdateConfig(config model.CycleConfig) {
	keeper.config = config
}

// Start begins a work phase. Valid only from idle.
func (keeper *TimeKeeper) Start() bool {
	if keeper.mode != ModeIdle {
		return false
	}
	keeper.sessionID = keeper.nextSessionID()
	keeper.enter(ModeWorking, model.PhaseWork)
	keeper.emit(events.KindWorkStart, keeper.config.WorkDuration)
	return true
}

// Pause freezes elapsed time. Valid from working or break reminder. No
// event is emitted.
func (keeper *TimeKeeper) Pause() bool {
	if keeper.mode != ModeWorking && keeper.mode != ModeBreakReminder {
		return false
	}
	keeper.mode = ModePaused
	keeper.anchored = false
	keeper.reference = time.Time{}
	return true
}

// Resume re-anchors the clock without touching elapsed time and restores
// the mode of the paused phase. Valid only from paused.
func (keeper *TimeKeeper) Resume() bool {
	if keeper.mode != ModePaused {
		return false
	}
	keeper.mode = modeForPhase(keeper.phase)
	keeper.anchor()
	return true
}

// Reset returns to idle from any state without counting a session. It
// reports whether anything changed.
func (keeper *TimeKeeper) Reset() bool {
	if keeper.mode == ModeIdle && keeper.elapsed == 0 && !keeper.anchored {
		return false
	}
	keeper.mode = ModeIdle
	keeper.phase = model.PhaseNone
	keeper.elapsed = 0
	keeper.anchored = false
	keeper.reference = time.Time{}
	return true
}

// Rewind restarts the current work phase from zero. Valid only while
// working; emits nothing.
func (keeper *TimeKeeper) Rewind() bool {
	if keeper.mode != ModeWorking {
		return false
	}
	keeper.elapsed = 0
	keeper.anchor()
	return true
}

// SkipBreak ends the current break as if its duration had elapsed.
func (keeper *TimeKeeper) SkipBreak() bool {
	if keeper.mode != ModeBreakReminder {
		return false
	}
	keeper.finishBreak()
	return true
}

// Tick advances elapsed time by the real interval since the last anchor and
// performs at most one phase transition.
func (keeper *TimeKeeper) Tick() {
	if keeper.mode != ModeWorking && keeper.mode != ModeBreakReminder {
		return
	}
	now := keeper.clock.Now()
	if keeper.anchored {
		if delta := now.Sub(keeper.reference); delta > 0 {
			keeper.elapsed += delta
		}
	}
	keeper.reference = now
	keeper.anchored = true

	if keeper.elapsed < keeper.target(keeper.phase) {
		return
	}
	switch keeper.phase {
	case model.PhaseWork:
		worked := keeper.elapsed
		keeper.emit(events.KindWorkComplete, worked)
		keeper.enter(ModeBreakReminder, model.PhaseBreak)
		keeper.emit(events.KindBreakStart, keeper.config.BreakDuration)
	case model.PhaseBreak:
		keeper.finishBreak()
	}
}

// Mode returns the current mode.
func (keeper *TimeKeeper) Mode() Mode {
	return keeper.mode
}

// Phase returns the active phase; it survives a pause.
func (keeper *TimeKeeper) Phase() model.Phase {
	return keeper.phase
}

// Elapsed returns the time consumed in the current phase.
func (keeper *TimeKeeper) Elapsed() time.Duration {
	return keeper.elapsed
}

// SessionCount returns the number of completed work/break cycles.
func (keeper *TimeKeeper) SessionCount() int {
	return keeper.sessionCount
}

// SessionID returns the identifier of the current or most recent session.
func (keeper *TimeKeeper) SessionID() string {
	return keeper.sessionID
}

// RemainingSeconds returns the time left in the current phase, or 0 when idle.
func (keeper *TimeKeeper) RemainingSeconds() float64 {
	if keeper.phase == model.PhaseNone {
		return 0
	}
	remaining := keeper.target(keeper.phase) - keeper.elapsed
	if remaining < 0 {
		return 0
	}
	return remaining.Seconds()
}

// ProgressFraction returns elapsed/target clamped to [0, 1].
func (keeper *TimeKeeper) ProgressFraction() float64 {
	total := keeper.target(keeper.phase)
	if keeper.phase == model.PhaseNone || total <= 0 {
		return 0
	}
	progress := float64(keeper.elapsed) / float64(total)
	if progress < 0 {
		return 0
	}
	if progress > 1 {
		return 1
	}
	return progress
}

func (keeper *TimeKeeper) finishBreak() {
	rested := keeper.elapsed
	keeper.sessionCount++
	keeper.emit(events.KindBreakComplete, rested)
	keeper.mode = ModeIdle
	keeper.phase = model.PhaseNone
	keeper.elapsed = 0
	keeper.anchored = false
	keeper.reference = time.Time{}
}

func (keeper *TimeKeeper) enter(mode Mode, phase model.Phase) {
	keeper.mode = mode
	keeper.phase = phase
	keeper.elapsed = 0
	keeper.anchor()
}

func (keeper *TimeKeeper) anchor() {
	keeper.reference = keeper.clock.Now()
	keeper.anchored = true
}

func (keeper *TimeKeeper) target(phase model.Phase) time.Duration {
	switch phase {
	case model.PhaseWork:
		return keeper.config.WorkDuration
	case model.PhaseBreak:
		return keeper.config.BreakDuration
	}
	return 0
}

func (keeper *TimeKeeper) emit(kind events.Kind, duration time.Duration) {
	phase := model.PhaseWork
	if kind == events.KindBreakStart || kind == events.KindBreakComplete {
		phase = model.PhaseBreak
	}
	keeper.emitter.Emit(events.Event{
		Kind:            kind,
		Timestamp:       keeper.clock.Now(),
		DurationSeconds: duration.Seconds(),
		SessionID:       keeper.sessionID,
		Phase:           phase,
	})
}

func modeForPhase(phase model.Phase) Mode {
	switch phase {
	case model.PhaseWork:
		return ModeWorking
	case model.PhaseBreak:
		return ModeBreakReminder
	}
	return ModeIdle
}
