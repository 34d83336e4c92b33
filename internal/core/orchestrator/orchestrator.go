// Package orchestrator binds the phase clock to the break activity. It is
// the only mutator of both, serialises every stimulus (commands, ticks and
// deferred transitions) and publishes the resulting events in transition
// order once state has committed.
package orchestrator

import (
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"go.uber.org/zap"

	"blinkbreak/internal/core/activity"
	"blinkbreak/internal/core/clock"
	"blinkbreak/internal/core/events"
	"blinkbreak/internal/core/model"
	"blinkbreak/internal/core/timekeeper"
)

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithClock replaces the wall clock.
func WithClock(source clock.Clock) Option {
	return func(orchestrator *Orchestrator) {
		if source != nil {
			orchestrator.clock = source
		}
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *zap.Logger) Option {
	return func(orchestrator *Orchestrator) {
		if logger != nil {
			orchestrator.logger = logger
		}
	}
}

// WithRand seeds activity selection.
func WithRand(rng *rand.Rand) Option {
	return func(orchestrator *Orchestrator) {
		orchestrator.rng = rng
	}
}

// WithSessionIDs replaces the session identifier source.
func WithSessionIDs(next func() string) Option {
	return func(orchestrator *Orchestrator) {
		orchestrator.sessionIDs = next
	}
}

// WithIdleChecker enables rewinding the work phase after user inactivity.
func WithIdleChecker(checker IdleChecker) Option {
	return func(orchestrator *Orchestrator) {
		orchestrator.idleChecker = checker
	}
}

// Status is a presentation snapshot of the whole cycle.
type Status struct {
	Mode             timekeeper.Mode
	Phase            model.Phase
	RemainingSeconds float64
	Progress         float64
	SessionCount     int
	SessionID        string
	Activity         activity.Snapshot
	WindowOpen       bool
	WindowDeadline   time.Time
}

// Orchestrator owns a TimeKeeper, an activity Machine and a Selector.
type Orchestrator struct {
	mu     sync.Mutex
	clock  clock.Clock
	bus    *events.Bus
	logger *zap.Logger
	config model.CycleConfig

	rng        *rand.Rand
	sessionIDs func() string

	keeper   *timekeeper.TimeKeeper
	machine  *activity.Machine
	selector *activity.Selector
	outbox   events.Outbox

	// generation invalidates the orchestrator's own deferred tasks.
	generation    uint64
	inBreak       bool
	pausedByClock bool
	recordedRun   uint64

	idleChecker   IdleChecker
	idleDisabled  bool
	idleProbing   bool
	lastIdleCheck time.Time

	queue      []events.Event
	delivering bool
}

// New creates an idle Orchestrator publishing to bus.
func New(config model.CycleConfig, bus *events.Bus, options ...Option) (*Orchestrator, error) {
	config = config.WithDefaults()
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("new orchestrator: %w", err)
	}
	if bus == nil {
		bus = events.NewBus()
	}

	orchestrator := &Orchestrator{
		clock:  clock.Real{},
		bus:    bus,
		logger: zap.NewNop(),
		config: config,
	}
	for _, option := range options {
		option(orchestrator)
	}

	var keeperOptions []timekeeper.Option
	if orchestrator.sessionIDs != nil {
		keeperOptions = append(keeperOptions, timekeeper.WithSessionIDs(orchestrator.sessionIDs))
	}
	orchestrator.keeper = timekeeper.New(orchestrator.clock, config, &orchestrator.outbox, keeperOptions...)
	orchestrator.machine = activity.NewMachine(orchestrator.clock, orchestrator.schedule, config.Activity)
	var selectorOptions []activity.SelectorOption
	if orchestrator.rng != nil {
		selectorOptions = append(selectorOptions, activity.WithRand(orchestrator.rng))
	}
	orchestrator.selector = activity.NewSelector(config.ActivityHistoryDepth, config.PreferredActivity, selectorOptions...)

	return orchestrator, nil
}

// Bus returns the bus events are published on.
func (orchestrator *Orchestrator) Bus() *events.Bus {
	return orchestrator.bus
}

// Start begins a work phase. Ignored unless idle.
func (orchestrator *Orchestrator) Start() bool {
	return orchestrator.command("start", orchestrator.keeper.Start)
}

// Pause freezes the clock and a running activity. Ignored unless working
// or in a break.
func (orchestrator *Orchestrator) Pause() bool {
	return orchestrator.command("pause", orchestrator.keeper.Pause)
}

// Resume continues the clock and any activity it paused.
func (orchestrator *Orchestrator) Resume() bool {
	return orchestrator.command("resume", orchestrator.keeper.Resume)
}

// Reset abandons the cycle from any state and cancels every pending
// deferred transition.
func (orchestrator *Orchestrator) Reset() bool {
	return orchestrator.command("reset", func() bool {
		clockChanged := orchestrator.keeper.Reset()
		activityChanged := orchestrator.machine.Reset()
		orchestrator.selector.CloseWindow()
		orchestrator.generation++
		orchestrator.inBreak = false
		orchestrator.pausedByClock = false
		return clockChanged || activityChanged
	})
}

// SkipBreak ends the current break early. The activity is abandoned
// without being recorded.
func (orchestrator *Orchestrator) SkipBreak() bool {
	return orchestrator.command("skip_break", orchestrator.keeper.SkipBreak)
}

// ManualSelect replaces the automatic pick with kind. It is honoured once,
// only while the selection window is open and the break is not paused.
func (orchestrator *Orchestrator) ManualSelect(kind model.ActivityKind) bool {
	return orchestrator.command("manual_select", func() bool {
		if !kind.Valid() || orchestrator.keeper.Mode() != timekeeper.ModeBreakReminder {
			return false
		}
		switch orchestrator.machine.State() {
		case activity.StateLaunching, activity.StateRunning:
		default:
			return false
		}
		if !orchestrator.selector.Override(orchestrator.clock.Now()) {
			return false
		}
		if orchestrator.machine.Selected() == kind {
			return true
		}
		orchestrator.machine.Reset()
		return orchestrator.machine.Launch(kind)
	})
}

// SignalActivityCompletion reports that the running activity met its
// completion condition.
func (orchestrator *Orchestrator) SignalActivityCompletion() bool {
	return orchestrator.command("complete_activity", orchestrator.machine.Complete)
}

// SignalRunCompletion is SignalActivityCompletion restricted to the launch
// identified by run, so a late signal from an abandoned run is ignored.
func (orchestrator *Orchestrator) SignalRunCompletion(run uint64) bool {
	return orchestrator.command("complete_activity", func() bool {
		if orchestrator.machine.Run() != run {
			return false
		}
		return orchestrator.machine.Complete()
	})
}

// Tick advances the clock. Hosts call it on a roughly regular cadence.
// When an idle check is due it runs on the calling goroutine after the
// tick, without holding the lock.
func (orchestrator *Orchestrator) Tick() {
	var probe bool
	orchestrator.stimulate(func() bool {
		probe = orchestrator.idleCheckDueLocked()
		orchestrator.keeper.Tick()
		return true
	})
	if probe {
		orchestrator.checkIdle()
	}
}

// UpdateConfig validates and applies config to the running cycle.
func (orchestrator *Orchestrator) UpdateConfig(config model.CycleConfig) error {
	config = config.WithDefaults()
	if err := config.Validate(); err != nil {
		return fmt.Errorf("update config: %w", err)
	}
	orchestrator.stimulate(func() bool {
		orchestrator.config = config
		orchestrator.keeper.UpdateConfig(config)
		orchestrator.machine.SetTiming(config.Activity)
		orchestrator.selector.Configure(config.ActivityHistoryDepth, config.PreferredActivity)
		return true
	})
	return nil
}

// Config returns the active configuration.
func (orchestrator *Orchestrator) Config() model.CycleConfig {
	orchestrator.mu.Lock()
	defer orchestrator.mu.Unlock()
	return orchestrator.config
}

// RemainingSeconds returns the time left in the current phase.
func (orchestrator *Orchestrator) RemainingSeconds() float64 {
	orchestrator.mu.Lock()
	defer orchestrator.mu.Unlock()
	return orchestrator.keeper.RemainingSeconds()
}

// ProgressFraction returns the completed share of the current phase.
func (orchestrator *Orchestrator) ProgressFraction() float64 {
	orchestrator.mu.Lock()
	defer orchestrator.mu.Unlock()
	return orchestrator.keeper.ProgressFraction()
}

// SessionCount returns the number of completed cycles.
func (orchestrator *Orchestrator) SessionCount() int {
	orchestrator.mu.Lock()
	defer orchestrator.mu.Unlock()
	return orchestrator.keeper.SessionCount()
}

// Mode returns the clock mode.
func (orchestrator *Orchestrator) Mode() timekeeper.Mode {
	orchestrator.mu.Lock()
	defer orchestrator.mu.Unlock()
	return orchestrator.keeper.Mode()
}

// ActivityState returns the activity snapshot.
func (orchestrator *Orchestrator) ActivityState() activity.Snapshot {
	orchestrator.mu.Lock()
	defer orchestrator.mu.Unlock()
	return orchestrator.machine.Snapshot()
}

// History returns recorded activity completions, oldest first.
func (orchestrator *Orchestrator) History() []model.ActivityKind {
	orchestrator.mu.Lock()
	defer orchestrator.mu.Unlock()
	return orchestrator.selector.History()
}

// Status returns every query in one consistent snapshot.
func (orchestrator *Orchestrator) Status() Status {
	orchestrator.mu.Lock()
	defer orchestrator.mu.Unlock()
	now := orchestrator.clock.Now()
	deadline, _ := orchestrator.selector.Deadline()
	return Status{
		Mode:             orchestrator.keeper.Mode(),
		Phase:            orchestrator.keeper.Phase(),
		RemainingSeconds: orchestrator.keeper.RemainingSeconds(),
		Progress:         orchestrator.keeper.ProgressFraction(),
		SessionCount:     orchestrator.keeper.SessionCount(),
		SessionID:        orchestrator.keeper.SessionID(),
		Activity:         orchestrator.machine.Snapshot(),
		WindowOpen:       orchestrator.selector.WindowOpen(now),
		WindowDeadline:   deadline,
	}
}

func (orchestrator *Orchestrator) command(name string, apply func() bool) bool {
	changed := orchestrator.stimulate(apply)
	if !changed {
		orchestrator.logger.Debug("command ignored", zap.String("command", name))
	}
	return changed
}
