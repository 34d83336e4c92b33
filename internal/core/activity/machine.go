// Package activity holds the break-time micro-activity: the selection
// policy and the life-cycle state machine of a single activity instance.
package activity

import (
	"time"

	"blinkbreak/internal/core/clock"
	"blinkbreak/internal/core/model"
)

// State is the life-cycle state of an activity instance.
type State string

const (
	StateIdle       State = "idle"
	StateLaunching  State = "launching"
	StateRunning    State = "running"
	StatePaused     State = "paused"
	StateCompleting State = "completing"
	StateCompleted  State = "completed"
)

// Scheduler runs task once after delay.
type Scheduler func(delay time.Duration, task func())

// ClockScheduler schedules directly on source.
func ClockScheduler(source clock.Clock) Scheduler {
	return func(delay time.Duration, task func()) {
		source.AfterFunc(delay, task)
	}
}

// Snapshot is a read-only view of a Machine.
type Snapshot struct {
	Selected  model.ActivityKind
	State     State
	StartedAt time.Time
	// Run identifies the launch that produced the current instance.
	Run uint64
}

// Machine is the activity life cycle:
//
//	Idle -launch-> Launching -delay-> Running <-pause/resume-> Paused
//	Running -complete-> Completing -delay-> Completed
//	any -reset-> Idle
//
// Delayed transitions are tagged with the generation they were scheduled
// under; Launch and Reset bump the generation so stale tasks discard
// themselves. A Machine is not safe for concurrent use.
type Machine struct {
	clock    clock.Clock
	schedule Scheduler
	timing   model.ActivityTiming

	selected   model.ActivityKind
	state      State
	startedAt  time.Time
	generation uint64
	run        uint64
}

// NewMachine creates an idle Machine.
func NewMachine(source clock.Clock, schedule Scheduler, timing model.ActivityTiming) *Machine {
	if schedule == nil {
		schedule = ClockScheduler(source)
	}
	return &Machine{
		clock:    source,
		schedule: schedule,
		timing:   timing,
		state:    StateIdle,
	}
}

// SetTiming changes the delays used by future transitions.
func (machine *Machine) SetTiming(timing model.ActivityTiming) {
	machine.timing = timing
}

// Launch starts kind. Valid only from idle.
func (machine *Machine) Launch(kind model.ActivityKind) bool {
	if machine.state != StateIdle || kind == "" {
		return false
	}
	machine.generation++
	machine.run++
	machine.selected = kind
	machine.state = StateLaunching
	machine.startedAt = machine.clock.Now()
	machine.after(machine.timing.LaunchDelay, StateLaunching, StateRunning)
	return true
}

// Pause freezes a running activity.
func (machine *Machine) Pause() bool {
	if machine.state != StateRunning {
		return false
	}
	machine.state = StatePaused
	return true
}

// Resume continues a paused activity.
func (machine *Machine) Resume() bool {
	if machine.state != StatePaused {
		return false
	}
	machine.state = StateRunning
	return true
}

// Complete is the completion signal of a running activity.
func (machine *Machine) Complete() bool {
	if machine.state != StateRunning {
		return false
	}
	machine.state = StateCompleting
	machine.after(machine.timing.CompletionDelay, StateCompleting, StateCompleted)
	return true
}

// Reset returns to idle from any state and cancels pending delayed
// transitions. It reports whether the machine was not already idle.
func (machine *Machine) Reset() bool {
	machine.generation++
	if machine.state == StateIdle {
		return false
	}
	machine.state = StateIdle
	machine.selected = ""
	machine.startedAt = time.Time{}
	return true
}

// State returns the current state.
func (machine *Machine) State() State {
	return machine.state
}

// Selected returns the running kind, or "" when idle.
func (machine *Machine) Selected() model.ActivityKind {
	return machine.selected
}

// Run returns the identifier of the most recent launch.
func (machine *Machine) Run() uint64 {
	return machine.run
}

// Snapshot returns a copy of the observable state.
func (machine *Machine) Snapshot() Snapshot {
	return Snapshot{
		Selected:  machine.selected,
		State:     machine.state,
		StartedAt: machine.startedAt,
		Run:       machine.run,
	}
}

func (machine *Machine) after(delay time.Duration, from, to State) {
	generation := machine.generation
	machine.schedule(delay, func() {
		if machine.generation != generation || machine.state != from {
			return
		}
		machine.state = to
	})
}
