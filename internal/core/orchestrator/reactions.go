package orchestrator

import (
	"time"

	"go.uber.org/zap"

	"blinkbreak/internal/core/activity"
	"blinkbreak/internal/core/events"
	"blinkbreak/internal/core/model"
	"blinkbreak/internal/core/timekeeper"
)

// stimulate applies one stimulus under the lock, runs the bound reactions,
// then hands the produced events to the delivery loop.
func (orchestrator *Orchestrator) stimulate(apply func() bool) bool {
	orchestrator.mu.Lock()
	changed := apply()
	orchestrator.reconcileLocked()
	orchestrator.queue = append(orchestrator.queue, orchestrator.outbox.Drain()...)
	orchestrator.mu.Unlock()

	orchestrator.deliver()
	return changed
}

// deliver drains the queue to the bus outside the lock. Only one caller
// delivers at a time; events queued meanwhile, including those caused by
// subscribers calling back into the orchestrator, follow in order.
func (orchestrator *Orchestrator) deliver() {
	orchestrator.mu.Lock()
	if orchestrator.delivering {
		orchestrator.mu.Unlock()
		return
	}
	orchestrator.delivering = true
	for len(orchestrator.queue) > 0 {
		batch := orchestrator.queue
		orchestrator.queue = nil
		orchestrator.mu.Unlock()
		orchestrator.bus.PublishAll(batch)
		orchestrator.mu.Lock()
	}
	orchestrator.delivering = false
	orchestrator.mu.Unlock()
}

// schedule runs task after delay as its own serialised stimulus.
func (orchestrator *Orchestrator) schedule(delay time.Duration, task func()) {
	orchestrator.clock.AfterFunc(delay, func() {
		orchestrator.stimulate(func() bool {
			task()
			return true
		})
	})
}

// reconcileLocked reacts to transition edges. Every reaction is guarded by
// a latch so repeated stimuli in the same state are no-ops.
func (orchestrator *Orchestrator) reconcileLocked() {
	mode := orchestrator.keeper.Mode()

	orchestrator.recordCompletionLocked()

	if mode == timekeeper.ModeBreakReminder && !orchestrator.inBreak {
		orchestrator.inBreak = true
		orchestrator.beginBreakLocked()
	}
	if mode == timekeeper.ModeIdle && orchestrator.inBreak {
		orchestrator.inBreak = false
		orchestrator.endBreakLocked()
	}

	state := orchestrator.machine.State()
	if mode == timekeeper.ModePaused && state == activity.StateRunning {
		orchestrator.machine.Pause()
		orchestrator.pausedByClock = true
	}
	if mode != timekeeper.ModePaused && orchestrator.pausedByClock {
		if state == activity.StatePaused {
			orchestrator.machine.Resume()
		}
		orchestrator.pausedByClock = false
	}
}

func (orchestrator *Orchestrator) beginBreakLocked() {
	orchestrator.generation++
	generation := orchestrator.generation
	window := orchestrator.config.ManualSelectionWindow

	orchestrator.selector.OpenManualWindow(orchestrator.clock.Now(), window)
	kind := orchestrator.selector.PickAutomatic()
	orchestrator.machine.Reset()
	orchestrator.machine.Launch(kind)

	orchestrator.schedule(window, func() {
		if orchestrator.generation == generation {
			orchestrator.selector.CloseWindow()
		}
	})
}

// endBreakLocked runs when a break returns to idle by timeout, skip or
// reset. An activity that has not completed is abandoned and not recorded.
func (orchestrator *Orchestrator) endBreakLocked() {
	orchestrator.generation++
	orchestrator.selector.CloseWindow()
	orchestrator.pausedByClock = false
	if orchestrator.machine.State() == activity.StateCompleted {
		return
	}
	if orchestrator.machine.Reset() {
		orchestrator.logger.Debug("activity abandoned at break end")
	}
}

func (orchestrator *Orchestrator) recordCompletionLocked() {
	if orchestrator.machine.State() != activity.StateCompleted {
		return
	}
	snapshot := orchestrator.machine.Snapshot()
	if orchestrator.recordedRun == snapshot.Run {
		return
	}
	orchestrator.recordedRun = snapshot.Run
	orchestrator.selector.RecordCompletion(snapshot.Selected)

	now := orchestrator.clock.Now()
	orchestrator.outbox.Emit(events.Event{
		Kind:            events.KindActivityComplete,
		Timestamp:       now,
		DurationSeconds: now.Sub(snapshot.StartedAt).Seconds(),
		SessionID:       orchestrator.keeper.SessionID(),
		Phase:           model.PhaseBreak,
		Metadata:        map[string]string{events.MetaActivity: string(snapshot.Selected)},
	})
	orchestrator.logger.Info("activity completed",
		zap.String("activity", string(snapshot.Selected)),
		zap.Uint64("run", snapshot.Run),
	)

	run := snapshot.Run
	orchestrator.schedule(orchestrator.config.Activity.CompletionGrace, func() {
		if orchestrator.machine.Run() == run && orchestrator.machine.State() == activity.StateCompleted {
			orchestrator.machine.Reset()
		}
	})
}
