package orchestrator

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"blinkbreak/internal/core/timekeeper"
)

// DefaultTickInterval is the target tick cadence.
const DefaultTickInterval = 100 * time.Millisecond

// ErrIdleUnsupported indicates idle detection is not available on this system.
var ErrIdleUnsupported = errors.New("idle detection unsupported")

// IdleChecker reports the duration of user inactivity.
type IdleChecker interface {
	IdleDuration() (time.Duration, error)
}

// Run ticks the orchestrator every interval until ctx is done. Late or
// skipped ticks are absorbed by the clock's drift compensation.
func (orchestrator *Orchestrator) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = DefaultTickInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			orchestrator.Tick()
		}
	}
}

// idleCheckDueLocked reports whether a probe should run now and, if so,
// claims it so concurrent ticks do not probe twice.
func (orchestrator *Orchestrator) idleCheckDueLocked() bool {
	if orchestrator.idleChecker == nil || orchestrator.idleDisabled || orchestrator.idleProbing || !orchestrator.config.Idle.Enabled {
		return false
	}
	if orchestrator.keeper.Mode() != timekeeper.ModeWorking {
		return false
	}
	now := orchestrator.clock.Now()
	if !orchestrator.lastIdleCheck.IsZero() && now.Sub(orchestrator.lastIdleCheck) < orchestrator.config.Idle.CheckInterval {
		return false
	}
	orchestrator.lastIdleCheck = now
	orchestrator.idleProbing = true
	return true
}

// checkIdle asks the idle checker without the lock held, then applies the
// answer as its own stimulus. The work phase is only rewound if it is
// still running by then.
func (orchestrator *Orchestrator) checkIdle() {
	idle, err := orchestrator.idleChecker.IdleDuration()

	orchestrator.stimulate(func() bool {
		orchestrator.idleProbing = false
		if err != nil {
			if errors.Is(err, ErrIdleUnsupported) {
				orchestrator.idleDisabled = true
				orchestrator.logger.Warn("idle detection disabled", zap.Error(err))
				return false
			}
			orchestrator.logger.Warn("idle check failed", zap.Error(err))
			return false
		}
		if idle < orchestrator.config.Idle.ResetAfter || orchestrator.keeper.Mode() != timekeeper.ModeWorking {
			return false
		}
		if !orchestrator.keeper.Rewind() {
			return false
		}
		orchestrator.logger.Info("work phase rewound after inactivity", zap.Duration("idle", idle))
		return true
	})
}
