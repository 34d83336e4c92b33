// Package routine plays the guided steps of a break activity and reports
// when a run has been followed through to the end.
package routine

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"

	"go.uber.org/zap"

	"blinkbreak/internal/core/activity"
	"blinkbreak/internal/core/model"
)

// Option configures a Runner.
type Option func(*Runner)

// WithRand seeds step durations.
func WithRand(rng *rand.Rand) Option {
	return func(runner *Runner) {
		if rng != nil {
			runner.rng = rng
		}
	}
}

// WithStepHandler is called as each step begins.
func WithStepHandler(handler func(model.ActivityKind, Step)) Option {
	return func(runner *Runner) {
		runner.onStep = handler
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *zap.Logger) Option {
	return func(runner *Runner) {
		if logger != nil {
			runner.logger = logger
		}
	}
}

// Runner follows activity snapshots: it starts a routine when a run begins
// running, pauses and resumes with it, and stops when the run goes away.
// Each run is played at most once. onDone receives the run of every
// routine played to the end.
type Runner struct {
	mu     sync.Mutex
	config Config
	rng    *rand.Rand
	logger *zap.Logger
	onStep func(model.ActivityKind, Step)
	onDone func(run uint64)

	run    uint64
	cancel context.CancelFunc
	done   chan struct{}

	paused   bool
	pausedCh chan struct{}
	resumeCh chan struct{}
}

// NewRunner creates a Runner.
func NewRunner(config Config, onDone func(run uint64), options ...Option) *Runner {
	runner := &Runner{
		config:   config,
		rng:      rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
		logger:   zap.NewNop(),
		onDone:   onDone,
		pausedCh: make(chan struct{}),
	}
	for _, option := range options {
		option(runner)
	}
	return runner
}

// Sync reconciles the runner with snapshot.
func (runner *Runner) Sync(ctx context.Context, snapshot activity.Snapshot) {
	runner.mu.Lock()
	defer runner.mu.Unlock()

	same := runner.run == snapshot.Run
	switch snapshot.State {
	case activity.StateRunning:
		if !same {
			runner.startLocked(ctx, snapshot)
			return
		}
		runner.resumeLocked()
	case activity.StatePaused:
		if same {
			runner.pauseLocked()
		}
	case activity.StateCompleting, activity.StateCompleted:
		if !same {
			runner.stopLocked()
		}
	default:
		runner.stopLocked()
	}
}

// Stop cancels the active routine, if any.
func (runner *Runner) Stop() {
	runner.mu.Lock()
	defer runner.mu.Unlock()
	runner.stopLocked()
}

// Wait blocks until the active routine has returned.
func (runner *Runner) Wait() {
	runner.mu.Lock()
	done := runner.done
	runner.mu.Unlock()
	if done != nil {
		<-done
	}
}

// SetBudget caps the length of routines started from now on.
func (runner *Runner) SetBudget(budget time.Duration) {
	runner.mu.Lock()
	defer runner.mu.Unlock()
	runner.config.Budget = budget
}

func (runner *Runner) startLocked(parent context.Context, snapshot activity.Snapshot) {
	runner.stopLocked()
	steps := Plan(snapshot.Selected, runner.config, runner.rng)
	if len(steps) == 0 {
		runner.logger.Warn("no routine for activity", zap.String("activity", string(snapshot.Selected)))
		return
	}

	ctx, cancel := context.WithCancel(parent)
	done := make(chan struct{})
	runner.run = snapshot.Run
	runner.cancel = cancel
	runner.done = done

	go runner.play(ctx, done, snapshot.Run, snapshot.Selected, steps)
}

func (runner *Runner) stopLocked() {
	if runner.cancel != nil {
		runner.cancel()
		runner.cancel = nil
	}
	runner.resumeLocked()
}

func (runner *Runner) pauseLocked() {
	if runner.paused {
		return
	}
	runner.paused = true
	runner.resumeCh = make(chan struct{})
	close(runner.pausedCh)
}

func (runner *Runner) resumeLocked() {
	if !runner.paused {
		return
	}
	runner.paused = false
	runner.pausedCh = make(chan struct{})
	close(runner.resumeCh)
}

func (runner *Runner) gates() (paused, resumed chan struct{}, isPaused bool) {
	runner.mu.Lock()
	defer runner.mu.Unlock()
	return runner.pausedCh, runner.resumeCh, runner.paused
}

func (runner *Runner) play(ctx context.Context, done chan struct{}, run uint64, kind model.ActivityKind, steps []Step) {
	defer close(done)
	for _, step := range steps {
		if handler := runner.onStep; handler != nil {
			handler(kind, step)
		}
		if !runner.sleep(ctx, step.Duration) {
			return
		}
	}

	runner.mu.Lock()
	current := runner.cancel != nil && runner.run == run
	if current {
		runner.cancel()
		runner.cancel = nil
	}
	runner.mu.Unlock()

	if current && runner.onDone != nil {
		runner.logger.Debug("routine finished", zap.String("activity", string(kind)), zap.Uint64("run", run))
		runner.onDone(run)
	}
}

// sleep waits for duration of unpaused time.
func (runner *Runner) sleep(ctx context.Context, duration time.Duration) bool {
	remaining := duration
	for {
		paused, resumed, isPaused := runner.gates()
		if isPaused {
			select {
			case <-ctx.Done():
				return false
			case <-resumed:
				continue
			}
		}

		started := time.Now()
		timer := time.NewTimer(remaining)
		select {
		case <-ctx.Done():
			timer.Stop()
			return false
		case <-timer.C:
			return true
		case <-paused:
			timer.Stop()
			remaining -= time.Since(started)
			if remaining < 0 {
				remaining = 0
			}
		}
	}
}
