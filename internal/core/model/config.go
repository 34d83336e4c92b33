package model

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidConfig is wrapped by every CycleConfig validation failure.
var ErrInvalidConfig = errors.New("invalid cycle config")

// Default values for CycleConfig.
const (
	DefaultWorkDuration          = 1200 * time.Second
	DefaultBreakDuration         = 20 * time.Second
	DefaultManualSelectionWindow = 3000 * time.Millisecond
	DefaultActivityHistoryDepth  = 2

	DefaultLaunchDelay     = 300 * time.Millisecond
	DefaultCompletionDelay = 600 * time.Millisecond
	DefaultCompletionGrace = 1500 * time.Millisecond

	DefaultIdleResetAfter    = 5 * time.Minute
	DefaultIdleCheckInterval = 5 * time.Second
)

// ActivityTiming holds the fixed delays of the activity life cycle.
type ActivityTiming struct {
	LaunchDelay     time.Duration
	CompletionDelay time.Duration
	CompletionGrace time.Duration
}

// IdleConfig controls rewinding the work phase after user inactivity.
type IdleConfig struct {
	Enabled       bool
	ResetAfter    time.Duration
	CheckInterval time.Duration
}

// CycleConfig contains runtime settings for the work/break cycle.
type CycleConfig struct {
	WorkDuration          time.Duration
	BreakDuration         time.Duration
	ManualSelectionWindow time.Duration
	ActivityHistoryDepth  int
	// PreferredActivity pins every automatic pick when set.
	PreferredActivity ActivityKind

	Activity ActivityTiming
	Idle     IdleConfig
}

// DefaultCycleConfig returns the stock 20 minute / 20 second cycle.
func DefaultCycleConfig() CycleConfig {
	return CycleConfig{
		WorkDuration:          DefaultWorkDuration,
		BreakDuration:         DefaultBreakDuration,
		ManualSelectionWindow: DefaultManualSelectionWindow,
		ActivityHistoryDepth:  DefaultActivityHistoryDepth,
		Activity: ActivityTiming{
			LaunchDelay:     DefaultLaunchDelay,
			CompletionDelay: DefaultCompletionDelay,
			CompletionGrace: DefaultCompletionGrace,
		},
		Idle: IdleConfig{
			Enabled:       true,
			ResetAfter:    DefaultIdleResetAfter,
			CheckInterval: DefaultIdleCheckInterval,
		},
	}
}

// ValidationError describes a single rejected CycleConfig field.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s: %s", ErrInvalidConfig, e.Field, e.Message)
}

// Unwrap lets callers match any validation failure with errors.Is.
func (e ValidationError) Unwrap() error {
	return ErrInvalidConfig
}

// Validate reports the first invalid field, if any.
func (config CycleConfig) Validate() error {
	switch {
	case config.WorkDuration <= 0:
		return ValidationError{Field: "WorkDuration", Message: "must be positive"}
	case config.BreakDuration <= 0:
		return ValidationError{Field: "BreakDuration", Message: "must be positive"}
	case config.ManualSelectionWindow < 0:
		return ValidationError{Field: "ManualSelectionWindow", Message: "must not be negative"}
	case config.ActivityHistoryDepth < 0:
		return ValidationError{Field: "ActivityHistoryDepth", Message: "must not be negative"}
	case config.PreferredActivity != "" && !config.PreferredActivity.Valid():
		return ValidationError{Field: "PreferredActivity", Message: fmt.Sprintf("unknown activity %q", config.PreferredActivity)}
	case config.Activity.LaunchDelay < 0 || config.Activity.CompletionDelay < 0 || config.Activity.CompletionGrace < 0:
		return ValidationError{Field: "Activity", Message: "delays must not be negative"}
	case config.Idle.Enabled && config.Idle.ResetAfter <= 0:
		return ValidationError{Field: "Idle.ResetAfter", Message: "must be positive when idle reset is enabled"}
	}
	return nil
}

// WithDefaults fills zero-valued timing fields with their defaults.
func (config CycleConfig) WithDefaults() CycleConfig {
	defaults := DefaultCycleConfig()
	if config.Activity == (ActivityTiming{}) {
		config.Activity = defaults.Activity
	}
	if config.Idle.CheckInterval <= 0 {
		config.Idle.CheckInterval = defaults.Idle.CheckInterval
	}
	if config.Idle.ResetAfter <= 0 {
		config.Idle.ResetAfter = defaults.Idle.ResetAfter
	}
	return config
}
