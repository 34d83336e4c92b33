package host

import (
	"fmt"
	"math"

	"blinkbreak/internal/core/activity"
	"blinkbreak/internal/core/orchestrator"
	"blinkbreak/internal/core/timekeeper"
)

// FormatStatus renders status as a single human readable line.
func FormatStatus(status orchestrator.Status) string {
	remaining := FormatRemaining(status.RemainingSeconds)
	switch status.Mode {
	case timekeeper.ModeWorking:
		return fmt.Sprintf("working, next break in %s (session %d)", remaining, status.SessionCount)
	case timekeeper.ModeBreakReminder:
		line := fmt.Sprintf("break, %s left", remaining)
		if status.Activity.State != activity.StateIdle && status.Activity.Selected != "" {
			line += fmt.Sprintf(", %s (%s)", status.Activity.Selected.Title(), status.Activity.State)
		}
		if status.WindowOpen {
			line += ", choose 1-4"
		}
		return line
	case timekeeper.ModePaused:
		return fmt.Sprintf("paused, %s %s left", status.Phase, remaining)
	default:
		return "idle"
	}
}

// FormatRemaining renders seconds as mm:ss, rounding up.
func FormatRemaining(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	total := int(math.Ceil(seconds))
	return fmt.Sprintf("%02d:%02d", total/60, total%60)
}
