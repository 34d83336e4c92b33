package preferences

import (
	"strconv"
	"strings"
	"time"

	"blinkbreak/internal/core/model"
	"blinkbreak/internal/storage"
)

// RandomActivity is the choice label for no preferred activity.
const RandomActivity = "Random"

// Form holds the editable values as typed by the user.
type Form struct {
	WorkMinutes   string
	BreakSeconds  string
	WindowSeconds string
	HistoryDepth  string
	Preferred     string
	IdleEnabled   bool
	Notifications bool
}

// ActivityChoices lists the preferred activity options in display order.
func ActivityChoices() []string {
	choices := []string{RandomActivity}
	for _, kind := range model.ActivityKinds() {
		choices = append(choices, kind.Title())
	}
	return choices
}

// FormFromSettings fills a form from settings.
func FormFromSettings(settings storage.Settings) Form {
	cycle := settings.Cycle
	preferred := RandomActivity
	if cycle.PreferredActivity != "" {
		preferred = cycle.PreferredActivity.Title()
	}
	return Form{
		WorkMinutes:   strconv.Itoa(int(cycle.WorkDuration / time.Minute)),
		BreakSeconds:  strconv.Itoa(int(cycle.BreakDuration / time.Second)),
		WindowSeconds: strconv.FormatFloat(cycle.ManualSelectionWindow.Seconds(), 'f', -1, 64),
		HistoryDepth:  strconv.Itoa(cycle.ActivityHistoryDepth),
		Preferred:     preferred,
		IdleEnabled:   cycle.Idle.Enabled,
		Notifications: settings.NotificationsEnabled,
	}
}

// Apply returns base with the form's values. Values that do not parse are
// ignored and the base value is kept.
func (form Form) Apply(base storage.Settings) storage.Settings {
	settings := base
	cycle := &settings.Cycle

	if minutes, ok := parsePositiveInt(form.WorkMinutes); ok {
		cycle.WorkDuration = time.Duration(minutes) * time.Minute
	}
	if seconds, ok := parsePositiveInt(form.BreakSeconds); ok {
		cycle.BreakDuration = time.Duration(seconds) * time.Second
	}
	if seconds, err := strconv.ParseFloat(strings.TrimSpace(form.WindowSeconds), 64); err == nil && seconds >= 0 {
		cycle.ManualSelectionWindow = time.Duration(seconds * float64(time.Second)).Round(time.Millisecond)
	}
	if depth, err := strconv.Atoi(strings.TrimSpace(form.HistoryDepth)); err == nil && depth >= 0 {
		cycle.ActivityHistoryDepth = depth
	}

	cycle.PreferredActivity = ""
	for _, kind := range model.ActivityKinds() {
		if form.Preferred == kind.Title() {
			cycle.PreferredActivity = kind
		}
	}

	cycle.Idle.Enabled = form.IdleEnabled
	settings.NotificationsEnabled = form.Notifications
	return settings
}

func parsePositiveInt(value string) (int, bool) {
	parsed, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil || parsed <= 0 {
		return 0, false
	}
	return parsed, true
}
