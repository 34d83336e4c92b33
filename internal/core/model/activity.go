package model

import (
	"fmt"
	"strings"
)

// ActivityKind names a guided micro-activity run during a break.
type ActivityKind string

const (
	ActivityLeftRight   ActivityKind = "left_right"
	ActivityUpDown      ActivityKind = "up_down"
	ActivityBlink       ActivityKind = "blink"
	ActivityLookOutside ActivityKind = "look_outside"
)

var activityKinds = []ActivityKind{
	ActivityLeftRight,
	ActivityUpDown,
	ActivityBlink,
	ActivityLookOutside,
}

var activityTitles = map[ActivityKind]string{
	ActivityLeftRight:   "Look left and right",
	ActivityUpDown:      "Look up and down",
	ActivityBlink:       "Slow blinks",
	ActivityLookOutside: "Look into the distance",
}

// ActivityKinds returns the full kind set in stable order.
func ActivityKinds() []ActivityKind {
	return append([]ActivityKind(nil), activityKinds...)
}

// Valid reports whether kind belongs to the kind set.
func (kind ActivityKind) Valid() bool {
	_, ok := activityTitles[kind]
	return ok
}

// Title returns a human readable label.
func (kind ActivityKind) Title() string {
	if title, ok := activityTitles[kind]; ok {
		return title
	}
	return string(kind)
}

// ParseActivityKind accepts a kind name (case and dash insensitive) or a
// 1-based index into ActivityKinds.
func ParseActivityKind(value string) (ActivityKind, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	normalized = strings.ReplaceAll(normalized, "-", "_")
	if normalized == "" {
		return "", fmt.Errorf("parse activity kind: empty value")
	}
	if len(normalized) == 1 && normalized[0] >= '1' && normalized[0] <= '9' {
		index := int(normalized[0] - '1')
		if index < len(activityKinds) {
			return activityKinds[index], nil
		}
	}
	kind := ActivityKind(normalized)
	if !kind.Valid() {
		return "", fmt.Errorf("parse activity kind: unknown activity %q", value)
	}
	return kind, nil
}

// Phase is the interval the clock is measuring against.
type Phase string

const (
	PhaseNone  Phase = ""
	PhaseWork  Phase = "work"
	PhaseBreak Phase = "break"
)
