package activity

import (
	"math/rand/v2"
	"time"

	"blinkbreak/internal/core/model"
)

// SelectorOption configures a Selector.
type SelectorOption func(*Selector)

// WithRand sets the random source, mainly for deterministic tests.
func WithRand(rng *rand.Rand) SelectorOption {
	return func(selector *Selector) {
		if rng != nil {
			selector.rng = rng
		}
	}
}

// Selector decides which activity runs in a break: a random pick that
// avoids the most recent completions, optionally overridden once during a
// short manual window.
type Selector struct {
	kinds     []model.ActivityKind
	depth     int
	preferred model.ActivityKind
	rng       *rand.Rand

	history []model.ActivityKind

	deadline   time.Time
	windowOpen bool
	overridden bool
}

// NewSelector creates a Selector keeping at most depth completions.
func NewSelector(depth int, preferred model.ActivityKind, options ...SelectorOption) *Selector {
	selector := &Selector{
		kinds: model.ActivityKinds(),
		rng:   rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0x9e3779b97f4a7c15)),
	}
	for _, option := range options {
		option(selector)
	}
	selector.Configure(depth, preferred)
	return selector
}

// Configure updates the history depth and fixed preference. A smaller depth
// evicts the oldest entries immediately.
func (selector *Selector) Configure(depth int, preferred model.ActivityKind) {
	if depth < 0 {
		depth = 0
	}
	selector.depth = depth
	selector.preferred = preferred
	selector.trim()
}

// PickAutomatic chooses with the selector's own history and preference.
func (selector *Selector) PickAutomatic() model.ActivityKind {
	return PickAutomatic(selector.rng, selector.kinds, selector.history, selector.depth, selector.preferred)
}

// PickAutomatic returns preferred when set; otherwise a uniform pick from
// kinds minus the last min(depth, len(kinds)-1) entries of history. An
// empty pool falls back to the full kind set.
func PickAutomatic(rng *rand.Rand, kinds, history []model.ActivityKind, depth int, preferred model.ActivityKind) model.ActivityKind {
	if preferred != "" {
		return preferred
	}
	if len(kinds) == 0 {
		return ""
	}

	exclude := min(depth, len(kinds)-1, len(history))
	recent := make(map[model.ActivityKind]struct{}, exclude)
	for _, kind := range history[len(history)-exclude:] {
		recent[kind] = struct{}{}
	}

	pool := make([]model.ActivityKind, 0, len(kinds))
	for _, kind := range kinds {
		if _, skip := recent[kind]; !skip {
			pool = append(pool, kind)
		}
	}
	if len(pool) == 0 {
		pool = kinds
	}
	return pool[rng.IntN(len(pool))]
}

// OpenManualWindow starts a window of length duration at now and returns
// its deadline. Reopening replaces any previous window.
func (selector *Selector) OpenManualWindow(now time.Time, duration time.Duration) time.Time {
	selector.deadline = now.Add(duration)
	selector.windowOpen = true
	selector.overridden = false
	return selector.deadline
}

// WindowOpen reports whether a manual override is still possible at now.
func (selector *Selector) WindowOpen(now time.Time) bool {
	return selector.windowOpen && !selector.overridden && now.Before(selector.deadline)
}

// Override consumes the window's single override. It reports false when the
// window is closed, expired or already used.
func (selector *Selector) Override(now time.Time) bool {
	if !selector.WindowOpen(now) {
		return false
	}
	selector.overridden = true
	return true
}

// CloseWindow commits the current pick.
func (selector *Selector) CloseWindow() {
	selector.windowOpen = false
	selector.deadline = time.Time{}
}

// Deadline returns the open window's expiry.
func (selector *Selector) Deadline() (time.Time, bool) {
	return selector.deadline, selector.windowOpen
}

// RecordCompletion appends kind, evicting the oldest entries beyond depth.
func (selector *Selector) RecordCompletion(kind model.ActivityKind) {
	selector.history = append(selector.history, kind)
	selector.trim()
}

// History returns completions oldest first.
func (selector *Selector) History() []model.ActivityKind {
	return append([]model.ActivityKind(nil), selector.history...)
}

func (selector *Selector) trim() {
	if overflow := len(selector.history) - selector.depth; overflow > 0 {
		selector.history = append([]model.ActivityKind(nil), selector.history[overflow:]...)
	}
}
