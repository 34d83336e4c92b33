package activity

import (
	"math/rand/v2"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"blinkbreak/internal/core/model"
)

func seededRand() *rand.Rand {
	return rand.New(rand.NewPCG(1, 2))
}

func TestPickAutomaticReturnsPreference(t *testing.T) {
	selector := NewSelector(2, model.ActivityBlink, WithRand(seededRand()))
	selector.RecordCompletion(model.ActivityBlink)

	for i := 0; i < 10; i++ {
		assert.Equal(t, model.ActivityBlink, selector.PickAutomatic())
	}
}

func TestPickAutomaticExcludesRecentHistory(t *testing.T) {
	rng := seededRand()
	kinds := model.ActivityKinds()
	history := []model.ActivityKind{model.ActivityLeftRight, model.ActivityUpDown, model.ActivityBlink}

	seen := map[model.ActivityKind]int{}
	for i := 0; i < 200; i++ {
		seen[PickAutomatic(rng, kinds, history, 2, "")]++
	}

	assert.Zero(t, seen[model.ActivityUpDown])
	assert.Zero(t, seen[model.ActivityBlink])
	assert.Positive(t, seen[model.ActivityLeftRight])
	assert.Positive(t, seen[model.ActivityLookOutside])
}

func TestPickAutomaticNeverEmptiesPool(t *testing.T) {
	rng := seededRand()
	kinds := []model.ActivityKind{model.ActivityBlink, model.ActivityUpDown}
	history := []model.ActivityKind{model.ActivityUpDown, model.ActivityBlink}

	for i := 0; i < 50; i++ {
		// depth is capped at len(kinds)-1, so only the very last entry is excluded.
		assert.Equal(t, model.ActivityUpDown, PickAutomatic(rng, kinds, history, 5, ""))
	}

	single := []model.ActivityKind{model.ActivityBlink}
	assert.Equal(t, model.ActivityBlink, PickAutomatic(rng, single, single, 3, ""))
}

func TestPickAutomaticWithoutHistoryUsesAllKinds(t *testing.T) {
	rng := seededRand()
	seen := map[model.ActivityKind]bool{}
	for i := 0; i < 200; i++ {
		seen[PickAutomatic(rng, model.ActivityKinds(), nil, 2, "")] = true
	}
	assert.Len(t, seen, len(model.ActivityKinds()))
}

func TestHistoryIsBounded(t *testing.T) {
	selector := NewSelector(2, "", WithRand(seededRand()))
	completions := []model.ActivityKind{
		model.ActivityLeftRight,
		model.ActivityUpDown,
		model.ActivityBlink,
		model.ActivityLookOutside,
		model.ActivityBlink,
	}
	for _, kind := range completions {
		selector.RecordCompletion(kind)
		assert.LessOrEqual(t, len(selector.History()), 2)
	}

	assert.Equal(t, []model.ActivityKind{model.ActivityLookOutside, model.ActivityBlink}, selector.History())
}

func TestConfigureShrinksHistory(t *testing.T) {
	selector := NewSelector(3, "", WithRand(seededRand()))
	selector.RecordCompletion(model.ActivityLeftRight)
	selector.RecordCompletion(model.ActivityUpDown)
	selector.RecordCompletion(model.ActivityBlink)

	selector.Configure(1, "")

	assert.Equal(t, []model.ActivityKind{model.ActivityBlink}, selector.History())

	selector.Configure(0, "")
	selector.RecordCompletion(model.ActivityUpDown)
	assert.Empty(t, selector.History())
}

func TestManualWindowAllowsOneOverride(t *testing.T) {
	selector := NewSelector(2, "", WithRand(seededRand()))
	now := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)

	deadline := selector.OpenManualWindow(now, 3*time.Second)
	require.Equal(t, now.Add(3*time.Second), deadline)

	assert.True(t, selector.WindowOpen(now.Add(time.Second)))
	assert.True(t, selector.Override(now.Add(time.Second)))
	assert.False(t, selector.Override(now.Add(2*time.Second)))
	assert.False(t, selector.WindowOpen(now.Add(2*time.Second)))
}

func TestManualWindowExpires(t *testing.T) {
	selector := NewSelector(2, "", WithRand(seededRand()))
	now := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	selector.OpenManualWindow(now, 3*time.Second)

	assert.False(t, selector.Override(now.Add(3*time.Second)))

	selector.OpenManualWindow(now, 3*time.Second)
	selector.CloseWindow()
	assert.False(t, selector.Override(now))
	_, open := selector.Deadline()
	assert.False(t, open)
}
