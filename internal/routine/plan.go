package routine

import (
	"math/rand/v2"
	"strings"
	"time"

	"blinkbreak/internal/core/model"
)

// Pose is what the user is asked to do during a step.
type Pose string

const (
	PoseInstruction Pose = "instruction"
	PoseCenter      Pose = "center"
	PoseLeft        Pose = "left"
	PoseRight       Pose = "right"
	PoseUp          Pose = "up"
	PoseDown        Pose = "down"
	PoseEyesOpen    Pose = "eyes_open"
	PoseEyesClosed  Pose = "eyes_closed"
	PoseFarAway     Pose = "far_away"
)

var cues = map[Pose]string{
	PoseInstruction: "get ready",
	PoseCenter:      "look straight ahead",
	PoseLeft:        "look left",
	PoseRight:       "look right",
	PoseUp:          "look up",
	PoseDown:        "look down",
	PoseEyesOpen:    "open your eyes",
	PoseEyesClosed:  "close your eyes",
	PoseFarAway:     "look at something far away",
}

// Cue returns the instruction shown to the user.
func (pose Pose) Cue() string {
	if cue, ok := cues[pose]; ok {
		return cue
	}
	return strings.ReplaceAll(string(pose), "_", " ")
}

// Step holds one pose for a duration.
type Step struct {
	Pose     Pose
	Duration time.Duration
}

// Range defines a duration range with random sampling.
type Range struct {
	Min time.Duration
	Max time.Duration
}

// Random returns a random duration within the range.
func (value Range) Random(rng *rand.Rand) time.Duration {
	if value.Max <= value.Min {
		return value.Min
	}
	delta := value.Max - value.Min
	return value.Min + time.Duration(rng.Int64N(int64(delta)))
}

// Config contains routine timing values.
type Config struct {
	InstructionDuration time.Duration

	CenterDuration Range
	MoveDuration   Range
	HoldDuration   Range
	ReturnDuration Range
	PauseDuration  Range

	BlinkHold     time.Duration
	BlinkLongHold time.Duration

	// Repetitions is the number of sweeps or blinks per routine.
	Repetitions         int
	LookOutsideDuration time.Duration

	// Budget caps the total duration of a plan. Zero means no cap.
	Budget time.Duration
}

// BreakBudget is the time a routine has to finish inside a fresh break:
// the break less the launch and completion delays around it.
func BreakBudget(cycle model.CycleConfig) time.Duration {
	return max(cycle.BreakDuration-cycle.Activity.LaunchDelay-cycle.Activity.CompletionDelay, 0)
}

// Total returns the summed duration of steps.
func Total(steps []Step) time.Duration {
	var total time.Duration
	for _, step := range steps {
		total += step.Duration
	}
	return total
}

// Plan expands kind into a finite step sequence. Randomised durations are
// drawn from rng. With a Budget, repetitions are dropped until the plan
// fits, and a single repetition that still overruns is scaled down.
func Plan(kind model.ActivityKind, config Config, rng *rand.Rand) []Step {
	repetitions := max(config.Repetitions, 1)
	steps := buildPlan(kind, config, rng, repetitions)
	if config.Budget <= 0 || len(steps) == 0 {
		return steps
	}
	for repetitions > 1 && Total(steps) > config.Budget {
		repetitions--
		steps = buildPlan(kind, config, rng, repetitions)
	}
	return fitSteps(steps, config.Budget)
}

func buildPlan(kind model.ActivityKind, config Config, rng *rand.Rand, repetitions int) []Step {
	steps := []Step{{Pose: PoseInstruction, Duration: config.InstructionDuration}}
	switch kind {
	case model.ActivityLeftRight:
		steps = appendSweeps(steps, config, rng, repetitions, PoseLeft, PoseRight)
	case model.ActivityUpDown:
		steps = appendSweeps(steps, config, rng, repetitions, PoseUp, PoseDown)
	case model.ActivityBlink:
		longHold := true
		for i := 0; i < repetitions; i++ {
			hold := config.BlinkHold
			if longHold {
				hold = config.BlinkLongHold
			}
			steps = append(steps,
				Step{Pose: PoseEyesOpen, Duration: hold},
				Step{Pose: PoseEyesClosed, Duration: hold},
			)
			longHold = !longHold
		}
		steps = append(steps, Step{Pose: PoseEyesOpen, Duration: config.BlinkHold})
	case model.ActivityLookOutside:
		steps = append(steps, Step{Pose: PoseFarAway, Duration: config.LookOutsideDuration})
	default:
		return nil
	}
	return steps
}

// fitSteps shrinks every step by the same factor so the total is at most
// budget.
func fitSteps(steps []Step, budget time.Duration) []Step {
	total := Total(steps)
	if total <= budget {
		return steps
	}
	scale := float64(budget) / float64(total)
	for index := range steps {
		steps[index].Duration = time.Duration(float64(steps[index].Duration) * scale)
	}
	return steps
}

func appendSweeps(steps []Step, config Config, rng *rand.Rand, repetitions int, first, second Pose) []Step {
	for i := 0; i < repetitions; i++ {
		steps = append(steps, Step{Pose: PoseCenter, Duration: config.CenterDuration.Random(rng)})
		steps = appendMove(steps, config, rng, first)
		steps = appendMove(steps, config, rng, second)
	}
	return steps
}

// appendMove is move, hold, return to center, pause.
func appendMove(steps []Step, config Config, rng *rand.Rand, target Pose) []Step {
	return append(steps,
		Step{Pose: target, Duration: config.MoveDuration.Random(rng) + config.HoldDuration.Random(rng)},
		Step{Pose: PoseCenter, Duration: config.ReturnDuration.Random(rng) + config.PauseDuration.Random(rng)},
	)
}
