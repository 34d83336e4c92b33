package routine

import "time"

// DefaultConfig returns the stock routine timings.
func DefaultConfig() Config {
	return Config{
		InstructionDuration: 2 * time.Second,
		CenterDuration: Range{
			Min: time.Second,
			Max: time.Second,
		},
		MoveDuration: Range{
			Min: 300 * time.Millisecond,
			Max: 400 * time.Millisecond,
		},
		HoldDuration: Range{
			Min: 1500 * time.Millisecond,
			Max: 2 * time.Second,
		},
		ReturnDuration: Range{
			Min: 300 * time.Millisecond,
			Max: 400 * time.Millisecond,
		},
		PauseDuration: Range{
			Min: 500 * time.Millisecond,
			Max: 800 * time.Millisecond,
		},
		BlinkHold:           time.Second,
		BlinkLongHold:       3 * time.Second,
		Repetitions:         3,
		LookOutsideDuration: 15 * time.Second,
	}
}
