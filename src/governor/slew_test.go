package governor

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSlew_StepsTowardTarget(t *testing.T) {
	result := Slew(0, 1, 0.05)

	assert.Equal(t, 0.05, result)
}

func TestSlew_StepsDownTowardNegativeTarget(t *testing.T) {
	result := Slew(0.5, -1, 0.1)

	assert.InDelta(t, 0.4, result, 1e-12)
}

func TestSlew_ConvergesExactlyWithinOneStep(t *testing.T) {
	// Remaining gap smaller than maxDelta: must land on target, not overshoot
	result := Slew(0.97, 1, 0.05)

	assert.Equal(t, 1.0, result)
}

func TestSlew_IdempotentAtTarget(t *testing.T) {
	result := Slew(0.42, 0.42, 0.05)

	assert.Equal(t, 0.42, result)
}

func TestSlew_BoundedByMaxDelta(t *testing.T) {
	// Any jump, in either direction, moves by at most maxDelta
	for _, target := range []float64{-100, -1, -0.01, 0, 0.01, 1, 100} {
		for _, current := range []float64{-1, 0, 0.5, 1} {
			result := Slew(current, target, 0.05)

			assert.LessOrEqual(t, math.Abs(result-current), 0.05+1e-12,
				"step too large for current=%v target=%v", current, target)
			assert.LessOrEqual(t, result, math.Max(current, target),
				"overshoot above for current=%v target=%v", current, target)
			assert.GreaterOrEqual(t, result, math.Min(current, target),
				"overshoot below for current=%v target=%v", current, target)
		}
	}
}

func TestSlew_ConvergenceTickCount(t *testing.T) {
	// |target - current| / maxDelta = 1.0 / 0.05 = 20 ticks exactly
	current := 0.0
	for n := 0; n < 20; n++ {
		current = Slew(current, 1, 0.05)
	}

	assert.Equal(t, 1.0, current)

	// And stays there
	current = Slew(current, 1, 0.05)
	assert.Equal(t, 1.0, current)
}
