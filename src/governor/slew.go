// Package governor provides command shaping algorithms for smoothing and rate limiting.
package governor

// Slew moves current one step toward target, bounded by maxDelta.
// The result always lies between current and target; when the remaining
// difference is within maxDelta the result lands on target exactly, so a
// held target is reached with no steady-state offset.
func Slew(current, target, maxDelta float64) float64 {
	delta := target - current
	if delta > maxDelta {
		return current + maxDelta
	}
	if delta < -maxDelta {
		return current - maxDelta
	}
	return target
}
