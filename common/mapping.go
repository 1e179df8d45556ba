package common

import "math"

// Map linearly interpolates x from [inMin, inMax] onto [outMin, outMax].
// The input is not validated against its range, so values outside it
// extrapolate; callers clamp when they need to. A degenerate input range
// returns outMin.
func Map(x, inMin, inMax, outMin, outMax float64) float64 {
	if inMin == inMax {
		return outMin
	}
	return outMin + (x-inMin)*(outMax-outMin)/(inMax-inMin)
}

// Clamp restricts v to the closed range [lo, hi]. Reversed bounds are
// swapped and NaN maps to lo.
func Clamp(v, lo, hi float64) float64 {
	if lo > hi {
		lo, hi = hi, lo
	}
	if math.IsNaN(v) || v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// MapClamped is Map followed by clamping into the output range.
func MapClamped(x, inMin, inMax, outMin, outMax float64) float64 {
	return Clamp(Map(x, inMin, inMax, outMin, outMax), outMin, outMax)
}

// MapExp interpolates exponentially, which is how frequencies and cutoffs
// are perceived. Non-positive output bounds fall back to Map.
func MapExp(x, inMin, inMax, outMin, outMax float64) float64 {
	if outMin <= 0 || outMax <= 0 {
		return Map(x, inMin, inMax, outMin, outMax)
	}
	t := Map(x, inMin, inMax, 0, 1)
	return outMin * math.Pow(outMax/outMin, t)
}

// DbToGain converts decibels to a linear gain factor.
func DbToGain(db float64) float64 {
	return math.Pow(10, db/20)
}

// GainToDb converts a linear gain factor to decibels. Zero gain is -Inf.
func GainToDb(gain float64) float64 {
	return 20 * math.Log10(gain)
}
