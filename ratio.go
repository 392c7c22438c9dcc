package rtaudio

import "math"

// ClampRatio limits ratio to [MinRatio, MaxRatio]. NaN maps to 1.
func ClampRatio(ratio float64) float64 {
	if math.IsNaN(ratio) {
		return 1
	}
	return Range(MinRatio, MaxRatio, ratio)
}

// Range clamps val to [lo, hi].
func Range(lo, hi, val float64) float64 {
	switch {
	case val < lo:
		return lo
	case val > hi:
		return hi
	default:
		return val
	}
}

// RatioOf returns num/denom clamped to the supported range. A zero
// denominator saturates to MaxRatio, except 0/0 which means no conversion.
func RatioOf(num, denom uint32) float64 {
	if denom == 0 {
		if num == 0 {
			return 1
		}
		return MaxRatio
	}
	return ClampRatio(float64(num) / float64(denom))
}
