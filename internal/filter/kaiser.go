// Package filter designs the band-limited interpolation kernels used by the
// variable-ratio converters in internal/engine.
//
// A kernel is a Kaiser-windowed sinc sampled on a fine grid (the table) and
// evaluated at arbitrary fractional offsets by linear interpolation between
// neighbouring table entries, in the manner of Smith's band-limited
// interpolation.
package filter

import (
	"math"
)

// BesselI0 computes the modified Bessel function of the first kind, order
// zero, by its power series:
//
//	I₀(x) = Σ ((x/2)^k / k!)²
//
// The series converges quickly for the β range used by Kaiser windows
// (0 < β < 20); summation stops once a term no longer changes the result.
func BesselI0(x float64) float64 {
	half := x / besselHalf
	sum := 1.0
	term := 1.0
	for k := 1; k < besselMaxTerms; k++ {
		f := half / float64(k)
		term *= f * f
		sum += term
		if term < sum*besselEpsilon {
			break
		}
	}
	return sum
}

// KaiserBeta returns the Kaiser β giving roughly the requested stopband
// attenuation in dB (Kaiser & Schafer):
//
//   - att > 50 dB:        β = 0.1102 (att - 8.7)
//   - 21 dB ≤ att ≤ 50 dB: β = 0.5842 (att - 21)^0.4 + 0.07886 (att - 21)
//   - att < 21 dB:        β = 0
func KaiserBeta(attenuation float64) float64 {
	switch {
	case attenuation > kaiserAttHigh:
		return kaiserHighCoeff * (attenuation - kaiserHighOffset)
	case attenuation >= kaiserAttMedium:
		delta := attenuation - kaiserAttMedium
		return kaiserMediumCoeff1*math.Pow(delta, kaiserMediumPower) + kaiserMediumCoeff2*delta
	default:
		return 0
	}
}

// kaiserWindow evaluates a continuous Kaiser window of half-width `half` at
// offset t from its center. Outside [-half, half] the window is zero.
//
//	w(t) = I₀(β √(1 - (t/half)²)) / I₀(β)
func kaiserWindow(t, half, beta, i0Beta float64) float64 {
	x := t / half
	if x < -1 || x > 1 {
		return 0
	}
	return BesselI0(beta*math.Sqrt(1-x*x)) / i0Beta
}
