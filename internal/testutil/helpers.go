// Package testutil provides signal generators and assertions shared by the
// resampler and driver tests.
package testutil

import (
	"math"
	"math/cmplx"
	"testing"

	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/dsp/fourier"
)

// Default tolerances for various test scenarios.
const (
	SampleTolerance = 1e-6
	DBTolerance     = 0.01
)

// Sine returns n frames of a sine at freq Hz sampled at sampleRate.
// Pass sampleRate 1 to give freq in cycles per frame.
func Sine(n int, freq, sampleRate, amplitude float64) []float32 {
	out := make([]float32, n)
	w := 2 * math.Pi * freq / sampleRate
	for i := range out {
		out[i] = float32(amplitude * math.Sin(w*float64(i)))
	}
	return out
}

// Ramp returns n frames counting up from start.
func Ramp(start float32, n int) []float32 {
	out := make([]float32, n)
	for i := range out {
		out[i] = start + float32(i)
	}
	return out
}

// Fill returns n frames of value v.
func Fill(v float32, n int) []float32 {
	out := make([]float32, n)
	for i := range out {
		out[i] = v
	}
	return out
}

// RMS returns the root mean square of s.
func RMS(s []float32) float64 {
	if len(s) == 0 {
		return 0
	}
	var sum float64
	for _, v := range s {
		sum += float64(v) * float64(v)
	}
	return math.Sqrt(sum / float64(len(s)))
}

// DominantFrequency returns the frequency in Hz of the strongest non-DC
// bin of the spectrum of s, refined by parabolic interpolation.
func DominantFrequency(s []float32, sampleRate float64) float64 {
	n := len(s)
	if n < 4 {
		return 0
	}
	seq := make([]float64, n)
	for i, v := range s {
		seq[i] = float64(v)
	}
	coeffs := fourier.NewFFT(n).Coefficients(nil, seq)

	peak := 1
	for k := 2; k < len(coeffs); k++ {
		if cmplx.Abs(coeffs[k]) > cmplx.Abs(coeffs[peak]) {
			peak = k
		}
	}

	offset := 0.0
	if peak > 1 && peak < len(coeffs)-1 {
		a := cmplx.Abs(coeffs[peak-1])
		b := cmplx.Abs(coeffs[peak])
		c := cmplx.Abs(coeffs[peak+1])
		if den := a - 2*b + c; den != 0 {
			offset = 0.5 * (a - c) / den
		}
	}
	return (float64(peak) + offset) * sampleRate / float64(n)
}

// AssertSilent verifies that every frame is zero.
func AssertSilent(t *testing.T, s []float32, msgAndArgs ...any) bool {
	t.Helper()
	for i, v := range s {
		if v != 0 {
			return assert.Fail(t, "signal not silent", "s[%d]=%v", i, v)
		}
	}
	return true
}

// AssertFilled verifies that every frame equals v, used to detect writes
// outside a sub-slice.
func AssertFilled(t *testing.T, s []float32, v float32, msgAndArgs ...any) bool {
	t.Helper()
	for i, got := range s {
		if got != v {
			return assert.Fail(t, "guard frame overwritten", "s[%d]=%v, want %v", i, got, v)
		}
	}
	return true
}

// AssertNoNaNOrInf verifies that no elements in the slice are NaN or Inf.
func AssertNoNaNOrInf(t *testing.T, s []float32, msgAndArgs ...any) bool {
	t.Helper()
	for i, v := range s {
		f := float64(v)
		if math.IsNaN(f) {
			return assert.Fail(t, "found NaN", "s[%d] is NaN", i)
		}
		if math.IsInf(f, 0) {
			return assert.Fail(t, "found Inf", "s[%d] is Inf", i)
		}
	}
	return true
}

// AssertRelativeError verifies that actual is within tolerance relative
// error of expected.
func AssertRelativeError(t *testing.T, expected, actual, tolerance float64, msgAndArgs ...any) bool {
	t.Helper()
	if expected == 0 {
		return assert.InDelta(t, expected, actual, tolerance, msgAndArgs...)
	}
	relErr := math.Abs(actual-expected) / math.Abs(expected)
	return assert.LessOrEqual(t, relErr, tolerance,
		"relative error %e exceeds tolerance %e (expected=%v, actual=%v)", relErr, tolerance, expected, actual)
}
