package filter

import (
	"fmt"
	"math"
	"math/cmplx"

	"github.com/tphakala/simd/f64"
	"gonum.org/v1/gonum/dsp/fourier"
)

// Response holds the magnitude response of a kernel, normalized to 0 dB at DC.
type Response struct {
	// Frequencies in cycles per input frame (0.5 is the input Nyquist).
	Frequencies []float64

	// MagnitudeDB at each frequency.
	MagnitudeDB []float64
}

// ComputeResponse evaluates the kernel's frequency response from 0 up to
// one cycle per input frame using an FFT of the full symmetric impulse
// response. fftSize is rounded up to a power of two that covers the impulse.
func ComputeResponse(k *Kernel, fftSize int) (Response, error) {
	impulseLen := 2*k.last + 1
	size := minFFTSize
	for size < fftSize || size < responseOversize*impulseLen {
		size *= 2
	}
	if size > maxFFTSize {
		return Response{}, fmt.Errorf("fft size %d exceeds maximum %d", size, maxFFTSize)
	}

	seq := make([]float64, size)
	for j := -k.last; j <= k.last; j++ {
		abs := j
		if abs < 0 {
			abs = -abs
		}
		seq[j+k.last] = float64(k.table[abs])
	}

	coeffs := fourier.NewFFT(size).Coefficients(nil, seq)

	// Bins past one cycle per input frame only show the table images.
	bins := size / k.oversample
	if bins >= len(coeffs) {
		bins = len(coeffs) - 1
	}

	magnitude := make([]float64, bins+1)
	for b := range magnitude {
		magnitude[b] = cmplx.Abs(coeffs[b])
	}
	if dc := magnitude[0]; dc > 0 {
		f64.Scale(magnitude, magnitude, 1/dc)
	}

	r := Response{
		Frequencies: make([]float64, len(magnitude)),
		MagnitudeDB: make([]float64, len(magnitude)),
	}
	for b, m := range magnitude {
		r.Frequencies[b] = float64(b*k.oversample) / float64(size)
		r.MagnitudeDB[b] = MagnitudeDB(m)
	}
	return r, nil
}

// PeakDB returns the largest magnitude in dB within [from, to] cycles per
// frame, or -Inf if no bin falls in the range.
func (r Response) PeakDB(from, to float64) float64 {
	peak := math.Inf(-1)
	for i, f := range r.Frequencies {
		if f >= from && f <= to && r.MagnitudeDB[i] > peak {
			peak = r.MagnitudeDB[i]
		}
	}
	return peak
}

// MinDB returns the smallest magnitude in dB within [from, to] cycles per
// frame, or +Inf if no bin falls in the range.
func (r Response) MinDB(from, to float64) float64 {
	low := math.Inf(1)
	for i, f := range r.Frequencies {
		if f >= from && f <= to && r.MagnitudeDB[i] < low {
			low = r.MagnitudeDB[i]
		}
	}
	return low
}

// MagnitudeDB converts linear magnitude to decibels.
func MagnitudeDB(magnitude float64) float64 {
	const (
		minMagnitude = 1e-12 // Avoid log(0)
		dbMultiplier = 20.0  // 20*log10 for magnitude
	)

	if magnitude < minMagnitude {
		magnitude = minMagnitude
	}
	return dbMultiplier * math.Log10(magnitude)
}
