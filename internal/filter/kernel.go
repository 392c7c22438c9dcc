package filter

import (
	"fmt"
	"math"

	"github.com/tphakala/simd/f64"
)

// KernelParams holds the parameters of a windowed-sinc interpolation kernel.
type KernelParams struct {
	// ZeroCrossings is the number of sinc zero crossings on each side of
	// the center. The kernel spans 2*ZeroCrossings input frames at unity ratio.
	ZeroCrossings int

	// Oversample is the number of table entries per zero crossing.
	// Offsets between entries are linearly interpolated.
	Oversample int

	// Attenuation is the Kaiser window stopband attenuation in dB.
	Attenuation float64
}

// Validate checks if kernel parameters are valid.
func (p *KernelParams) Validate() error {
	if p.ZeroCrossings < minZeroCrossings || p.ZeroCrossings > maxZeroCrossings {
		return fmt.Errorf("invalid zero crossings: %d (must be %d-%d)",
			p.ZeroCrossings, minZeroCrossings, maxZeroCrossings)
	}

	if p.Oversample < minOversample || p.Oversample > maxOversample {
		return fmt.Errorf("invalid oversample factor: %d (must be %d-%d)",
			p.Oversample, minOversample, maxOversample)
	}

	if p.Attenuation < 0 || p.Attenuation > maxAttenuation {
		return fmt.Errorf("invalid attenuation: %f dB (must be 0-%v)", p.Attenuation, maxAttenuation)
	}

	return nil
}

// Kernel is a one-sided windowed-sinc table. The kernel is symmetric, so
// only offsets in [0, ZeroCrossings] are stored.
//
// Table entries at integer offsets other than zero are exactly zero, which
// makes interpolation at integer positions an exact copy of the input.
type Kernel struct {
	table         []float32
	last          int
	zeroCrossings int
	oversample    int
	beta          float64
}

// DesignKernel builds the kernel table for the given parameters.
func DesignKernel(params KernelParams) (*Kernel, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	beta := KaiserBeta(params.Attenuation)
	i0Beta := BesselI0(beta)
	half := float64(params.ZeroCrossings)
	last := params.ZeroCrossings * params.Oversample

	table := make([]float32, last+1)
	table[0] = 1
	for i := 1; i < last; i++ {
		if i%params.Oversample == 0 {
			// sin(πk) is not exactly zero in floating point
			continue
		}
		t := float64(i) / float64(params.Oversample)
		sinc := math.Sin(math.Pi*t) / (math.Pi * t)
		table[i] = float32(sinc * kaiserWindow(t, half, beta, i0Beta))
	}

	return &Kernel{
		table:         table,
		last:          last,
		zeroCrossings: params.ZeroCrossings,
		oversample:    params.Oversample,
		beta:          beta,
	}, nil
}

// At evaluates the kernel at offset t (in input frames, either sign).
// It returns zero for |t| >= ZeroCrossings. At does not allocate.
func (k *Kernel) At(t float64) float32 {
	if t < 0 {
		t = -t
	}
	p := t * float64(k.oversample)
	idx := int(p)
	if idx >= k.last {
		return 0
	}
	a := k.table[idx]
	return a + float32(p-float64(idx))*(k.table[idx+1]-a)
}

// ZeroCrossings returns the one-sided number of zero crossings.
func (k *Kernel) ZeroCrossings() int {
	return k.zeroCrossings
}

// Oversample returns the number of table entries per zero crossing.
func (k *Kernel) Oversample() int {
	return k.oversample
}

// Beta returns the Kaiser β used for the window.
func (k *Kernel) Beta() float64 {
	return k.beta
}

// Len returns the number of table entries, including the trailing zero.
func (k *Kernel) Len() int {
	return len(k.table)
}

// Taps returns the number of input frames touched by one output frame at
// the given cutoff scale (1 for ratios >= 1, the ratio itself below 1).
func (k *Kernel) Taps(scale float64) int {
	return 2 * HalfWidth(k.zeroCrossings, scale)
}

// DCGain returns Σ h(frac - n) over all integer n, the gain a constant
// signal sees when interpolated at fractional position frac.
// It is 1 at frac == 0 and deviates slightly in between.
func (k *Kernel) DCGain(frac float64) float64 {
	values := make([]float64, 0, 2*k.zeroCrossings+1)
	for n := -k.zeroCrossings; n <= k.zeroCrossings; n++ {
		values = append(values, float64(k.At(frac-float64(n))))
	}
	return f64.Sum(values)
}

// HalfWidth returns the number of input frames needed on each side of the
// interpolation point for a kernel with the given zero crossings when its
// cutoff is scaled by scale (0 < scale <= 1).
func HalfWidth(zeroCrossings int, scale float64) int {
	if scale >= 1 {
		return zeroCrossings
	}
	return int(math.Ceil(float64(zeroCrossings) / scale))
}
