package filter

// Bessel series constants
const (
	besselHalf     = 2.0   // I₀ series uses (x/2)
	besselMaxTerms = 64    // Upper bound on series terms
	besselEpsilon  = 1e-17 // Relative size of the last significant term
)

// Kaiser β formula constants (Kaiser & Schafer)
const (
	kaiserAttHigh      = 50.0
	kaiserAttMedium    = 21.0
	kaiserHighCoeff    = 0.1102
	kaiserHighOffset   = 8.7
	kaiserMediumCoeff1 = 0.5842
	kaiserMediumCoeff2 = 0.07886
	kaiserMediumPower  = 0.4
)

// Kernel parameter bounds
const (
	minZeroCrossings = 2
	maxZeroCrossings = 128
	minOversample    = 8
	maxOversample    = 4096
	maxAttenuation   = 200.0
)

// Response analysis sizes
const (
	minFFTSize       = 1024
	maxFFTSize       = 1 << 22
	responseOversize = 2 // FFT covers at least twice the impulse length
)
