package rtaudio

import "github.com/tphakala/go-rtaudio/internal/engine"

// Ratio limits
const (
	MinRatio = engine.MinRatio
	MaxRatio = engine.MaxRatio
)

// Ring buffer sizes in frames
const (
	DefaultRingBufferSize = 32768 // Adaptive resampler default
	DefaultAdaptiveSize   = 2048  // Initial adapter ring before it adapts to the buffer sizes
	minRingBufferSize     = 2
	maxRingBufferSize     = 1 << 24
)

// Audio adapter controller
const (
	defaultProportionalGain = 0.05
	defaultIntegralGain     = 0.0005
	adapterRingFactor       = 4 // Adapted ring size in multiples of the larger buffer size
	maxChannels             = 256
)

// Driver parameter bounds
const (
	maxBufferSize = 1 << 16
	maxSampleRate = 768000
)
