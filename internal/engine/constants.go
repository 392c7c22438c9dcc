package engine

// Linear and zero-order-hold converter constants
const (
	linearTaps = 2 // Frames weighted per output frame
	holdTaps   = 1
)

// Sinc converter presets. Longer kernels trade CPU for a sharper
// transition band and deeper stopband.
const (
	sincFastestZeroCrossings = 8
	sincFastestOversample    = 64
	sincFastestAttenuation   = 60.0

	sincMediumZeroCrossings = 16
	sincMediumOversample    = 128
	sincMediumAttenuation   = 90.0

	sincBestZeroCrossings = 32
	sincBestOversample    = 256
	sincBestAttenuation   = 120.0
)

// sincBlockFrames is the number of input frames the history buffer can
// accept between compactions.
const sincBlockFrames = 4096
