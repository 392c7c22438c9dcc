// Package engine implements the streaming variable-ratio sample-rate
// converters that back the adaptive resampler.
//
// A converter owns all of its conversion history. Each Process call may
// use a different ratio; the call consumes input frames and generates
// output frames until either the output is full or the input is
// exhausted, and reports how many of each it handled (the contract of
// libsamplerate's src_process). Frames not consumed must be presented
// again on the next call.
//
// Converters never allocate in Process and are not safe for concurrent use.
package engine

import (
	"errors"
	"fmt"
	"math"
)

// Quality selects the conversion algorithm. The numbering is the one used
// by the adaptive resampler configuration.
type Quality int

const (
	// QualityLinear interpolates linearly between neighbouring frames.
	QualityLinear Quality = iota

	// QualityZeroOrderHold repeats the most recent input frame.
	QualityZeroOrderHold

	// QualitySincFastest uses a short windowed-sinc kernel.
	QualitySincFastest

	// QualitySincMedium uses a medium windowed-sinc kernel.
	QualitySincMedium

	// QualitySincBest uses a long windowed-sinc kernel.
	QualitySincBest
)

// String returns the converter name for the quality.
func (q Quality) String() string {
	switch q {
	case QualityLinear:
		return "linear"
	case QualityZeroOrderHold:
		return "zero-order-hold"
	case QualitySincFastest:
		return "sinc-fastest"
	case QualitySincMedium:
		return "sinc-medium"
	case QualitySincBest:
		return "sinc-best"
	default:
		return fmt.Sprintf("quality(%d)", int(q))
	}
}

// Valid reports whether q names a known converter.
func (q Quality) Valid() bool {
	return q >= QualityLinear && q <= QualitySincBest
}

// Ratio bounds accepted by every converter. Values outside are rejected by
// Process; callers clamp before calling.
const (
	MinRatio = 0.25
	MaxRatio = 4.0
)

var (
	// ErrBadRatio is returned by Process for a ratio outside [MinRatio, MaxRatio].
	ErrBadRatio = errors.New("conversion ratio out of range")

	// ErrUnknownQuality is returned by New for an unsupported quality.
	ErrUnknownQuality = errors.New("unknown converter quality")

	// ErrClosed is returned by Process after Close.
	ErrClosed = errors.New("converter closed")
)

// Data describes one conversion call. In and Out are mono frame slices.
type Data struct {
	In    []float32
	Out   []float32
	Ratio float64 // output rate / input rate

	InputFramesUsed int
	OutputFramesGen int
}

// Converter is a stateful variable-ratio sample-rate converter.
type Converter interface {
	// Process converts d.In into d.Out at d.Ratio and fills in the
	// InputFramesUsed and OutputFramesGen fields.
	Process(d *Data) error

	// Reset discards the conversion history.
	Reset()

	// Close releases the converter state. Process fails afterwards.
	Close() error

	// Quality returns the algorithm in use.
	Quality() Quality

	// Latency returns the converter look-ahead in input frames at ratio 1.
	Latency() int

	// Taps returns the number of input frames weighted per output frame at unity ratio.
	Taps() int
}

// New creates a converter for the given quality.
func New(q Quality) (Converter, error) {
	switch q {
	case QualityLinear:
		return newLinear(false), nil
	case QualityZeroOrderHold:
		return newLinear(true), nil
	case QualitySincFastest, QualitySincMedium, QualitySincBest:
		return newSinc(q)
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownQuality, int(q))
	}
}

func checkRatio(ratio float64) error {
	if math.IsNaN(ratio) || ratio < MinRatio || ratio > MaxRatio {
		return ErrBadRatio
	}
	return nil
}
