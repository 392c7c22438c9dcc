package rtaudio

import (
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/tphakala/go-rtaudio/internal/engine"
	"github.com/tphakala/simd/cpu"
)

// Quality selects the converter used by an AdaptiveResampler.
type Quality = engine.Quality

// Converter qualities, numbered as in the server configuration.
const (
	QualityLinear        = engine.QualityLinear
	QualityZeroOrderHold = engine.QualityZeroOrderHold
	QualitySincFastest   = engine.QualitySincFastest
	QualitySincMedium    = engine.QualitySincMedium
	QualitySincBest      = engine.QualitySincBest
)

// AdaptiveResampler is a RingResampler whose ReadResample and
// WriteResample convert frames at the current ratio.
//
// ReadResample pulls ring frames through a converter, so the ring holds
// frames at the input rate and buffer receives them at input rate × ratio.
// WriteResample pushes buffer through a second converter into the ring.
// Each direction keeps its own conversion history. One producer and one
// consumer goroutine may use the two directions concurrently.
type AdaptiveResampler struct {
	RingResampler

	quality   Quality
	readConv  engine.Converter
	writeConv engine.Converter
	readData  engine.Data
	writeData engine.Data
	closed    atomic.Bool
}

var _ Resampler = (*AdaptiveResampler)(nil)

// NewAdaptiveResampler creates a resampler with linear conversion and a
// ring of DefaultRingBufferSize frames.
func NewAdaptiveResampler() *AdaptiveResampler {
	r, err := NewAdaptiveResamplerWith(QualityLinear, DefaultRingBufferSize)
	if err != nil {
		panic(err) // defaults are valid
	}
	return r
}

// NewAdaptiveResamplerWith creates a resampler with the given converter
// quality and ring size in frames.
func NewAdaptiveResamplerWith(quality Quality, ringBufferSize int) (*AdaptiveResampler, error) {
	if !quality.Valid() {
		return nil, fmt.Errorf("%w: quality %d (must be %d-%d)", ErrInvalidConfig, int(quality), int(QualityLinear), int(QualitySincBest))
	}

	r := &AdaptiveResampler{quality: quality}
	if err := r.init(ringBufferSize); err != nil {
		return nil, err
	}

	var err error
	if r.readConv, err = engine.New(quality); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConversion, err)
	}
	if r.writeConv, err = engine.New(quality); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConversion, err)
	}
	return r, nil
}

// ReadResample converts buffered frames into buffer and returns the
// number of frames produced. It stops when buffer is full or the ring is
// empty. On converter failure it returns 0.
func (r *AdaptiveResampler) ReadResample(buffer []float32) int {
	if r.closed.Load() || len(buffer) == 0 {
		return 0
	}

	ratio := r.Ratio()
	written := 0
	first, second := r.ring.ReadVector()
	for _, seg := range [2][]float32{first, second} {
		if len(seg) == 0 || written == len(buffer) {
			break
		}
		r.readData.In = seg
		r.readData.Out = buffer[written:]
		r.readData.Ratio = ratio
		if err := r.readConv.Process(&r.readData); err != nil {
			r.convFailure.Add(1)
			return 0
		}
		r.ring.ReadAdvance(r.readData.InputFramesUsed)
		written += r.readData.OutputFramesGen
		if r.readData.InputFramesUsed < len(seg) {
			break
		}
	}

	if written < len(buffer) {
		r.underruns.Add(1)
	}
	return written
}

// WriteResample converts buffer into the ring and returns the number of
// frames of buffer consumed. It stops when buffer is used up or the ring
// is full. On converter failure it returns 0.
func (r *AdaptiveResampler) WriteResample(buffer []float32) int {
	if r.closed.Load() || len(buffer) == 0 {
		return 0
	}

	ratio := r.Ratio()
	read := 0
	first, second := r.ring.WriteVector()
	for _, seg := range [2][]float32{first, second} {
		if len(seg) == 0 || read == len(buffer) {
			break
		}
		r.writeData.In = buffer[read:]
		r.writeData.Out = seg
		r.writeData.Ratio = ratio
		if err := r.writeConv.Process(&r.writeData); err != nil {
			r.convFailure.Add(1)
			return 0
		}
		r.ring.WriteAdvance(r.writeData.OutputFramesGen)
		read += r.writeData.InputFramesUsed
		if r.writeData.OutputFramesGen < len(seg) {
			break
		}
	}

	if read < len(buffer) {
		r.overruns.Add(1)
	}
	return read
}

// Reset re-centers the ring and clears the converter history. Quality and
// ratio are kept.
func (r *AdaptiveResampler) Reset() {
	r.RingResampler.Reset()
	r.resetConverters()
}

func (r *AdaptiveResampler) resetConverters() {
	if r.closed.Load() {
		return
	}
	r.readConv.Reset()
	r.writeConv.Reset()
}

// ResetSize changes the ring size and resets the resampler.
func (r *AdaptiveResampler) ResetSize(size int) error {
	if err := r.RingResampler.ResetSize(size); err != nil {
		return err
	}
	r.resetConverters()
	return nil
}

// Close releases the converters. Later ReadResample and WriteResample
// calls return 0 on any goroutine. Close must not overlap a ReadResample
// or WriteResample call in progress; concurrent Close calls are safe and
// only the first one releases the converters.
func (r *AdaptiveResampler) Close() error {
	if !r.closed.CompareAndSwap(false, true) {
		return nil
	}
	return errors.Join(r.readConv.Close(), r.writeConv.Close())
}

// Quality returns the converter quality.
func (r *AdaptiveResampler) Quality() Quality {
	return r.quality
}

// ResamplerInfo describes an AdaptiveResampler.
type ResamplerInfo struct {
	Quality  string
	Taps     int // Input frames weighted per output frame at unity ratio
	Latency  int // Converter look-ahead in input frames
	RingSize int
	Ratio    float64
	SIMD     string
}

// Info returns a description of the resampler.
func (r *AdaptiveResampler) Info() ResamplerInfo {
	return ResamplerInfo{
		Quality:  r.quality.String(),
		Taps:     r.readConv.Taps(),
		Latency:  r.readConv.Latency(),
		RingSize: r.Size(),
		Ratio:    r.Ratio(),
		SIMD:     cpu.Info(),
	}
}
