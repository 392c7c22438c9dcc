package rtaudio

import (
	"fmt"
	"math"
	"sync/atomic"

	"github.com/tphakala/go-rtaudio/internal/ringbuffer"
)

// Resampler moves frames between a producer and a consumer running at
// rates that differ by an adjustable ratio (output rate / input rate).
type Resampler interface {
	// SetRatio sets the ratio to num/denom, clamped to [MinRatio, MaxRatio].
	SetRatio(num, denom uint32)

	// Ratio returns the current ratio.
	Ratio() float64

	// ReadResample fills buffer with converted frames and returns the
	// number produced. It never touches memory outside buffer.
	ReadResample(buffer []float32) int

	// WriteResample converts buffer into the resampler and returns the
	// number of frames consumed.
	WriteResample(buffer []float32) int

	// Reset clears conversion history and buffered frames.
	Reset()
}

// Stats holds resampler event counters.
type Stats struct {
	Underruns          uint64 // Reads that found fewer frames than requested
	Overruns           uint64 // Writes that found less room than needed
	ConversionFailures uint64
}

// RingResampler is a Resampler without conversion: frames pass through a
// ring buffer unchanged and the ratio is only recorded.
//
// The ring starts half full of silence so that the producer and the
// consumer can drift apart in either direction. FillError reports the
// distance from that center and is the input of a drift control loop.
//
// One goroutine may write while another reads.
type RingResampler struct {
	ring  *ringbuffer.Ring
	ratio atomic.Uint64 // math.Float64bits

	underruns   atomic.Uint64
	overruns    atomic.Uint64
	convFailure atomic.Uint64
}

var _ Resampler = (*RingResampler)(nil)

// NewRingResampler creates a pass-through resampler with a ring of size frames.
func NewRingResampler(size int) (*RingResampler, error) {
	r := &RingResampler{}
	if err := r.init(size); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *RingResampler) init(size int) error {
	if size < minRingBufferSize || size > maxRingBufferSize {
		return fmt.Errorf("%w: ring buffer size %d (must be %d-%d)", ErrInvalidConfig, size, minRingBufferSize, maxRingBufferSize)
	}
	ring, err := ringbuffer.New(size)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	r.ring = ring
	r.ratio.Store(math.Float64bits(1))
	r.ring.Reset()
	return nil
}

// SetRatio sets the ratio to num/denom, clamped to [MinRatio, MaxRatio].
func (r *RingResampler) SetRatio(num, denom uint32) {
	r.ratio.Store(math.Float64bits(RatioOf(num, denom)))
}

// SetRatioValue sets the ratio directly, clamped to [MinRatio, MaxRatio].
func (r *RingResampler) SetRatioValue(ratio float64) {
	r.ratio.Store(math.Float64bits(ClampRatio(ratio)))
}

// Ratio returns the current ratio.
func (r *RingResampler) Ratio() float64 {
	return math.Float64frombits(r.ratio.Load())
}

// Read copies exactly len(buffer) frames out of the ring. If fewer are
// buffered nothing is read and it returns 0 (producer too slow).
func (r *RingResampler) Read(buffer []float32) int {
	if r.ring.ReadSpace() < len(buffer) {
		r.underruns.Add(1)
		return 0
	}
	return r.ring.Read(buffer)
}

// Write copies exactly len(buffer) frames into the ring. If there is not
// enough room nothing is written and it returns 0 (consumer too slow).
func (r *RingResampler) Write(buffer []float32) int {
	if r.ring.WriteSpace() < len(buffer) {
		r.overruns.Add(1)
		return 0
	}
	return r.ring.Write(buffer)
}

// ReadResample reads without conversion.
func (r *RingResampler) ReadResample(buffer []float32) int {
	return r.Read(buffer)
}

// WriteResample writes without conversion.
func (r *RingResampler) WriteResample(buffer []float32) int {
	return r.Write(buffer)
}

// ReadSpace returns the number of buffered frames.
func (r *RingResampler) ReadSpace() int {
	return r.ring.ReadSpace()
}

// WriteSpace returns the number of frames that can be written.
func (r *RingResampler) WriteSpace() int {
	return r.ring.WriteSpace()
}

// Size returns the ring size in frames.
func (r *RingResampler) Size() int {
	return r.ring.Size()
}

// FillError returns the buffered frame count minus half the ring size.
// Positive values mean the producer runs ahead of the consumer.
func (r *RingResampler) FillError() int {
	return r.ring.ReadSpace() - r.ring.Size()/2
}

// Reset empties the ring and fills half of it with silence. The ratio is
// kept. Reset must not run concurrently with reads or writes.
func (r *RingResampler) Reset() {
	r.ring.Reset()
}

// ResetSize changes the ring size within its allocated capacity and resets it.
func (r *RingResampler) ResetSize(size int) error {
	if err := r.ring.ResetSize(size); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}

// Capacity returns the largest size accepted by ResetSize.
func (r *RingResampler) Capacity() int {
	return r.ring.Capacity()
}

// Stats returns the event counters.
func (r *RingResampler) Stats() Stats {
	return Stats{
		Underruns:          r.underruns.Load(),
		Overruns:           r.overruns.Load(),
		ConversionFailures: r.convFailure.Load(),
	}
}
