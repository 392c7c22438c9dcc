// Package ringbuffer provides a lock-free single-producer single-consumer
// ring of float32 audio frames.
//
// One goroutine may write while another reads. Positions are published
// with atomic stores, so no locks are taken on either side. The ring
// exposes its free and filled regions as at most two contiguous segments
// (read and write vectors), which lets converters work directly on ring
// memory without copying.
package ringbuffer

import (
	"errors"
	"fmt"
	"math/bits"
	"sync/atomic"
)

// ErrInvalidSize is returned for a non-positive size or a logical size
// larger than the allocated capacity.
var ErrInvalidSize = errors.New("invalid ring buffer size")

// Ring is a SPSC float32 ring buffer.
//
// The backing array is a power of two. The logical size, which bounds the
// number of buffered frames, may be set lower than the capacity with
// ResetSize so the ring can shrink and grow without reallocating.
type Ring struct {
	data []float32
	mask uint64
	size uint64

	// Monotonic frame counters. Only the reader stores read and only the
	// writer stores write.
	read  atomic.Uint64
	write atomic.Uint64
}

// New creates a ring able to hold size frames.
func New(size int) (*Ring, error) {
	if size <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidSize, size)
	}
	capacity := uint64(1) << bits.Len64(uint64(size-1))
	return &Ring{
		data: make([]float32, capacity),
		mask: capacity - 1,
		size: uint64(size),
	}, nil
}

// Size returns the logical size in frames.
func (r *Ring) Size() int {
	return int(r.size)
}

// Capacity returns the allocated size in frames.
func (r *Ring) Capacity() int {
	return len(r.data)
}

// ReadSpace returns the number of frames available for reading.
func (r *Ring) ReadSpace() int {
	return int(r.write.Load() - r.read.Load())
}

// WriteSpace returns the number of frames that can be written.
func (r *Ring) WriteSpace() int {
	filled := r.write.Load() - r.read.Load()
	if filled >= r.size {
		return 0
	}
	return int(r.size - filled)
}

// Read copies up to len(dst) frames out of the ring and returns the
// number copied.
func (r *Ring) Read(dst []float32) int {
	first, second := r.ReadVector()
	n := copy(dst, first)
	n += copy(dst[n:], second)
	r.ReadAdvance(n)
	return n
}

// Write copies up to len(src) frames into the ring and returns the number
// copied.
func (r *Ring) Write(src []float32) int {
	first, second := r.WriteVector()
	n := copy(first, src)
	n += copy(second, src[n:])
	r.WriteAdvance(n)
	return n
}

// ReadVector returns the filled region as two segments. The second is
// empty unless the region wraps. The slices alias ring memory and are
// valid until ReadAdvance.
func (r *Ring) ReadVector() (first, second []float32) {
	w := r.write.Load()
	rd := r.read.Load()
	return r.segments(rd, w-rd)
}

// WriteVector returns the free region as two segments. The slices alias
// ring memory and are valid until WriteAdvance.
func (r *Ring) WriteVector() (first, second []float32) {
	rd := r.read.Load()
	w := r.write.Load()
	free := uint64(0)
	if filled := w - rd; filled < r.size {
		free = r.size - filled
	}
	return r.segments(w, free)
}

func (r *Ring) segments(pos, n uint64) (first, second []float32) {
	if n == 0 {
		return nil, nil
	}
	start := pos & r.mask
	capacity := uint64(len(r.data))
	if start+n <= capacity {
		return r.data[start : start+n], nil
	}
	return r.data[start:], r.data[:start+n-capacity]
}

// ReadAdvance marks n frames as consumed. n is clamped to ReadSpace.
func (r *Ring) ReadAdvance(n int) {
	if n <= 0 {
		return
	}
	rd := r.read.Load()
	avail := r.write.Load() - rd
	r.read.Store(rd + min(uint64(n), avail))
}

// WriteAdvance marks n frames as produced. n is clamped to WriteSpace.
func (r *Ring) WriteAdvance(n int) {
	if n <= 0 {
		return
	}
	r.write.Store(r.write.Load() + min(uint64(n), uint64(r.WriteSpace())))
}

// Reset clears the ring and fills half of it with silence, leaving equal
// room for the producer and the consumer to drift in either direction.
// Reset must not run concurrently with Read or Write.
func (r *Ring) Reset() {
	clear(r.data)
	r.read.Store(0)
	r.write.Store(0)
	r.WriteAdvance(int(r.size / 2))
}

// ResetSize changes the logical size and resets the ring. It fails if size
// exceeds the allocated capacity.
func (r *Ring) ResetSize(size int) error {
	if size <= 0 || size > len(r.data) {
		return fmt.Errorf("%w: %d (capacity %d)", ErrInvalidSize, size, len(r.data))
	}
	r.size = uint64(size)
	r.Reset()
	return nil
}
