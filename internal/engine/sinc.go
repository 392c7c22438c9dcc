package engine

import (
	"math"

	"github.com/tphakala/go-rtaudio/internal/filter"
	"github.com/tphakala/simd/f32"
)

// sincConverter is a band-limited interpolator built on a windowed-sinc
// kernel table. When downsampling the kernel is stretched by 1/ratio so
// the cutoff follows the output Nyquist frequency.
//
// Input frames are copied into a linear history buffer. pos indexes the
// frame at the current output position minus frac; frames in
// [pos-H+1, pos+H] are weighted for each output frame.
type sincConverter struct {
	quality Quality
	kernel  *filter.Kernel

	buf    []float32
	coeffs []float32
	pos    int
	end    int
	frac   float64

	maxHalf int
	closed  bool
}

func sincParams(q Quality) filter.KernelParams {
	switch q {
	case QualitySincFastest:
		return filter.KernelParams{
			ZeroCrossings: sincFastestZeroCrossings,
			Oversample:    sincFastestOversample,
			Attenuation:   sincFastestAttenuation,
		}
	case QualitySincMedium:
		return filter.KernelParams{
			ZeroCrossings: sincMediumZeroCrossings,
			Oversample:    sincMediumOversample,
			Attenuation:   sincMediumAttenuation,
		}
	default:
		return filter.KernelParams{
			ZeroCrossings: sincBestZeroCrossings,
			Oversample:    sincBestOversample,
			Attenuation:   sincBestAttenuation,
		}
	}
}

// KernelParams returns the kernel design of a sinc quality. It reports
// false for the qualities that use no kernel.
func KernelParams(q Quality) (filter.KernelParams, bool) {
	switch q {
	case QualitySincFastest, QualitySincMedium, QualitySincBest:
		return sincParams(q), true
	default:
		return filter.KernelParams{}, false
	}
}

func newSinc(q Quality) (*sincConverter, error) {
	kernel, err := filter.DesignKernel(sincParams(q))
	if err != nil {
		return nil, err
	}

	maxHalf := filter.HalfWidth(kernel.ZeroCrossings(), MinRatio)
	c := &sincConverter{
		quality: q,
		kernel:  kernel,
		buf:     make([]float32, 2*maxHalf+sincBlockFrames),
		coeffs:  make([]float32, 2*maxHalf),
		maxHalf: maxHalf,
	}
	c.Reset()
	return c, nil
}

// Process converts d.In into d.Out.
func (c *sincConverter) Process(d *Data) error {
	d.InputFramesUsed, d.OutputFramesGen = 0, 0
	if c.closed {
		return ErrClosed
	}
	if err := checkRatio(d.Ratio); err != nil {
		return err
	}

	scale := math.Min(1, d.Ratio)
	half := filter.HalfWidth(c.kernel.ZeroCrossings(), scale)
	step := 1 / d.Ratio
	gain := float32(scale)

	in, out := d.In, d.Out
	i, o := 0, 0

loop:
	for o < len(out) {
		for c.frac >= 1 {
			c.pos++
			c.frac--
		}

		need := c.pos + half + 1
		for c.end < need {
			if i >= len(in) {
				break loop
			}
			if c.end == len(c.buf) {
				c.compact()
				need = c.pos + half + 1
			}
			n := copy(c.buf[c.end:min(need, len(c.buf))], in[i:])
			c.end += n
			i += n
		}

		if c.frac == 0 && scale == 1 {
			out[o] = c.buf[c.pos]
		} else {
			window := c.buf[c.pos-half+1 : c.pos+half+1]
			coeffs := c.coeffs[:len(window)]
			for j := range coeffs {
				k := float64(j - half + 1)
				coeffs[j] = gain * c.kernel.At((c.frac-k)*scale)
			}
			out[o] = f32.DotProductUnsafe(window, coeffs)
		}
		o++
		c.frac += step
	}

	d.InputFramesUsed, d.OutputFramesGen = i, o
	return nil
}

// compact moves the live part of the history to the front of the buffer,
// keeping maxHalf frames behind pos.
func (c *sincConverter) compact() {
	keep := c.pos - c.maxHalf
	if keep <= 0 {
		return
	}
	copy(c.buf, c.buf[keep:c.end])
	c.end -= keep
	c.pos -= keep
}

// Reset fills the history with silence.
func (c *sincConverter) Reset() {
	clear(c.buf)
	c.pos = c.maxHalf
	c.end = c.maxHalf
	c.frac = 0
}

// Close releases the history buffers.
func (c *sincConverter) Close() error {
	c.closed = true
	c.buf = nil
	c.coeffs = nil
	return nil
}

// Quality returns the algorithm in use.
func (c *sincConverter) Quality() Quality {
	return c.quality
}

// Latency returns the look-ahead in input frames at unity ratio.
func (c *sincConverter) Latency() int {
	return c.kernel.ZeroCrossings()
}

// Taps returns the number of input frames per output frame at unity ratio.
func (c *sincConverter) Taps() int {
	return c.kernel.Taps(1)
}
