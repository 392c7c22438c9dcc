package engine

// linearConverter implements linear interpolation and, with hold set,
// zero-order hold. Both keep a single frame of history.
//
// The output position is tracked as a fractional offset from cur, the most
// recently consumed input frame. An output at offset 0 is cur itself, so at
// ratio 1 the converter is an exact pass-through.
type linearConverter struct {
	cur    float32
	frac   float64
	primed bool
	hold   bool
	closed bool
}

func newLinear(hold bool) *linearConverter {
	return &linearConverter{hold: hold}
}

// Process converts d.In into d.Out.
func (c *linearConverter) Process(d *Data) error {
	d.InputFramesUsed, d.OutputFramesGen = 0, 0
	if c.closed {
		return ErrClosed
	}
	if err := checkRatio(d.Ratio); err != nil {
		return err
	}

	step := 1 / d.Ratio
	in, out := d.In, d.Out
	i, o := 0, 0

loop:
	for o < len(out) {
		if !c.primed {
			if i >= len(in) {
				break
			}
			c.cur = in[i]
			i++
			c.primed = true
		}

		for c.frac >= 1 {
			if i >= len(in) {
				break loop
			}
			c.cur = in[i]
			i++
			c.frac--
		}

		y := c.cur
		if !c.hold && c.frac > 0 {
			// Peek the next frame without consuming it.
			if i >= len(in) {
				break
			}
			y += float32(c.frac) * (in[i] - c.cur)
		}

		out[o] = y
		o++
		c.frac += step
	}

	d.InputFramesUsed, d.OutputFramesGen = i, o
	return nil
}

// Reset clears internal state.
func (c *linearConverter) Reset() {
	c.cur = 0
	c.frac = 0
	c.primed = false
}

// Close releases the converter.
func (c *linearConverter) Close() error {
	c.closed = true
	return nil
}

// Quality returns the algorithm in use.
func (c *linearConverter) Quality() Quality {
	if c.hold {
		return QualityZeroOrderHold
	}
	return QualityLinear
}

// Latency returns zero: at unity ratio no frame is peeked.
func (c *linearConverter) Latency() int {
	return 0
}

// Taps returns the number of input frames per output frame.
func (c *linearConverter) Taps() int {
	if c.hold {
		return holdTaps
	}
	return linearTaps
}
