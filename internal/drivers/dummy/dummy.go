// Package dummy provides a blocking audio driver backed by a timer. It
// produces a test tone, discards playback and can run its clock slightly
// fast or slow to emulate hardware drift.
package dummy

import (
	"fmt"
	"io"
	"log"
	"math"
	"sync/atomic"

	rtaudio "github.com/tphakala/go-rtaudio"
	"github.com/tphakala/go-rtaudio/internal/drivers/pacing"
)

const (
	maxDriftPPM = 10000
	ppm         = 1e6
	twoPi       = 2 * math.Pi
)

// ProcessFunc handles one period. capture holds one buffer per input
// channel, playback one per output channel.
type ProcessFunc func(capture, playback [][]float32) error

// Config configures a dummy driver.
type Config struct {
	BufferSize       uint32
	SampleRate       uint32
	CaptureChannels  int
	PlaybackChannels int

	// DriftPPM makes the emulated clock run fast (positive) or slow.
	DriftPPM float64

	// ToneFrequency selects the capture tone in Hz. Zero captures silence.
	ToneFrequency float64
	ToneAmplitude float64

	// RealTime requests real-time scheduling of the driver thread.
	RealTime bool

	// Process is called on every period. Nil copies capture to playback.
	Process ProcessFunc

	// Clock paces the periods. Nil uses the wall clock.
	Clock pacing.Clock

	Logger *log.Logger
}

// DefaultConfig returns a stereo 48 kHz configuration with a 440 Hz tone.
func DefaultConfig() Config {
	return Config{
		BufferSize:       256,
		SampleRate:       48000,
		CaptureChannels:  2,
		PlaybackChannels: 2,
		ToneFrequency:    440,
		ToneAmplitude:    0.5,
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	p := c.params()
	if err := p.Validate(); err != nil {
		return err
	}
	if math.IsNaN(c.DriftPPM) || math.Abs(c.DriftPPM) > maxDriftPPM {
		return fmt.Errorf("%w: drift %v ppm (max %d)", rtaudio.ErrInvalidConfig, c.DriftPPM, maxDriftPPM)
	}
	if c.ToneFrequency < 0 || c.ToneFrequency >= float64(c.SampleRate)/2 {
		return fmt.Errorf("%w: tone frequency %v Hz", rtaudio.ErrInvalidConfig, c.ToneFrequency)
	}
	if c.ToneAmplitude < 0 || c.ToneAmplitude > 1 {
		return fmt.Errorf("%w: tone amplitude %v", rtaudio.ErrInvalidConfig, c.ToneAmplitude)
	}
	return nil
}

func (c *Config) params() rtaudio.OpenParams {
	return rtaudio.OpenParams{
		BufferSize:   c.BufferSize,
		SampleRate:   c.SampleRate,
		Capturing:    c.CaptureChannels > 0,
		Playing:      c.PlaybackChannels > 0,
		InChannels:   c.CaptureChannels,
		OutChannels:  c.PlaybackChannels,
		CaptureName:  "dummy:capture",
		PlaybackName: "dummy:playback",
	}
}

// Driver is a timer-paced DriverClient.
type Driver struct {
	rtaudio.BaseDriver

	cfg    Config
	logger *log.Logger
	pacer  *pacing.Pacer

	capture  [][]float32
	playback [][]float32
	phase    float64

	frames atomic.Uint64
	xruns  atomic.Uint64
}

var (
	_ rtaudio.DriverClient = (*Driver)(nil)
	_ rtaudio.Initializer  = (*Driver)(nil)
)

// New creates a closed dummy driver.
func New(cfg Config) (*Driver, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	d := &Driver{cfg: cfg, logger: logger}
	d.RealTime = cfg.RealTime
	return d, nil
}

// Open opens the driver with the configured parameters.
func (d *Driver) Open() error {
	return d.OpenWith(d.cfg.params())
}

// OpenWith opens the driver with p and allocates its period buffers.
func (d *Driver) OpenWith(p rtaudio.OpenParams) error {
	if err := d.BaseDriver.OpenWith(p); err != nil {
		return err
	}
	if err := d.configure(); err != nil {
		_ = d.BaseDriver.Close()
		return err
	}
	d.logger.Printf("dummy: opened %d Hz, %d frames, %d in / %d out, drift %+.1f ppm",
		p.SampleRate, p.BufferSize, p.InChannels, p.OutChannels, d.cfg.DriftPPM)
	return nil
}

func (d *Driver) configure() error {
	p := d.Params()
	rate := float64(p.SampleRate) * (1 + d.cfg.DriftPPM/ppm)
	if d.pacer == nil {
		pacer, err := pacing.New(d.cfg.Clock, p.BufferSize, rate)
		if err != nil {
			return err
		}
		d.pacer = pacer
	} else if err := d.pacer.SetPeriod(p.BufferSize, rate); err != nil {
		return err
	}
	d.capture = allocate(p.InChannels, int(p.BufferSize))
	d.playback = allocate(p.OutChannels, int(p.BufferSize))
	d.phase = 0
	return nil
}

func allocate(channels, frames int) [][]float32 {
	bufs := make([][]float32, channels)
	for i := range bufs {
		bufs[i] = make([]float32, frames)
	}
	return bufs
}

// Close closes the driver.
func (d *Driver) Close() error {
	if d.IsOpen() {
		d.logger.Printf("dummy: closed after %d frames, %d xruns", d.frames.Load(), d.xruns.Load())
	}
	return d.BaseDriver.Close()
}

// Initialize restarts the period schedule. It runs on the driver thread.
func (d *Driver) Initialize() error {
	if !d.IsOpen() {
		return rtaudio.ErrClosed
	}
	d.pacer.Reset()
	return nil
}

// Read waits for the period deadline and fills the capture buffers.
func (d *Driver) Read() error {
	if !d.IsOpen() {
		return rtaudio.ErrClosed
	}
	if err := d.pacer.Wait(); err != nil {
		d.xruns.Add(1)
		return err
	}
	d.generate()
	return nil
}

func (d *Driver) generate() {
	if len(d.capture) == 0 {
		return
	}
	first := d.capture[0]
	if d.cfg.ToneFrequency == 0 || d.cfg.ToneAmplitude == 0 {
		clear(first)
	} else {
		step := twoPi * d.cfg.ToneFrequency / float64(d.Params().SampleRate)
		amp := d.cfg.ToneAmplitude
		for i := range first {
			first[i] = float32(amp * math.Sin(d.phase))
			d.phase += step
		}
		d.phase = math.Mod(d.phase, twoPi)
	}
	for _, ch := range d.capture[1:] {
		copy(ch, first)
	}
}

// Process runs the configured ProcessFunc, then the slaves when master.
func (d *Driver) Process() error {
	if d.cfg.Process != nil {
		if err := d.cfg.Process(d.capture, d.playback); err != nil {
			return err
		}
	} else {
		d.monitor()
	}
	if d.GetMaster() {
		return d.ProcessSlaves()
	}
	return nil
}

func (d *Driver) monitor() {
	for i, out := range d.playback {
		if i < len(d.capture) {
			copy(out, d.capture[i])
		} else {
			clear(out)
		}
	}
}

// Write discards the playback buffers and accounts the period.
func (d *Driver) Write() error {
	if !d.IsOpen() {
		return rtaudio.ErrClosed
	}
	d.frames.Add(uint64(d.Params().BufferSize))
	return nil
}

// SetBufferSize changes the period size of an open driver.
func (d *Driver) SetBufferSize(frames uint32) error {
	if err := d.BaseDriver.SetBufferSize(frames); err != nil {
		return err
	}
	if !d.IsOpen() {
		return nil
	}
	return d.configure()
}

// SetSampleRate changes the rate of an open driver.
func (d *Driver) SetSampleRate(rate uint32) error {
	if err := d.BaseDriver.SetSampleRate(rate); err != nil {
		return err
	}
	if !d.IsOpen() {
		return nil
	}
	return d.configure()
}

// Frames returns the number of frames written since creation.
func (d *Driver) Frames() uint64 {
	return d.frames.Load()
}

// Xruns returns the number of missed period deadlines.
func (d *Driver) Xruns() uint64 {
	return d.xruns.Load()
}

// Capture returns the capture buffers of the current period.
func (d *Driver) Capture() [][]float32 {
	return d.capture
}

// Playback returns the playback buffers of the current period.
func (d *Driver) Playback() [][]float32 {
	return d.playback
}
