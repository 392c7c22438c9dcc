// Package wavfile provides a blocking audio driver that captures from and
// plays back to WAV files. Periods are delivered as fast as the caller
// consumes them, or paced at the stream rate like a hardware device.
package wavfile

import (
	"errors"
	"fmt"
	"io"
	"log"
	"sync/atomic"

	"github.com/go-audio/audio"

	rtaudio "github.com/tphakala/go-rtaudio"
	"github.com/tphakala/go-rtaudio/internal/drivers/pacing"
)

const defaultBitDepth = bitsPerSample16

// ProcessFunc handles one period. capture holds one buffer per input
// channel, playback one per output channel.
type ProcessFunc func(capture, playback [][]float32) error

// Config configures a WAV file driver.
type Config struct {
	// CapturePath is read period by period. Empty disables capture.
	CapturePath string

	// PlaybackPath receives every playback period. Empty disables playback.
	PlaybackPath string

	BufferSize uint32

	// SampleRate of the stream. Zero takes the capture file's rate.
	SampleRate uint32

	// PlaybackChannels defaults to the capture channel count.
	PlaybackChannels int

	// BitDepth of the playback file: 16, 24 or 32. Zero takes the capture
	// file's depth, or 16.
	BitDepth int

	// Loop restarts the capture file at its end instead of ending the stream.
	Loop bool

	// Paced delivers periods in real time.
	Paced bool
	Clock pacing.Clock

	RealTime bool

	// Process is called on every period. Nil copies capture to playback.
	Process ProcessFunc

	Logger *log.Logger
}

// DefaultConfig returns an unpaced configuration with 1024-frame periods.
func DefaultConfig() Config {
	return Config{BufferSize: 1024}
}

// Validate checks if the configuration is valid. File contents are checked
// on Open.
func (c *Config) Validate() error {
	if c.CapturePath == "" && c.PlaybackPath == "" {
		return fmt.Errorf("%w: neither capture nor playback file", rtaudio.ErrInvalidConfig)
	}
	if c.CapturePath == "" && c.SampleRate == 0 {
		return fmt.Errorf("%w: playback-only stream needs a sample rate", rtaudio.ErrInvalidConfig)
	}
	if c.CapturePath == "" && c.PlaybackChannels == 0 {
		return fmt.Errorf("%w: playback-only stream needs a channel count", rtaudio.ErrInvalidConfig)
	}
	if c.PlaybackChannels < 0 {
		return fmt.Errorf("%w: playback channels %d", rtaudio.ErrInvalidConfig, c.PlaybackChannels)
	}
	if c.BitDepth != 0 && maxValue(c.BitDepth) == 0 {
		return fmt.Errorf("%w: bit depth %d (must be 16, 24 or 32)", rtaudio.ErrInvalidConfig, c.BitDepth)
	}
	if c.BufferSize == 0 {
		return fmt.Errorf("%w: zero buffer size", rtaudio.ErrInvalidConfig)
	}
	return nil
}

// Driver is a DriverClient reading and writing WAV files.
type Driver struct {
	rtaudio.BaseDriver

	cfg    Config
	logger *log.Logger
	pacer  *pacing.Pacer

	input  *wavInput
	output *wavOutput
	eof    bool

	inMax, outMax float64

	capture     [][]float32
	playback    [][]float32
	readBuf     audio.IntBuffer
	writeBuf    audio.IntBuffer
	interleaved []float32

	frames atomic.Uint64
}

var (
	_ rtaudio.DriverClient = (*Driver)(nil)
	_ rtaudio.Initializer  = (*Driver)(nil)
)

// New creates a closed WAV file driver.
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

// Open probes the capture file and opens the driver with the resulting
// parameters.
func (d *Driver) Open() error {
	p := rtaudio.OpenParams{
		BufferSize:   d.cfg.BufferSize,
		SampleRate:   d.cfg.SampleRate,
		OutChannels:  d.cfg.PlaybackChannels,
		CaptureName:  d.cfg.CapturePath,
		PlaybackName: d.cfg.PlaybackPath,
	}
	if d.cfg.CapturePath != "" {
		info, err := probe(d.cfg.CapturePath)
		if err != nil {
			return err
		}
		p.Capturing = true
		p.InChannels = info.channels
		if p.SampleRate == 0 {
			p.SampleRate = uint32(info.rate)
		}
		if p.OutChannels == 0 {
			p.OutChannels = info.channels
		}
	}
	p.Playing = d.cfg.PlaybackPath != ""
	if !p.Playing {
		p.OutChannels = 0
	}
	return d.OpenWith(p)
}

// OpenWith opens the files named by p.CaptureName and p.PlaybackName. The
// capture file must match the requested rate and channel count.
func (d *Driver) OpenWith(p rtaudio.OpenParams) (err error) {
	if d.IsOpen() {
		return fmt.Errorf("%w: driver already open", rtaudio.ErrInvalidConfig)
	}
	if err := d.BaseDriver.OpenWith(p); err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = d.closeFiles()
			_ = d.BaseDriver.Close()
		}
	}()

	frames := int(p.BufferSize)
	bitDepth := d.cfg.BitDepth

	if p.Capturing {
		in, err := openInput(p.CaptureName)
		if err != nil {
			return err
		}
		d.input = in
		if in.info.rate != int(p.SampleRate) || in.info.channels != p.InChannels {
			return fmt.Errorf("%w: %s is %d Hz/%d ch, want %d Hz/%d ch", rtaudio.ErrInvalidConfig,
				p.CaptureName, in.info.rate, in.info.channels, p.SampleRate, p.InChannels)
		}
		if bitDepth == 0 {
			bitDepth = in.info.bitDepth
		}
		d.inMax = maxValue(in.info.bitDepth)
		d.readBuf = audio.IntBuffer{
			Data:           make([]int, frames*p.InChannels),
			Format:         &audio.Format{NumChannels: p.InChannels, SampleRate: int(p.SampleRate)},
			SourceBitDepth: in.info.bitDepth,
		}
	}
	if bitDepth == 0 {
		bitDepth = defaultBitDepth
	}

	if p.Playing {
		out, err := createOutput(p.PlaybackName, int(p.SampleRate), bitDepth, p.OutChannels)
		if err != nil {
			return err
		}
		d.output = out
		d.outMax = maxValue(bitDepth)
		d.writeBuf = audio.IntBuffer{
			Data:           make([]int, frames*p.OutChannels),
			Format:         &audio.Format{NumChannels: p.OutChannels, SampleRate: int(p.SampleRate)},
			SourceBitDepth: bitDepth,
		}
		d.interleaved = make([]float32, frames*stereoChannels)
	}

	if d.cfg.Paced {
		pacer, err := pacing.New(d.cfg.Clock, p.BufferSize, float64(p.SampleRate))
		if err != nil {
			return err
		}
		d.pacer = pacer
	}

	d.capture = allocate(p.InChannels, frames)
	d.playback = allocate(p.OutChannels, frames)
	d.eof = false

	d.logger.Printf("wavfile: opened %d Hz, %d frames, capture %q (%d ch), playback %q (%d ch, %d-bit)",
		p.SampleRate, p.BufferSize, p.CaptureName, p.InChannels, p.PlaybackName, p.OutChannels, bitDepth)
	return nil
}

func allocate(channels, frames int) [][]float32 {
	bufs := make([][]float32, channels)
	for i := range bufs {
		bufs[i] = make([]float32, frames)
	}
	return bufs
}

// Close finalizes the playback file and closes both files.
func (d *Driver) Close() error {
	if !d.IsOpen() {
		return nil
	}
	err := d.closeFiles()
	d.logger.Printf("wavfile: closed after %d frames", d.frames.Load())
	return errors.Join(err, d.BaseDriver.Close())
}

func (d *Driver) closeFiles() error {
	var errs []error
	if d.output != nil {
		errs = append(errs, d.output.Close())
		d.output = nil
	}
	if d.input != nil {
		errs = append(errs, d.input.Close())
		d.input = nil
	}
	return errors.Join(errs...)
}

// Initialize restarts the period schedule of a paced driver.
func (d *Driver) Initialize() error {
	if !d.IsOpen() {
		return rtaudio.ErrClosed
	}
	if d.pacer != nil {
		d.pacer.Reset()
	}
	return nil
}

// Read fills the capture buffers with the next period and, when paced,
// waits for its deadline. A final partial period is padded with silence;
// the call after it returns ErrEndOfStream.
func (d *Driver) Read() error {
	if !d.IsOpen() {
		return rtaudio.ErrClosed
	}
	if d.eof {
		return ErrEndOfStream
	}
	if d.input != nil {
		frames := int(d.Params().BufferSize)
		filled, err := d.decode(frames)
		if err != nil {
			return err
		}
		if filled == 0 {
			d.eof = true
			return ErrEndOfStream
		}
		if filled < frames {
			for _, ch := range d.capture {
				clear(ch[filled:])
			}
			d.eof = true
		}
	}
	if d.pacer != nil {
		return d.pacer.Wait()
	}
	return nil
}

func (d *Driver) decode(frames int) (int, error) {
	channels := d.input.info.channels
	all := d.readBuf.Data[:frames*channels]
	filled := 0
	rewound := false

	for filled < frames {
		d.readBuf.Data = all[filled*channels:]
		n, err := d.input.decoder.PCMBuffer(&d.readBuf)
		if err != nil && !errors.Is(err, io.EOF) {
			d.readBuf.Data = all
			return 0, fmt.Errorf("decode capture file: %w", err)
		}
		got := n / channels
		if got > 0 {
			filled += got
			rewound = false
			continue
		}
		if !d.cfg.Loop || rewound {
			break
		}
		if err := d.input.rewind(); err != nil {
			d.readBuf.Data = all
			return 0, err
		}
		rewound = true
	}
	d.readBuf.Data = all

	deinterleaveInto(all, d.capture, filled, float32(1/d.inMax))
	return filled, nil
}

// Process runs the configured ProcessFunc, then the slaves when master.
func (d *Driver) Process() error {
	if d.cfg.Process != nil {
		if err := d.cfg.Process(d.capture, d.playback); err != nil {
			return err
		}
	} else {
		for i, out := range d.playback {
			if i < len(d.capture) {
				copy(out, d.capture[i])
			} else {
				clear(out)
			}
		}
	}
	if d.GetMaster() {
		return d.ProcessSlaves()
	}
	return nil
}

// Write appends the playback buffers to the playback file.
func (d *Driver) Write() error {
	if !d.IsOpen() {
		return rtaudio.ErrClosed
	}
	frames := int(d.Params().BufferSize)
	if d.output != nil {
		interleaveInto(d.playback, d.writeBuf.Data, d.interleaved, frames, d.outMax)
		if err := d.output.Write(&d.writeBuf); err != nil {
			return fmt.Errorf("encode playback file: %w", err)
		}
	}
	d.frames.Add(uint64(frames))
	return nil
}

// SetBufferSize is not supported while the files are open.
func (d *Driver) SetBufferSize(frames uint32) error {
	if d.IsOpen() {
		return fmt.Errorf("%w: cannot change buffer size of an open file driver", rtaudio.ErrInvalidConfig)
	}
	d.cfg.BufferSize = frames
	return d.BaseDriver.SetBufferSize(frames)
}

// SetSampleRate is not supported while the files are open.
func (d *Driver) SetSampleRate(rate uint32) error {
	if d.IsOpen() {
		return fmt.Errorf("%w: cannot change sample rate of an open file driver", rtaudio.ErrInvalidConfig)
	}
	d.cfg.SampleRate = rate
	return d.BaseDriver.SetSampleRate(rate)
}

// Frames returns the number of frames written since creation.
func (d *Driver) Frames() uint64 {
	return d.frames.Load()
}

// Xruns returns the number of missed deadlines of a paced driver.
func (d *Driver) Xruns() uint64 {
	if d.pacer == nil {
		return 0
	}
	return d.pacer.Xruns()
}

// Capture returns the capture buffers of the current period.
func (d *Driver) Capture() [][]float32 {
	return d.capture
}

// Playback returns the playback buffers of the current period.
func (d *Driver) Playback() [][]float32 {
	return d.playback
}

// CaptureFrames returns the length of the capture file in frames, or zero
// without capture.
func (d *Driver) CaptureFrames() int64 {
	if d.input == nil {
		return 0
	}
	return d.input.info.frames
}
