package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"strings"

	rtaudio "github.com/tphakala/go-rtaudio"
	"github.com/tphakala/go-rtaudio/internal/drivers/dummy"
	"github.com/tphakala/go-rtaudio/internal/drivers/wavfile"
	"github.com/tphakala/go-rtaudio/internal/tools"
)

// Driver names accepted in a driver argument string
const (
	driverDummy = "dummy"
	driverWAV   = "wav"
)

var errUnknownDriver = errors.New("unknown driver")

// device is a driver with the accessors the runner needs.
type device interface {
	rtaudio.DriverClient
	Params() rtaudio.OpenParams
	Frames() uint64
	Xruns() uint64
}

// driverSpec is a parsed driver argument string such as
// `dummy -r 48000 -p 256 -d 100` or `wav -c "in file.wav" -P out.wav`.
type driverSpec struct {
	name string

	rate     uint32
	period   uint32
	inputs   int
	outputs  int
	driftPPM float64
	tone     float64
	realTime bool

	capturePath  string
	playbackPath string
	bitDepth     int
	loop         bool
}

// parseDriverSpec tokenizes arg: the first word names the driver, the rest
// are its options.
func parseDriverSpec(arg string) (driverSpec, error) {
	p := tools.NewArgParser(arg)
	argv := p.Argv()
	if len(argv) == 0 {
		return driverSpec{}, fmt.Errorf("%w: empty driver argument", errUnknownDriver)
	}

	spec := driverSpec{name: strings.ToLower(argv[0])}
	fs := flag.NewFlagSet(spec.name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	var rate, period uint
	fs.UintVar(&rate, "r", 48000, "Sample rate in Hz")
	fs.UintVar(&period, "p", 256, "Frames per period")
	fs.BoolVar(&spec.realTime, "R", false, "Request real-time scheduling")

	switch spec.name {
	case driverDummy:
		fs.IntVar(&spec.inputs, "i", 2, "Capture channels")
		fs.IntVar(&spec.outputs, "o", 2, "Playback channels")
		fs.Float64Var(&spec.driftPPM, "d", 0, "Clock drift in ppm")
		fs.Float64Var(&spec.tone, "t", 440, "Capture tone in Hz (0 for silence)")
	case driverWAV:
		fs.StringVar(&spec.capturePath, "c", "", "Capture WAV file")
		fs.StringVar(&spec.playbackPath, "P", "", "Playback WAV file")
		fs.IntVar(&spec.outputs, "o", 0, "Playback channels (default: capture channels)")
		fs.IntVar(&spec.bitDepth, "b", 0, "Playback bit depth")
		fs.BoolVar(&spec.loop, "l", false, "Loop the capture file")
	default:
		return driverSpec{}, fmt.Errorf("%w: %q", errUnknownDriver, argv[0])
	}

	if err := fs.Parse(argv[1:]); err != nil {
		return driverSpec{}, fmt.Errorf("driver %s: %w", spec.name, err)
	}
	if fs.NArg() > 0 {
		return driverSpec{}, fmt.Errorf("driver %s: unexpected argument %q", spec.name, fs.Arg(0))
	}
	spec.rate, spec.period = uint32(rate), uint32(period)
	return spec, nil
}

// newDevice creates and opens the driver described by spec. process is
// called on every period.
func newDevice(spec driverSpec, process func(capture, playback [][]float32) error, logger *log.Logger) (device, error) {
	var d device
	switch spec.name {
	case driverDummy:
		cfg := dummy.DefaultConfig()
		cfg.SampleRate = spec.rate
		cfg.BufferSize = spec.period
		cfg.CaptureChannels = spec.inputs
		cfg.PlaybackChannels = spec.outputs
		cfg.DriftPPM = spec.driftPPM
		cfg.ToneFrequency = spec.tone
		cfg.RealTime = spec.realTime
		cfg.Process = process
		cfg.Logger = logger
		dd, err := dummy.New(cfg)
		if err != nil {
			return nil, err
		}
		d = dd
	case driverWAV:
		cfg := wavfile.DefaultConfig()
		cfg.CapturePath = spec.capturePath
		cfg.PlaybackPath = spec.playbackPath
		cfg.BufferSize = spec.period
		cfg.PlaybackChannels = spec.outputs
		cfg.BitDepth = spec.bitDepth
		cfg.Loop = spec.loop
		cfg.Paced = true
		cfg.RealTime = spec.realTime
		cfg.Process = process
		cfg.Logger = logger
		if spec.capturePath == "" {
			cfg.SampleRate = spec.rate
		}
		wd, err := wavfile.New(cfg)
		if err != nil {
			return nil, err
		}
		d = wd
	default:
		return nil, fmt.Errorf("%w: %q", errUnknownDriver, spec.name)
	}

	if err := d.Open(); err != nil {
		return nil, fmt.Errorf("open %s driver: %w", spec.name, err)
	}
	return d, nil
}
