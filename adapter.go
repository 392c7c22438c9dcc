package rtaudio

import (
	"errors"
	"fmt"
	"io"
	"log"
	"math"
	"sync"
	"sync/atomic"
	"time"
)

// AdapterConfig configures an AudioAdapter.
//
// The host is the server side running on the server clock; the adapted
// side is a device running on its own clock. Captured device frames flow
// to the host and host frames flow to the device for playback.
type AdapterConfig struct {
	HostRate    uint32
	AdaptedRate uint32

	HostBufferSize    int
	AdaptedBufferSize int

	CaptureChannels  int
	PlaybackChannels int

	Quality Quality

	// Adaptive sizes the rings from the buffer sizes after each failure.
	// Otherwise the rings start at RingBufferSize and double on failure up
	// to DefaultRingBufferSize.
	Adaptive       bool
	RingBufferSize int

	// PI controller gains. Zero selects the defaults.
	ProportionalGain float64
	IntegralGain     float64

	// Now returns the current time. Nil uses time.Now.
	Now func() time.Time

	// Logger receives control-path diagnostics. Nil discards them.
	Logger *log.Logger
}

// DefaultAdapterConfig returns a stereo 48 kHz configuration with
// adaptive ring sizing and linear conversion.
func DefaultAdapterConfig() AdapterConfig {
	return AdapterConfig{
		HostRate:          48000,
		AdaptedRate:       48000,
		HostBufferSize:    256,
		AdaptedBufferSize: 256,
		CaptureChannels:   2,
		PlaybackChannels:  2,
		Quality:           QualityLinear,
		Adaptive:          true,
	}
}

// Validate checks if the adapter configuration is valid.
func (c *AdapterConfig) Validate() error {
	if c.HostRate == 0 || c.AdaptedRate == 0 || c.HostRate > maxSampleRate || c.AdaptedRate > maxSampleRate {
		return fmt.Errorf("%w: sample rates must be 1-%d", ErrInvalidConfig, maxSampleRate)
	}

	ratio := float64(c.HostRate) / float64(c.AdaptedRate)
	if ratio < MinRatio || ratio > MaxRatio {
		return fmt.Errorf("%w: rate ratio %v out of range (%v to %v)", ErrInvalidConfig, ratio, MinRatio, MaxRatio)
	}

	if c.HostBufferSize <= 0 || c.AdaptedBufferSize <= 0 || c.HostBufferSize > maxBufferSize || c.AdaptedBufferSize > maxBufferSize {
		return fmt.Errorf("%w: buffer sizes must be 1-%d", ErrInvalidConfig, maxBufferSize)
	}

	if c.CaptureChannels < 0 || c.PlaybackChannels < 0 || c.CaptureChannels > maxChannels || c.PlaybackChannels > maxChannels {
		return fmt.Errorf("%w: channels must be 0-%d", ErrInvalidConfig, maxChannels)
	}

	if c.CaptureChannels == 0 && c.PlaybackChannels == 0 {
		return fmt.Errorf("%w: no channels", ErrInvalidConfig)
	}

	if !c.Quality.Valid() {
		return fmt.Errorf("%w: quality %d", ErrInvalidConfig, int(c.Quality))
	}

	if !c.Adaptive && c.RingBufferSize != 0 && (c.RingBufferSize < minRingBufferSize || c.RingBufferSize > maxRingBufferSize) {
		return fmt.Errorf("%w: ring buffer size %d", ErrInvalidConfig, c.RingBufferSize)
	}

	if c.ProportionalGain < 0 || c.IntegralGain < 0 {
		return fmt.Errorf("%w: controller gains must not be negative", ErrInvalidConfig)
	}

	return nil
}

// piController turns a normalized fill error into a ratio correction.
type piController struct {
	kp, ki   float64
	integral float64
}

func (c *piController) ratio(err float64) float64 {
	c.integral += err
	return 1 - (c.kp*err + c.ki*c.integral)
}

func (c *piController) reset() {
	c.integral = 0
}

// AdapterStats holds adapter counters.
type AdapterStats struct {
	Resets       uint64 // Ring resets after a device-side failure
	HostFailures uint64 // Host periods that found a ring empty or full
	RingSize     int
}

// AudioAdapter bridges a device and the host running on independent
// clocks. PushAndPull runs on the device side once per adapted period,
// PullAndPush on the host side once per host period; they may run on
// different goroutines.
//
// Every channel has its own AdaptiveResampler. Capture rings are written
// by the device (converted to the host rate) and read by the host;
// playback rings are written by the host and read by the device
// (converted to the adapted rate). A PI controller keeps the rings half
// full by adjusting the conversion ratio.
type AudioAdapter struct {
	cfg    AdapterConfig
	logger *log.Logger
	now    func() time.Time

	capture  []*AdaptiveResampler
	playback []*AdaptiveResampler

	// Held exclusively to reset or resize the rings, shared by both sides.
	mu sync.RWMutex

	pi        piController
	baseRatio float64 // host rate / adapted rate
	ringSize  int
	ratio     atomic.Uint64 // math.Float64bits of the last controller ratio

	running      atomic.Bool
	hostTime     atomic.Int64 // UnixNano of the last PullAndPush
	resets       atomic.Uint64
	hostFailures atomic.Uint64
	closed       bool
}

// NewAudioAdapter creates an adapter with rings centered at half fill.
func NewAudioAdapter(cfg AdapterConfig) (*AudioAdapter, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	a := &AudioAdapter{
		cfg:       cfg,
		logger:    cfg.Logger,
		now:       cfg.Now,
		baseRatio: float64(cfg.HostRate) / float64(cfg.AdaptedRate),
		pi: piController{
			kp: cfg.ProportionalGain,
			ki: cfg.IntegralGain,
		},
	}
	if a.logger == nil {
		a.logger = log.New(io.Discard, "", 0)
	}
	if a.now == nil {
		a.now = time.Now
	}
	if a.pi.kp == 0 {
		a.pi.kp = defaultProportionalGain
	}
	if a.pi.ki == 0 {
		a.pi.ki = defaultIntegralGain
	}
	a.ratio.Store(math.Float64bits(1))

	switch {
	case cfg.Adaptive:
		a.ringSize = DefaultAdaptiveSize
	case cfg.RingBufferSize != 0:
		a.ringSize = cfg.RingBufferSize
	default:
		a.ringSize = DefaultRingBufferSize
	}

	// Rings are allocated once, large enough for every size they can adapt to.
	capacity := max(a.ringSize, DefaultRingBufferSize, a.adaptedRingSize())

	var err error
	if a.capture, err = newResamplers(cfg.CaptureChannels, cfg.Quality, capacity); err != nil {
		return nil, err
	}
	if a.playback, err = newResamplers(cfg.PlaybackChannels, cfg.Quality, capacity); err != nil {
		return nil, err
	}
	if err := a.resetRings(); err != nil {
		return nil, err
	}

	a.logger.Printf("audio adapter: host %d Hz/%d, adapted %d Hz/%d, ring %d frames, %s",
		cfg.HostRate, cfg.HostBufferSize, cfg.AdaptedRate, cfg.AdaptedBufferSize, a.ringSize, cfg.Quality)
	return a, nil
}

func newResamplers(n int, q Quality, capacity int) ([]*AdaptiveResampler, error) {
	rs := make([]*AdaptiveResampler, n)
	for i := range rs {
		r, err := NewAdaptiveResamplerWith(q, capacity)
		if err != nil {
			return nil, err
		}
		rs[i] = r
	}
	return rs, nil
}

func (a *AudioAdapter) adaptedRingSize() int {
	return adapterRingFactor * max(a.cfg.HostBufferSize, a.cfg.AdaptedBufferSize)
}

// resetRings resizes every ring to ringSize and resets the controller.
// The caller holds mu exclusively or owns a not yet shared adapter.
func (a *AudioAdapter) resetRings() error {
	for _, r := range a.capture {
		if err := r.ResetSize(a.ringSize); err != nil {
			return err
		}
	}
	for _, r := range a.playback {
		if err := r.ResetSize(a.ringSize); err != nil {
			return err
		}
	}
	a.pi.reset()
	return nil
}

// PushAndPull runs one adapted period on the device side. capture holds
// the frames captured by the device, one slice per capture channel, and
// playback receives the frames to play, one slice per playback channel.
// Nil channel slices are skipped.
//
// If a ring cannot take or deliver a full period, the rings are resized
// and re-centered and ErrRingBufferFailure is returned.
func (a *AudioAdapter) PushAndPull(capture, playback [][]float32) error {
	a.mu.RLock()
	if a.closed {
		a.mu.RUnlock()
		return ErrClosed
	}
	a.running.Store(true)

	var delta float64
	if t := a.hostTime.Load(); t > 0 {
		elapsed := a.now().UnixNano() - t
		delta = float64(elapsed) * float64(a.cfg.HostRate) / float64(time.Second)
	}

	var fill float64
	switch {
	case len(a.capture) > 0:
		fill = float64(a.capture[0].FillError()) - delta
	default:
		// the host fills the playback ring, so its error has the other sign
		fill = -(float64(a.playback[0].FillError()) + delta)
	}
	ratio := a.pi.ratio(fill / float64(a.ringSize))
	a.ratio.Store(math.Float64bits(ratio))

	failure := false
	for i, r := range a.capture {
		r.SetRatioValue(a.baseRatio * ratio)
		if i < len(capture) && capture[i] != nil {
			if r.WriteResample(capture[i]) < len(capture[i]) {
				failure = true
			}
		}
	}
	for i, r := range a.playback {
		r.SetRatioValue(1 / (a.baseRatio * ratio))
		if i < len(playback) && playback[i] != nil {
			if r.ReadResample(playback[i]) < len(playback[i]) {
				failure = true
			}
		}
	}
	a.mu.RUnlock()

	if !failure {
		return nil
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.cfg.Adaptive {
		a.ringSize = a.adaptedRingSize()
	} else if a.ringSize < DefaultRingBufferSize {
		a.ringSize = min(2*a.ringSize, DefaultRingBufferSize)
	}
	a.resets.Add(1)
	if err := a.resetRings(); err != nil {
		return errors.Join(ErrRingBufferFailure, err)
	}
	return ErrRingBufferFailure
}

// PullAndPush runs one host period. capture receives the device frames at
// the host rate and playback holds the host frames to send to the device.
// Before the first PushAndPull it does nothing.
func (a *AudioAdapter) PullAndPush(capture, playback [][]float32) error {
	a.hostTime.Store(a.now().UnixNano())
	if !a.running.Load() {
		return nil
	}

	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.closed {
		return ErrClosed
	}

	failure := false
	for i, r := range a.capture {
		if i < len(capture) && capture[i] != nil {
			if r.Read(capture[i]) < len(capture[i]) {
				failure = true
			}
		}
	}
	for i, r := range a.playback {
		if i < len(playback) && playback[i] != nil {
			if r.Write(playback[i]) < len(playback[i]) {
				failure = true
			}
		}
	}

	if failure {
		a.hostFailures.Add(1)
		return ErrRingBufferFailure
	}
	return nil
}

// Ratio returns the last controller ratio, 1 meaning the clocks agree.
// Values below 1 mean the device runs fast relative to the host.
func (a *AudioAdapter) Ratio() float64 {
	return math.Float64frombits(a.ratio.Load())
}

// RingBufferSize returns the current ring size in frames.
func (a *AudioAdapter) RingBufferSize() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.ringSize
}

// SetHostBufferSize changes the host period size and resets the rings.
func (a *AudioAdapter) SetHostBufferSize(frames int) error {
	return a.setBufferSizes(frames, a.cfg.AdaptedBufferSize)
}

// SetAdaptedBufferSize changes the adapted period size and resets the rings.
func (a *AudioAdapter) SetAdaptedBufferSize(frames int) error {
	return a.setBufferSizes(a.cfg.HostBufferSize, frames)
}

func (a *AudioAdapter) setBufferSizes(host, adapted int) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	cfg := a.cfg
	cfg.HostBufferSize, cfg.AdaptedBufferSize = host, adapted
	if err := cfg.Validate(); err != nil {
		return err
	}
	prev := a.cfg
	a.cfg = cfg
	if a.cfg.Adaptive {
		size := a.adaptedRingSize()
		if len(a.capture)+len(a.playback) > 0 && size > a.ringCapacity() {
			a.cfg = prev
			return fmt.Errorf("%w: ring size %d exceeds capacity %d", ErrInvalidConfig, size, a.ringCapacity())
		}
		a.ringSize = size
	}
	a.logger.Printf("audio adapter: buffer sizes host %d, adapted %d, ring %d frames", host, adapted, a.ringSize)
	return a.resetRings()
}

func (a *AudioAdapter) ringCapacity() int {
	if len(a.capture) > 0 {
		return a.capture[0].Capacity()
	}
	return a.playback[0].Capacity()
}

// Reset re-centers every ring and clears the controller state.
func (a *AudioAdapter) Reset() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.running.Store(false)
	a.hostTime.Store(0)
	a.ratio.Store(math.Float64bits(1))
	return a.resetRings()
}

// Stats returns the adapter counters.
func (a *AudioAdapter) Stats() AdapterStats {
	return AdapterStats{
		Resets:       a.resets.Load(),
		HostFailures: a.hostFailures.Load(),
		RingSize:     a.RingBufferSize(),
	}
}

// Close releases the resamplers. Later periods return ErrClosed.
func (a *AudioAdapter) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return nil
	}
	a.closed = true

	var errs []error
	for _, r := range a.capture {
		errs = append(errs, r.Close())
	}
	for _, r := range a.playback {
		errs = append(errs, r.Close())
	}
	if resets, failures := a.resets.Load(), a.hostFailures.Load(); resets > 0 || failures > 0 {
		a.logger.Printf("audio adapter: %d resets, %d host failures", resets, failures)
	}
	return errors.Join(errs...)
}
