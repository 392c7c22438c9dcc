package rtaudio

import (
	"errors"
	"fmt"
)

// OpenParams describes the stream configuration a driver is opened with.
type OpenParams struct {
	BufferSize uint32 // Frames per period
	SampleRate uint32 // Frames per second

	Capturing bool
	Playing   bool

	InChannels  int
	OutChannels int

	Monitor bool

	CaptureName  string
	PlaybackName string

	// Extra latency reported by the device, in frames.
	CaptureLatency  uint32
	PlaybackLatency uint32
}

// Validate checks if open parameters are valid.
func (p *OpenParams) Validate() error {
	if p.BufferSize == 0 || p.BufferSize > maxBufferSize {
		return fmt.Errorf("%w: buffer size %d (must be 1-%d)", ErrInvalidConfig, p.BufferSize, maxBufferSize)
	}

	if p.SampleRate == 0 || p.SampleRate > maxSampleRate {
		return fmt.Errorf("%w: sample rate %d (must be 1-%d)", ErrInvalidConfig, p.SampleRate, maxSampleRate)
	}

	if p.InChannels < 0 || p.InChannels > maxChannels || p.OutChannels < 0 || p.OutChannels > maxChannels {
		return fmt.Errorf("%w: channels %d/%d (max %d)", ErrInvalidConfig, p.InChannels, p.OutChannels, maxChannels)
	}

	if p.Capturing && p.InChannels == 0 {
		return fmt.Errorf("%w: capturing without input channels", ErrInvalidConfig)
	}

	if p.Playing && p.OutChannels == 0 {
		return fmt.Errorf("%w: playing without output channels", ErrInvalidConfig)
	}

	return nil
}

// ClientControl describes the server client a driver acts as. It is owned
// by the driver.
type ClientControl struct {
	RefNum int
	Name   string
	Active bool

	// NotifyMask has bit n set when notification n is delivered.
	NotifyMask uint64
}

// Wants reports whether notification kind n is enabled.
func (c *ClientControl) Wants(n int) bool {
	if n < 0 || n >= 64 {
		return false
	}
	return c.NotifyMask&(1<<uint(n)) != 0
}

// DriverClient is the capability of a blocking audio device driver.
//
// Read blocks until a period of capture data is available and Write until
// the device accepts a period of playback data. Methods return a non-nil
// error on failure; drivers wrap ErrXrun for missed deadlines.
type DriverClient interface {
	Open() error
	OpenWith(p OpenParams) error
	Close() error

	Attach() error
	Detach() error

	Read() error
	Write() error
	Process() error

	SetBufferSize(frames uint32) error
	SetSampleRate(rate uint32) error

	SetMaster(on bool)
	GetMaster() bool
	AddSlave(slave DriverClient)
	RemoveSlave(slave DriverClient)
	ProcessSlaves() error

	ClientNotify(refnum int, name string, notify, sync int, value1, value2 int) error
	GetClientControl() *ClientControl

	IsRealTime() bool
}

// Initializer is implemented by drivers that need setup on the driver
// thread before the first period.
type Initializer interface {
	Initialize() error
}

// Runnable is the work executed by a driver thread.
type Runnable interface {
	Init() error
	Execute() bool
}

// BaseDriver is an embeddable DriverClient that does nothing. It records
// the open parameters, master state, slaves and client control so that a
// backend only implements the methods it needs.
//
// Slaves must not be added or removed while a driver thread runs.
type BaseDriver struct {
	params   OpenParams
	opened   bool
	attached bool
	master   bool
	slaves   []DriverClient
	control  ClientControl

	// RealTime is returned by IsRealTime.
	RealTime bool
}

var _ DriverClient = (*BaseDriver)(nil)

// Open marks the driver open with its current parameters.
func (d *BaseDriver) Open() error {
	d.opened = true
	return nil
}

// OpenWith validates and stores p, then marks the driver open.
func (d *BaseDriver) OpenWith(p OpenParams) error {
	if err := p.Validate(); err != nil {
		return err
	}
	d.params = p
	d.opened = true
	return nil
}

// Close marks the driver closed.
func (d *BaseDriver) Close() error {
	d.opened = false
	return nil
}

// Attach marks the driver attached.
func (d *BaseDriver) Attach() error {
	d.attached = true
	return nil
}

// Detach marks the driver detached.
func (d *BaseDriver) Detach() error {
	d.attached = false
	return nil
}

func (d *BaseDriver) Read() error    { return nil }
func (d *BaseDriver) Write() error   { return nil }
func (d *BaseDriver) Process() error { return nil }

// SetBufferSize stores the new period size.
func (d *BaseDriver) SetBufferSize(frames uint32) error {
	if frames == 0 || frames > maxBufferSize {
		return fmt.Errorf("%w: buffer size %d", ErrInvalidConfig, frames)
	}
	d.params.BufferSize = frames
	return nil
}

// SetSampleRate stores the new sample rate.
func (d *BaseDriver) SetSampleRate(rate uint32) error {
	if rate == 0 || rate > maxSampleRate {
		return fmt.Errorf("%w: sample rate %d", ErrInvalidConfig, rate)
	}
	d.params.SampleRate = rate
	return nil
}

func (d *BaseDriver) SetMaster(on bool) { d.master = on }
func (d *BaseDriver) GetMaster() bool   { return d.master }

// AddSlave appends slave unless it is already registered.
func (d *BaseDriver) AddSlave(slave DriverClient) {
	for _, s := range d.slaves {
		if s == slave {
			return
		}
	}
	d.slaves = append(d.slaves, slave)
}

// RemoveSlave removes slave if registered.
func (d *BaseDriver) RemoveSlave(slave DriverClient) {
	for i, s := range d.slaves {
		if s == slave {
			d.slaves = append(d.slaves[:i], d.slaves[i+1:]...)
			return
		}
	}
}

// Slaves returns the registered slaves.
func (d *BaseDriver) Slaves() []DriverClient {
	return d.slaves
}

// ProcessSlaves runs Process on every slave and joins their errors.
func (d *BaseDriver) ProcessSlaves() error {
	var errs []error
	for _, s := range d.slaves {
		if err := s.Process(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// ClientNotify accepts and ignores the notification.
func (d *BaseDriver) ClientNotify(refnum int, name string, notify, sync int, value1, value2 int) error {
	return nil
}

// GetClientControl returns the driver's client descriptor.
func (d *BaseDriver) GetClientControl() *ClientControl {
	return &d.control
}

// IsRealTime reports d.RealTime.
func (d *BaseDriver) IsRealTime() bool {
	return d.RealTime
}

// Params returns the parameters the driver was opened with.
func (d *BaseDriver) Params() OpenParams {
	return d.params
}

// IsOpen reports whether Open or OpenWith succeeded and Close was not called since.
func (d *BaseDriver) IsOpen() bool {
	return d.opened
}

// IsAttached reports whether Attach was called without a later Detach.
func (d *BaseDriver) IsAttached() bool {
	return d.attached
}
