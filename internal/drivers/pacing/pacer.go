// Package pacing emulates the blocking behaviour of a hardware device by
// sleeping until each period's deadline.
package pacing

import (
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	rtaudio "github.com/tphakala/go-rtaudio"
)

var (
	// ErrInvalidPeriod is returned for a zero period or a non-positive rate.
	ErrInvalidPeriod = errors.New("invalid period")

	// ErrBehindSchedule is returned by Wait when a deadline was missed by
	// more than a period. It wraps rtaudio.ErrXrun. LastLate reports by
	// how much.
	ErrBehindSchedule = fmt.Errorf("%w: behind schedule", rtaudio.ErrXrun)
)

// Clock is the time source of a Pacer.
type Clock interface {
	Now() time.Time
	Sleep(d time.Duration)
}

type systemClock struct{}

func (systemClock) Now() time.Time        { return time.Now() }
func (systemClock) Sleep(d time.Duration) { time.Sleep(d) }

// System returns the wall clock.
func System() Clock { return systemClock{} }

// Period returns the duration of frames frames at rate frames per second.
func Period(frames uint32, rate float64) time.Duration {
	return time.Duration(float64(frames) / rate * float64(time.Second))
}

// Pacer releases one period at a time on a fixed schedule. Deadlines are
// computed from the start instant, so rounding never accumulates.
//
// Apart from Xruns and LastLate, a Pacer is used from a single driver
// thread.
type Pacer struct {
	clock  Clock
	period float64 // nanoseconds
	start  time.Time
	count  int64
	active bool
	xruns  atomic.Uint64
	late   atomic.Int64 // nanoseconds
}

// New creates a pacer for periods of frames frames at rate frames per
// second. A nil clock selects the wall clock.
func New(clock Clock, frames uint32, rate float64) (*Pacer, error) {
	if clock == nil {
		clock = System()
	}
	p := &Pacer{clock: clock}
	if err := p.SetPeriod(frames, rate); err != nil {
		return nil, err
	}
	return p, nil
}

// SetPeriod changes the period and restarts the schedule.
func (p *Pacer) SetPeriod(frames uint32, rate float64) error {
	if frames == 0 || !(rate > 0) {
		return fmt.Errorf("%w: %d frames at %v Hz", ErrInvalidPeriod, frames, rate)
	}
	p.period = float64(frames) / rate * float64(time.Second)
	p.Reset()
	return nil
}

// Period returns the period length.
func (p *Pacer) Period() time.Duration {
	return time.Duration(p.period)
}

// Reset restarts the schedule at the next Wait.
func (p *Pacer) Reset() {
	p.active = false
	p.count = 0
}

// Xruns returns the number of missed deadlines. It may be called from
// any goroutine.
func (p *Pacer) Xruns() uint64 {
	return p.xruns.Load()
}

// LastLate returns how far behind schedule the most recent xrun was.
// It may be called from any goroutine.
func (p *Pacer) LastLate() time.Duration {
	return time.Duration(p.late.Load())
}

// Wait blocks until the end of the current period. The first call after
// Reset starts the schedule and waits one full period.
//
// When the caller is more than a period behind schedule, Wait restarts the
// schedule and returns ErrBehindSchedule. Wait does not allocate.
func (p *Pacer) Wait() error {
	now := p.clock.Now()
	if !p.active {
		p.start, p.count, p.active = now, 0, true
	}
	p.count++

	deadline := p.start.Add(time.Duration(float64(p.count) * p.period))
	if d := deadline.Sub(now); d > 0 {
		p.clock.Sleep(d)
		return nil
	}

	late := now.Sub(deadline)
	if late > time.Duration(p.period) {
		p.late.Store(int64(late))
		p.xruns.Add(1)
		p.start, p.count = now, 0
		return ErrBehindSchedule
	}
	return nil
}
