// Package clock estimates the effective frame rate of a device clock from
// timestamped frame counters.
package clock

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"gonum.org/v1/gonum/stat"
)

const (
	minWindow     = 2
	defaultWindow = 512
	ppm           = 1e6
)

var (
	// ErrInvalidRate is returned for a non-positive nominal rate.
	ErrInvalidRate = errors.New("nominal rate must be positive")

	// ErrNotEnoughSamples is returned while fewer than two samples spanning
	// a non-zero interval have been added.
	ErrNotEnoughSamples = errors.New("not enough samples")
)

// DriftEstimator fits a least-squares line through the most recent
// (time, frame count) observations. Its slope is the measured frame rate.
//
// DriftEstimator is safe for concurrent use.
type DriftEstimator struct {
	nominal float64

	mu     sync.Mutex
	t0     time.Duration
	f0     uint64
	xs, ys []float64 // ring of samples relative to the first one
	next   int
	count  int
	total  uint64
}

// NewDriftEstimator creates an estimator for a clock nominally running at
// rate frames per second, keeping at most window samples. A window of zero
// selects the default.
func NewDriftEstimator(rate float64, window int) (*DriftEstimator, error) {
	if !(rate > 0) {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRate, rate)
	}
	if window == 0 {
		window = defaultWindow
	}
	if window < minWindow {
		return nil, fmt.Errorf("window must be at least %d, got %d", minWindow, window)
	}
	return &DriftEstimator{
		nominal: rate,
		xs:      make([]float64, window),
		ys:      make([]float64, window),
	}, nil
}

// Add records that frames frames had been processed at time t.
func (d *DriftEstimator) Add(t time.Duration, frames uint64) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.total == 0 {
		d.t0, d.f0 = t, frames
	}
	d.total++

	d.xs[d.next] = (t - d.t0).Seconds()
	d.ys[d.next] = float64(frames) - float64(d.f0)
	d.next = (d.next + 1) % len(d.xs)
	if d.count < len(d.xs) {
		d.count++
	}
}

// Rate returns the measured frame rate in frames per second.
func (d *DriftEstimator) Rate() (float64, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.count < minWindow {
		return 0, ErrNotEnoughSamples
	}
	xs, ys := d.xs[:d.count], d.ys[:d.count]
	if stat.Variance(xs, nil) == 0 {
		return 0, ErrNotEnoughSamples
	}
	_, beta := stat.LinearRegression(xs, ys, nil, false)
	return beta, nil
}

// Ratio returns the measured rate divided by the nominal rate. A device
// running fast reports a ratio above one.
func (d *DriftEstimator) Ratio() (float64, error) {
	r, err := d.Rate()
	if err != nil {
		return 0, err
	}
	return r / d.nominal, nil
}

// PPM returns the clock deviation in parts per million.
func (d *DriftEstimator) PPM() (float64, error) {
	r, err := d.Ratio()
	if err != nil {
		return 0, err
	}
	return (r - 1) * ppm, nil
}

// Nominal returns the nominal rate.
func (d *DriftEstimator) Nominal() float64 { return d.nominal }

// Len returns the number of samples in the window.
func (d *DriftEstimator) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.count
}

// Reset discards all samples.
func (d *DriftEstimator) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.next, d.count, d.total = 0, 0, 0
}
