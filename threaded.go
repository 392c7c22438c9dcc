package rtaudio

import (
	"errors"
	"fmt"
	"io"
	"log"
	"sync"
	"sync/atomic"

	"github.com/tphakala/go-rtaudio/internal/thread"
)

// ThreadConfig configures the driver thread of a ThreadedDriver.
type ThreadConfig struct {
	// Priority is the SCHED_FIFO priority used when the driver reports
	// IsRealTime. Zero selects DefaultPriority.
	Priority int

	// CPUs optionally pins the driver thread to these CPU indices.
	CPUs []int

	// Logger receives control-path diagnostics. Nil discards them.
	Logger *log.Logger
}

// DefaultPriority is the real-time priority used when none is configured.
const DefaultPriority = thread.DefaultPriority

// DefaultThreadConfig returns the default driver thread configuration.
func DefaultThreadConfig() ThreadConfig {
	return ThreadConfig{Priority: DefaultPriority}
}

// Validate checks if the thread configuration is valid.
func (c *ThreadConfig) Validate() error {
	rt := c.realTime()
	if err := rt.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}

func (c *ThreadConfig) realTime() thread.RealTime {
	rt := thread.RealTime{Priority: c.Priority, CPUs: c.CPUs}
	if rt.Priority == 0 {
		rt.Priority = DefaultPriority
	}
	return rt
}

// ThreadedDriver runs a blocking DriverClient on its own OS thread.
//
// All DriverClient methods are forwarded to the wrapped driver. Start and
// Stop control the thread that repeatedly calls Read, Process and Write.
// The wrapped driver is never closed by the ThreadedDriver.
type ThreadedDriver struct {
	DriverClient

	thread *thread.Thread
	rt     thread.RealTime
	logger *log.Logger

	periods  atomic.Uint64
	realTime atomic.Bool

	mu      sync.Mutex
	failed  bool
	failure PeriodError
}

var (
	_ DriverClient = (*ThreadedDriver)(nil)
	_ Runnable     = (*ThreadedDriver)(nil)
)

// NewThreadedDriver wraps driver with the default thread configuration.
func NewThreadedDriver(driver DriverClient) *ThreadedDriver {
	d, err := NewThreadedDriverWith(driver, DefaultThreadConfig())
	if err != nil {
		panic(err) // default config is valid
	}
	return d
}

// NewThreadedDriverWith wraps driver with the given thread configuration.
func NewThreadedDriverWith(driver DriverClient, cfg ThreadConfig) (*ThreadedDriver, error) {
	if driver == nil {
		return nil, fmt.Errorf("%w: nil driver", ErrInvalidConfig)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := cfg.Logger
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}

	d := &ThreadedDriver{
		DriverClient: driver,
		rt:           cfg.realTime(),
		logger:       logger,
	}
	d.thread = thread.New(d)
	return d, nil
}

// Start launches the driver thread and waits until it is initialized.
// It returns ErrAlreadyStarted if the thread is running and an error
// wrapping ErrInitFailed if initialization failed.
func (d *ThreadedDriver) Start() error {
	if err := d.thread.StartSync(); err != nil {
		if !errors.Is(err, ErrAlreadyStarted) {
			d.logger.Printf("driver thread start failed: %v", err)
		}
		return err
	}
	d.logger.Printf("driver thread started (real-time: %v)", d.realTime.Load())
	return nil
}

// Stop ends the driver thread and waits for it to exit. No driver I/O
// happens after Stop returns. Stopping an idle driver is a no-op.
// Stop must not be called from the driver's own Read, Process or Write.
func (d *ThreadedDriver) Stop() error {
	if err := d.thread.Stop(); err != nil {
		return err
	}
	if err := d.Err(); err != nil {
		d.logger.Printf("driver thread exited: %v", err)
	}
	return nil
}

// Init prepares the driver thread. It runs on the new thread: it calls the
// driver's Initialize hook if present and, for real-time drivers, switches
// the thread to real-time scheduling. Failing to get real-time scheduling
// is logged and not fatal.
func (d *ThreadedDriver) Init() error {
	d.periods.Store(0)
	d.realTime.Store(false)
	d.mu.Lock()
	d.failed = false
	d.failure = PeriodError{}
	d.mu.Unlock()

	if in, ok := d.DriverClient.(Initializer); ok {
		if err := in.Initialize(); err != nil {
			return fmt.Errorf("%w: %w", ErrInitFailed, err)
		}
	}

	if !d.IsRealTime() {
		return nil
	}
	if err := thread.AcquireRealTime(d.rt); err != nil {
		d.logger.Printf("cannot use real-time scheduling: %v", err)
		return nil
	}
	d.realTime.Store(true)
	return nil
}

// Execute runs one period: Read, Process, Write. It returns false after
// the first failing step.
func (d *ThreadedDriver) Execute() bool {
	period := d.periods.Load()

	if err := d.Read(); err != nil {
		d.fail(StageRead, period, err)
		return false
	}
	if err := d.Process(); err != nil {
		d.fail(StageProcess, period, err)
		return false
	}
	if err := d.Write(); err != nil {
		d.fail(StageWrite, period, err)
		return false
	}

	d.periods.Add(1)
	return true
}

func (d *ThreadedDriver) fail(stage Stage, period uint64, err error) {
	d.mu.Lock()
	d.failed = true
	d.failure = PeriodError{Stage: stage, Period: period, Err: err}
	d.mu.Unlock()
}

// Err returns the failure that ended the last run, or nil.
func (d *ThreadedDriver) Err() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.failed {
		return nil
	}
	pe := d.failure
	return &pe
}

// Running reports whether the driver thread is active.
func (d *ThreadedDriver) Running() bool {
	return d.thread.Running()
}

// Done returns a channel closed when the current run ends. It is nil
// before the first Start.
func (d *ThreadedDriver) Done() <-chan struct{} {
	return d.thread.Done()
}

// Periods returns the number of periods completed in the current run.
func (d *ThreadedDriver) Periods() uint64 {
	return d.periods.Load()
}

// RealTimeActive reports whether the driver thread runs with real-time
// scheduling.
func (d *ThreadedDriver) RealTimeActive() bool {
	return d.realTime.Load()
}
