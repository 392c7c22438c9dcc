package rtaudio

import (
	"errors"
	"fmt"

	"github.com/tphakala/go-rtaudio/internal/thread"
)

// Error types
var (
	// ErrInvalidConfig is returned when a configuration is invalid.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrAlreadyStarted is returned by Start while the driver thread runs.
	ErrAlreadyStarted = thread.ErrAlreadyStarted

	// ErrInitFailed is returned by Start when the driver thread could not
	// be initialized.
	ErrInitFailed = errors.New("driver thread initialization failed")

	// ErrXrun classifies a period that missed its deadline. Drivers wrap it
	// in the error returned from Read or Write.
	ErrXrun = errors.New("xrun")

	// ErrConversion is returned when the sample-rate converter fails.
	ErrConversion = errors.New("sample rate conversion failed")

	// ErrClosed is returned when using a closed resampler or adapter.
	ErrClosed = errors.New("closed")

	// ErrRingBufferFailure is reported when a ring buffer runs empty or full.
	ErrRingBufferFailure = errors.New("ring buffer failure")

	// ErrRealTimeUnsupported is returned where real-time scheduling is not
	// available. It is never fatal to a driver thread.
	ErrRealTimeUnsupported = thread.ErrRealTimeUnsupported
)

// Stage identifies the step of a driver period.
type Stage int

const (
	StageRead Stage = iota
	StageProcess
	StageWrite
)

// String returns the stage name.
func (s Stage) String() string {
	switch s {
	case StageRead:
		return "read"
	case StageProcess:
		return "process"
	case StageWrite:
		return "write"
	default:
		return fmt.Sprintf("stage(%d)", int(s))
	}
}

// PeriodError reports the failure that ended a driver thread run.
type PeriodError struct {
	Stage  Stage
	Period uint64 // zero-based index of the failed period
	Err    error
}

// Error implements error.
func (e *PeriodError) Error() string {
	return fmt.Sprintf("driver %s failed in period %d: %v", e.Stage, e.Period, e.Err)
}

// Unwrap returns the driver error.
func (e *PeriodError) Unwrap() error {
	return e.Err
}

// IsXrun reports whether the period failed because of an xrun.
func (e *PeriodError) IsXrun() bool {
	return errors.Is(e.Err, ErrXrun)
}
