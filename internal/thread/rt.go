package thread

import (
	"errors"
	"fmt"
)

// ErrRealTimeUnsupported is returned where real-time scheduling is not
// available on the platform.
var ErrRealTimeUnsupported = errors.New("real-time scheduling not supported")

// Real-time priority bounds for SCHED_FIFO.
const (
	MinPriority     = 1
	MaxPriority     = 99
	DefaultPriority = 10
)

// RealTime describes the scheduling requested for the calling thread.
type RealTime struct {
	// Priority is the SCHED_FIFO priority (MinPriority..MaxPriority).
	Priority int

	// CPUs, if not empty, pins the thread to these CPU indices.
	CPUs []int
}

// Validate checks the priority and CPU indices.
func (rt *RealTime) Validate() error {
	if rt.Priority < MinPriority || rt.Priority > MaxPriority {
		return fmt.Errorf("invalid real-time priority %d (must be %d-%d)", rt.Priority, MinPriority, MaxPriority)
	}
	for _, cpu := range rt.CPUs {
		if cpu < 0 {
			return fmt.Errorf("invalid cpu index %d", cpu)
		}
	}
	return nil
}

// AcquireRealTime switches the calling OS thread to real-time scheduling.
// The caller must be locked to its thread, as Runnable.Init is.
func AcquireRealTime(rt RealTime) error {
	if err := rt.Validate(); err != nil {
		return err
	}
	return acquireRealTime(rt)
}

// DropRealTime returns the calling OS thread to normal scheduling.
func DropRealTime() error {
	return dropRealTime()
}
