// Package thread runs a Runnable on a dedicated OS thread.
//
// A Thread locks its goroutine to an OS thread for the whole run, calls
// Init once on that thread and then calls Execute until Execute returns
// false or Stop is requested. Real-time scheduling set up from Init
// therefore applies to exactly the thread running Execute.
package thread

import (
	"errors"
	"runtime"
	"sync"
	"sync/atomic"
)

// ErrAlreadyStarted is returned by StartSync while a run is active.
var ErrAlreadyStarted = errors.New("thread already started")

// Status is the lifecycle state of a Thread.
type Status int32

const (
	StatusIdle Status = iota
	StatusStarting
	StatusIniting
	StatusRunning
)

// String returns the status name.
func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusStarting:
		return "starting"
	case StatusIniting:
		return "initing"
	case StatusRunning:
		return "running"
	default:
		return "unknown"
	}
}

// Runnable is the work executed by a Thread.
type Runnable interface {
	// Init is called once on the new thread before the first Execute.
	// A non-nil error aborts the run.
	Init() error

	// Execute performs one cycle and reports whether to continue.
	Execute() bool
}

// Thread owns the goroutine running a Runnable.
type Thread struct {
	runnable Runnable

	mu     sync.Mutex // serializes StartSync and Stop
	status atomic.Int32
	run    atomic.Bool
	done   chan struct{}
}

// New creates an idle thread for r.
func New(r Runnable) *Thread {
	return &Thread{runnable: r}
}

// StartSync starts the thread and blocks until Init has returned.
// It returns the Init error, in which case the thread is idle again and
// Execute was never called.
func (t *Thread) StartSync() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if Status(t.status.Load()) != StatusIdle {
		return ErrAlreadyStarted
	}

	done := make(chan struct{})
	initErr := make(chan error, 1)
	t.done = done
	t.run.Store(true)
	t.status.Store(int32(StatusStarting))

	go t.loop(done, initErr)

	return <-initErr
}

func (t *Thread) loop(done chan<- struct{}, initErr chan<- error) {
	// The thread is never unlocked: when the goroutine exits the runtime
	// terminates it instead of returning a real-time thread to the pool.
	runtime.LockOSThread()
	defer close(done)

	t.status.Store(int32(StatusIniting))
	if err := t.runnable.Init(); err != nil {
		t.run.Store(false)
		t.status.Store(int32(StatusIdle))
		initErr <- err
		return
	}

	t.status.Store(int32(StatusRunning))
	initErr <- nil

	for t.run.Load() && t.runnable.Execute() {
	}

	t.run.Store(false)
	t.status.Store(int32(StatusIdle))
}

// Stop requests the loop to end and waits for the goroutine to exit.
// The current Execute call completes first. Stop on an idle thread is a
// no-op. Stop must not be called from Init or Execute.
func (t *Thread) Stop() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.done == nil {
		return nil
	}
	t.run.Store(false)
	<-t.done
	return nil
}

// Status returns the current lifecycle state.
func (t *Thread) Status() Status {
	return Status(t.status.Load())
}

// Running reports whether the loop is active or about to be.
func (t *Thread) Running() bool {
	return t.run.Load()
}

// Done returns a channel closed when the current run ends, or nil if the
// thread was never started.
func (t *Thread) Done() <-chan struct{} {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.done
}
