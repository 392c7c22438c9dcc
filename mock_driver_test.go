package rtaudio

import (
	"errors"
	"sync"
	"time"
)

var errMockFailure = errors.New("mock driver failure")

type mockEvent struct {
	stage  Stage
	period int
}

// mockDriver records every period step. Its event log is preallocated so
// recording does not allocate on the driver thread.
type mockDriver struct {
	BaseDriver

	mu     sync.Mutex
	events []mockEvent
	period int

	// failStage fails the given stage in period failPeriod when failPeriod >= 0.
	failStage  Stage
	failPeriod int
	failErr    error

	initErr   error
	initCalls int
	delay     time.Duration

	notified []int
}

func newMockDriver() *mockDriver {
	return &mockDriver{
		events:     make([]mockEvent, 0, 1<<16),
		failPeriod: -1,
	}
}

func (m *mockDriver) step(stage Stage) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.events) < cap(m.events) {
		m.events = append(m.events, mockEvent{stage: stage, period: m.period})
	}
	if m.failPeriod >= 0 && m.period == m.failPeriod && stage == m.failStage {
		if m.failErr != nil {
			return m.failErr
		}
		return errMockFailure
	}
	if stage == StageWrite {
		m.period++
	}
	return nil
}

func (m *mockDriver) Read() error {
	if m.delay > 0 {
		time.Sleep(m.delay)
	}
	return m.step(StageRead)
}

func (m *mockDriver) Process() error { return m.step(StageProcess) }

func (m *mockDriver) Write() error { return m.step(StageWrite) }

func (m *mockDriver) Initialize() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.initCalls++
	return m.initErr
}

func (m *mockDriver) ClientNotify(refnum int, name string, notify, sync int, value1, value2 int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notified = append(m.notified, refnum, notify, sync, value1, value2)
	return nil
}

func (m *mockDriver) snapshot() []mockEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]mockEvent(nil), m.events...)
}

func (m *mockDriver) eventCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.events)
}
