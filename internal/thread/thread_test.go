package thread

import (
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const waitTimeout = 5 * time.Second

type countingRunnable struct {
	initErr  error
	limit    int64
	inits    atomic.Int64
	executes atomic.Int64
	status   func() Status
	seen     atomic.Int32
}

func (r *countingRunnable) Init() error {
	r.inits.Add(1)
	if r.status != nil {
		r.seen.Store(int32(r.status()))
	}
	return r.initErr
}

func (r *countingRunnable) Execute() bool {
	n := r.executes.Add(1)
	if r.limit > 0 && n >= r.limit {
		return false
	}
	time.Sleep(100 * time.Microsecond)
	return true
}

func waitDone(t *testing.T, th *Thread) {
	t.Helper()
	select {
	case <-th.Done():
	case <-time.After(waitTimeout):
		require.FailNow(t, "thread did not finish")
	}
}

func TestThread_StartStop(t *testing.T) {
	r := &countingRunnable{}
	th := New(r)
	r.status = th.Status
	assert.Equal(t, StatusIdle, th.Status())

	require.NoError(t, th.StartSync())
	assert.Equal(t, StatusRunning, th.Status())
	assert.True(t, th.Running())
	assert.Equal(t, StatusIniting, Status(r.seen.Load()))

	require.Eventually(t, func() bool { return r.executes.Load() > 3 }, waitTimeout, time.Millisecond)

	require.NoError(t, th.Stop())
	assert.Equal(t, StatusIdle, th.Status())
	assert.False(t, th.Running())

	after := r.executes.Load()
	time.Sleep(5 * time.Millisecond)
	assert.Equal(t, after, r.executes.Load(), "Execute called after Stop returned")
	assert.Equal(t, int64(1), r.inits.Load())
}

func TestThread_StartTwice(t *testing.T) {
	th := New(&countingRunnable{})
	require.NoError(t, th.StartSync())
	defer func() { _ = th.Stop() }()

	require.ErrorIs(t, th.StartSync(), ErrAlreadyStarted)
	assert.Equal(t, StatusRunning, th.Status())
}

func TestThread_StopIdle(t *testing.T) {
	th := New(&countingRunnable{})
	assert.Nil(t, th.Done())
	require.NoError(t, th.Stop())
	require.NoError(t, th.Stop())
}

func TestThread_InitFailure(t *testing.T) {
	errBoom := errors.New("boom")
	r := &countingRunnable{initErr: errBoom}
	th := New(r)

	require.ErrorIs(t, th.StartSync(), errBoom)
	waitDone(t, th)
	assert.Equal(t, StatusIdle, th.Status())
	assert.Zero(t, r.executes.Load())
	require.NoError(t, th.Stop())
}

func TestThread_ExecuteEndsRun(t *testing.T) {
	r := &countingRunnable{limit: 5}
	th := New(r)

	require.NoError(t, th.StartSync())
	waitDone(t, th)
	assert.Equal(t, StatusIdle, th.Status())
	assert.Equal(t, int64(5), r.executes.Load())

	// a finished run can be started again
	r.executes.Store(0)
	require.NoError(t, th.StartSync())
	waitDone(t, th)
	assert.Equal(t, int64(5), r.executes.Load())
	assert.Equal(t, int64(2), r.inits.Load())
	require.NoError(t, th.Stop())
}

func TestThread_Restart(t *testing.T) {
	r := &countingRunnable{}
	th := New(r)

	for range 3 {
		require.NoError(t, th.StartSync())
		require.NoError(t, th.Stop())
	}
	assert.Equal(t, int64(3), r.inits.Load())
}

func TestStatus_String(t *testing.T) {
	assert.Equal(t, "idle", StatusIdle.String())
	assert.Equal(t, "starting", StatusStarting.String())
	assert.Equal(t, "initing", StatusIniting.String())
	assert.Equal(t, "running", StatusRunning.String())
	assert.Equal(t, "unknown", Status(9).String())
}

func TestRealTime_Validate(t *testing.T) {
	tests := []struct {
		name    string
		rt      RealTime
		wantErr bool
	}{
		{"default", RealTime{Priority: DefaultPriority}, false},
		{"pinned", RealTime{Priority: MaxPriority, CPUs: []int{0, 1}}, false},
		{"zero_priority", RealTime{Priority: 0}, true},
		{"priority_too_high", RealTime{Priority: 100}, true},
		{"negative_cpu", RealTime{Priority: MinPriority, CPUs: []int{-1}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.rt.Validate()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
		})
	}

	require.Error(t, AcquireRealTime(RealTime{}))
}
