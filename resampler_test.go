package rtaudio

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tphakala/go-rtaudio/internal/testutil"
)

func newRing(t *testing.T, size int) *RingResampler {
	t.Helper()
	r, err := NewRingResampler(size)
	require.NoError(t, err)
	return r
}

func TestNewRingResampler(t *testing.T) {
	r := newRing(t, 1024)
	assert.Equal(t, 1024, r.Size())
	assert.Equal(t, 512, r.ReadSpace(), "ring must start half full")
	assert.Equal(t, 512, r.WriteSpace())
	assert.Zero(t, r.FillError())
	assert.Equal(t, 1.0, r.Ratio())

	for _, size := range []int{-1, 0, 1, maxRingBufferSize + 1} {
		_, err := NewRingResampler(size)
		require.ErrorIs(t, err, ErrInvalidConfig, "size %d", size)
	}
}

func TestRingResampler_ReadAllOrNothing(t *testing.T) {
	r := newRing(t, 1024)

	buf := make([]float32, 600)
	assert.Zero(t, r.Read(buf), "producer too slow must read nothing")
	assert.Equal(t, 512, r.ReadSpace())
	assert.Equal(t, uint64(1), r.Stats().Underruns)

	assert.Equal(t, 512, r.Read(buf[:512]))
	testutil.AssertSilent(t, buf[:512])
	assert.Zero(t, r.ReadSpace())
}

func TestRingResampler_WriteAllOrNothing(t *testing.T) {
	r := newRing(t, 1024)

	assert.Zero(t, r.Write(make([]float32, 513)), "consumer too slow must write nothing")
	assert.Equal(t, uint64(1), r.Stats().Overruns)

	assert.Equal(t, 512, r.Write(testutil.Ramp(1, 512)))
	assert.Zero(t, r.WriteSpace())
}

func TestRingResampler_PassThrough(t *testing.T) {
	r := newRing(t, 64)
	r.SetRatio(3, 2)

	in := testutil.Ramp(1, 16)
	assert.Equal(t, 16, r.WriteResample(in))

	skip := make([]float32, 32)
	require.Equal(t, 32, r.ReadResample(skip))
	testutil.AssertSilent(t, skip)

	out := make([]float32, 16)
	require.Equal(t, 16, r.ReadResample(out))
	assert.Equal(t, in, out, "ratio must not affect a pass-through ring")
}

func TestRingResampler_FillError(t *testing.T) {
	r := newRing(t, 1024)

	r.Write(make([]float32, 100))
	assert.Equal(t, 100, r.FillError())

	r.Read(make([]float32, 300))
	assert.Equal(t, -200, r.FillError())
}

func TestRingResampler_ResetRecenterKeepsRatio(t *testing.T) {
	r := newRing(t, 1024)
	r.SetRatio(48000, 44100)
	r.Write(testutil.Ramp(1, 300))

	r.Reset()
	assert.Equal(t, 512, r.ReadSpace())
	assert.InDelta(t, 48000.0/44100.0, r.Ratio(), ratioTolerance)

	buf := make([]float32, 512)
	require.Equal(t, 512, r.Read(buf))
	testutil.AssertSilent(t, buf, "stale frames after Reset")
}

func TestRingResampler_ResetSize(t *testing.T) {
	r := newRing(t, 1024)

	require.NoError(t, r.ResetSize(256))
	assert.Equal(t, 256, r.Size())
	assert.Equal(t, 128, r.ReadSpace())
	assert.Equal(t, 1024, r.Capacity())

	require.ErrorIs(t, r.ResetSize(2048), ErrInvalidConfig)
	assert.Equal(t, 256, r.Size())
}

func TestRingResampler_SetRatioValue(t *testing.T) {
	r := newRing(t, 16)

	r.SetRatioValue(0.999)
	assert.Equal(t, 0.999, r.Ratio())
	r.SetRatioValue(10)
	assert.Equal(t, MaxRatio, r.Ratio())
	r.SetRatioValue(0.01)
	assert.Equal(t, MinRatio, r.Ratio())
}
