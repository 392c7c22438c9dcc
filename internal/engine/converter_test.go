package engine

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tphakala/go-rtaudio/internal/testutil"
)

const (
	testFrames     = 8192
	testChunk      = 37
	dcTolerance    = 2e-3
	countTolerance = 2 * MaxRatio
)

var allQualities = []Quality{
	QualityLinear,
	QualityZeroOrderHold,
	QualitySincFastest,
	QualitySincMedium,
	QualitySincBest,
}

const testAmplitude = 0.5

func sine(n int, cyclesPerFrame float64) []float32 {
	return testutil.Sine(n, cyclesPerFrame, 1, testAmplitude)
}

func newConverter(t *testing.T, q Quality) Converter {
	t.Helper()
	c, err := New(q)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

// convertAll feeds in through c in chunks of the given size and returns
// everything generated.
func convertAll(t *testing.T, c Converter, in []float32, ratio float64, chunk int) []float32 {
	t.Helper()
	out := make([]float32, 0, int(float64(len(in))*ratio)+64)
	scratch := make([]float32, int(float64(chunk)*ratio)+16)
	for off := 0; off < len(in); {
		end := min(off+chunk, len(in))
		d := Data{In: in[off:end], Out: scratch, Ratio: ratio}
		for {
			require.NoError(t, c.Process(&d))
			out = append(out, scratch[:d.OutputFramesGen]...)
			off += d.InputFramesUsed
			if d.InputFramesUsed == len(d.In) || d.OutputFramesGen == 0 {
				break
			}
			d.In = d.In[d.InputFramesUsed:]
		}
		if off < end {
			// converter stalled without consuming
			require.FailNow(t, "converter did not consume input", "offset %d", off)
		}
	}
	return out
}

func TestNew(t *testing.T) {
	for _, q := range allQualities {
		t.Run(q.String(), func(t *testing.T) {
			c := newConverter(t, q)
			assert.Equal(t, q, c.Quality())
			assert.True(t, q.Valid())
			assert.Positive(t, c.Taps())
			assert.GreaterOrEqual(t, c.Latency(), 0)
		})
	}

	_, err := New(Quality(42))
	require.ErrorIs(t, err, ErrUnknownQuality)
	assert.False(t, Quality(42).Valid())
	assert.Equal(t, "quality(42)", Quality(42).String())
}

func TestKernelParams(t *testing.T) {
	for _, q := range []Quality{QualityLinear, QualityZeroOrderHold} {
		_, ok := KernelParams(q)
		assert.False(t, ok, q.String())
	}

	prev := 0
	for _, q := range []Quality{QualitySincFastest, QualitySincMedium, QualitySincBest} {
		p, ok := KernelParams(q)
		require.True(t, ok, q.String())
		require.NoError(t, p.Validate())
		assert.Greater(t, p.ZeroCrossings, prev, "kernels grow with quality")
		prev = p.ZeroCrossings
	}
}

func TestProcess_BadRatio(t *testing.T) {
	for _, q := range allQualities {
		c := newConverter(t, q)
		for _, ratio := range []float64{0, 0.2, 4.5, math.NaN(), math.Inf(1)} {
			d := Data{In: make([]float32, 16), Out: make([]float32, 16), Ratio: ratio}
			err := c.Process(&d)
			require.ErrorIs(t, err, ErrBadRatio, "%s ratio=%v", q, ratio)
			assert.Zero(t, d.InputFramesUsed)
			assert.Zero(t, d.OutputFramesGen)
		}
	}
}

func TestProcess_Closed(t *testing.T) {
	for _, q := range allQualities {
		c, err := New(q)
		require.NoError(t, err)
		require.NoError(t, c.Close())

		d := Data{In: make([]float32, 16), Out: make([]float32, 16), Ratio: 1}
		require.ErrorIs(t, c.Process(&d), ErrClosed)
	}
}

func TestProcess_UnityIsIdentity(t *testing.T) {
	in := sine(testFrames, 0.01)

	for _, q := range allQualities {
		t.Run(q.String(), func(t *testing.T) {
			c := newConverter(t, q)
			out := make([]float32, testFrames)
			d := Data{In: in, Out: out, Ratio: 1}
			require.NoError(t, c.Process(&d))

			assert.Equal(t, testFrames, d.InputFramesUsed)
			wantGen := testFrames
			if q >= QualitySincFastest {
				wantGen -= c.Latency()
			}
			require.Equal(t, wantGen, d.OutputFramesGen)
			assert.Equal(t, in[:wantGen], out[:wantGen])
		})
	}
}

func TestProcess_ZeroOrderHoldRepeats(t *testing.T) {
	c := newConverter(t, QualityZeroOrderHold)
	out := make([]float32, 6)
	d := Data{In: []float32{1, 2, 3, 4}, Out: out, Ratio: 2}
	require.NoError(t, c.Process(&d))

	assert.Equal(t, 6, d.OutputFramesGen)
	assert.Equal(t, 3, d.InputFramesUsed)
	assert.Equal(t, []float32{1, 1, 2, 2, 3, 3}, out)
}

func TestProcess_LinearInterpolates(t *testing.T) {
	c := newConverter(t, QualityLinear)
	out := make([]float32, 5)
	d := Data{In: []float32{0, 1, 3}, Out: out, Ratio: 2}
	require.NoError(t, c.Process(&d))

	assert.Equal(t, 5, d.OutputFramesGen)
	assert.Equal(t, []float32{0, 0.5, 1, 2, 3}, out)
}

func TestProcess_ChunkInvariance(t *testing.T) {
	in := sine(testFrames, 0.0123)
	const ratio = 0.9187

	for _, q := range allQualities {
		t.Run(q.String(), func(t *testing.T) {
			whole := convertAll(t, newConverter(t, q), in, ratio, len(in))
			chunked := convertAll(t, newConverter(t, q), in, ratio, testChunk)
			assert.Equal(t, whole, chunked)
		})
	}
}

func TestProcess_OutputCount(t *testing.T) {
	in := sine(testFrames, 0.01)

	for _, q := range allQualities {
		for _, ratio := range []float64{MinRatio, 0.5, 0.9187, 1.0001, 1.5, MaxRatio} {
			c := newConverter(t, q)
			out := convertAll(t, c, in, ratio, 512)

			want := float64(testFrames) * ratio
			tolerance := float64(countTolerance)
			if q >= QualitySincFastest {
				// look-ahead frames stay in the history
				tolerance += float64(4 * c.Taps())
			}
			assert.InDelta(t, want, float64(len(out)), tolerance, "%s ratio=%v", q, ratio)
		}
	}
}

func TestProcess_Reset(t *testing.T) {
	in := sine(2048, 0.02)
	const ratio = 1.25

	for _, q := range allQualities {
		t.Run(q.String(), func(t *testing.T) {
			c := newConverter(t, q)
			first := convertAll(t, c, in, ratio, 256)
			_ = convertAll(t, c, sine(1000, 0.3), 0.7, 100)

			c.Reset()
			second := convertAll(t, c, in, ratio, 256)
			assert.Equal(t, first, second)
		})
	}
}

func TestSinc_PassesDC(t *testing.T) {
	in := testutil.Fill(0.5, testFrames)

	for _, q := range []Quality{QualitySincFastest, QualitySincMedium, QualitySincBest} {
		for _, ratio := range []float64{0.3, 0.8, 1.3} {
			c := newConverter(t, q)
			out := convertAll(t, c, in, ratio, 333)
			skip := 4 * c.Taps() * 4
			require.Greater(t, len(out), skip)
			for i, v := range out[skip:] {
				require.InDelta(t, 0.5, v, dcTolerance, "%s ratio=%v frame %d", q, ratio, i+skip)
			}
		}
	}
}

func TestSinc_RejectsAliasing(t *testing.T) {
	// 0.4 cycles per input frame is above the output Nyquist at ratio 0.5
	in := sine(testFrames, 0.4)

	for _, q := range []Quality{QualitySincMedium, QualitySincBest} {
		c := newConverter(t, q)
		out := convertAll(t, c, in, 0.5, 1024)
		skip := 2 * c.Taps()
		require.Greater(t, len(out), 2*skip)
		assert.Less(t, testutil.RMS(out[skip:len(out)-skip]), 1e-3, "%s leaks aliased energy", q)
	}

	// the linear converter has no anti-aliasing filter
	lin := convertAll(t, newConverter(t, QualityLinear), in, 0.5, 1024)
	assert.Greater(t, testutil.RMS(lin), 0.05)
}

func BenchmarkSincMedium(b *testing.B) {
	c, err := New(QualitySincMedium)
	require.NoError(b, err)
	in := sine(1024, 0.01)
	out := make([]float32, 1200)
	d := Data{}

	b.ReportAllocs()
	b.ResetTimer()
	for b.Loop() {
		d.In, d.Out, d.Ratio = in, out, 1.0001
		if err := c.Process(&d); err != nil {
			b.Fatal(err)
		}
	}
}
