package filter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testKernel(t *testing.T) *Kernel {
	t.Helper()
	k, err := DesignKernel(KernelParams{ZeroCrossings: 16, Oversample: 128, Attenuation: 90})
	require.NoError(t, err)
	return k
}

func TestKernelParams_Validate(t *testing.T) {
	tests := []struct {
		name    string
		params  KernelParams
		wantErr bool
	}{
		{"valid", KernelParams{ZeroCrossings: 8, Oversample: 64, Attenuation: 60}, false},
		{"too_few_zero_crossings", KernelParams{ZeroCrossings: 1, Oversample: 64, Attenuation: 60}, true},
		{"too_many_zero_crossings", KernelParams{ZeroCrossings: 500, Oversample: 64, Attenuation: 60}, true},
		{"oversample_too_small", KernelParams{ZeroCrossings: 8, Oversample: 2, Attenuation: 60}, true},
		{"negative_attenuation", KernelParams{ZeroCrossings: 8, Oversample: 64, Attenuation: -1}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.params.Validate()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestKernel_IntegerOffsets(t *testing.T) {
	k := testKernel(t)

	assert.Equal(t, float32(1), k.At(0))
	for n := 1; n <= k.ZeroCrossings(); n++ {
		assert.Zero(t, k.At(float64(n)), "kernel must vanish at integer offset %d", n)
		assert.Zero(t, k.At(-float64(n)), "kernel must vanish at integer offset %d", -n)
	}
}

func TestKernel_SymmetricAndBounded(t *testing.T) {
	k := testKernel(t)

	for x := 0.0; x < float64(k.ZeroCrossings()); x += 0.173 {
		assert.Equal(t, k.At(x), k.At(-x), "kernel not symmetric at %v", x)
		assert.LessOrEqual(t, k.At(x), float32(1))
	}
	assert.Zero(t, k.At(float64(k.ZeroCrossings())+0.5))
	assert.Equal(t, k.ZeroCrossings()*k.Oversample()+1, k.Len())
}

func TestKernel_DCGain(t *testing.T) {
	k := testKernel(t)

	assert.InDelta(t, 1.0, k.DCGain(0), 1e-12)
	for _, frac := range []float64{0.1, 0.25, 0.5, 0.9} {
		assert.InDelta(t, 1.0, k.DCGain(frac), 2e-3, "DC gain at frac=%v", frac)
	}
}

func TestHalfWidth(t *testing.T) {
	assert.Equal(t, 16, HalfWidth(16, 1))
	assert.Equal(t, 16, HalfWidth(16, 2))
	assert.Equal(t, 32, HalfWidth(16, 0.5))
	assert.Equal(t, 64, HalfWidth(16, 0.25))
	assert.Equal(t, 18, HalfWidth(16, 0.9))
}

func TestComputeResponse(t *testing.T) {
	k := testKernel(t)

	r, err := ComputeResponse(k, 0)
	require.NoError(t, err)
	require.NotEmpty(t, r.Frequencies)

	assert.InDelta(t, 0.0, r.MagnitudeDB[0], 1e-9, "response must be normalized at DC")
	assert.Greater(t, r.MinDB(0, 0.25), -0.1, "passband droop too large")
	assert.Less(t, r.PeakDB(0.75, 1.0), -60.0, "stopband not attenuated")
	assert.InDelta(t, 1.0, r.Frequencies[len(r.Frequencies)-1], 1e-9)
}
