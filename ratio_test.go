package rtaudio

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

const ratioTolerance = 1e-12

func TestRatioOf(t *testing.T) {
	tests := []struct {
		name       string
		num, denom uint32
		want       float64
	}{
		{"unity", 1, 1, 1},
		{"cd_to_dat", 48000, 44100, 48000.0 / 44100.0},
		{"dat_to_cd", 44100, 48000, 44100.0 / 48000.0},
		{"lower_bound", 1, 4, 0.25},
		{"upper_bound", 4, 1, 4},
		{"below_range", 1, 5, MinRatio},
		{"far_below_range", 1, 1000000, MinRatio},
		{"above_range", 5, 1, MaxRatio},
		{"far_above_range", math.MaxUint32, 1, MaxRatio},
		{"zero_numerator", 0, 44100, MinRatio},
		{"zero_denominator", 48000, 0, MaxRatio},
		{"zero_over_zero", 0, 0, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &RingResampler{}
			r.SetRatio(tt.num, tt.denom)
			assert.InDelta(t, tt.want, r.Ratio(), ratioTolerance)
			assert.InDelta(t, tt.want, RatioOf(tt.num, tt.denom), ratioTolerance)
		})
	}
}

func TestClampRatio(t *testing.T) {
	assert.Equal(t, 1.0, ClampRatio(math.NaN()))
	assert.Equal(t, MaxRatio, ClampRatio(math.Inf(1)))
	assert.Equal(t, MinRatio, ClampRatio(math.Inf(-1)))
	assert.Equal(t, MinRatio, ClampRatio(-3))
	assert.Equal(t, 1.5, ClampRatio(1.5))
}

func TestRange(t *testing.T) {
	assert.Equal(t, 2.0, Range(2, 5, 1))
	assert.Equal(t, 5.0, Range(2, 5, 9))
	assert.Equal(t, 3.0, Range(2, 5, 3))
}
