package common

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMean(t *testing.T) {
	assert.InDelta(t, 5.0, Mean([]float64{2, 4, 4, 4, 5, 5, 7, 9}), 1e-12)
	assert.Zero(t, Mean(nil))
}

func TestRMS(t *testing.T) {
	assert.InDelta(t, 0.5, RMS([]float64{0.5, -0.5, 0.5, -0.5}), 1e-12)
	assert.Zero(t, RMS(nil))

	// DC signal: RMS equals the level itself
	assert.InDelta(t, 0.25, RMS([]float64{0.25, 0.25, 0.25}), 1e-12)
}

func TestRound(t *testing.T) {
	tests := []struct {
		value    float64
		decimals int
		want     float64
	}{
		{3.14159, 2, 3.14},
		{3.14159, 4, 3.1416},
		{-2.5, 0, -3},
		{440.049, 1, 440.0},
		{0.123456789, 6, 0.123457},
	}

	for _, tt := range tests {
		assert.InDelta(t, tt.want, Round(tt.value, tt.decimals), 1e-12)
	}
}

func TestClampIndex(t *testing.T) {
	assert.Equal(t, 0, ClampIndex(-3, 10))
	assert.Equal(t, 9, ClampIndex(12, 10))
	assert.Equal(t, 5, ClampIndex(5, 10))
	assert.Equal(t, 0, ClampIndex(4, 0))
}
