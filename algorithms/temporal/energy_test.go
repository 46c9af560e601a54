package temporal

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnvelopeFrameCount(t *testing.T) {
	extractor := NewEnergyEnvelope(1024, 512, 16000)

	tests := []struct {
		samples    int
		wantFrames int
	}{
		{16000, 32}, // 16000/512 = 31.25 -> 32 windows
		{512, 1},
		{513, 2},
		{1024, 2},
		{100, 1},
	}

	for _, tt := range tests {
		envelope := extractor.Compute(make([]float64, tt.samples))
		assert.Len(t, envelope, tt.wantFrames, "samples=%d", tt.samples)
		assert.Equal(t, tt.wantFrames, extractor.NumFrames(tt.samples))
	}

	assert.Empty(t, extractor.Compute(nil))
	assert.Zero(t, extractor.NumFrames(0))
}

func TestEnvelopeSumOfSquares(t *testing.T) {
	extractor := NewEnergyEnvelope(4, 2, 8)

	signal := []float64{1, 1, 1, 1, 0.5, 0.5, 0, 0}
	envelope := extractor.Compute(signal)
	require.Len(t, envelope, 4)

	// Window 0: 1+1+1+1, window 1: 1+1+0.25+0.25, window 2: 0.25+0.25+0+0,
	// window 3 is the two trailing zeros
	assert.InDelta(t, 4.0, envelope[0], 1e-12)
	assert.InDelta(t, 2.5, envelope[1], 1e-12)
	assert.InDelta(t, 0.5, envelope[2], 1e-12)
	assert.InDelta(t, 0.0, envelope[3], 1e-12)
}

func TestEnvelopeRaggedTail(t *testing.T) {
	extractor := NewEnergyEnvelope(1024, 512, 16000)

	signal := make([]float64, 1500)
	for i := range signal {
		signal[i] = 1.0
	}

	envelope := extractor.Compute(signal)
	require.Len(t, envelope, 3)

	// Window 1 covers samples 512..1499 (988 samples), window 2 covers
	// 1024..1499 (476 samples)
	assert.InDelta(t, 1024.0, envelope[0], 1e-12)
	assert.InDelta(t, 988.0, envelope[1], 1e-12)
	assert.InDelta(t, 476.0, envelope[2], 1e-12)
}

func TestEnvelopeNormalizationInvariant(t *testing.T) {
	extractor := NewEnergyEnvelope(1024, 512, 16000)

	signal := make([]float64, 8000)
	for i := range signal {
		signal[i] = float64(i%100) / 100.0
	}

	envelope := extractor.ComputeNormalized(signal)
	require.NotEmpty(t, envelope)

	maxValue := 0.0
	for _, v := range envelope {
		assert.GreaterOrEqual(t, v, 0.0)
		assert.LessOrEqual(t, v, 1.0)
		if v > maxValue {
			maxValue = v
		}
	}
	assert.InDelta(t, 1.0, maxValue, 1e-12, "non-silent envelope must peak at exactly 1.0")
}

func TestEnvelopeSilentSignalStaysZero(t *testing.T) {
	extractor := NewEnergyEnvelope(1024, 512, 16000)

	envelope := extractor.ComputeNormalized(make([]float64, 4096))
	require.Len(t, envelope, 8)
	for _, v := range envelope {
		assert.Zero(t, v)
	}
}

func TestFrameTime(t *testing.T) {
	extractor := NewEnergyEnvelope(1024, 512, 16000)

	assert.InDelta(t, 0.0, extractor.FrameTime(0), 1e-12)
	assert.InDelta(t, 0.032, extractor.FrameTime(1), 1e-12)
	assert.InDelta(t, 0.32, extractor.FrameTime(10), 1e-12)
}
