package spectral

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSpectralCentroidSingleBin(t *testing.T) {
	sc := NewSpectralCentroid(16000)

	// 1025-bin half spectrum, all energy in bin 128 -> centroid at exactly
	// 128 * 16000 / 2048 = 1000 Hz
	spectrum := make([]float64, 1025)
	spectrum[128] = 1.0

	assert.InDelta(t, 1000.0, sc.Compute(spectrum), 1e-9)
}

func TestSpectralCentroidZeroSpectrum(t *testing.T) {
	sc := NewSpectralCentroid(16000)
	assert.Zero(t, sc.Compute(make([]float64, 1025)))
	assert.Zero(t, sc.Compute(nil))
}

func TestSpectralCentroidWeighting(t *testing.T) {
	sc := NewSpectralCentroid(8000)

	// Equal energy in two bins -> centroid halfway between them
	spectrum := make([]float64, 513)
	spectrum[100] = 1.0
	spectrum[200] = 1.0

	wantLow := 100.0 * 8000.0 / 1024.0
	wantHigh := 200.0 * 8000.0 / 1024.0
	assert.InDelta(t, (wantLow+wantHigh)/2, sc.Compute(spectrum), 1e-9)
}

func TestSpectralCentroidFrames(t *testing.T) {
	sc := NewSpectralCentroid(16000)

	frames := make([][]float64, 4)
	for i := range frames {
		frames[i] = make([]float64, 1025)
		frames[i][64*(i+1)] = 1.0
	}

	centroids := sc.ComputeFrames(frames)
	require.Len(t, centroids, 4)
	for i, c := range centroids {
		want := float64(64*(i+1)) * 16000.0 / 2048.0
		assert.InDelta(t, want, c, 1e-9)
	}
}

func TestSpectralRolloffConcentratedEnergy(t *testing.T) {
	sr := NewSpectralRolloff(16000)

	// All energy below bin 100: rolloff must land at or below bin 100
	spectrum := make([]float64, 1025)
	for i := 50; i <= 100; i++ {
		spectrum[i] = 1.0
	}

	rolloff := sr.Compute(spectrum, 0.85)
	maxWant := 100.0 * 16000.0 / 2048.0
	assert.LessOrEqual(t, rolloff, maxWant+1e-9)
	assert.Greater(t, rolloff, 0.0)
}

func TestSpectralRolloffFullEnergyLastBin(t *testing.T) {
	sr := NewSpectralRolloff(16000)

	spectrum := make([]float64, 1025)
	spectrum[1024] = 1.0

	// All energy in the Nyquist bin
	assert.InDelta(t, 8000.0, sr.Compute(spectrum, 0.85), 1e-9)
}

func TestSpectralRolloffZeroSpectrum(t *testing.T) {
	sr := NewSpectralRolloff(16000)
	assert.Zero(t, sr.Compute(make([]float64, 1025), 0.85))
}

func TestZeroCrossingRateAlternating(t *testing.T) {
	zcr := NewZeroCrossingRate(16000)

	frame := make([]float64, 128)
	for i := range frame {
		if i%2 == 0 {
			frame[i] = 1.0
		} else {
			frame[i] = -1.0
		}
	}

	// Alternating signal crosses at every sample boundary
	assert.InDelta(t, 1.0, zcr.ComputeNormalized(frame), 1e-12)
}

func TestZeroCrossingRateDC(t *testing.T) {
	zcr := NewZeroCrossingRate(16000)

	frame := make([]float64, 128)
	for i := range frame {
		frame[i] = 0.5
	}

	assert.Zero(t, zcr.ComputeNormalized(frame))
	assert.Zero(t, zcr.ComputeNormalized([]float64{0.5}))
}

func TestZeroCrossingRateSine(t *testing.T) {
	zcr := NewZeroCrossingRateWithParams(16000, 2048, 512)

	// 440 Hz over 2048 samples at 16 kHz: ~56.3 cycles -> ~112 crossings
	frame := sineWave(440, 16000, 2048, 0.5)
	rate := zcr.ComputeNormalized(frame)

	want := 2.0 * 440.0 * 2048.0 / 16000.0 / 2047.0
	assert.InDelta(t, want, rate, 0.005)

	// Per-second form: a sine crosses zero at twice its frequency
	assert.InDelta(t, 880.0, zcr.Compute(frame), 10.0)
}

func TestZeroCrossingRateFrames(t *testing.T) {
	zcr := NewZeroCrossingRateWithParams(16000, 1024, 512)

	signal := sineWave(440, 16000, 4096, 0.5)
	values := zcr.ComputeFramesNormalized(signal)
	require.Len(t, values, (4096-1024)/512+1)

	mean, variance, minVal, maxVal := zcr.ComputeStatistics(values)
	assert.Greater(t, mean, 0.0)
	assert.GreaterOrEqual(t, maxVal, minVal)
	assert.GreaterOrEqual(t, variance, 0.0)
}

func TestMelScaleRoundTrip(t *testing.T) {
	ms := NewMelScale()

	for _, hz := range []float64{100, 440, 1000, 4000, 8000} {
		assert.InDelta(t, hz, ms.MelToHz(ms.HzToMel(hz)), 1e-6)
	}

	// Mel scale is monotonic
	assert.Less(t, ms.HzToMel(440), ms.HzToMel(1000))
}

func TestMelFilterBankShape(t *testing.T) {
	ms := NewMelScale()

	bank := ms.CreateMelFilterBank(26, 2048, 16000, 0, 8000)
	require.Len(t, bank, 26)
	for _, filter := range bank {
		assert.Len(t, filter, 1025)
	}

	// Every filter carries some weight
	for i, filter := range bank {
		sum := 0.0
		for _, w := range filter {
			sum += w
		}
		assert.Greater(t, sum, 0.0, "filter %d is empty", i)
	}
}

func TestMFCCShapeAndLiftering(t *testing.T) {
	mfcc := NewMFCC(16000, 13)

	spectrum := make([]float64, 1025)
	for i := range spectrum {
		spectrum[i] = math.Exp(-float64(i) / 200.0)
	}

	result, err := mfcc.Compute(spectrum)
	require.NoError(t, err)
	assert.Len(t, result.MFCC, 13)
	assert.Len(t, result.MelSpectrum, 26)

	// C0 is untouched by liftering
	assert.InDelta(t, result.LogEnergy, result.MFCC[0], 1e-12)
}

func TestMFCCFrames(t *testing.T) {
	mfcc := NewMFCC(16000, 13)

	frames := make([][]float64, 5)
	for i := range frames {
		frames[i] = make([]float64, 1025)
		for j := range frames[i] {
			frames[i][j] = 1.0 / (1.0 + float64(j))
		}
	}

	coeffs, err := mfcc.ComputeFrames(frames)
	require.NoError(t, err)
	require.Len(t, coeffs, 5)

	// Identical frames give identical coefficients
	assert.InDeltaSlice(t, coeffs[0], coeffs[4], 1e-12)
}

func TestMFCCEmptySpectrum(t *testing.T) {
	mfcc := NewMFCC(16000, 13)
	_, err := mfcc.Compute(nil)
	assert.Error(t, err)
}

func TestDCTMatrixOrthogonality(t *testing.T) {
	mfcc := NewMFCC(16000, 13)
	require.NoError(t, mfcc.Initialize(2048))

	dct := mfcc.GetDCTMatrix()
	require.Len(t, dct, 13)

	// Rows of the orthonormal DCT-II matrix have unit norm and are mutually
	// orthogonal
	for k := 0; k < 13; k++ {
		norm := 0.0
		for n := 0; n < 26; n++ {
			norm += dct[k][n] * dct[k][n]
		}
		assert.InDelta(t, 1.0, norm, 1e-9, "row %d norm", k)
	}

	dot := 0.0
	for n := 0; n < 26; n++ {
		dot += dct[3][n] * dct[7][n]
	}
	assert.InDelta(t, 0.0, dot, 1e-9)
}
