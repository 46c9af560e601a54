package spectral

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soundveil/acouscope/algorithms/windowing"
)

func sineWave(freq float64, sampleRate, n int, amplitude float64) []float64 {
	signal := make([]float64, n)
	for i := range signal {
		signal[i] = amplitude * math.Sin(2*math.Pi*freq*float64(i)/float64(sampleRate))
	}
	return signal
}

func TestSTFTFrameGeometry(t *testing.T) {
	signal := sineWave(440, 16000, 16000, 0.5)

	stft := NewSTFT()
	result, err := stft.Compute(signal, 2048, 512, 16000)
	require.NoError(t, err)

	wantFrames := (16000-2048)/512 + 1
	assert.Equal(t, wantFrames, result.TimeFrames)
	assert.Equal(t, 1025, result.FreqBins)
	assert.Len(t, result.Magnitude, wantFrames)
	assert.Len(t, result.Magnitude[0], 1025)

	times := result.TimeAxis()
	require.Len(t, times, wantFrames)
	assert.InDelta(t, 0.0, times[0], 1e-12)
	assert.InDelta(t, 512.0/16000.0, times[1], 1e-12)

	freqs := result.FreqAxis()
	require.Len(t, freqs, 1025)
	assert.InDelta(t, 0.0, freqs[0], 1e-12)
	assert.InDelta(t, 8000.0, freqs[1024], 1e-9)
}

func TestSTFTLocatesToneEnergy(t *testing.T) {
	signal := sineWave(1000, 16000, 8192, 1.0)

	stft := NewSTFT()
	result, err := stft.Compute(signal, 2048, 512, 16000)
	require.NoError(t, err)

	// Strongest bin of the middle frame should sit at ~1000 Hz
	frame := result.Magnitude[result.TimeFrames/2]
	peakBin := 0
	for i, mag := range frame {
		if mag > frame[peakBin] {
			peakBin = i
		}
	}
	peakFreq := float64(peakBin) * result.FreqResolution
	assert.InDelta(t, 1000.0, peakFreq, result.FreqResolution+1e-9)
}

func TestSTFTInputValidation(t *testing.T) {
	stft := NewSTFT()

	_, err := stft.Compute(nil, 2048, 512, 16000)
	assert.Error(t, err)

	_, err = stft.Compute(make([]float64, 100), 2048, 512, 16000)
	assert.Error(t, err, "signal shorter than one window")

	_, err = stft.Compute(make([]float64, 4096), 2048, 0, 16000)
	assert.Error(t, err)

	_, err = stft.Compute(make([]float64, 4096), 2048, 512, 0)
	assert.Error(t, err)
}

func TestSTFTWithCustomWindow(t *testing.T) {
	signal := sineWave(500, 8000, 4096, 0.7)

	stft := NewSTFT()
	result, err := stft.ComputeWithWindow(signal, windowing.NewHamming(1024, false), 256, 8000)
	require.NoError(t, err)
	assert.Equal(t, 1024, result.WindowSize)
	assert.Equal(t, (4096-1024)/256+1, result.TimeFrames)
}

func TestDecibelGridReferencedToPeak(t *testing.T) {
	signal := sineWave(440, 16000, 8192, 0.5)

	stft := NewSTFT()
	result, err := stft.Compute(signal, 2048, 512, 16000)
	require.NoError(t, err)

	grid := result.DecibelGrid(80)
	require.Len(t, grid, result.FreqBins)
	require.Len(t, grid[0], result.TimeFrames)

	maxDB := math.Inf(-1)
	minDB := math.Inf(1)
	for _, row := range grid {
		for _, db := range row {
			maxDB = math.Max(maxDB, db)
			minDB = math.Min(minDB, db)
		}
	}

	// Peak cell is the reference, floor sits topDB below it
	assert.InDelta(t, 0.0, maxDB, 1e-9)
	assert.GreaterOrEqual(t, minDB, -80.0-1e-9)
}

func TestDecibelGridSilentSignal(t *testing.T) {
	stft := NewSTFT()
	result, err := stft.Compute(make([]float64, 4096), 2048, 512, 16000)
	require.NoError(t, err)

	grid := result.DecibelGrid(80)
	for _, row := range grid {
		for _, db := range row {
			assert.Zero(t, db)
		}
	}
}
