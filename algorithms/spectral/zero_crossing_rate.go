package spectral

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// ZeroCrossingRate counts sign changes per analysis frame. Noisy and
// percussive content crosses zero often; voiced or tonal content rarely.
type ZeroCrossingRate struct {
	sampleRate int
	frameSize  int
	hopSize    int
}

// NewZeroCrossingRate creates a calculator on the default 2048/512 grid,
// the same one the spectrogram uses.
func NewZeroCrossingRate(sampleRate int) *ZeroCrossingRate {
	return NewZeroCrossingRateWithParams(sampleRate, 2048, 512)
}

// NewZeroCrossingRateWithParams creates a calculator on an explicit
// frame/hop grid.
func NewZeroCrossingRateWithParams(sampleRate, frameSize, hopSize int) *ZeroCrossingRate {
	return &ZeroCrossingRate{
		sampleRate: sampleRate,
		frameSize:  frameSize,
		hopSize:    hopSize,
	}
}

// Compute returns crossings per second for a single frame
func (zcr *ZeroCrossingRate) Compute(frame []float64) float64 {
	if len(frame) < 2 {
		return 0.0
	}
	seconds := float64(len(frame)) / float64(zcr.sampleRate)
	return float64(countCrossings(frame)) / seconds
}

// ComputeNormalized returns the crossing count divided by the maximum a
// frame of that length can have, so the result lands in [0, 1].
func (zcr *ZeroCrossingRate) ComputeNormalized(frame []float64) float64 {
	if len(frame) < 2 {
		return 0.0
	}
	return float64(countCrossings(frame)) / float64(len(frame)-1)
}

// countCrossings treats zero itself as positive, so a sample pair crosses
// when exactly one of the two is negative.
func countCrossings(frame []float64) int {
	crossings := 0
	for i := 1; i < len(frame); i++ {
		if (frame[i-1] < 0) != (frame[i] < 0) {
			crossings++
		}
	}
	return crossings
}

// ComputeFramesNormalized slides the frame/hop grid over the signal and
// returns one normalized rate per full window. Signals shorter than one
// frame yield an empty slice.
func (zcr *ZeroCrossingRate) ComputeFramesNormalized(signal []float64) []float64 {
	if len(signal) < zcr.frameSize {
		return []float64{}
	}

	numFrames := (len(signal)-zcr.frameSize)/zcr.hopSize + 1
	values := make([]float64, numFrames)
	for i := range values {
		start := i * zcr.hopSize
		values[i] = zcr.ComputeNormalized(signal[start : start+zcr.frameSize])
	}
	return values
}

// ComputeStatistics summarizes a series of rates for content analysis
func (zcr *ZeroCrossingRate) ComputeStatistics(values []float64) (mean, variance, min, max float64) {
	if len(values) == 0 {
		return 0, 0, 0, 0
	}

	mean = stat.Mean(values, nil)
	variance = stat.Variance(values, nil)
	min = floats.Min(values)
	max = floats.Max(values)
	return mean, variance, min, max
}
