package spectral

// SpectralRolloff finds the frequency below which a given fraction of the
// total spectral energy sits. Energy here means squared magnitude.
type SpectralRolloff struct {
	sampleRate int
	freqBins   []float64
}

// NewSpectralRolloff creates a spectral rolloff calculator
func NewSpectralRolloff(sampleRate int) *SpectralRolloff {
	return &SpectralRolloff{
		sampleRate: sampleRate,
	}
}

// Compute returns the rolloff frequency in Hz for one magnitude spectrum.
// threshold is the energy fraction, typically 0.85. A spectrum with no
// energy yields 0.
func (sr *SpectralRolloff) Compute(spectrum []float64, threshold float64) float64 {
	if len(spectrum) == 0 {
		return 0.0
	}

	total := 0.0
	for _, mag := range spectrum {
		total += mag * mag
	}
	if total == 0 {
		return 0
	}

	bins := sr.bins(len(spectrum))
	target := threshold * total

	accumulated := 0.0
	for i, mag := range spectrum {
		accumulated += mag * mag
		if accumulated >= target {
			return bins[i]
		}
	}

	// Rounding can leave the target just past the last partial sum
	return bins[len(bins)-1]
}

// ComputeFrames returns one rolloff per spectrogram frame
func (sr *SpectralRolloff) ComputeFrames(spectrogram [][]float64, threshold float64) []float64 {
	rolloffs := make([]float64, len(spectrogram))
	for t, spectrum := range spectrogram {
		rolloffs[t] = sr.Compute(spectrum, threshold)
	}
	return rolloffs
}

// bins returns the cached frequency grid, rebuilding it when the spectrum
// size changes. The grid matches the one the centroid uses.
func (sr *SpectralRolloff) bins(numBins int) []float64 {
	if len(sr.freqBins) != numBins {
		sr.freqBins = halfSpectrumBins(numBins, sr.sampleRate)
	}
	return sr.freqBins
}
