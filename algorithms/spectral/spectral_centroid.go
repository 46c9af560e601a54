package spectral

// SpectralCentroid computes the magnitude-weighted mean frequency of a
// spectrum, the perceptual "brightness" of a frame.
type SpectralCentroid struct {
	sampleRate int
	freqBins   []float64
}

// NewSpectralCentroid creates a spectral centroid calculator
func NewSpectralCentroid(sampleRate int) *SpectralCentroid {
	return &SpectralCentroid{
		sampleRate: sampleRate,
	}
}

// Compute returns the centroid of one magnitude spectrum in Hz. An empty
// or all-zero spectrum has no center of mass and yields 0.
func (sc *SpectralCentroid) Compute(spectrum []float64) float64 {
	if len(spectrum) == 0 {
		return 0.0
	}

	bins := sc.bins(len(spectrum))

	weighted := 0.0
	total := 0.0
	for i, mag := range spectrum {
		weighted += bins[i] * mag
		total += mag
	}

	if total == 0 {
		return 0
	}
	return weighted / total
}

// ComputeFrames returns one centroid per spectrogram frame
func (sc *SpectralCentroid) ComputeFrames(spectrogram [][]float64) []float64 {
	centroids := make([]float64, len(spectrogram))
	for t, spectrum := range spectrogram {
		centroids[t] = sc.Compute(spectrum)
	}
	return centroids
}

// bins returns the cached frequency grid, rebuilding it when the spectrum
// size changes.
func (sc *SpectralCentroid) bins(numBins int) []float64 {
	if len(sc.freqBins) != numBins {
		sc.freqBins = halfSpectrumBins(numBins, sc.sampleRate)
	}
	return sc.freqBins
}

// halfSpectrumBins returns the center frequency of every bin of an N-bin
// half spectrum: bin i sits at i*sampleRate/((N-1)*2) Hz. Fewer than two
// bins gives an all-zero grid.
func halfSpectrumBins(numBins, sampleRate int) []float64 {
	bins := make([]float64, numBins)
	if numBins < 2 {
		return bins
	}
	for i := range bins {
		bins[i] = float64(i) * float64(sampleRate) / float64((numBins-1)*2)
	}
	return bins
}
