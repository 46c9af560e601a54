package spectral

// Spectrum computes full-signal magnitude spectra and scalar measures
// derived from them.
type Spectrum struct {
	fft *FFT
}

// SpectrumResult holds a half spectrum with its frequency axis
type SpectrumResult struct {
	Magnitude   []float64 `json:"magnitude"`   // Magnitude per bin, 0..Nyquist
	Frequencies []float64 `json:"frequencies"` // Bin center frequencies in Hz
	SampleRate  int       `json:"sample_rate"` // Sample rate
	Length      int       `json:"length"`      // Original signal length in samples
}

// NewSpectrum creates a new full-signal spectrum calculator
func NewSpectrum() *Spectrum {
	return &Spectrum{
		fft: NewFFT(),
	}
}

// Compute transforms the entire signal at once and keeps the non-redundant
// half: bins 0..N/2 at i*sampleRate/N Hz. An empty signal yields an empty
// result rather than an error.
func (sp *Spectrum) Compute(signal []float64, sampleRate int) *SpectrumResult {
	result := &SpectrumResult{
		SampleRate: sampleRate,
		Length:     len(signal),
	}

	if len(signal) == 0 {
		result.Magnitude = []float64{}
		result.Frequencies = []float64{}
		return result
	}

	result.Magnitude = sp.fft.ComputeMagnitude(signal)

	result.Frequencies = make([]float64, len(result.Magnitude))
	for i := range result.Frequencies {
		result.Frequencies[i] = float64(i) * float64(sampleRate) / float64(len(signal))
	}

	return result
}

// DominantFrequency returns the center frequency of the strongest bin,
// 0 for an empty spectrum.
func (r *SpectrumResult) DominantFrequency() float64 {
	if len(r.Magnitude) == 0 {
		return 0.0
	}

	peakIdx := 0
	peakMag := r.Magnitude[0]
	for i, mag := range r.Magnitude {
		if mag > peakMag {
			peakMag = mag
			peakIdx = i
		}
	}

	return r.Frequencies[peakIdx]
}

// WeightedMeanFrequency returns the amplitude-weighted mean frequency of the
// half spectrum, the same center-of-mass measure the per-frame centroid uses.
// Returns 0 when the spectrum carries no energy.
func (r *SpectrumResult) WeightedMeanFrequency() float64 {
	numerator := 0.0
	denominator := 0.0
	for i, mag := range r.Magnitude {
		numerator += r.Frequencies[i] * mag
		denominator += mag
	}

	if denominator == 0 {
		return 0.0
	}

	return numerator / denominator
}
