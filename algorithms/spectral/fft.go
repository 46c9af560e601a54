package spectral

import (
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
)

// FFT wraps the go-dsp transform behind the small surface the analysis
// code needs. go-dsp handles arbitrary lengths, power of two or not.
type FFT struct{}

// NewFFT creates an FFT calculator
func NewFFT() *FFT {
	return &FFT{}
}

// Compute returns the full complex spectrum of a real signal
func (f *FFT) Compute(x []float64) []complex128 {
	if len(x) == 0 {
		return []complex128{}
	}
	return fft.FFTReal(x)
}

// ComputeMagnitude returns the magnitude spectrum truncated to the
// non-redundant half, bins 0..N/2 inclusive.
func (f *FFT) ComputeMagnitude(x []float64) []float64 {
	if len(x) == 0 {
		return []float64{}
	}

	spectrum := fft.FFTReal(x)

	magnitude := make([]float64, len(x)/2+1)
	for i := range magnitude {
		magnitude[i] = cmplx.Abs(spectrum[i])
	}
	return magnitude
}

// ComputeInverse returns the inverse transform of a complex spectrum
func (f *FFT) ComputeInverse(x []complex128) []complex128 {
	if len(x) == 0 {
		return []complex128{}
	}
	return fft.IFFT(x)
}

// ComputeInverseReal inverse-transforms and keeps only the real part,
// which is the signal itself when the spectrum came from real input.
func (f *FFT) ComputeInverseReal(x []complex128) []float64 {
	if len(x) == 0 {
		return []float64{}
	}

	complexResult := fft.IFFT(x)
	signal := make([]float64, len(complexResult))
	for i, v := range complexResult {
		signal[i] = real(v)
	}
	return signal
}
