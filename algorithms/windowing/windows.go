package windowing

import (
	"fmt"
	"math"
)

// CosineWindow is a precomputed cosine-sum window. Hann, Hamming and
// Blackman all share the form a0 - a1*cos(x) + a2*cos(2x) and differ only
// in their term weights, so one implementation covers them.
type CosineWindow struct {
	name   WindowType
	coeffs []float64
}

// NewHann creates a Hann window. The periodic variant (symmetric=false) is
// the one for STFT frames; the symmetric variant tapers to exactly zero at
// both ends.
func NewHann(size int, symmetric bool) *CosineWindow {
	return newCosineWindow(WindowHann, size, symmetric, 0.5, 0.5, 0)
}

// NewHamming creates a Hamming window
func NewHamming(size int, symmetric bool) *CosineWindow {
	return newCosineWindow(WindowHamming, size, symmetric, 0.54, 0.46, 0)
}

// NewBlackman creates a classic Blackman window
func NewBlackman(size int, symmetric bool) *CosineWindow {
	return newCosineWindow(WindowBlackman, size, symmetric, 0.42, 0.5, 0.08)
}

func newCosineWindow(name WindowType, size int, symmetric bool, a0, a1, a2 float64) *CosineWindow {
	w := &CosineWindow{
		name:   name,
		coeffs: make([]float64, size),
	}

	// A one-sample window degenerates to unit gain
	if size == 1 {
		w.coeffs[0] = 1.0
		return w
	}

	period := float64(size)
	if symmetric {
		period = float64(size - 1)
	}

	for i := range w.coeffs {
		x := 2 * math.Pi * float64(i) / period
		w.coeffs[i] = a0 - a1*math.Cos(x) + a2*math.Cos(2*x)
	}

	return w
}

// Apply returns a windowed copy of the signal, or nil when the signal
// length does not match the window size.
func (w *CosineWindow) Apply(signal []float64) []float64 {
	if len(signal) != len(w.coeffs) {
		return nil
	}

	windowed := make([]float64, len(signal))
	for i, s := range signal {
		windowed[i] = s * w.coeffs[i]
	}
	return windowed
}

// ApplyInPlace scales the signal by the window coefficients
func (w *CosineWindow) ApplyInPlace(signal []float64) error {
	if len(signal) != len(w.coeffs) {
		return fmt.Errorf("signal length (%d) doesn't match window size (%d)", len(signal), len(w.coeffs))
	}

	for i := range signal {
		signal[i] *= w.coeffs[i]
	}
	return nil
}

// GetCoefficients returns a copy of the precomputed coefficients
func (w *CosineWindow) GetCoefficients() []float64 {
	out := make([]float64, len(w.coeffs))
	copy(out, w.coeffs)
	return out
}

// GetSize returns the window length in samples
func (w *CosineWindow) GetSize() int {
	return len(w.coeffs)
}

// GetType returns the window's name
func (w *CosineWindow) GetType() string {
	return string(w.name)
}
