package windowing

import (
	"fmt"
)

// WindowType identifies a window function
type WindowType string

const (
	WindowHann     WindowType = "hann"
	WindowHamming  WindowType = "hamming"
	WindowBlackman WindowType = "blackman"
)

// Window is the interface shared by all window functions. Implementations
// precompute their coefficients at construction, so Apply/ApplyInPlace are
// cheap per frame.
type Window interface {
	// Apply applies the window to a signal (creates new array)
	Apply(signal []float64) []float64

	// ApplyInPlace applies the window to a signal in-place
	ApplyInPlace(signal []float64) error

	// GetCoefficients returns a copy of the window coefficients
	GetCoefficients() []float64

	// GetSize returns the window size
	GetSize() int

	// GetType returns the window type name
	GetType() string
}

// New creates a window of the given type. Symmetric windows are used for
// one-shot segment measurements, periodic (symmetric=false) for STFT frames.
func New(windowType WindowType, size int, symmetric bool) (Window, error) {
	if size <= 0 {
		return nil, fmt.Errorf("invalid window size: %d", size)
	}

	switch windowType {
	case WindowHann:
		return NewHann(size, symmetric), nil
	case WindowHamming:
		return NewHamming(size, symmetric), nil
	case WindowBlackman:
		return NewBlackman(size, symmetric), nil
	default:
		return nil, fmt.Errorf("unsupported window type: %s", windowType)
	}
}
