package spectral

import (
	"math"
)

// MelScale converts between linear frequency and the mel scale and builds
// the triangular filter banks used by cepstral analysis.
type MelScale struct{}

// NewMelScale creates a mel scale converter
func NewMelScale() *MelScale {
	return &MelScale{}
}

// HzToMel maps a frequency in Hz onto the mel scale using the common
// 2595*log10(1+f/700) formulation.
func (ms *MelScale) HzToMel(hz float64) float64 {
	return 2595.0 * math.Log10(1.0+hz/700.0)
}

// MelToHz is the inverse of HzToMel.
func (ms *MelScale) MelToHz(mel float64) float64 {
	return 700.0 * (math.Pow(10.0, mel/2595.0) - 1.0)
}

// CreateMelFilterBank builds numFilters triangular filters over the half
// spectrum of an fftSize transform. Filter centers are spaced evenly in mel
// between lowFreq and highFreq, so each filter rises from its left
// neighbor's center to its own and falls to its right neighbor's. Each row
// has fftSize/2+1 weights. Returns nil when numFilters or fftSize is not
// positive.
func (ms *MelScale) CreateMelFilterBank(numFilters int, fftSize int, sampleRate int, lowFreq, highFreq float64) [][]float64 {
	if numFilters <= 0 || fftSize <= 0 {
		return nil
	}

	edges := ms.filterEdges(numFilters, fftSize, sampleRate, lowFreq, highFreq)

	bank := make([][]float64, numFilters)
	for m := range bank {
		bank[m] = make([]float64, fftSize/2+1)
		triangle(bank[m], edges[m], edges[m+1], edges[m+2])
	}

	return bank
}

// filterEdges returns numFilters+2 FFT bin indices: the left edge, center
// and right edge of every filter, from numFilters+2 mel-equidistant points
// rounded to the nearest bin and clamped to the half spectrum.
func (ms *MelScale) filterEdges(numFilters, fftSize, sampleRate int, lowFreq, highFreq float64) []int {
	lowMel := ms.HzToMel(lowFreq)
	step := (ms.HzToMel(highFreq) - lowMel) / float64(numFilters+1)

	edges := make([]int, numFilters+2)
	for i := range edges {
		hz := ms.MelToHz(lowMel + float64(i)*step)
		bin := int(math.Floor((float64(fftSize)+1.0)*hz/float64(sampleRate) + 0.5))
		edges[i] = min(bin, fftSize/2)
	}
	return edges
}

// triangle writes one triangular filter into weights: a rising edge over
// [lo, mid) and a falling edge over [mid, hi). Degenerate edges, where
// rounding collapsed two points onto the same bin, contribute nothing.
func triangle(weights []float64, lo, mid, hi int) {
	for k := lo; k < mid && k < len(weights); k++ {
		if mid > lo {
			weights[k] = float64(k-lo) / float64(mid-lo)
		}
	}
	for k := mid; k < hi && k < len(weights); k++ {
		if hi > mid {
			weights[k] = float64(hi-k) / float64(hi-mid)
		}
	}
}

// ApplyFilterBank reduces a power spectrum to one energy per filter, the
// weighted sum of the bins each filter covers.
func (ms *MelScale) ApplyFilterBank(powerSpectrum []float64, bank [][]float64) []float64 {
	if len(bank) == 0 || len(powerSpectrum) == 0 {
		return []float64{}
	}

	energies := make([]float64, len(bank))
	for m, filter := range bank {
		n := min(len(filter), len(powerSpectrum))
		sum := 0.0
		for k := 0; k < n; k++ {
			sum += powerSpectrum[k] * filter[k]
		}
		energies[m] = sum
	}

	return energies
}
