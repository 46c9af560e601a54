package spectral

import (
	"fmt"
	"math"
)

// MFCC computes mel-frequency cepstral coefficients from magnitude spectra.
// The mel filter bank and DCT matrix depend on the FFT size, so the computer
// is initialized once and reused across frames.
type MFCC struct {
	numCoeffs    int
	numFilters   int
	sampleRate   int
	lowFreq      float64
	highFreq     float64
	useLiftering bool
	lifterCoeff  float64

	melBank [][]float64
	dct     [][]float64
	ready   bool
}

// MFCCParams configures cepstral extraction. Zero values fall back to the
// usual defaults: 13 coefficients, 26 filters, full band up to Nyquist,
// lifter coefficient 22.
type MFCCParams struct {
	NumCoefficients int     `json:"num_coefficients"`
	NumMelFilters   int     `json:"num_mel_filters"`
	LowFreq         float64 `json:"low_freq"`
	HighFreq        float64 `json:"high_freq"`
	UseLiftering    bool    `json:"use_liftering"`
	LifterCoeff     float64 `json:"lifter_coeff"`
}

// MFCCResult is the outcome for a single frame
type MFCCResult struct {
	MFCC        []float64 `json:"mfcc"`         // Final coefficients, liftered when enabled
	MelSpectrum []float64 `json:"mel_spectrum"` // Per-filter energies before the log
	LogEnergy   float64   `json:"log_energy"`   // C0 before liftering
}

// NewMFCC creates a cepstral computer with default parameters
func NewMFCC(sampleRate, numCoefficients int) *MFCC {
	return NewMFCCWithParams(sampleRate, MFCCParams{
		NumCoefficients: numCoefficients,
		UseLiftering:    true,
	})
}

// NewMFCCWithParams creates a cepstral computer with explicit parameters,
// filling in defaults for any field left at its zero value.
func NewMFCCWithParams(sampleRate int, params MFCCParams) *MFCC {
	if params.NumCoefficients <= 0 {
		params.NumCoefficients = 13
	}
	if params.NumMelFilters <= 0 {
		params.NumMelFilters = 26
	}
	if params.HighFreq <= 0 {
		params.HighFreq = float64(sampleRate) / 2.0
	}
	if params.LifterCoeff <= 0 {
		params.LifterCoeff = 22.0
	}

	return &MFCC{
		numCoeffs:    params.NumCoefficients,
		numFilters:   params.NumMelFilters,
		sampleRate:   sampleRate,
		lowFreq:      params.LowFreq,
		highFreq:     params.HighFreq,
		useLiftering: params.UseLiftering,
		lifterCoeff:  params.LifterCoeff,
	}
}

// Initialize builds the mel filter bank and DCT matrix for the given FFT
// size. Compute calls it lazily, inferring the size from the first frame,
// so calling it up front is only needed to fail fast on a bad configuration.
func (mfcc *MFCC) Initialize(fftSize int) error {
	if fftSize <= 0 {
		return fmt.Errorf("invalid FFT size: %d", fftSize)
	}

	mfcc.melBank = NewMelScale().CreateMelFilterBank(
		mfcc.numFilters,
		fftSize,
		mfcc.sampleRate,
		mfcc.lowFreq,
		mfcc.highFreq,
	)
	if len(mfcc.melBank) == 0 {
		return fmt.Errorf("failed to create mel filter bank")
	}

	mfcc.dct = orthonormalDCT(mfcc.numCoeffs, mfcc.numFilters)
	mfcc.ready = true
	return nil
}

// Compute turns one magnitude spectrum into cepstral coefficients: square
// to power, collapse through the mel bank, take logs with a 1e-10 floor,
// project onto the DCT basis and optionally lifter. C0 is captured before
// liftering as the frame's log energy.
func (mfcc *MFCC) Compute(magnitudeSpectrum []float64) (*MFCCResult, error) {
	if len(magnitudeSpectrum) == 0 {
		return nil, fmt.Errorf("empty magnitude spectrum")
	}

	if !mfcc.ready {
		fftSize := (len(magnitudeSpectrum) - 1) * 2
		if err := mfcc.Initialize(fftSize); err != nil {
			return nil, fmt.Errorf("failed to initialize MFCC: %w", err)
		}
	}

	power := make([]float64, len(magnitudeSpectrum))
	for i, mag := range magnitudeSpectrum {
		power[i] = mag * mag
	}

	melSpectrum := NewMelScale().ApplyFilterBank(power, mfcc.melBank)

	logMel := make([]float64, len(melSpectrum))
	for i, energy := range melSpectrum {
		if energy > 0 {
			logMel[i] = math.Log(energy)
		} else {
			logMel[i] = math.Log(1e-10)
		}
	}

	coeffs := make([]float64, mfcc.numCoeffs)
	for k := range coeffs {
		row := mfcc.dct[k]
		sum := 0.0
		for n := 0; n < len(logMel) && n < len(row); n++ {
			sum += logMel[n] * row[n]
		}
		coeffs[k] = sum
	}

	logEnergy := 0.0
	if len(coeffs) > 0 {
		logEnergy = coeffs[0]
	}

	if mfcc.useLiftering {
		mfcc.lifter(coeffs)
	}

	return &MFCCResult{
		MFCC:        coeffs,
		MelSpectrum: melSpectrum,
		LogEnergy:   logEnergy,
	}, nil
}

// ComputeFrames computes coefficients for every frame of a spectrogram.
// The transform size is inferred from the first frame.
func (mfcc *MFCC) ComputeFrames(spectrogram [][]float64) ([][]float64, error) {
	if len(spectrogram) == 0 {
		return [][]float64{}, nil
	}

	if !mfcc.ready {
		fftSize := (len(spectrogram[0]) - 1) * 2
		if err := mfcc.Initialize(fftSize); err != nil {
			return nil, fmt.Errorf("failed to initialize MFCC: %w", err)
		}
	}

	frames := make([][]float64, len(spectrogram))
	for t, spectrum := range spectrogram {
		result, err := mfcc.Compute(spectrum)
		if err != nil {
			return nil, fmt.Errorf("failed to compute MFCC for frame %d: %w", t, err)
		}
		frames[t] = result.MFCC
	}

	return frames, nil
}

// orthonormalDCT builds the numCoeffs x numFilters DCT-II matrix with
// orthonormal scaling: row k holds cos(pi*k*(n+0.5)/M) weighted by
// sqrt(1/M) for k=0 and sqrt(2/M) otherwise.
func orthonormalDCT(numCoeffs, numFilters int) [][]float64 {
	m := float64(numFilters)

	matrix := make([][]float64, numCoeffs)
	for k := range matrix {
		scale := math.Sqrt(2.0 / m)
		if k == 0 {
			scale = math.Sqrt(1.0 / m)
		}

		row := make([]float64, numFilters)
		for n := range row {
			row[n] = scale * math.Cos(math.Pi*float64(k)*(float64(n)+0.5)/m)
		}
		matrix[k] = row
	}

	return matrix
}

// lifter scales coefficients in place by 1+(L/2)*sin(pi*i/L), leaving C0
// untouched. Liftering flattens the steep fall-off of higher-order
// coefficients.
func (mfcc *MFCC) lifter(coeffs []float64) {
	for i := 1; i < len(coeffs); i++ {
		coeffs[i] *= 1.0 + (mfcc.lifterCoeff/2.0)*math.Sin(math.Pi*float64(i)/mfcc.lifterCoeff)
	}
}

// GetDCTMatrix exposes the DCT basis, mainly for inspection in tests
func (mfcc *MFCC) GetDCTMatrix() [][]float64 {
	return mfcc.dct
}
