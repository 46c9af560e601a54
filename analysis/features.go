// Package analysis turns decoded waveforms into structured acoustic
// reports: time-frequency visualizations, detected sound events with
// per-event spectral descriptors, and aggregated semantic label
// statistics when a segment classifier is available.
package analysis

import (
	"fmt"

	"github.com/soundveil/acouscope/algorithms/common"
	"github.com/soundveil/acouscope/algorithms/spectral"
	"github.com/soundveil/acouscope/analysis/config"
	"github.com/soundveil/acouscope/logging"
)

// FrameFeatures is the per-frame descriptor tuple consumed by the event
// classifier.
type FrameFeatures struct {
	Centroid         float64
	Rolloff          float64
	ZeroCrossingRate float64
	MFCC             []float64
}

// FeatureSet holds per-frame spectral descriptors aligned to the
// spectrogram's time axis, plus whole-signal summaries.
type FeatureSet struct {
	Centroids         []float64   `json:"centroids"`
	Rolloffs          []float64   `json:"rolloffs"`
	ZeroCrossingRates []float64   `json:"zero_crossing_rates"`
	MFCCFrames        [][]float64 `json:"mfcc_frames"`
	MFCCMean          []float64   `json:"mfcc_mean"`
}

// NumFrames returns the length of the feature time axis.
func (fs *FeatureSet) NumFrames() int {
	return len(fs.Centroids)
}

// At returns the features for frame i. Out-of-range indices are clamped
// to the nearest valid frame, so peak indices from the energy grid can be
// looked up directly even when the two grids differ in length.
func (fs *FeatureSet) At(i int) FrameFeatures {
	features := FrameFeatures{}
	if len(fs.Centroids) > 0 {
		features.Centroid = fs.Centroids[common.ClampIndex(i, len(fs.Centroids))]
	}
	if len(fs.Rolloffs) > 0 {
		features.Rolloff = fs.Rolloffs[common.ClampIndex(i, len(fs.Rolloffs))]
	}
	if len(fs.ZeroCrossingRates) > 0 {
		features.ZeroCrossingRate = fs.ZeroCrossingRates[common.ClampIndex(i, len(fs.ZeroCrossingRates))]
	}
	if len(fs.MFCCFrames) > 0 {
		features.MFCC = fs.MFCCFrames[common.ClampIndex(i, len(fs.MFCCFrames))]
	}
	return features
}

// FeatureExtractor computes the per-frame descriptor vectors from a
// spectrogram and the raw signal.
type FeatureExtractor struct {
	config *config.Config
	logger logging.Logger
}

// NewFeatureExtractor creates a feature extractor with the given analysis
// parameters.
func NewFeatureExtractor(cfg *config.Config) *FeatureExtractor {
	return &FeatureExtractor{
		config: cfg,
		logger: logging.WithFields(logging.Fields{
			"component": "feature_extractor",
		}),
	}
}

// Extract computes centroid, rolloff, zero-crossing rate, and cepstral
// vectors. The spectrogram supplies the magnitude frames; the raw signal is
// only needed for the zero-crossing grid, which is framed identically.
func (fe *FeatureExtractor) Extract(spectrogram *spectral.STFTResult, signal []float64, sampleRate int) (*FeatureSet, error) {
	if spectrogram == nil || len(spectrogram.Magnitude) == 0 {
		return nil, fmt.Errorf("empty spectrogram")
	}
	if sampleRate <= 0 {
		return nil, fmt.Errorf("invalid sample rate: %d", sampleRate)
	}

	centroids := spectral.NewSpectralCentroid(sampleRate).ComputeFrames(spectrogram.Magnitude)
	rolloffs := spectral.NewSpectralRolloff(sampleRate).ComputeFrames(spectrogram.Magnitude, fe.config.RolloffFraction)

	zcr := spectral.NewZeroCrossingRateWithParams(sampleRate, fe.config.FrameSize, fe.config.HopSize)
	zcrs := zcr.ComputeFramesNormalized(signal)

	mfcc := spectral.NewMFCCWithParams(sampleRate, spectral.MFCCParams{
		NumCoefficients: fe.config.MFCCCoefficients,
		NumMelFilters:   fe.config.MelFilters,
		UseLiftering:    true,
		LifterCoeff:     22.0,
	})
	if err := mfcc.Initialize(fe.config.FrameSize); err != nil {
		return nil, fmt.Errorf("failed to initialize cepstral computer: %w", err)
	}
	mfccFrames, err := mfcc.ComputeFrames(spectrogram.Magnitude)
	if err != nil {
		return nil, fmt.Errorf("failed to compute cepstral frames: %w", err)
	}

	fe.logger.Debug("features extracted", logging.Fields{
		"frames":      len(centroids),
		"sample_rate": sampleRate,
	})

	return &FeatureSet{
		Centroids:         centroids,
		Rolloffs:          rolloffs,
		ZeroCrossingRates: zcrs,
		MFCCFrames:        mfccFrames,
		MFCCMean:          meanVector(mfccFrames),
	}, nil
}

// meanVector averages a list of equal-length coefficient vectors
// element-wise.
func meanVector(frames [][]float64) []float64 {
	if len(frames) == 0 {
		return nil
	}

	mean := make([]float64, len(frames[0]))
	for _, frame := range frames {
		for i, v := range frame {
			if i < len(mean) {
				mean[i] += v
			}
		}
	}
	for i := range mean {
		mean[i] /= float64(len(frames))
	}
	return mean
}
