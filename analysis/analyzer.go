package analysis

import (
	"context"
	"fmt"
	"time"

	"github.com/soundveil/acouscope/algorithms/spectral"
	"github.com/soundveil/acouscope/algorithms/temporal"
	"github.com/soundveil/acouscope/algorithms/windowing"
	"github.com/soundveil/acouscope/analysis/config"
	"github.com/soundveil/acouscope/classify"
	"github.com/soundveil/acouscope/logging"
)

// Analyzer runs the full analysis pipeline over decoded waveforms. One
// call processes one waveform to completion; each invocation owns its
// intermediate buffers, so a single Analyzer serves concurrent requests.
type Analyzer struct {
	config    *config.Config
	stft      *spectral.STFT
	spectrum  *spectral.Spectrum
	features  *FeatureExtractor
	events    *EventClassifier
	assembler *ReportAssembler
	logger    logging.Logger
}

// NewAnalyzer creates an analyzer, validating the configuration up front.
func NewAnalyzer(cfg *config.Config) (*Analyzer, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid analysis config: %w", err)
	}

	return &Analyzer{
		config:    cfg,
		stft:      spectral.NewSTFT(),
		spectrum:  spectral.NewSpectrum(),
		features:  NewFeatureExtractor(cfg),
		events:    NewEventClassifier(),
		assembler: NewReportAssembler(cfg),
		logger: logging.WithFields(logging.Fields{
			"component": "analyzer",
		}),
	}, nil
}

// AnalyzeWaveform runs the heuristic event pipeline: spectrogram and
// energy envelope, peak detection, per-peak feature lookup and
// classification, then report assembly. The caller converts an error into
// a failure envelope at the transport boundary.
func (a *Analyzer) AnalyzeWaveform(filename string, signal []float64, sampleRate int) (*LiveReport, error) {
	started := time.Now()
	logger := a.logger.WithFields(logging.Fields{"function": "AnalyzeWaveform", "filename": filename})

	if len(signal) == 0 {
		return nil, fmt.Errorf("empty signal")
	}
	if sampleRate <= 0 {
		return nil, fmt.Errorf("invalid sample rate: %d", sampleRate)
	}

	window, err := windowing.New(windowing.WindowType(a.config.WindowType), a.config.FrameSize, false)
	if err != nil {
		return nil, fmt.Errorf("failed to create analysis window: %w", err)
	}

	spectrogram, err := a.stft.ComputeWithWindow(signal, window, a.config.HopSize, sampleRate)
	if err != nil {
		return nil, fmt.Errorf("failed to compute spectrogram: %w", err)
	}

	spectrum := a.spectrum.Compute(signal, sampleRate)

	envelope := temporal.NewEnergyEnvelope(a.config.EnergyFrameSize, a.config.HopSize, sampleRate).
		ComputeNormalized(signal)
	peaks := temporal.NewPeakPicker(a.config.PeakHeightThreshold, a.config.PeakMinDistance).
		Detect(envelope)

	features, err := a.features.Extract(spectrogram, signal, sampleRate)
	if err != nil {
		return nil, fmt.Errorf("failed to extract features: %w", err)
	}

	hopSeconds := float64(a.config.HopSize) / float64(sampleRate)
	events := make([]SoundEvent, 0, len(peaks))
	for _, peak := range peaks {
		events = append(events, a.events.ClassifyPeak(peak, features.At(peak.Index), float64(peak.Index)*hopSeconds))
	}

	report := a.assembler.assembleLive(liveInputs{
		filename:    filename,
		signal:      signal,
		sampleRate:  sampleRate,
		spectrogram: spectrogram,
		spectrum:    spectrum,
		envelope:    envelope,
		peaks:       peaks,
		features:    features,
		events:      events,
	})

	logger.Info("analysis complete", logging.Fields{
		"duration_ms": time.Since(started).Milliseconds(),
		"peaks":       len(peaks),
		"frames":      spectrogram.TimeFrames,
	})
	return report, nil
}

// AnalyzeSegments runs the semantic pipeline: the external classifier
// labels fixed-stride segments, and the aggregator folds them into events
// and per-label statistics. Acoustic measurements per segment come from
// the raw samples, not the classifier.
func (a *Analyzer) AnalyzeSegments(ctx context.Context, filename string, signal []float64, sampleRate int, classifier classify.SegmentClassifier) (*SegmentReport, error) {
	started := time.Now()
	logger := a.logger.WithFields(logging.Fields{"function": "AnalyzeSegments", "filename": filename})

	if classifier == nil {
		return nil, fmt.Errorf("no segment classifier available")
	}
	if len(signal) == 0 {
		return nil, fmt.Errorf("empty signal")
	}
	if sampleRate <= 0 {
		return nil, fmt.Errorf("invalid sample rate: %d", sampleRate)
	}

	segments, err := classifier.Classify(ctx, signal, sampleRate)
	if err != nil {
		return nil, fmt.Errorf("segment classification failed: %w", err)
	}

	aggregator := NewSegmentAggregator(a.config)
	for _, segment := range segments {
		aggregator.AddSegment(segment, signal, sampleRate)
	}

	report := a.assembler.assembleSegment(filename, signal, sampleRate, aggregator)

	logger.Info("segment analysis complete", logging.Fields{
		"duration_ms": time.Since(started).Milliseconds(),
		"segments":    aggregator.SegmentCount(),
		"events":      len(report.AllSoundEvents),
	})
	return report, nil
}

// ChunkResult is the lightweight payload for streaming chunk analysis.
type ChunkResult struct {
	FFT              []float64 `json:"fft"`
	Energy           float64   `json:"energy"`
	SpectralCentroid float64   `json:"spectral_centroid"`
	Timestamp        string    `json:"timestamp"`
}

// AnalyzeChunk is the best-effort streaming path: half-spectrum magnitude,
// total energy, and spectral centroid for one chunk. The transport layer
// reports errors in-band so a stream survives a bad chunk.
func (a *Analyzer) AnalyzeChunk(chunk []float64, sampleRate int) (*ChunkResult, error) {
	if len(chunk) == 0 {
		return nil, fmt.Errorf("empty chunk")
	}
	if sampleRate <= 0 {
		return nil, fmt.Errorf("invalid sample rate: %d", sampleRate)
	}

	spectrum := a.spectrum.Compute(chunk, sampleRate)

	half := len(chunk) / 2
	if half > len(spectrum.Magnitude) {
		half = len(spectrum.Magnitude)
	}
	magnitude := spectrum.Magnitude[:half]
	frequencies := spectrum.Frequencies[:half]

	energy := 0.0
	for _, sample := range chunk {
		energy += sample * sample
	}

	var weighted, total float64
	for i, mag := range magnitude {
		weighted += frequencies[i] * mag
		total += mag
	}
	centroid := 0.0
	if total > 0 {
		centroid = weighted / total
	}

	return &ChunkResult{
		FFT:              magnitude,
		Energy:           energy,
		SpectralCentroid: centroid,
		Timestamp:        time.Now().Format(time.RFC3339),
	}, nil
}
