package analysis

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soundveil/acouscope/analysis/config"
	"github.com/soundveil/acouscope/classify"
)

func newTestAnalyzer(t *testing.T, cfg *config.Config) *Analyzer {
	t.Helper()
	analyzer, err := NewAnalyzer(cfg)
	require.NoError(t, err)
	return analyzer
}

func TestAnalyzeWaveformSilent(t *testing.T) {
	analyzer := newTestAnalyzer(t, nil)
	signal := make([]float64, 16000)

	report, err := analyzer.AnalyzeWaveform("silence.wav", signal, 16000)
	require.NoError(t, err)

	assert.True(t, report.AnalysisComplete)
	assert.Equal(t, AnalysisTypeLive, report.AnalysisType)
	assert.Equal(t, "silence.wav", report.Filename)
	assert.Equal(t, 1.0, report.Duration)
	assert.Equal(t, 16000, report.SampleRate)
	assert.Equal(t, 0.0, report.AverageRMS)
	assert.Equal(t, 0, report.DetectedSounds)
	assert.Empty(t, report.SoundEvents)
	assert.Equal(t, SilenceDecibels, report.MaxDecibels)
	assert.Equal(t, 0.0, report.DominantFrequency)

	// Silence leaves the envelope unnormalized at zero
	for _, value := range report.Visualizations.Energy.Energy {
		assert.Equal(t, 0.0, value)
	}
	assert.Empty(t, report.Visualizations.Energy.Peaks)

	assert.Equal(t, 0.0, report.SpectralFeatures.MeanSpectralCentroid)
	assert.Equal(t, 0.0, report.SpectralFeatures.MeanSpectralRolloff)
	assert.Equal(t, 0.0, report.SpectralFeatures.MeanZeroCrossingRate)
}

func TestAnalyzeWaveformSilentMarshalsEmptyLists(t *testing.T) {
	analyzer := newTestAnalyzer(t, nil)

	report, err := analyzer.AnalyzeWaveform("silence.wav", make([]float64, 16000), 16000)
	require.NoError(t, err)

	payload, err := json.Marshal(report)
	require.NoError(t, err)

	body := string(payload)
	assert.Contains(t, body, `"soundEvents":[]`)
	assert.Contains(t, body, `"peaks":[]`)
	assert.Contains(t, body, `"peak_values":[]`)
	assert.NotContains(t, body, "null")
}

func TestAnalyzeWaveformTone(t *testing.T) {
	analyzer := newTestAnalyzer(t, nil)
	signal := makeSine(440, 16000, 16000, 0.5)

	report, err := analyzer.AnalyzeWaveform("tone.wav", signal, 16000)
	require.NoError(t, err)

	assert.True(t, report.AnalysisComplete)
	assert.Equal(t, 1.0, report.Duration)
	assert.InDelta(t, 0.3536, report.AverageRMS, 1e-3)
	assert.Equal(t, -6.0, report.MaxDecibels)

	// Centroid of a pure 440 Hz tone stays within 10% of the tone
	assert.InDelta(t, 440.0, report.DominantFrequency, 44.0)
	assert.InDelta(t, 440.0, report.SpectralFeatures.MeanSpectralCentroid, 44.0)

	require.NotZero(t, report.DetectedSounds)
	require.NotEmpty(t, report.SoundEvents)
	for _, event := range report.SoundEvents {
		assert.Equal(t, "Low Frequency/Bass", event.Type)
		assert.Equal(t, 0.8, event.Confidence)
		assert.InDelta(t, 440.0, event.Frequency, 44.0)
	}

	// Events are ranked by descending amplitude
	for i := 1; i < len(report.SoundEvents); i++ {
		assert.GreaterOrEqual(t, report.SoundEvents[i-1].Amplitude, report.SoundEvents[i].Amplitude)
	}

	assert.Len(t, report.SpectralFeatures.MFCCMean, 13)
}

func TestAnalyzeWaveformVisualizationShapes(t *testing.T) {
	analyzer := newTestAnalyzer(t, nil)
	signal := makeSine(440, 16000, 16000, 0.5)

	report, err := analyzer.AnalyzeWaveform("tone.wav", signal, 16000)
	require.NoError(t, err)

	stft := report.Visualizations.STFT
	require.NotNil(t, stft)
	assert.Equal(t, "heatmap", stft.Type)
	// (16000-2048)/512+1 time frames, 2048/2+1 frequency rows
	assert.Len(t, stft.Z, 1025)
	assert.Len(t, stft.Z[0], 28)
	assert.Len(t, stft.X, 28)
	assert.Len(t, stft.Y, 1025)
	assert.Equal(t, 8000.0, stft.Y[1024])

	fft := report.Visualizations.FFT
	require.NotNil(t, fft)
	assert.Equal(t, "scatter", fft.Type)
	assert.Equal(t, "lines", fft.Mode)
	assert.Len(t, fft.X, 8001)
	assert.Len(t, fft.Y, 8001)
	assert.Equal(t, 8000.0, fft.X[8000])

	energy := report.Visualizations.Energy
	require.NotNil(t, energy)
	assert.Len(t, energy.Energy, 32)
	assert.Len(t, energy.Frames, 32)
	assert.Equal(t, 31, energy.Frames[31])
	assert.Len(t, energy.PeakValues, len(energy.Peaks))
}

func TestAnalyzeWaveformNoise(t *testing.T) {
	analyzer := newTestAnalyzer(t, nil)

	rng := rand.New(rand.NewSource(42))
	signal := make([]float64, 16000)
	for i := range signal {
		signal[i] = rng.Float64()*2 - 1
	}

	report, err := analyzer.AnalyzeWaveform("noise.wav", signal, 16000)
	require.NoError(t, err)

	assert.Greater(t, report.SpectralFeatures.MeanZeroCrossingRate, 0.15)

	require.NotEmpty(t, report.SoundEvents)
	for _, event := range report.SoundEvents {
		assert.Contains(t, []string{"Percussive/Transient", "High Frequency/Noise"}, event.Type)
	}
}

func TestAnalyzeWaveformErrors(t *testing.T) {
	analyzer := newTestAnalyzer(t, nil)

	_, err := analyzer.AnalyzeWaveform("empty.wav", nil, 16000)
	assert.Error(t, err)

	_, err = analyzer.AnalyzeWaveform("bad-rate.wav", make([]float64, 16000), 0)
	assert.Error(t, err)

	// Shorter than one analysis frame
	_, err = analyzer.AnalyzeWaveform("short.wav", make([]float64, 100), 16000)
	assert.Error(t, err)
}

func TestNewAnalyzerRejectsBadConfig(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.FrameSize = 0

	_, err := NewAnalyzer(cfg)
	assert.Error(t, err)
}

func TestAnalyzeChunk(t *testing.T) {
	analyzer := newTestAnalyzer(t, nil)

	// 64 exact cycles in the chunk, so the energy lands in a single bin
	chunk := makeSine(1000, 16000, 1024, 0.5)
	result, err := analyzer.AnalyzeChunk(chunk, 16000)
	require.NoError(t, err)

	assert.Len(t, result.FFT, 512)
	assert.InDelta(t, 128.0, result.Energy, 1e-6)
	assert.InDelta(t, 1000.0, result.SpectralCentroid, 25.0)
	assert.NotEmpty(t, result.Timestamp)
}

func TestAnalyzeChunkErrors(t *testing.T) {
	analyzer := newTestAnalyzer(t, nil)

	_, err := analyzer.AnalyzeChunk(nil, 16000)
	assert.Error(t, err)

	_, err = analyzer.AnalyzeChunk(make([]float64, 256), 0)
	assert.Error(t, err)
}

type fakeClassifier struct {
	segments []classify.Segment
	err      error
}

func (f *fakeClassifier) Classify(ctx context.Context, pcm []float64, sampleRate int) ([]classify.Segment, error) {
	return f.segments, f.err
}

func (f *fakeClassifier) Close() error { return nil }

func TestAnalyzeSegments(t *testing.T) {
	analyzer := newTestAnalyzer(t, nil)
	signal := makeSine(1000, 16000, 48000, 0.5)

	classifier := &fakeClassifier{segments: []classify.Segment{
		labeledSegment(0, 0,
			classify.LabelScore{Label: "Speech", Score: 0.8},
			classify.LabelScore{Label: "Music", Score: 0.3},
		),
		labeledSegment(1, 0.975),
		labeledSegment(2, 1.95,
			classify.LabelScore{Label: "Music", Score: 0.6},
		),
	}}

	report, err := analyzer.AnalyzeSegments(context.Background(), "clip.wav", signal, 16000, classifier)
	require.NoError(t, err)

	assert.True(t, report.AnalysisComplete)
	assert.Equal(t, AnalysisTypeSegment, report.AnalysisType)
	assert.Equal(t, "clip.wav", report.Filename)
	assert.Equal(t, 3.0, report.Duration)
	assert.Equal(t, 3, report.SegmentsAnalyzed)
	assert.Equal(t, 2, report.DetectedSounds)
	assert.Len(t, report.AllSoundEvents, 2)
	assert.Len(t, report.SoundEvents, 2)
	assert.InDelta(t, 1000.0, report.DominantFrequency, 0.5)
	assert.Equal(t, -9.0, report.MaxDecibels)
	assert.InDelta(t, 0.353553, report.AverageRMS, 1e-5)
	assert.NotEmpty(t, report.Timestamp)

	semantic := report.SemanticClassifications
	require.NotNil(t, semantic)
	require.Len(t, semantic.OverallStatistics, 2)
	assert.Equal(t, "Speech", semantic.OverallStatistics[0].Category)
	assert.Len(t, semantic.SegmentClassifications, 3)
}

func TestAnalyzeSegmentsTruncation(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.SegmentTopEventCount = 1

	analyzer := newTestAnalyzer(t, cfg)
	signal := makeSine(1000, 16000, 48000, 0.5)

	classifier := &fakeClassifier{segments: []classify.Segment{
		labeledSegment(0, 0, classify.LabelScore{Label: "Dog", Score: 0.5}),
		labeledSegment(1, 0.975, classify.LabelScore{Label: "Cat", Score: 0.4}),
	}}

	report, err := analyzer.AnalyzeSegments(context.Background(), "clip.wav", signal, 16000, classifier)
	require.NoError(t, err)

	assert.Equal(t, 2, report.DetectedSounds)
	assert.Len(t, report.AllSoundEvents, 2)
	require.Len(t, report.SoundEvents, 1)

	// Equal amplitudes keep segment order under the stable ranking
	assert.Equal(t, "Dog", report.SoundEvents[0].Label)
	assert.Equal(t, 0.0, report.SoundEvents[0].Time)
}

func TestAnalyzeSegmentsRanksEventsByAmplitude(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.SegmentTopEventCount = 2

	analyzer := newTestAnalyzer(t, cfg)

	// Three classifier strides, each louder than the one before
	signal := makeSine(1000, 16000, 15600, 0.1)
	signal = append(signal, makeSine(1000, 16000, 15600, 0.35)...)
	signal = append(signal, makeSine(1000, 16000, 15600, 0.9)...)

	classifier := &fakeClassifier{segments: []classify.Segment{
		labeledSegment(0, 0, classify.LabelScore{Label: "Dog", Score: 0.9}),
		labeledSegment(1, 0.975, classify.LabelScore{Label: "Cat", Score: 0.6}),
		labeledSegment(2, 1.95, classify.LabelScore{Label: "Bird", Score: 0.3}),
	}}

	report, err := analyzer.AnalyzeSegments(context.Background(), "ramp.wav", signal, 16000, classifier)
	require.NoError(t, err)

	// The unclipped list stays in segment order
	require.Len(t, report.AllSoundEvents, 3)
	assert.Equal(t, 3, report.DetectedSounds)
	assert.Equal(t, 0.62, report.AllSoundEvents[0].Amplitude)
	assert.Equal(t, 0.8, report.AllSoundEvents[1].Amplitude)
	assert.Equal(t, 0.93, report.AllSoundEvents[2].Amplitude)

	// Truncation keeps the loudest events, best first, not the earliest
	require.Len(t, report.SoundEvents, 2)
	assert.Equal(t, "Bird", report.SoundEvents[0].Label)
	assert.Equal(t, 0.93, report.SoundEvents[0].Amplitude)
	assert.Equal(t, 1.95, report.SoundEvents[0].Time)
	assert.Equal(t, "Cat", report.SoundEvents[1].Label)
	assert.Equal(t, 0.8, report.SoundEvents[1].Amplitude)

	// No event in the unclipped list outranks the best kept one
	for _, event := range report.AllSoundEvents {
		assert.LessOrEqual(t, event.Amplitude, report.SoundEvents[0].Amplitude)
	}

	assert.Equal(t, -3.9, report.MaxDecibels)
}

func TestAnalyzeSegmentsClassifierFailure(t *testing.T) {
	analyzer := newTestAnalyzer(t, nil)
	signal := makeSine(1000, 16000, 16000, 0.5)

	classifier := &fakeClassifier{err: fmt.Errorf("model exploded")}
	_, err := analyzer.AnalyzeSegments(context.Background(), "clip.wav", signal, 16000, classifier)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "model exploded")
}

func TestAnalyzeSegmentsNoClassifier(t *testing.T) {
	analyzer := newTestAnalyzer(t, nil)

	_, err := analyzer.AnalyzeSegments(context.Background(), "clip.wav", make([]float64, 16000), 16000, nil)
	assert.Error(t, err)
}

func TestFailureReportEnvelope(t *testing.T) {
	failure := NewFailureReport(AnalysisTypeLive, FailureMessageLive, fmt.Errorf("decode failed"))

	assert.Equal(t, "decode failed", failure.Error)
	assert.False(t, failure.AnalysisComplete)
	assert.Equal(t, AnalysisTypeLive, failure.AnalysisType)
	assert.Equal(t, "Live audio analysis failed", failure.Message)
	assert.NotEmpty(t, failure.Timestamp)

	payload, err := json.Marshal(failure)
	require.NoError(t, err)
	assert.Contains(t, string(payload), `"analysisComplete":false`)
}

func TestFeatureSetClampsLookups(t *testing.T) {
	fs := &FeatureSet{
		Centroids:         []float64{100, 200},
		Rolloffs:          []float64{1000, 2000},
		ZeroCrossingRates: []float64{0.1, 0.2},
		MFCCFrames:        [][]float64{{1}, {2}},
	}

	beyond := fs.At(99)
	assert.Equal(t, 200.0, beyond.Centroid)
	assert.Equal(t, 2000.0, beyond.Rolloff)
	assert.Equal(t, 0.2, beyond.ZeroCrossingRate)
	assert.Equal(t, []float64{2}, beyond.MFCC)

	negative := fs.At(-1)
	assert.Equal(t, 100.0, negative.Centroid)
}
