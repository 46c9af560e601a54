package analysis

import (
	"math"
	"sort"
	"time"

	"github.com/soundveil/acouscope/algorithms/common"
	"github.com/soundveil/acouscope/algorithms/spectral"
	"github.com/soundveil/acouscope/algorithms/temporal"
	"github.com/soundveil/acouscope/analysis/config"
)

// Analysis type markers carried in every report
const (
	AnalysisTypeLive    = "live_comprehensive"
	AnalysisTypeSegment = "segment_semantic_v2"
)

// Failure messages for the structured failure envelope
const (
	FailureMessageLive    = "Live audio analysis failed"
	FailureMessageSegment = "Internal processing error"
)

// STFTData is the heatmap payload handed to a plotting layer: z is the
// decibel grid indexed [frequency bin][time frame], x and y the axes.
type STFTData struct {
	Z    [][]float64 `json:"z"`
	X    []float64   `json:"x"`
	Y    []float64   `json:"y"`
	Type string      `json:"type"`
}

// FFTData is the full-signal magnitude spectrum as a line trace.
type FFTData struct {
	X    []float64 `json:"x"`
	Y    []float64 `json:"y"`
	Type string    `json:"type"`
	Mode string    `json:"mode"`
}

// EnergyData is the normalized energy envelope with its detected peaks.
type EnergyData struct {
	Energy     []float64 `json:"energy"`
	Peaks      []int     `json:"peaks"`
	PeakValues []float64 `json:"peak_values"`
	Frames     []int     `json:"frames"`
}

// Visualizations groups the plotting payloads of a live report.
type Visualizations struct {
	STFT   *STFTData   `json:"stft"`
	FFT    *FFTData    `json:"fft"`
	Energy *EnergyData `json:"energy"`
}

// SpectralSummary carries whole-signal feature means.
type SpectralSummary struct {
	MeanSpectralCentroid float64   `json:"meanSpectralCentroid"`
	MeanSpectralRolloff  float64   `json:"meanSpectralRolloff"`
	MeanZeroCrossingRate float64   `json:"meanZeroCrossingRate"`
	MFCCMean             []float64 `json:"mfccMean"`
}

// LiveReport is the full analysis result for the heuristic event pipeline.
type LiveReport struct {
	Filename          string           `json:"filename"`
	Timestamp         string           `json:"timestamp"`
	Duration          float64          `json:"duration"`
	SampleRate        int              `json:"sampleRate"`
	AverageRMS        float64          `json:"averageRMS"`
	DetectedSounds    int              `json:"detectedSounds"`
	DominantFrequency float64          `json:"dominantFrequency"`
	MaxDecibels       float64          `json:"maxDecibels"`
	SoundEvents       []SoundEvent     `json:"soundEvents"`
	Visualizations    *Visualizations  `json:"visualizations"`
	SpectralFeatures  *SpectralSummary `json:"spectralFeatures"`
	AnalysisComplete  bool             `json:"analysisComplete"`
	AnalysisType      string           `json:"analysisType"`
}

// SemanticClassifications nests the label statistics and the per-segment
// timeline inside a segment report.
type SemanticClassifications struct {
	OverallStatistics      []LabelStatistic        `json:"overallStatistics"`
	SegmentClassifications []SegmentClassification `json:"segmentClassifications"`
}

// SegmentReport is the analysis result for the semantic segment pipeline.
// AllSoundEvents is the unclipped event list; SoundEvents is the truncated
// view used for display.
type SegmentReport struct {
	Filename                string                   `json:"filename"`
	Timestamp               string                   `json:"timestamp"`
	Duration                float64                  `json:"duration"`
	SampleRate              int                      `json:"sampleRate"`
	SegmentsAnalyzed        int                      `json:"segmentsAnalyzed"`
	SemanticClassifications *SemanticClassifications `json:"semanticClassifications"`
	AllSoundEvents          []SegmentSoundEvent      `json:"allSoundEvents"`
	DetectedSounds          int                      `json:"detectedSounds"`
	SoundEvents             []SegmentSoundEvent      `json:"soundEvents"`
	DominantFrequency       float64                  `json:"dominantFrequency"`
	MaxDecibels             float64                  `json:"maxDecibels"`
	AverageRMS              float64                  `json:"averageRMS"`
	AnalysisComplete        bool                     `json:"analysisComplete"`
	AnalysisType            string                   `json:"analysisType"`
}

// FailureReport is the structured envelope returned instead of a report
// when any pipeline stage fails. Analysis never partially completes.
type FailureReport struct {
	Error            string `json:"error"`
	AnalysisComplete bool   `json:"analysisComplete"`
	AnalysisType     string `json:"analysisType"`
	Message          string `json:"message"`
	Timestamp        string `json:"timestamp"`
}

// NewFailureReport wraps an error into the failure envelope.
func NewFailureReport(analysisType, message string, err error) *FailureReport {
	return &FailureReport{
		Error:            err.Error(),
		AnalysisComplete: false,
		AnalysisType:     analysisType,
		Message:          message,
		Timestamp:        time.Now().Format(time.RFC3339),
	}
}

// ReportAssembler applies ranking, truncation, and rounding policies to the
// pipeline outputs. Pure aggregation: it computes nothing new about the
// signal beyond whole-signal scalars.
type ReportAssembler struct {
	config *config.Config
}

// NewReportAssembler creates an assembler with the given truncation counts.
func NewReportAssembler(cfg *config.Config) *ReportAssembler {
	return &ReportAssembler{config: cfg}
}

// liveInputs carries everything the live assembly needs.
type liveInputs struct {
	filename    string
	signal      []float64
	sampleRate  int
	spectrogram *spectral.STFTResult
	spectrum    *spectral.SpectrumResult
	envelope    []float64
	peaks       []temporal.Peak
	features    *FeatureSet
	events      []SoundEvent
}

// assembleLive builds the final live report. Events are sorted by
// descending amplitude (stable, so equal amplitudes stay in time order)
// and truncated; detectedSounds counts the unclipped peak set.
func (ra *ReportAssembler) assembleLive(in liveInputs) *LiveReport {
	events := make([]SoundEvent, len(in.events))
	copy(events, in.events)
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Amplitude > events[j].Amplitude
	})

	topEvents := events
	if len(topEvents) > ra.config.TopEventCount {
		topEvents = topEvents[:ra.config.TopEventCount]
	}

	maxAmplitude := 0.0
	for _, sample := range in.signal {
		if a := math.Abs(sample); a > maxAmplitude {
			maxAmplitude = a
		}
	}
	maxDecibels := SilenceDecibels
	if maxAmplitude > 0 {
		maxDecibels = common.Round(20*math.Log10(maxAmplitude), 1)
	}

	frames := make([]int, len(in.envelope))
	for i := range frames {
		frames[i] = i
	}

	return &LiveReport{
		Filename:          in.filename,
		Timestamp:         time.Now().Format(time.RFC3339),
		Duration:          common.Round(float64(len(in.signal))/float64(in.sampleRate), 2),
		SampleRate:        in.sampleRate,
		AverageRMS:        common.Round(common.RMS(in.signal), 6),
		DetectedSounds:    len(in.peaks),
		DominantFrequency: common.Round(common.Mean(in.features.Centroids), 1),
		MaxDecibels:       maxDecibels,
		SoundEvents:       topEvents,
		Visualizations: &Visualizations{
			STFT: &STFTData{
				Z:    in.spectrogram.DecibelGrid(80),
				X:    in.spectrogram.TimeAxis(),
				Y:    in.spectrogram.FreqAxis(),
				Type: "heatmap",
			},
			FFT: &FFTData{
				X:    in.spectrum.Frequencies,
				Y:    in.spectrum.Magnitude,
				Type: "scatter",
				Mode: "lines",
			},
			Energy: &EnergyData{
				Energy:     in.envelope,
				Peaks:      temporal.Indices(in.peaks),
				PeakValues: temporal.Values(in.peaks),
				Frames:     frames,
			},
		},
		SpectralFeatures: &SpectralSummary{
			MeanSpectralCentroid: common.Round(common.Mean(in.features.Centroids), 1),
			MeanSpectralRolloff:  common.Round(common.Mean(in.features.Rolloffs), 1),
			MeanZeroCrossingRate: common.Round(common.Mean(in.features.ZeroCrossingRates), 3),
			MFCCMean:             roundVector(in.features.MFCCMean, 3),
		},
		AnalysisComplete: true,
		AnalysisType:     AnalysisTypeLive,
	}
}

// assembleSegment builds the final segment report from the aggregator
// state. soundEvents is ranked by descending amplitude (stable, so equal
// amplitudes stay in segment order) before truncation; allSoundEvents
// keeps the unclipped list in segment order. The whole-file dominant
// frequency is measured over at most the first ten seconds of signal.
func (ra *ReportAssembler) assembleSegment(filename string, signal []float64, sampleRate int, aggregator *SegmentAggregator) *SegmentReport {
	events := aggregator.Events()
	if events == nil {
		events = []SegmentSoundEvent{}
	}

	ranked := make([]SegmentSoundEvent, len(events))
	copy(ranked, events)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Amplitude > ranked[j].Amplitude
	})

	topEvents := ranked
	if len(topEvents) > ra.config.SegmentTopEventCount {
		topEvents = topEvents[:ra.config.SegmentTopEventCount]
	}

	maxDecibels := fallbackSegmentDecibels
	for i, event := range events {
		if i == 0 || event.Decibels > maxDecibels {
			maxDecibels = event.Decibels
		}
	}

	head := signal
	if limit := sampleRate * 10; len(head) > limit {
		head = head[:limit]
	}
	dominant := spectral.NewSpectrum().Compute(head, sampleRate).DominantFrequency()

	rows := aggregator.Classifications()
	if rows == nil {
		rows = []SegmentClassification{}
	}
	stats := aggregator.Statistics()
	if stats == nil {
		stats = []LabelStatistic{}
	}

	return &SegmentReport{
		Filename:         filename,
		Timestamp:        time.Now().Format(time.RFC3339),
		Duration:         common.Round(float64(len(signal))/float64(sampleRate), 2),
		SampleRate:       sampleRate,
		SegmentsAnalyzed: aggregator.SegmentCount(),
		SemanticClassifications: &SemanticClassifications{
			OverallStatistics:      stats,
			SegmentClassifications: rows,
		},
		AllSoundEvents:    events,
		DetectedSounds:    len(events),
		SoundEvents:       topEvents,
		DominantFrequency: common.Round(dominant, 1),
		MaxDecibels:       maxDecibels,
		AverageRMS:        common.Round(common.RMS(signal), 6),
		AnalysisComplete:  true,
		AnalysisType:      AnalysisTypeSegment,
	}
}

func roundVector(values []float64, decimals int) []float64 {
	rounded := make([]float64, len(values))
	for i, v := range values {
		rounded[i] = common.Round(v, decimals)
	}
	return rounded
}
