package analysis

import (
	"math"
	"sort"

	"github.com/soundveil/acouscope/algorithms/common"
	"github.com/soundveil/acouscope/algorithms/spectral"
	"github.com/soundveil/acouscope/algorithms/windowing"
	"github.com/soundveil/acouscope/analysis/config"
	"github.com/soundveil/acouscope/classify"
	"github.com/soundveil/acouscope/logging"
)

// Fallbacks for a segment whose time range holds no samples
const (
	fallbackSegmentFrequency = 440.0
	fallbackSegmentDecibels  = -60.0
)

// SegmentSoundEvent is a sound event derived from a classified segment.
// The semantic label comes from the classifier; frequency and decibels are
// measured from the raw samples spanning the segment.
type SegmentSoundEvent struct {
	Time       float64 `json:"time"`
	Duration   float64 `json:"duration"`
	Type       string  `json:"type"`
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
	Amplitude  float64 `json:"amplitude"`
	Frequency  float64 `json:"frequency"`
	Decibels   float64 `json:"decibels"`
	Source     string  `json:"source"`
}

// CategoryScore is one scored label inside a segment row.
type CategoryScore struct {
	Category   string  `json:"category"`
	Confidence float64 `json:"confidence"`
}

// SegmentClassification is the per-segment timeline row: every segment
// produces one, with or without labels, so acoustic measurements cover the
// full timeline.
type SegmentClassification struct {
	Segment         int             `json:"segment"`
	Timestamp       float64         `json:"timestamp"`
	RealFrequency   float64         `json:"real_frequency"`
	RealDecibels    float64         `json:"real_decibels"`
	Classifications []CategoryScore `json:"classifications"`
}

// LabelStatistic summarizes one label across the whole file.
type LabelStatistic struct {
	Category           string  `json:"category"`
	AverageConfidence  float64 `json:"average_confidence"`
	MaxConfidence      float64 `json:"max_confidence"`
	OccurrenceCount    int     `json:"occurrence_count"`
	CoveragePercentage float64 `json:"coverage_percentage"`
}

// labelTotals is the running accumulator behind a LabelStatistic.
type labelTotals struct {
	sum   float64
	count int
	max   float64
}

// SegmentAggregator folds classified segments into sound events, timeline
// rows, and per-label statistics. Coverage percentages are computed against
// the total number of segments seen, labeled or not.
type SegmentAggregator struct {
	config *config.Config
	logger logging.Logger

	totals       map[string]*labelTotals
	events       []SegmentSoundEvent
	rows         []SegmentClassification
	segmentCount int
}

// NewSegmentAggregator creates an empty aggregator.
func NewSegmentAggregator(cfg *config.Config) *SegmentAggregator {
	return &SegmentAggregator{
		config: cfg,
		logger: logging.WithFields(logging.Fields{
			"component": "segment_aggregator",
		}),
		totals: make(map[string]*labelTotals),
	}
}

// AddSegment folds one classified segment into the running state. The raw
// samples are needed to measure the segment's actual frequency and level.
// A segment with no labels contributes no event and no statistics but
// still advances the coverage denominator and emits a timeline row.
func (sa *SegmentAggregator) AddSegment(segment classify.Segment, samples []float64, sampleRate int) {
	sa.segmentCount++

	frequency, decibels := segmentMetrics(samples, sampleRate, segment.StartTime, segment.Duration)

	row := SegmentClassification{
		Segment:         segment.Index,
		Timestamp:       common.Round(segment.StartTime, 2),
		RealFrequency:   common.Round(frequency, 1),
		RealDecibels:    common.Round(decibels, 1),
		Classifications: []CategoryScore{},
	}

	if len(segment.Labels) > 0 {
		top := segment.Labels[0]
		sa.events = append(sa.events, SegmentSoundEvent{
			Time:       common.Round(segment.StartTime, 2),
			Duration:   segment.Duration,
			Type:       MapLabelToCategory(top.Label),
			Label:      top.Label,
			Confidence: common.Round(top.Score, 4),
			Amplitude:  common.Round(math.Max(0, (decibels+60)/60), 2),
			Frequency:  common.Round(frequency, 1),
			Decibels:   common.Round(decibels, 1),
			Source:     "classifier+fft",
		})

		for _, label := range segment.Labels {
			row.Classifications = append(row.Classifications, CategoryScore{
				Category:   label.Label,
				Confidence: common.Round(label.Score, 4),
			})

			totals, ok := sa.totals[label.Label]
			if !ok {
				totals = &labelTotals{}
				sa.totals[label.Label] = totals
			}
			totals.sum += label.Score
			totals.count++
			if label.Score > totals.max {
				totals.max = label.Score
			}
		}
	}

	sa.rows = append(sa.rows, row)
}

// Events returns every event accumulated so far, in segment order.
func (sa *SegmentAggregator) Events() []SegmentSoundEvent {
	return sa.events
}

// Classifications returns the per-segment timeline rows.
func (sa *SegmentAggregator) Classifications() []SegmentClassification {
	return sa.rows
}

// SegmentCount returns the number of segments folded in.
func (sa *SegmentAggregator) SegmentCount() int {
	return sa.segmentCount
}

// Statistics finalizes the per-label accumulators into ranked rows,
// best average confidence first, truncated to the configured count.
func (sa *SegmentAggregator) Statistics() []LabelStatistic {
	if sa.segmentCount == 0 {
		return nil
	}

	stats := make([]LabelStatistic, 0, len(sa.totals))
	for label, totals := range sa.totals {
		stats = append(stats, LabelStatistic{
			Category:           label,
			AverageConfidence:  common.Round(totals.sum/float64(totals.count), 4),
			MaxConfidence:      common.Round(totals.max, 4),
			OccurrenceCount:    totals.count,
			CoveragePercentage: common.Round(float64(totals.count)/float64(sa.segmentCount)*100, 1),
		})
	}

	sort.Slice(stats, func(i, j int) bool {
		if stats[i].AverageConfidence != stats[j].AverageConfidence {
			return stats[i].AverageConfidence > stats[j].AverageConfidence
		}
		return stats[i].Category < stats[j].Category
	})

	if len(stats) > sa.config.TopLabelCount {
		stats = stats[:sa.config.TopLabelCount]
	}
	return stats
}

// segmentMetrics measures the dominant frequency and RMS level of the
// samples spanning [start, start+duration) seconds. An empty range returns
// neutral fallbacks instead of an error.
func segmentMetrics(samples []float64, sampleRate int, startSeconds, durationSeconds float64) (float64, float64) {
	start := int(startSeconds * float64(sampleRate))
	end := int((startSeconds + durationSeconds) * float64(sampleRate))

	if start < 0 {
		start = 0
	}
	if end > len(samples) {
		end = len(samples)
	}
	if start >= end {
		return fallbackSegmentFrequency, fallbackSegmentDecibels
	}

	segment := samples[start:end]

	rms := common.RMS(segment)
	decibels := 20 * math.Log10(rms+1e-9)

	windowed := windowing.NewHann(len(segment), true).Apply(segment)
	frequency := spectral.NewSpectrum().Compute(windowed, sampleRate).DominantFrequency()

	return frequency, decibels
}
