package analysis

import (
	"math"

	"github.com/soundveil/acouscope/algorithms/common"
	"github.com/soundveil/acouscope/algorithms/temporal"
)

// SilenceDecibels stands in for -Inf when an event's amplitude is zero;
// JSON cannot carry infinities.
const SilenceDecibels = -120.0

// SoundEvent is one detected acoustic event, wire-ready: numeric fields
// are rounded at construction for serialization stability.
type SoundEvent struct {
	Time             float64 `json:"time"`
	Frequency        float64 `json:"frequency"`
	Amplitude        float64 `json:"amplitude"`
	Type             string  `json:"type"`
	Confidence       float64 `json:"confidence"`
	Decibels         float64 `json:"decibels"`
	SpectralRolloff  float64 `json:"spectral_rolloff"`
	ZeroCrossingRate float64 `json:"zero_crossing_rate"`
}

// categoryRule pairs a feature predicate with its category and fixed
// confidence. Confidences are constants per category, not computed scores.
type categoryRule struct {
	matches    func(centroid, rolloff, zcr float64) bool
	category   string
	confidence float64
}

// categoryCascade is the classification precedence: the first matching
// rule wins, and the final rule matches everything.
var categoryCascade = []categoryRule{
	{
		matches:    func(centroid, rolloff, zcr float64) bool { return centroid < 1000 && rolloff < 2000 },
		category:   "Low Frequency/Bass",
		confidence: 0.8,
	},
	{
		matches:    func(centroid, rolloff, zcr float64) bool { return centroid < 3000 && zcr < 0.1 },
		category:   "Voice/Speech",
		confidence: 0.9,
	},
	{
		matches:    func(centroid, rolloff, zcr float64) bool { return centroid > 4000 && rolloff > 8000 },
		category:   "High Frequency/Noise",
		confidence: 0.7,
	},
	{
		matches:    func(centroid, rolloff, zcr float64) bool { return zcr > 0.15 },
		category:   "Percussive/Transient",
		confidence: 0.85,
	},
	{
		matches:    func(centroid, rolloff, zcr float64) bool { return true },
		category:   "Mixed/Complex",
		confidence: 0.6,
	},
}

// EventClassifier assigns categories to detected peaks via the fixed rule
// cascade.
type EventClassifier struct {
	rules []categoryRule
}

// NewEventClassifier creates a classifier over the standard cascade.
func NewEventClassifier() *EventClassifier {
	return &EventClassifier{rules: categoryCascade}
}

// Categorize runs the cascade for one feature tuple. Deterministic:
// exactly one rule fires for any input.
func (ec *EventClassifier) Categorize(centroid, rolloff, zcr float64) (string, float64) {
	for _, rule := range ec.rules {
		if rule.matches(centroid, rolloff, zcr) {
			return rule.category, rule.confidence
		}
	}
	// Unreachable: the cascade ends in a catch-all
	return "Mixed/Complex", 0.6
}

// AmplitudeToDecibels converts a normalized amplitude to dBFS, with the
// silence sentinel for zero.
func AmplitudeToDecibels(amplitude float64) float64 {
	if amplitude > 0 {
		return 20 * math.Log10(amplitude)
	}
	return SilenceDecibels
}

// ClassifyPeak builds a SoundEvent from a detected peak and the features
// at its frame. eventTime is the peak's position in seconds on the energy
// grid.
func (ec *EventClassifier) ClassifyPeak(peak temporal.Peak, features FrameFeatures, eventTime float64) SoundEvent {
	category, confidence := ec.Categorize(features.Centroid, features.Rolloff, features.ZeroCrossingRate)

	return SoundEvent{
		Time:             common.Round(eventTime, 2),
		Frequency:        common.Round(features.Centroid, 1),
		Amplitude:        common.Round(peak.Value, 3),
		Type:             category,
		Confidence:       confidence,
		Decibels:         common.Round(AmplitudeToDecibels(peak.Value), 1),
		SpectralRolloff:  common.Round(features.Rolloff, 1),
		ZeroCrossingRate: common.Round(features.ZeroCrossingRate, 3),
	}
}
