// Package classify scores audio segments against a trained sound event
// model. The scoring backend is pluggable; the rest of the pipeline only
// sees labeled segments.
package classify

import (
	"context"
)

// Default scoring parameters
const (
	DefaultMaxResults     = 10
	DefaultScoreThreshold = 0.1
	DefaultSegmentStride  = 0.975 // seconds per classified segment
)

// LabelScore is one scored label for a segment
type LabelScore struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

// Segment is one classified slice of the input timeline. Labels is empty
// when nothing cleared the score threshold.
type Segment struct {
	Index     int          `json:"index"`
	StartTime float64      `json:"start_time"` // Seconds from the start of the clip
	Duration  float64      `json:"duration"`   // Seconds
	Labels    []LabelScore `json:"labels,omitempty"`
}

// SegmentClassifier scores fixed-stride segments of a mono waveform.
// Implementations are safe for concurrent use unless documented otherwise.
type SegmentClassifier interface {
	Classify(ctx context.Context, pcm []float64, sampleRate int) ([]Segment, error)
	Close() error
}

// Config holds classifier construction parameters
type Config struct {
	ModelPath      string  `json:"model_path"`
	ClassMapPath   string  `json:"class_map_path"`
	MaxResults     int     `json:"max_results"`
	ScoreThreshold float64 `json:"score_threshold"`
	SegmentStride  float64 `json:"segment_stride"`
}

// DefaultConfig returns scoring defaults. Model and class map paths must
// be filled in by the caller.
func DefaultConfig() Config {
	return Config{
		MaxResults:     DefaultMaxResults,
		ScoreThreshold: DefaultScoreThreshold,
		SegmentStride:  DefaultSegmentStride,
	}
}

func (c *Config) applyDefaults() {
	if c.MaxResults <= 0 {
		c.MaxResults = DefaultMaxResults
	}
	if c.ScoreThreshold <= 0 {
		c.ScoreThreshold = DefaultScoreThreshold
	}
	if c.SegmentStride <= 0 {
		c.SegmentStride = DefaultSegmentStride
	}
}
