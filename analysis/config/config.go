// Package config holds the tunable parameters of the analysis pipeline.
package config

import (
	"fmt"
)

// Config controls framing, detection thresholds, and report sizing for a
// full analysis run. Zero values are not usable; start from DefaultConfig.
type Config struct {
	// Spectral framing
	FrameSize  int    `json:"frame_size"`
	HopSize    int    `json:"hop_size"`
	WindowType string `json:"window_type"` // "hann", "hamming", "blackman"

	// Energy envelope framing
	EnergyFrameSize int `json:"energy_frame_size"`

	// Peak detection
	PeakHeightThreshold float64 `json:"peak_height_threshold"` // On the normalized envelope
	PeakMinDistance     int     `json:"peak_min_distance"`     // Frames

	// Feature extraction
	RolloffFraction  float64 `json:"rolloff_fraction"`
	MFCCCoefficients int     `json:"mfcc_coefficients"`
	MelFilters       int     `json:"mel_filters"`

	// Report sizing
	TopEventCount        int `json:"top_event_count"`         // Events listed in a live report
	TopLabelCount        int `json:"top_label_count"`         // Label statistics rows
	SegmentTopEventCount int `json:"segment_top_event_count"` // Events listed in a segment report
}

// DefaultConfig returns the standard analysis parameters.
func DefaultConfig() *Config {
	return &Config{
		FrameSize:            2048,
		HopSize:              512,
		WindowType:           "hann",
		EnergyFrameSize:      1024,
		PeakHeightThreshold:  0.2,
		PeakMinDistance:      5,
		RolloffFraction:      0.85,
		MFCCCoefficients:     13,
		MelFilters:           26,
		TopEventCount:        15,
		TopLabelCount:        15,
		SegmentTopEventCount: 50,
	}
}

// Validate checks the configuration for values the pipeline cannot run with.
func (c *Config) Validate() error {
	if c.FrameSize <= 0 {
		return fmt.Errorf("frame size must be positive: %d", c.FrameSize)
	}
	if c.HopSize <= 0 {
		return fmt.Errorf("hop size must be positive: %d", c.HopSize)
	}
	if c.HopSize > c.FrameSize {
		return fmt.Errorf("hop size %d exceeds frame size %d", c.HopSize, c.FrameSize)
	}
	if c.EnergyFrameSize <= 0 {
		return fmt.Errorf("energy frame size must be positive: %d", c.EnergyFrameSize)
	}

	validWindows := map[string]bool{"hann": true, "hamming": true, "blackman": true}
	if !validWindows[c.WindowType] {
		return fmt.Errorf("invalid window type: %s (must be 'hann', 'hamming', or 'blackman')", c.WindowType)
	}

	if c.PeakHeightThreshold < 0 || c.PeakHeightThreshold > 1 {
		return fmt.Errorf("peak height threshold must be between 0 and 1: %f", c.PeakHeightThreshold)
	}
	if c.PeakMinDistance < 0 {
		return fmt.Errorf("peak min distance must not be negative: %d", c.PeakMinDistance)
	}

	if c.RolloffFraction <= 0 || c.RolloffFraction > 1 {
		return fmt.Errorf("rolloff fraction must be in (0, 1]: %f", c.RolloffFraction)
	}
	if c.MFCCCoefficients <= 0 {
		return fmt.Errorf("mfcc coefficient count must be positive: %d", c.MFCCCoefficients)
	}
	if c.MelFilters < c.MFCCCoefficients {
		return fmt.Errorf("mel filter count %d must not be below mfcc coefficient count %d", c.MelFilters, c.MFCCCoefficients)
	}

	if c.TopEventCount <= 0 {
		return fmt.Errorf("top event count must be positive: %d", c.TopEventCount)
	}
	if c.TopLabelCount <= 0 {
		return fmt.Errorf("top label count must be positive: %d", c.TopLabelCount)
	}
	if c.SegmentTopEventCount <= 0 {
		return fmt.Errorf("segment top event count must be positive: %d", c.SegmentTopEventCount)
	}

	return nil
}
