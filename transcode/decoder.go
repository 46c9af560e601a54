package transcode

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/soundveil/acouscope/logging"
)

// AudioData represents decoded audio data
type AudioData struct {
	PCM        []float64     `json:"-"` // Mono samples in [-1, 1]
	SampleRate int           `json:"sample_rate"`
	Channels   int           `json:"channels"` // Channel count of the source, before the mono mix
	Duration   time.Duration `json:"duration"`
	Timestamp  time.Time     `json:"timestamp"`
	Metadata   *FileMetadata `json:"metadata,omitempty"`
}

// FileMetadata describes the container the samples came from
type FileMetadata struct {
	Filename      string    `json:"filename"`
	Format        string    `json:"format"` // "wav" or "mp3"
	Codec         string    `json:"codec,omitempty"`
	SampleRate    int       `json:"sample_rate,omitempty"`
	Channels      int       `json:"channels,omitempty"`
	BitsPerSample int       `json:"bits_per_sample,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
}

// DecoderConfig holds decoder configuration
type DecoderConfig struct {
	MaxDuration time.Duration `json:"max_duration"` // Truncate beyond this, 0 = no limit
	MixToMono   bool          `json:"mix_to_mono"`  // Average channels into one
}

// DefaultDecoderConfig returns default decoder configuration
func DefaultDecoderConfig() *DecoderConfig {
	return &DecoderConfig{
		MaxDuration: 0,    // No limit
		MixToMono:   true, // The analysis core operates on mono
	}
}

// Decoder turns encoded audio bytes into normalized mono samples
type Decoder struct {
	config *DecoderConfig
	logger logging.Logger
}

// NewDecoder creates a decoder with the given configuration. A nil config
// gets defaults.
func NewDecoder(config *DecoderConfig) *Decoder {
	if config == nil {
		config = DefaultDecoderConfig()
	}
	return &Decoder{
		config: config,
		logger: logging.WithFields(logging.Fields{
			"component": "decoder",
		}),
	}
}

// Decode sniffs the container format and decodes the byte stream. The
// filename is carried into the metadata and used as a fallback format hint
// when the magic bytes are ambiguous.
func (d *Decoder) Decode(data []byte, filename string) (*AudioData, error) {
	logger := d.logger.WithFields(logging.Fields{"function": "Decode", "filename": filename})

	if len(data) == 0 {
		return nil, fmt.Errorf("empty audio data")
	}

	format := sniffFormat(data)
	if format == "" {
		format = formatFromExtension(filename)
	}

	var (
		audio *AudioData
		err   error
	)

	switch format {
	case "wav":
		audio, err = d.DecodeWAV(data)
	case "mp3":
		audio, err = d.DecodeMP3(data)
	default:
		return nil, fmt.Errorf("unrecognized audio format for %q", filename)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to decode %s audio: %w", format, err)
	}

	d.truncate(audio)

	audio.Metadata.Filename = filename
	logger.Debug("audio decoded", logging.Fields{
		"format":      format,
		"sample_rate": audio.SampleRate,
		"channels":    audio.Channels,
		"samples":     len(audio.PCM),
	})

	return audio, nil
}

// truncate enforces MaxDuration on the decoded samples.
func (d *Decoder) truncate(audio *AudioData) {
	if d.config.MaxDuration <= 0 {
		return
	}

	maxSamples := int(d.config.MaxDuration.Seconds() * float64(audio.SampleRate))
	if maxSamples > 0 && len(audio.PCM) > maxSamples {
		audio.PCM = audio.PCM[:maxSamples]
		audio.Duration = d.config.MaxDuration
	}
}

// sniffFormat inspects magic bytes. Returns "" when nothing matches.
func sniffFormat(data []byte) string {
	if len(data) >= 12 && bytes.Equal(data[0:4], []byte("RIFF")) && bytes.Equal(data[8:12], []byte("WAVE")) {
		return "wav"
	}
	if len(data) >= 3 && bytes.Equal(data[0:3], []byte("ID3")) {
		return "mp3"
	}
	// Bare MPEG audio frame sync: 11 set bits
	if len(data) >= 2 && data[0] == 0xFF && data[1]&0xE0 == 0xE0 {
		return "mp3"
	}
	return ""
}

func formatFromExtension(filename string) string {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".wav", ".wave":
		return "wav"
	case ".mp3":
		return "mp3"
	}
	return ""
}

// mixToMono averages interleaved channels into a single channel. Single
// channel input is returned as-is.
func mixToMono(samples []float64, channels int) []float64 {
	if channels <= 1 {
		return samples
	}

	frames := len(samples) / channels
	mono := make([]float64, frames)
	for i := 0; i < frames; i++ {
		sum := 0.0
		for c := 0; c < channels; c++ {
			sum += samples[i*channels+c]
		}
		mono[i] = sum / float64(channels)
	}

	return mono
}
