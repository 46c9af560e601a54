package transcode

import (
	"bytes"
	"fmt"
	"io"
	"time"

	"github.com/hajimehoshi/go-mp3"
)

// DecodeMP3 decodes an MPEG audio stream into normalized mono samples.
// The decoder always emits 16-bit little-endian stereo frames, so each
// frame is four bytes regardless of the source channel layout.
func (d *Decoder) DecodeMP3(data []byte) (*AudioData, error) {
	dec, err := mp3.NewDecoder(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to open MP3 stream: %w", err)
	}

	sampleRate := dec.SampleRate()
	if sampleRate <= 0 {
		return nil, fmt.Errorf("invalid MP3 sample rate: %d", sampleRate)
	}

	pcm, err := io.ReadAll(dec)
	if err != nil {
		return nil, fmt.Errorf("failed to decode MP3 frames: %w", err)
	}

	frameCount := len(pcm) / 4
	var samples []float64
	if d.config.MixToMono {
		samples = make([]float64, frameCount)
		for i := 0; i < frameCount; i++ {
			left := int16(uint16(pcm[i*4]) | uint16(pcm[i*4+1])<<8)
			right := int16(uint16(pcm[i*4+2]) | uint16(pcm[i*4+3])<<8)
			samples[i] = (float64(left) + float64(right)) / 2.0 / 32768.0
		}
	} else {
		samples = make([]float64, frameCount*2)
		for i := 0; i < frameCount*2; i++ {
			v := int16(uint16(pcm[i*2]) | uint16(pcm[i*2+1])<<8)
			samples[i] = float64(v) / 32768.0
		}
	}

	now := time.Now()
	return &AudioData{
		PCM:        samples,
		SampleRate: sampleRate,
		Channels:   2,
		Duration:   time.Duration(float64(frameCount) / float64(sampleRate) * float64(time.Second)),
		Timestamp:  now,
		Metadata: &FileMetadata{
			Format:        "mp3",
			Codec:         "mp3",
			SampleRate:    sampleRate,
			Channels:      2,
			BitsPerSample: 16,
			Timestamp:     now,
		},
	}, nil
}
