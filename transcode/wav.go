package transcode

import (
	"encoding/binary"
	"fmt"
	"math"
	"time"
)

// WAV format codes from the fmt chunk
const (
	wavFormatPCM        = 0x0001
	wavFormatIEEEFloat  = 0x0003
	wavFormatExtensible = 0xFFFE
)

// Sample normalization divisors. Integer PCM divides by the positive
// full-scale value of its width; unsigned 8-bit is offset before scaling.
const (
	scaleInt16 = 32767.0
	scaleInt24 = 8388607.0
	scaleInt32 = 2147483647.0
)

type wavFormat struct {
	audioFormat   uint16
	channels      int
	sampleRate    int
	bitsPerSample int
}

// DecodeWAV parses a RIFF/WAVE byte stream into normalized mono samples.
// PCM 8/16/24/32-bit and IEEE float 32/64-bit payloads are supported,
// including the extensible-format wrapper.
func (d *Decoder) DecodeWAV(data []byte) (*AudioData, error) {
	if len(data) < 12 {
		return nil, fmt.Errorf("truncated RIFF header: %d bytes", len(data))
	}
	if string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return nil, fmt.Errorf("not a RIFF/WAVE stream")
	}

	var format *wavFormat
	var sampleBytes []byte

	// Walk the chunk list. Chunks are word-aligned, so odd sizes carry a
	// pad byte.
	offset := 12
	for offset+8 <= len(data) {
		chunkID := string(data[offset : offset+4])
		chunkSize := int(binary.LittleEndian.Uint32(data[offset+4 : offset+8]))
		body := offset + 8

		end := body + chunkSize
		if end > len(data) {
			end = len(data)
		}

		switch chunkID {
		case "fmt ":
			parsed, err := parseFormatChunk(data[body:end])
			if err != nil {
				return nil, err
			}
			format = parsed
		case "data":
			sampleBytes = data[body:end]
		}

		offset = body + chunkSize
		if chunkSize%2 == 1 {
			offset++
		}
	}

	if format == nil {
		return nil, fmt.Errorf("missing fmt chunk")
	}
	if sampleBytes == nil {
		return nil, fmt.Errorf("missing data chunk")
	}
	if format.sampleRate <= 0 {
		return nil, fmt.Errorf("invalid sample rate: %d", format.sampleRate)
	}
	if format.channels <= 0 {
		return nil, fmt.Errorf("invalid channel count: %d", format.channels)
	}

	samples, err := decodeWAVSamples(sampleBytes, format)
	if err != nil {
		return nil, err
	}

	channels := format.channels
	if d.config.MixToMono {
		samples = mixToMono(samples, channels)
	}

	frames := len(samples)
	if !d.config.MixToMono && channels > 0 {
		frames = len(samples) / channels
	}

	now := time.Now()
	return &AudioData{
		PCM:        samples,
		SampleRate: format.sampleRate,
		Channels:   channels,
		Duration:   time.Duration(float64(frames) / float64(format.sampleRate) * float64(time.Second)),
		Timestamp:  now,
		Metadata: &FileMetadata{
			Format:        "wav",
			Codec:         wavCodecName(format),
			SampleRate:    format.sampleRate,
			Channels:      channels,
			BitsPerSample: format.bitsPerSample,
			Timestamp:     now,
		},
	}, nil
}

func parseFormatChunk(body []byte) (*wavFormat, error) {
	if len(body) < 16 {
		return nil, fmt.Errorf("fmt chunk too short: %d bytes", len(body))
	}

	format := &wavFormat{
		audioFormat:   binary.LittleEndian.Uint16(body[0:2]),
		channels:      int(binary.LittleEndian.Uint16(body[2:4])),
		sampleRate:    int(binary.LittleEndian.Uint32(body[4:8])),
		bitsPerSample: int(binary.LittleEndian.Uint16(body[14:16])),
	}

	// Extensible wraps the real format code in the sub-format GUID
	if format.audioFormat == wavFormatExtensible {
		if len(body) < 26 {
			return nil, fmt.Errorf("extensible fmt chunk too short: %d bytes", len(body))
		}
		format.audioFormat = binary.LittleEndian.Uint16(body[24:26])
	}

	return format, nil
}

func decodeWAVSamples(raw []byte, format *wavFormat) ([]float64, error) {
	bytesPerSample := format.bitsPerSample / 8
	if bytesPerSample <= 0 {
		return nil, fmt.Errorf("invalid bits per sample: %d", format.bitsPerSample)
	}

	count := len(raw) / bytesPerSample
	samples := make([]float64, count)

	switch format.audioFormat {
	case wavFormatPCM:
		switch format.bitsPerSample {
		case 8:
			for i := 0; i < count; i++ {
				samples[i] = (float64(raw[i]) - 128.0) / 128.0
			}
		case 16:
			for i := 0; i < count; i++ {
				v := int16(binary.LittleEndian.Uint16(raw[i*2 : i*2+2]))
				samples[i] = float64(v) / scaleInt16
			}
		case 24:
			for i := 0; i < count; i++ {
				b := raw[i*3 : i*3+3]
				v := int32(uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16)
				// Sign-extend from 24 bits
				if v&0x800000 != 0 {
					v |= ^int32(0xFFFFFF)
				}
				samples[i] = float64(v) / scaleInt24
			}
		case 32:
			for i := 0; i < count; i++ {
				v := int32(binary.LittleEndian.Uint32(raw[i*4 : i*4+4]))
				samples[i] = float64(v) / scaleInt32
			}
		default:
			return nil, fmt.Errorf("unsupported PCM bit depth: %d", format.bitsPerSample)
		}
	case wavFormatIEEEFloat:
		switch format.bitsPerSample {
		case 32:
			for i := 0; i < count; i++ {
				bits := binary.LittleEndian.Uint32(raw[i*4 : i*4+4])
				samples[i] = float64(math.Float32frombits(bits))
			}
		case 64:
			for i := 0; i < count; i++ {
				bits := binary.LittleEndian.Uint64(raw[i*8 : i*8+8])
				samples[i] = math.Float64frombits(bits)
			}
		default:
			return nil, fmt.Errorf("unsupported float bit depth: %d", format.bitsPerSample)
		}
	default:
		return nil, fmt.Errorf("unsupported WAV format code: 0x%04X", format.audioFormat)
	}

	return samples, nil
}

func wavCodecName(format *wavFormat) string {
	switch format.audioFormat {
	case wavFormatPCM:
		return fmt.Sprintf("pcm_s%dle", format.bitsPerSample)
	case wavFormatIEEEFloat:
		return fmt.Sprintf("pcm_f%dle", format.bitsPerSample)
	}
	return "unknown"
}
