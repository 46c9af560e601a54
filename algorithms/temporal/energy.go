package temporal

// EnergyEnvelope computes a frame-wise energy envelope over hop-aligned
// windows. A window opens at every hop position inside the signal, so the
// final windows may cover fewer than frameSize samples; they are never
// skipped. This keeps the envelope's frame grid aligned with ceil(len/hop)
// regardless of signal length.
type EnergyEnvelope struct {
	frameSize  int
	hopSize    int
	sampleRate int
}

// NewEnergyEnvelope creates a new envelope extractor
func NewEnergyEnvelope(frameSize, hopSize, sampleRate int) *EnergyEnvelope {
	return &EnergyEnvelope{
		frameSize:  frameSize,
		hopSize:    hopSize,
		sampleRate: sampleRate,
	}
}

// Compute returns the raw envelope: sum of squared samples per window,
// one value per hop position.
func (e *EnergyEnvelope) Compute(signal []float64) []float64 {
	if len(signal) == 0 || e.hopSize <= 0 || e.frameSize <= 0 {
		return []float64{}
	}

	numFrames := (len(signal) + e.hopSize - 1) / e.hopSize
	envelope := make([]float64, 0, numFrames)

	for start := 0; start < len(signal); start += e.hopSize {
		end := start + e.frameSize
		if end > len(signal) {
			end = len(signal)
		}

		sum := 0.0
		for _, sample := range signal[start:end] {
			sum += sample * sample
		}
		envelope = append(envelope, sum)
	}

	return envelope
}

// ComputeNormalized returns the envelope scaled so its maximum is 1.0.
// A silent signal (zero maximum) is left at all zeros rather than divided.
func (e *EnergyEnvelope) ComputeNormalized(signal []float64) []float64 {
	envelope := e.Compute(signal)

	maxEnergy := 0.0
	for _, value := range envelope {
		if value > maxEnergy {
			maxEnergy = value
		}
	}

	if maxEnergy == 0 {
		return envelope
	}

	for i := range envelope {
		envelope[i] /= maxEnergy
	}

	return envelope
}

// FrameTime converts an envelope frame index to its start time in seconds.
func (e *EnergyEnvelope) FrameTime(frameIndex int) float64 {
	if e.sampleRate <= 0 {
		return 0.0
	}
	return float64(frameIndex*e.hopSize) / float64(e.sampleRate)
}

// NumFrames reports how many envelope values a signal of the given length
// produces.
func (e *EnergyEnvelope) NumFrames(signalLength int) int {
	if signalLength <= 0 || e.hopSize <= 0 {
		return 0
	}
	return (signalLength + e.hopSize - 1) / e.hopSize
}
