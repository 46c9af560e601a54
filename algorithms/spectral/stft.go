package spectral

import (
	"fmt"
	"math"
	"math/cmplx"
	"runtime"
	"sync"

	"github.com/soundveil/acouscope/algorithms/windowing"
	"github.com/soundveil/acouscope/logging"
)

// Decibel conversion policy for spectrogram grids. Magnitudes are floored at
// aminAmplitude before taking logs, and the grid is clipped at topDB below its
// referenced peak so silent cells don't dominate the dynamic range.
const (
	aminAmplitude = 1e-5
	defaultTopDB  = 80.0
)

// STFT provides Short-Time Fourier Transform functionality
type STFT struct {
	fft    *FFT
	logger logging.Logger
}

// STFTResult holds the result of STFT analysis
type STFTResult struct {
	Magnitude      [][]float64 `json:"magnitude"`       // Time x Frequency magnitude matrix
	TimeFrames     int         `json:"time_frames"`     // Number of time frames
	FreqBins       int         `json:"freq_bins"`       // Number of frequency bins
	SampleRate     int         `json:"sample_rate"`     // Sample rate
	WindowSize     int         `json:"window_size"`     // FFT window size
	HopSize        int         `json:"hop_size"`        // Hop size between frames
	FreqResolution float64     `json:"freq_resolution"` // Frequency resolution (Hz/bin)
	TimeResolution float64     `json:"time_resolution"` // Time resolution (seconds/frame)
}

// Window applies a precomputed window function to one frame in-place.
// *windowing.CosineWindow satisfies this.
type Window interface {
	ApplyInPlace(signal []float64) error
}

// NewSTFT creates a new STFT analyzer
func NewSTFT() *STFT {
	return &STFT{
		fft: NewFFT(),
		logger: logging.WithFields(logging.Fields{
			"component": "stft",
		}),
	}
}

// Compute performs STFT with a periodic Hann window, the default analysis
// window for spectrogram grids.
func (s *STFT) Compute(signal []float64, windowSize, hopSize, sampleRate int) (*STFTResult, error) {
	if windowSize <= 0 {
		return nil, fmt.Errorf("invalid window size: %d", windowSize)
	}
	return s.ComputeWithWindow(signal, windowing.NewHann(windowSize, false), hopSize, sampleRate)
}

// ComputeWithWindow performs STFT analysis with a caller-supplied window.
// Frames are taken at every hop position where a full window fits; no
// padding is applied at the signal edges.
func (s *STFT) ComputeWithWindow(signal []float64, window Window, hopSize, sampleRate int) (*STFTResult, error) {
	logger := s.logger.WithFields(logging.Fields{"function": "ComputeWithWindow"})

	if len(signal) == 0 {
		return nil, fmt.Errorf("signal is empty")
	}
	if hopSize <= 0 {
		return nil, fmt.Errorf("invalid hop size: %d", hopSize)
	}
	if sampleRate <= 0 {
		return nil, fmt.Errorf("invalid sample rate: %d", sampleRate)
	}

	windowSize := windowSizeOf(window)
	if windowSize <= 0 {
		return nil, fmt.Errorf("invalid window size: %d", windowSize)
	}
	if len(signal) < windowSize {
		return nil, fmt.Errorf("signal too short for analysis: %d samples, window %d", len(signal), windowSize)
	}

	numFrames := (len(signal)-windowSize)/hopSize + 1
	freqBins := windowSize/2 + 1

	result := &STFTResult{
		Magnitude:      make([][]float64, numFrames),
		TimeFrames:     numFrames,
		FreqBins:       freqBins,
		SampleRate:     sampleRate,
		WindowSize:     windowSize,
		HopSize:        hopSize,
		FreqResolution: float64(sampleRate) / float64(windowSize),
		TimeResolution: float64(hopSize) / float64(sampleRate),
	}

	type frameJob struct {
		index int
		start int
	}

	numWorkers := getOptimalWorkerCount(numFrames)
	jobs := make(chan frameJob, numFrames)

	var wg sync.WaitGroup
	var firstErr error
	var errOnce sync.Once

	for w := 0; w < numWorkers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			frameBuffer := make([]float64, windowSize)
			for job := range jobs {
				copy(frameBuffer, signal[job.start:job.start+windowSize])

				if err := window.ApplyInPlace(frameBuffer); err != nil {
					errOnce.Do(func() { firstErr = err })
					continue
				}

				spectrum := s.fft.Compute(frameBuffer)

				magnitude := make([]float64, freqBins)
				for i := 0; i < freqBins; i++ {
					magnitude[i] = cmplx.Abs(spectrum[i])
				}
				result.Magnitude[job.index] = magnitude
			}
		}()
	}

	for i := 0; i < numFrames; i++ {
		jobs <- frameJob{index: i, start: i * hopSize}
	}
	close(jobs)
	wg.Wait()

	if firstErr != nil {
		return nil, fmt.Errorf("frame computation failed: %w", firstErr)
	}

	logger.Debug("STFT computed", logging.Fields{
		"frames":    numFrames,
		"freq_bins": freqBins,
		"workers":   numWorkers,
	})

	return result, nil
}

// windowSizeOf recovers the frame length from a window implementation.
func windowSizeOf(window Window) int {
	if sized, ok := window.(interface{ GetSize() int }); ok {
		return sized.GetSize()
	}
	return 0
}

// getOptimalWorkerCount sizes the frame worker pool from the workload
func getOptimalWorkerCount(numFrames int) int {
	numCPU := runtime.NumCPU()

	if numFrames < 100 {
		workers := numCPU / 2
		if workers < 1 {
			workers = 1
		}
		return workers
	}

	if numFrames < 1000 {
		if numCPU > 8 {
			return 8
		}
		return numCPU
	}

	return numCPU
}

// TimeAxis returns each frame's start time offset in seconds.
func (r *STFTResult) TimeAxis() []float64 {
	times := make([]float64, r.TimeFrames)
	for i := range times {
		times[i] = float64(i) * r.TimeResolution
	}
	return times
}

// FreqAxis returns each bin's center frequency in Hz, 0..Nyquist.
func (r *STFTResult) FreqAxis() []float64 {
	freqs := make([]float64, r.FreqBins)
	for i := range freqs {
		freqs[i] = float64(i) * r.FreqResolution
	}
	return freqs
}

// DecibelGrid converts the magnitude matrix to decibels referenced to the
// grid's peak magnitude, transposed to [frequency bin][time frame] for
// heatmap payloads. Values are clipped at topDB below the peak; an all-zero
// grid comes back as all zeros.
func (r *STFTResult) DecibelGrid(topDB float64) [][]float64 {
	if topDB <= 0 {
		topDB = defaultTopDB
	}

	ref := 0.0
	for _, frame := range r.Magnitude {
		for _, mag := range frame {
			if mag > ref {
				ref = mag
			}
		}
	}
	refDB := 20.0 * math.Log10(math.Max(aminAmplitude, ref))

	grid := make([][]float64, r.FreqBins)
	maxDB := math.Inf(-1)
	for bin := 0; bin < r.FreqBins; bin++ {
		row := make([]float64, r.TimeFrames)
		for frame := 0; frame < r.TimeFrames; frame++ {
			db := 20.0*math.Log10(math.Max(aminAmplitude, r.Magnitude[frame][bin])) - refDB
			if db > maxDB {
				maxDB = db
			}
			row[frame] = db
		}
		grid[bin] = row
	}

	floor := maxDB - topDB
	for _, row := range grid {
		for i, db := range row {
			if db < floor {
				row[i] = floor
			}
		}
	}

	return grid
}
